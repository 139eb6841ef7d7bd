package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/brfoley76/PromptingHumanAgent/internal/engine"
	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
	"github.com/brfoley76/PromptingHumanAgent/internal/tuning"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record one graded attempt",
	Long: `Record one graded attempt and print the updated estimates, the selected
tier and, when --activity is given, the settings for that activity.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := attemptFromFlags(cmd.Flags())
		if err != nil {
			return err
		}

		svc, closeFn, err := newService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		res, err := svc.RecordAttempt(cmd.Context(), a)
		if err != nil {
			return fmt.Errorf("record attempt: %w", err)
		}
		return printJSON(res)
	},
}

func init() {
	addRecordFlags(recordCmd.Flags())
	_ = recordCmd.MarkFlagRequired("student")
}

func addRecordFlags(f *pflag.FlagSet) {
	f.String("student", "", "Student ID (required)")
	f.String("item", "", "Item ID")
	f.String("module", "", "Module ID")
	f.String("domain", "", "Domain ID")
	f.Float64("score", 0, "Fractional credit in [0, 1]")
	f.Bool("correct", false, "Binary correctness; overrides --score")
	f.Float64("weight", 1, "Evidence weight, must be positive")
	f.String("activity", "", "Activity type to tune for next")
	f.String("at", "", "Attempt time in RFC 3339 (default now)")
}

// attemptFromFlags builds the attempt from the record flags. The weight is
// only set when --weight was passed, so an explicit 0 reaches validation.
func attemptFromFlags(flags *pflag.FlagSet) (engine.Attempt, error) {
	student, _ := flags.GetString("student")
	item, _ := flags.GetString("item")
	module, _ := flags.GetString("module")
	domain, _ := flags.GetString("domain")
	score, _ := flags.GetFloat64("score")
	activity, _ := flags.GetString("activity")
	at, _ := flags.GetString("at")

	a := engine.Attempt{
		Outcome: proficiency.Outcome{
			StudentID: student,
			ItemID:    item,
			ModuleID:  module,
			DomainID:  domain,
			Score:     score,
		},
		Activity: tuning.ActivityType(activity),
	}
	if flags.Changed("weight") {
		w, _ := flags.GetFloat64("weight")
		a.Weight = &w
	}
	if flags.Changed("correct") {
		ok, _ := flags.GetBool("correct")
		a.Correct = &ok
	}
	if at != "" {
		ts, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return a, fmt.Errorf("invalid --at %q: %w", at, err)
		}
		a.Timestamp = ts
	}
	return a, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
