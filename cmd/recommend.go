package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brfoley76/PromptingHumanAgent/internal/engine"
	"github.com/brfoley76/PromptingHumanAgent/internal/tuning"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend the next activity in a module",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		student, _ := flags.GetString("student")
		module, _ := flags.GetString("module")
		activity, _ := flags.GetString("activity")

		svc, closeFn, err := newService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		rec, err := svc.Recommend(cmd.Context(), engine.RecommendRequest{
			StudentID: student,
			ModuleID:  module,
			Activity:  tuning.ActivityType(activity),
		})
		if err != nil {
			return fmt.Errorf("recommend: %w", err)
		}
		return printJSON(rec)
	},
}

func init() {
	f := recommendCmd.Flags()
	f.String("student", "", "Student ID (required)")
	f.String("module", "", "Module ID (required)")
	f.String("activity", "", "Activity type (default: next in the progression)")
	_ = recommendCmd.MarkFlagRequired("student")
	_ = recommendCmd.MarkFlagRequired("module")
}
