package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brfoley76/PromptingHumanAgent/internal/engine"
	"github.com/brfoley76/PromptingHumanAgent/internal/tuning"
)

var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Generate settings for an activity about to start",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		req := engine.ActivityRequest{}
		req.StudentID, _ = flags.GetString("student")
		activity, _ := flags.GetString("activity")
		req.Activity = tuning.ActivityType(activity)
		req.ItemID, _ = flags.GetString("item")
		req.ModuleID, _ = flags.GetString("module")
		req.DomainID, _ = flags.GetString("domain")

		svc, closeFn, err := newService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		res, err := svc.StartActivity(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("start activity: %w", err)
		}
		return printJSON(res)
	},
}

func init() {
	f := tuneCmd.Flags()
	f.String("student", "", "Student ID (required)")
	f.String("activity", "", "Activity type (required)")
	f.String("item", "", "Item ID")
	f.String("module", "", "Module ID")
	f.String("domain", "", "Domain ID")
	_ = tuneCmd.MarkFlagRequired("student")
	_ = tuneCmd.MarkFlagRequired("activity")
}
