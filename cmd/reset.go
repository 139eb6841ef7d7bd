package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset learner estimates",
	Long: `Reset one estimate and everything below it, re-pooling its ancestors, or
every estimate of a student when --level is omitted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		level, _ := cmd.Flags().GetString("level")
		id, _ := cmd.Flags().GetString("id")

		svc, closeFn, err := newService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		ctx := cmd.Context()
		if level == "" {
			if err := svc.ResetStudent(ctx, student); err != nil {
				return fmt.Errorf("reset student: %w", err)
			}
			fmt.Printf("Reset all estimates for %s.\n", student)
			return nil
		}

		lvl, err := proficiency.ParseLevel(level)
		if err != nil {
			return err
		}
		key := proficiency.Key{StudentID: student, Level: lvl, ID: id}
		if err := svc.Reset(ctx, key); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		fmt.Printf("Reset %s.\n", key)
		return nil
	},
}

func init() {
	resetCmd.Flags().String("student", "", "Student ID (required)")
	resetCmd.Flags().String("level", "", "Level to reset: item, module or domain")
	resetCmd.Flags().String("id", "", "Identifier at --level")
	_ = resetCmd.MarkFlagRequired("student")
	resetCmd.MarkFlagsRequiredTogether("level", "id")
}
