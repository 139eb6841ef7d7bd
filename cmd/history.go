package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brfoley76/PromptingHumanAgent/internal/ui/theme"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List a student's tier changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		limit, _ := cmd.Flags().GetInt("limit")

		svc, closeFn, err := newService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		changes, err := svc.TierHistory(cmd.Context(), student, limit)
		if err != nil {
			return fmt.Errorf("query tier changes: %w", err)
		}
		if len(changes) == 0 {
			fmt.Println("No tier changes found.")
			return nil
		}

		// Header.
		fmt.Printf("%-6s  %-19s  %-32s  %-8s     %-8s  %-15s  %5s  %5s\n",
			"Seq", "Timestamp", "Key", "From", "To", "Rule", "Mean", "Conf")
		fmt.Println(strings.Repeat("─", 112))

		for _, c := range changes {
			key := string(c.Key.Level) + "/" + c.Key.ID
			if len(key) > 32 {
				key = key[:31] + "…"
			}
			fmt.Printf("%-6d  %-19s  %-32s  %-8s  →  %-8s  %-15s  %5.2f  %5.2f\n",
				c.Sequence,
				c.At.Local().Format("2006-01-02 15:04:05"),
				key,
				c.From,
				theme.Tier(c.To).Render(c.To.String()),
				c.Rule,
				c.Mean,
				c.Confidence,
			)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().String("student", "", "Student ID (required)")
	historyCmd.Flags().Int("limit", 20, "Maximum number of changes to show (0 for all)")
	_ = historyCmd.MarkFlagRequired("student")
}
