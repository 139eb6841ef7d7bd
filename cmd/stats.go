package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brfoley76/PromptingHumanAgent/internal/report"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show proficiency statistics",
	Long:  "Show per-level summaries and every estimate for one student, or for all students when --student is omitted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		asJSON, _ := cmd.Flags().GetBool("json")

		svc, closeFn, err := newService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		ctx := cmd.Context()
		students := []string{student}
		if student == "" {
			if students, err = svc.Students(ctx); err != nil {
				return fmt.Errorf("list students: %w", err)
			}
			if len(students) == 0 {
				fmt.Println("No students found.")
				return nil
			}
		}

		type studentStats struct {
			StudentID string                `json:"student_id"`
			Levels    []report.LevelSummary `json:"levels"`
		}
		var all []studentStats

		for _, id := range students {
			views, err := svc.Report(ctx, id)
			if err != nil {
				return fmt.Errorf("report %s: %w", id, err)
			}
			summaries, err := report.Summarize(views)
			if err != nil {
				return err
			}
			if asJSON {
				all = append(all, studentStats{StudentID: id, Levels: summaries})
				continue
			}
			if err := report.Render(os.Stdout, id, svc.Curriculum(), views, summaries); err != nil {
				return err
			}
		}
		if asJSON {
			return printJSON(all)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().String("student", "", "Student ID (default: all students)")
	statsCmd.Flags().Bool("json", false, "Print summaries as JSON")
}
