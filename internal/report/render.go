package report

import (
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/brfoley76/PromptingHumanAgent/internal/curriculum"
	"github.com/brfoley76/PromptingHumanAgent/internal/engine"
	"github.com/brfoley76/PromptingHumanAgent/internal/tier"
	"github.com/brfoley76/PromptingHumanAgent/internal/ui/components"
	"github.com/brfoley76/PromptingHumanAgent/internal/ui/theme"
)

const meterWidth = 56

// Render writes a styled report for one student: a card per level with its
// summary, followed by a meter per record.
func Render(w io.Writer, studentID string, g *curriculum.Graph, views []engine.EstimateView, summaries []LevelSummary) error {
	var blocks []string
	blocks = append(blocks, theme.Title.Render("Proficiency report: "+studentID))

	if len(views) == 0 {
		blocks = append(blocks, theme.Hint.Render("No records yet."))
	}

	for _, s := range summaries {
		var lines []string
		lines = append(lines, theme.Heading.Render(fmt.Sprintf("%s (%d records, %d observed, %d samples)",
			strings.ToUpper(string(s.Level)), s.Records, s.Observed, s.Samples)))
		if s.Observed > 0 {
			lines = append(lines, theme.Body.Render(fmt.Sprintf(
				"mean %.2f  median %.2f  sd %.2f  iqr %.2f–%.2f  confidence %.2f",
				s.Mean, s.Median, s.StdDev, s.Q25, s.Q75, s.MeanConfidence)))
		}
		lines = append(lines, tierCounts(s.Tiers))

		for _, v := range views {
			if v.Level != s.Level {
				continue
			}
			label := fmt.Sprintf("%-22s", truncate(g.Name(v.Level, v.ID), 22))
			meter := components.NewMeter(label, v.MeanAbility, v.Lower, v.Upper, meterWidth)
			t := "-"
			if v.HasTier {
				t = theme.Tier(v.Tier).Render(v.Tier.String())
			}
			lines = append(lines, fmt.Sprintf("%s  n=%-4d %s", meter.View(), v.SampleCount, t))
		}
		blocks = append(blocks, theme.Card.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	}

	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, blocks...))
	return err
}

func tierCounts(counts map[tier.Tier]int) string {
	parts := make([]string, 0, len(tier.All()))
	for _, t := range tier.All() {
		parts = append(parts, theme.Tier(t).Render(fmt.Sprintf("%s %d", t, counts[t])))
	}
	return strings.Join(parts, theme.Hint.Render(" · "))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
