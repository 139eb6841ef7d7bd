package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/brfoley76/PromptingHumanAgent/internal/ui/theme"
)

// Meter displays an ability estimate as a horizontal bar with its credible
// interval marked beneath the fill.
type Meter struct {
	Label string
	Value float64
	// Lo and Hi bound the interval. Both zero hides it.
	Lo, Hi float64
	Width  int
}

// NewMeter creates a meter for value within [lo, hi].
func NewMeter(label string, value, lo, hi float64, width int) Meter {
	return Meter{Label: label, Value: value, Lo: lo, Hi: hi, Width: width}
}

func cells(frac float64, width int) int {
	n := int(float64(width) * frac)
	return max(0, min(n, width))
}

// View renders the meter.
func (m Meter) View() string {
	var result string

	if m.Label != "" {
		result += lipgloss.NewStyle().Foreground(theme.Text).Render(m.Label) + "  "
	}

	barWidth := m.Width - lipgloss.Width(result) - 6 // "  100%"
	if barWidth < 4 {
		barWidth = 4
	}

	filled := cells(m.Value, barWidth)
	lo, hi := cells(m.Lo, barWidth), cells(m.Hi, barWidth)
	showInterval := m.Lo != 0 || m.Hi != 0

	var b strings.Builder
	for i := range barWidth {
		ch := "─"
		if showInterval && i >= lo && i < max(hi, lo+1) {
			ch = "━"
		}
		if i < filled {
			b.WriteString(theme.MeterFilled.Render(ch))
		} else {
			b.WriteString(theme.MeterEmpty.Render(ch))
		}
	}
	result += b.String()

	result += lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Render(fmt.Sprintf("  %3d%%", int(m.Value*100+0.5)))

	return result
}
