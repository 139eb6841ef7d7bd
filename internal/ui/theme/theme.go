package theme

import (
	"charm.land/lipgloss/v2"

	"github.com/brfoley76/PromptingHumanAgent/internal/tier"
)

// Color palette
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Heading = lipgloss.NewStyle().
		Bold(true).
		Foreground(Secondary)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// Card frames a block of report output.
var Card = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Border).
	Padding(0, 1)

// Meter segments
var (
	MeterFilled = lipgloss.NewStyle().
			Foreground(Secondary)

	MeterEmpty = lipgloss.NewStyle().
			Foreground(Border)
)

// Tier returns the style a tier name is rendered in.
func Tier(t tier.Tier) lipgloss.Style {
	switch t {
	case tier.Hard:
		return lipgloss.NewStyle().Foreground(Error).Bold(true)
	case tier.Moderate:
		return lipgloss.NewStyle().Foreground(Accent).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(Success).Bold(true)
	}
}
