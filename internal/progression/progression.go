// Package progression sequences a module's activities. Each activity has a
// module-ability threshold; reaching it unlocks the next activity, and
// reaching the last one completes the module.
package progression

import (
	"slices"

	"github.com/brfoley76/PromptingHumanAgent/internal/tuning"
)

// Stage is one activity in the sequence.
type Stage struct {
	Activity tuning.ActivityType `json:"activity_type"`
	// Threshold is the module mean needed to move past this activity.
	Threshold   float64 `json:"threshold"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
}

var sequence = []Stage{
	{tuning.MultipleChoice, 0.70, "Word Quiz", "Match words with their definitions"},
	{tuning.FillInTheBlank, 0.75, "Fill It In", "Complete sentences with the right words"},
	{tuning.Spelling, 0.80, "Spell It", "Practice spelling vocabulary words"},
	{tuning.BubblePop, 0.85, "Bubble Fun", "Pop bubbles with correctly spelled words"},
	{tuning.FluentReading, 0.90, "Read Aloud", "Read a passage fluently"},
}

// Sequence returns the stages in order.
func Sequence() []Stage {
	return slices.Clone(sequence)
}

// Lookup returns the stage for activity.
func Lookup(activity tuning.ActivityType) (Stage, bool) {
	i := index(activity)
	if i < 0 {
		return Stage{}, false
	}
	return sequence[i], true
}

func index(activity tuning.ActivityType) int {
	return slices.IndexFunc(sequence, func(s Stage) bool { return s.Activity == activity })
}

// Unlocked returns the activities available at module mean. The first is
// always available; each later one needs the previous threshold.
func Unlocked(mean float64) []tuning.ActivityType {
	out := []tuning.ActivityType{sequence[0].Activity}
	for i := 0; i < len(sequence)-1; i++ {
		if mean < sequence[i].Threshold {
			break
		}
		out = append(out, sequence[i+1].Activity)
	}
	return out
}

// Complete reports whether mean clears the final threshold.
func Complete(mean float64) bool {
	return mean >= sequence[len(sequence)-1].Threshold
}

// Next recommends the activity to do after current. It advances when
// current's threshold is met, stays on current otherwise, and starts from
// the furthest unlocked activity when current is empty or unknown.
func Next(mean float64, current tuning.ActivityType) tuning.ActivityType {
	i := index(current)
	if i < 0 {
		unlocked := Unlocked(mean)
		return unlocked[len(unlocked)-1]
	}
	if mean >= sequence[i].Threshold && i < len(sequence)-1 {
		return sequence[i+1].Activity
	}
	return current
}

// Progress returns the fraction of stages whose threshold mean clears.
func Progress(mean float64) float64 {
	n := 0
	for _, s := range sequence {
		if mean >= s.Threshold {
			n++
		}
	}
	return float64(n) / float64(len(sequence))
}
