package progression

import (
	"slices"
	"testing"

	"github.com/brfoley76/PromptingHumanAgent/internal/tuning"
)

func TestUnlocked(t *testing.T) {
	tests := []struct {
		mean float64
		want []tuning.ActivityType
	}{
		{0.0, []tuning.ActivityType{tuning.MultipleChoice}},
		{0.69, []tuning.ActivityType{tuning.MultipleChoice}},
		{0.70, []tuning.ActivityType{tuning.MultipleChoice, tuning.FillInTheBlank}},
		{0.79, []tuning.ActivityType{tuning.MultipleChoice, tuning.FillInTheBlank, tuning.Spelling}},
		{0.85, []tuning.ActivityType{tuning.MultipleChoice, tuning.FillInTheBlank, tuning.Spelling, tuning.BubblePop, tuning.FluentReading}},
	}
	for _, tt := range tests {
		if got := Unlocked(tt.mean); !slices.Equal(got, tt.want) {
			t.Errorf("Unlocked(%v) = %v, want %v", tt.mean, got, tt.want)
		}
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		mean    float64
		current tuning.ActivityType
		want    tuning.ActivityType
	}{
		{"stay below threshold", 0.6, tuning.MultipleChoice, tuning.MultipleChoice},
		{"advance at threshold", 0.7, tuning.MultipleChoice, tuning.FillInTheBlank},
		{"last activity stays", 0.95, tuning.FluentReading, tuning.FluentReading},
		{"no current picks furthest unlocked", 0.76, "", tuning.Spelling},
		{"unknown current", 0.1, "crossword", tuning.MultipleChoice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Next(tt.mean, tt.current); got != tt.want {
				t.Errorf("Next(%v, %q) = %q, want %q", tt.mean, tt.current, got, tt.want)
			}
		})
	}
}

func TestCompleteAndProgress(t *testing.T) {
	if Complete(0.89) || !Complete(0.9) {
		t.Error("Complete threshold should be 0.90")
	}
	if got := Progress(0.76); got != 0.4 {
		t.Errorf("Progress(0.76) = %v, want 0.4", got)
	}
	if got := Progress(1); got != 1 {
		t.Errorf("Progress(1) = %v, want 1", got)
	}
}

func TestLookup(t *testing.T) {
	s, ok := Lookup(tuning.BubblePop)
	if !ok || s.Threshold != 0.85 || s.Name == "" {
		t.Errorf("Lookup(bubble_pop) = %+v, %v", s, ok)
	}
	if _, ok := Lookup("crossword"); ok {
		t.Error("Lookup of unknown activity should fail")
	}
	seq := Sequence()
	seq[0].Threshold = 0
	if Sequence()[0].Threshold != 0.70 {
		t.Error("Sequence must return a copy")
	}
}
