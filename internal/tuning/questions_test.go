package tuning

import "testing"

func TestQuestionCount(t *testing.T) {
	tests := []struct {
		name             string
		mean, confidence float64
		want             int
	}{
		{"mastery check", 0.90, 0.85, 5},
		{"at both upper floors", 0.85, 0.8, 5},
		{"able but uncertain", 0.90, 0.7, 7},
		{"moderate", 0.75, 0.65, 7},
		{"at both lower floors", 0.70, 0.6, 7},
		{"able with little evidence", 0.95, 0.3, 10},
		{"struggling but well measured", 0.50, 0.95, 10},
		{"prior", 0.5, 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuestionCount(tt.mean, tt.confidence); got != tt.want {
				t.Errorf("QuestionCount(%v, %v) = %d, want %d", tt.mean, tt.confidence, got, tt.want)
			}
		})
	}
}
