package tuning

var (
	easyMediumHard   = []string{"easy", "medium", "hard"}
	easyModerateHard = []string{"easy", "moderate", "hard"}
)

// DefaultSpecs returns the built-in tuning tables for every known activity.
// Columns are easy, moderate, hard.
func DefaultSpecs() []ActivitySpec {
	return []ActivitySpec{
		{
			Type: MultipleChoice,
			Fields: []FieldSpec{
				{Name: "difficulty", Kind: KindEnum, Options: easyMediumHard, Choices: [3]string{"easy", "medium", "hard"}},
				{Name: "num_questions", Kind: KindInt, Min: 5, Max: 20, Base: [3]float64{10, 10, 8}, Slope: -0.5},
				{Name: "num_choices", Kind: KindInt, Min: 3, Max: 5, Base: [3]float64{3, 4, 5}},
				{Name: "time_limit", Kind: KindIntChoice, Options: []string{nullOption, "60", "120"}, Choices: [3]string{nullOption, "120", "60"}},
			},
		},
		{
			Type: Spelling,
			Fields: []FieldSpec{
				{Name: "difficulty", Kind: KindEnum, Options: easyMediumHard, Choices: [3]string{"easy", "medium", "hard"}},
				{Name: "num_questions", Kind: KindInt, Min: 5, Max: 20, Base: [3]float64{8, 10, 12}, Slope: 0.5},
				{Name: "hint_availability", Kind: KindEnum, Options: []string{"always", "after_1_attempt", "after_2_attempts", "never"}, Choices: [3]string{"always", "after_1_attempt", "never"}},
			},
		},
		{
			Type: BubblePop,
			Fields: []FieldSpec{
				{Name: "difficulty", Kind: KindEnum, Options: easyModerateHard, Choices: [3]string{"easy", "moderate", "hard"}},
				{Name: "bubble_speed", Kind: KindFloat, Min: 0.5, Max: 2.0, Base: [3]float64{1.0, 1.5, 2.0}, Slope: 1},
				{Name: "error_rate", Kind: KindFloat, Min: 0, Max: 0.5, Base: [3]float64{0.2, 0.3, 0.4}, Slope: 0.5},
				{Name: "game_mode", Kind: KindEnum, Options: []string{"correct_only", "incorrect_only", "both"}, Choices: [3]string{"correct_only", "incorrect_only", "both"}},
				{Name: "initial_delay", Kind: KindInt, Min: 1000, Max: 3000, Base: [3]float64{3000, 2000, 1200}, Slope: -1},
				{Name: "min_delay", Kind: KindInt, Min: 300, Max: 1000, Base: [3]float64{1000, 600, 350}, Slope: -1},
				{Name: "ramp_rate", Kind: KindInt, Min: 25, Max: 100, Base: [3]float64{25, 50, 90}, Slope: 1},
			},
		},
		{
			Type: FillInTheBlank,
			Fields: []FieldSpec{
				{Name: "difficulty", Kind: KindEnum, Options: []string{"easy", "moderate"}, Choices: [3]string{"easy", "moderate", "moderate"}},
				{Name: "num_questions", Kind: KindInt, Min: 5, Max: 15, Base: [3]float64{8, 10, 12}, Slope: 0.5},
				{Name: "word_bank_size", Kind: KindEnum, Options: []string{"required_only", "all_vocabulary"}, Choices: [3]string{"required_only", "all_vocabulary", "all_vocabulary"}},
			},
		},
		{
			Type: FluentReading,
			Fields: []FieldSpec{
				{Name: "difficulty", Kind: KindEnum, Options: easyModerateHard, Choices: [3]string{"easy", "moderate", "hard"}},
				{Name: "reading_speed_wpm", Kind: KindInt, Min: 60, Max: 120, Base: [3]float64{70, 90, 110}, Slope: 0.5},
				{Name: "variant_type", Kind: KindEnum, Options: []string{"vocab", "spelling", "all"}, Choices: [3]string{"vocab", "spelling", "all"}},
				{Name: "time_multiplier", Kind: KindFloat, Min: 1.0, Max: 2.0, Base: [3]float64{2.0, 1.5, 1.1}, Slope: -1},
				{Name: "checkpoint_frequency", Kind: KindEnum, Options: []string{"low", "medium", "high"}, Choices: [3]string{"high", "medium", "low"}},
			},
		},
	}
}
