package tuning

// questionSteps gates the recommended session length on the module estimate:
// the first row whose mean and confidence floors are both met wins.
var questionSteps = []struct {
	minMean, minConfidence float64
	count                  int
}{
	{0.85, 0.8, 5},
	{0.70, 0.6, 7},
}

// fullQuestionCount is the session length when no shorter step applies.
const fullQuestionCount = 10

// QuestionCount returns how many questions to recommend for a session. A
// student must be both able and reliably measured to get a shorter one.
func QuestionCount(mean, confidence float64) int {
	for _, s := range questionSteps {
		if mean >= s.minMean && confidence >= s.minConfidence {
			return s.count
		}
	}
	return fullQuestionCount
}
