package scoring

import "live-quiz-service/internal/domain"

// TallyResult is the per-option histogram of one question.
type TallyResult struct {
	AnswerCounts []int `json:"answerCounts"`
	CorrectCount int   `json:"correctCount"`
	TotalAnswers int   `json:"totalAnswers"`
}

// Tally buckets answers by option. Options outside [0, optionCount) are stale
// or corrupt input and are left out of the histogram.
func Tally(answers []domain.Answer, optionCount, correctIndex int) TallyResult {
	if optionCount < 0 {
		optionCount = 0
	}
	res := TallyResult{AnswerCounts: make([]int, optionCount)}
	for _, a := range answers {
		if a.OptionIndex < 0 || a.OptionIndex >= optionCount {
			continue
		}
		res.AnswerCounts[a.OptionIndex]++
		res.TotalAnswers++
		if a.OptionIndex == correctIndex {
			res.CorrectCount++
		}
	}
	return res
}
