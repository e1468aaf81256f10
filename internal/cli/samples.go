package cli

import "live-quiz-service/internal/domain"

// sampleQuizzes are served when no database is configured, and seeded into
// one with `start --seed`.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Warm-up",
			Questions: []domain.Question{
				{
					Text: "What is 2 + 2?",
					Options: []domain.Option{
						{Text: "3"},
						{Text: "4", IsCorrect: true},
						{Text: "5"},
						{Text: "22"},
					},
				},
				{
					Text:      "Which planet is closest to the sun?",
					TimeLimit: 15,
					Options: []domain.Option{
						{Text: "Venus"},
						{Text: "Mercury", IsCorrect: true},
						{Text: "Mars"},
						{Text: "Earth"},
					},
				},
				{
					Text:      "Go was announced in which year?",
					TimeLimit: 30,
					Points:    2000,
					Options: []domain.Option{
						{Text: "2007"},
						{Text: "2009", IsCorrect: true},
						{Text: "2012"},
					},
				},
			},
		},
		"true-false": {
			ID:    "true-false",
			Title: "True or false",
			Questions: []domain.Question{
				{
					Text:      "Goroutines are OS threads.",
					Type:      "true_false",
					TimeLimit: 10,
					Options:   []domain.Option{{Text: "True"}, {Text: "False", IsCorrect: true}},
				},
				{
					Text:      "A nil map can be read from.",
					Type:      "true_false",
					TimeLimit: 10,
					Options:   []domain.Option{{Text: "True", IsCorrect: true}, {Text: "False"}},
				},
			},
		},
	}
}
