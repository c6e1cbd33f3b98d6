package cli

import "quiz-assessment-service/internal/domain"

// sampleQuizzes seeds the in-memory mode; production data comes from Postgres.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:              "quiz-1",
			GroupID:         "math",
			Title:           "Arithmetic warm-up",
			DurationMinutes: 10,
			NegativeMarking: true,
			Visible:         true,
		},
		"quiz-2": {
			ID:              "quiz-2",
			GroupID:         "math",
			Title:           "Fractions",
			DurationMinutes: 15,
			Visible:         true,
		},
	}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID: "q1", Text: "What is 2 + 2?", GroupID: "math", LevelID: "easy", Kind: domain.KindSingle,
			Options: []domain.Option{{ID: "o1", Text: "3"}, {ID: "o2", Text: "4", Correct: true}, {ID: "o3", Text: "5"}},
		},
		{
			ID: "q2", Text: "What is 9 / 3?", GroupID: "math", LevelID: "easy", Kind: domain.KindSingle,
			Options: []domain.Option{{ID: "o1", Text: "3", Correct: true}, {ID: "o2", Text: "6"}},
		},
		{
			ID: "q3", Text: "Which are equal to 1/2?", GroupID: "math", LevelID: "medium", Kind: domain.KindMultiple,
			Options: []domain.Option{{ID: "o1", Text: "2/4", Correct: true}, {ID: "o2", Text: "3/6", Correct: true}, {ID: "o3", Text: "2/3"}},
		},
	}
}
