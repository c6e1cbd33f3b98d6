package app

import (
	"math"

	"quiz-assessment-service/internal/domain"
)

// BuildAnswer scores one selection against the question's correct set.
func BuildAnswer(q domain.QuizQuestion, optionID string) domain.AnswerRecord {
	correct := q.CorrectOptionIDs.Contains(optionID)
	awarded := q.TotalMarks
	if !correct {
		awarded = -q.NegativeMarks
	}
	return domain.AnswerRecord{
		QuestionID:       q.QuestionID,
		SelectedOptionID: optionID,
		IsCorrect:        correct,
		MarksAwarded:     awarded,
		MaxMarks:         q.TotalMarks,
		NegativeMarks:    q.NegativeMarks,
	}
}

// ComputeTotals reduces an answer log. Nil slots are unattempted questions.
func ComputeTotals(answers []*domain.AnswerRecord) domain.Totals {
	var t domain.Totals
	for _, a := range answers {
		if a == nil {
			continue
		}
		t.AttemptedCount++
		if a.IsCorrect {
			t.CorrectCount++
			t.PositiveMarks += a.MarksAwarded
			continue
		}
		t.IncorrectCount++
		t.NegativeMarks += math.Abs(a.MarksAwarded)
	}
	return t
}
