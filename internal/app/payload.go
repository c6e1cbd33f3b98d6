package app

import (
	"sort"

	"quiz-assessment-service/internal/domain"
)

// BuildPayload resolves a quiz's mappings into the ordered question list an attempt runs on.
// Negative marks only apply when the quiz enables negative marking.
func BuildPayload(quiz domain.Quiz, mappings []domain.Mapping) []domain.QuizQuestion {
	out := make([]domain.QuizQuestion, 0, len(mappings))
	for _, m := range sortedMappings(mappings) {
		negative := m.NegativeMarks
		if !quiz.NegativeMarking {
			negative = 0
		}
		options := make([]domain.Option, len(m.Question.Options))
		copy(options, m.Question.Options)
		out = append(out, domain.QuizQuestion{
			MappingID:        m.ID,
			QuestionID:       m.QuestionID,
			Text:             m.Question.Text,
			Options:          options,
			CorrectOptionIDs: m.Question.CorrectSet(),
			TotalMarks:       m.TotalMarks,
			NegativeMarks:    negative,
		})
	}
	return out
}

func sortedMappings(mappings []domain.Mapping) []domain.Mapping {
	out := make([]domain.Mapping, len(mappings))
	copy(out, mappings)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// GroupQuizzes buckets the quizzes a user may see by group, ordered by group id and then by
// start time.
func GroupQuizzes(quizzes []domain.Quiz) []domain.QuizGroup {
	visible := make([]domain.Quiz, 0, len(quizzes))
	for _, q := range quizzes {
		if q.Visible {
			visible = append(visible, q)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		if visible[i].GroupID != visible[j].GroupID {
			return visible[i].GroupID < visible[j].GroupID
		}
		if !visible[i].StartAt.Equal(visible[j].StartAt) {
			return visible[i].StartAt.Before(visible[j].StartAt)
		}
		return visible[i].ID < visible[j].ID
	})

	var groups []domain.QuizGroup
	for _, q := range visible {
		if n := len(groups); n > 0 && groups[n-1].GroupID == q.GroupID {
			groups[n-1].Quizzes = append(groups[n-1].Quizzes, q)
			continue
		}
		groups = append(groups, domain.QuizGroup{GroupID: q.GroupID, Quizzes: []domain.Quiz{q}})
	}
	return groups
}
