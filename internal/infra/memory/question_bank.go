package memory

import (
	"context"
	"sort"

	"quiz-assessment-service/internal/domain"
)

// QuestionBank is an in-memory question bank.
type QuestionBank struct {
	questions []domain.Question
}

func NewQuestionBank(questions ...domain.Question) *QuestionBank {
	cp := make([]domain.Question, len(questions))
	copy(cp, questions)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].ID < cp[j].ID })
	return &QuestionBank{questions: cp}
}

func (b *QuestionBank) ListQuestions(_ context.Context, groupID, levelID string) ([]domain.Question, error) {
	out := make([]domain.Question, 0, len(b.questions))
	for _, q := range b.questions {
		if q.GroupID != groupID {
			continue
		}
		if levelID != "" && q.LevelID != levelID {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}
