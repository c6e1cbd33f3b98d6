package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"quiz-assessment-service/internal/domain"
)

type quizQuestionRow struct {
	bun.BaseModel `bun:"table:quiz_questions"`

	ID            string          `bun:"id,pk"`
	QuizID        string          `bun:"quiz_id"`
	QuestionID    string          `bun:"question_id"`
	GroupID       string          `bun:"group_id"`
	LevelID       string          `bun:"level_id"`
	TotalMarks    float64         `bun:"total_marks"`
	NegativeMarks float64         `bun:"negative_marks"`
	Position      int             `bun:"position"`
	Question      domain.Question `bun:"question,type:jsonb"`
	CreatedAt     time.Time       `bun:"created_at"`
	RemovedAt     time.Time       `bun:"removed_at,nullzero"`
}

func rowFromMapping(m domain.Mapping) quizQuestionRow {
	return quizQuestionRow{
		ID:            m.ID,
		QuizID:        m.QuizID,
		QuestionID:    m.QuestionID,
		GroupID:       m.GroupID,
		LevelID:       m.LevelID,
		TotalMarks:    m.TotalMarks,
		NegativeMarks: m.NegativeMarks,
		Position:      m.Position,
		Question:      m.Question,
		CreatedAt:     m.CreatedAt,
	}
}

func (r quizQuestionRow) mapping() domain.Mapping {
	return domain.Mapping{
		ID:            r.ID,
		QuizID:        r.QuizID,
		QuestionID:    r.QuestionID,
		GroupID:       r.GroupID,
		LevelID:       r.LevelID,
		TotalMarks:    r.TotalMarks,
		NegativeMarks: r.NegativeMarks,
		Position:      r.Position,
		Question:      r.Question,
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

// MappingStore keeps quiz-question mappings in Postgres. Removal is a soft delete; the partial
// unique index on (quiz_id, question_id) only covers live rows, so a removed question can be
// mapped again.
type MappingStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewMappingStore(db *bun.DB) *MappingStore {
	return &MappingStore{db: db, now: time.Now}
}

func (s *MappingStore) ListMappings(ctx context.Context, quizID string) ([]domain.Mapping, error) {
	var rows []quizQuestionRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("quiz_id = ?", quizID).
		Where("removed_at IS NULL").
		Order("position ASC", "created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	out := make([]domain.Mapping, len(rows))
	for i, r := range rows {
		out[i] = r.mapping()
	}
	return out, nil
}

func (s *MappingStore) CommitMappings(ctx context.Context, quizID string, batch []domain.Mapping) (int, error) {
	rows := make([]quizQuestionRow, len(batch))
	for i, m := range batch {
		if m.QuizID != quizID {
			return 0, domain.Invalid("quizId", fmt.Sprintf("mapping %s belongs to quiz %s", m.ID, m.QuizID))
		}
		rows[i] = rowFromMapping(m)
	}

	var count int
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return err
		}
		var err error
		count, err = syncQuestionCount(ctx, tx, quizID)
		return err
	})
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("quiz %s: %w", quizID, domain.ErrMappingConflict)
	}
	if err != nil {
		return 0, fmt.Errorf("commit mappings: %w", err)
	}
	return count, nil
}

func (s *MappingStore) RevokeMappings(ctx context.Context, quizID string, mappingIDs []string) ([]domain.Mapping, int, error) {
	var (
		removed []quizQuestionRow
		count   int
	)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model((*quizQuestionRow)(nil)).
			Set("removed_at = ?", s.now().UTC()).
			Where("quiz_id = ?", quizID).
			Where("id IN (?)", bun.In(mappingIDs)).
			Where("removed_at IS NULL").
			Returning("*").
			Exec(ctx, &removed)
		if err != nil {
			return err
		}
		count, err = syncQuestionCount(ctx, tx, quizID)
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("revoke mappings: %w", err)
	}
	out := make([]domain.Mapping, len(removed))
	for i, r := range removed {
		out[i] = r.mapping()
	}
	return out, count, nil
}

// syncQuestionCount recomputes quizzes.question_count inside the batch transaction.
func syncQuestionCount(ctx context.Context, tx bun.Tx, quizID string) (int, error) {
	count, err := tx.NewSelect().
		Model((*quizQuestionRow)(nil)).
		Where("quiz_id = ?", quizID).
		Where("removed_at IS NULL").
		Count(ctx)
	if err != nil {
		return 0, err
	}
	_, err = tx.NewUpdate().
		Table("quizzes").
		Set("question_count = ?", count).
		Where("id = ?", quizID).
		Exec(ctx)
	return count, err
}
