package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"quiz-assessment-service/internal/domain"
)

type submissionRow struct {
	bun.BaseModel `bun:"table:quiz_submissions"`

	ID               int64     `bun:"id,pk,autoincrement"`
	SubmissionID     string    `bun:"submission_id"`
	QuizID           string    `bun:"quiz_id"`
	UserID           string    `bun:"user_id"`
	QuestionID       string    `bun:"question_id"`
	SelectedOptionID string    `bun:"selected_option_id"`
	IsCorrect        bool      `bun:"is_correct"`
	MarksAwarded     float64   `bun:"marks_awarded"`
	MaxMarks         float64   `bun:"max_marks"`
	NegativeMarks    float64   `bun:"negative_marks"`
	RecordedAt       time.Time `bun:"recorded_at"`
}

// SubmissionStore writes one row per answered question, all under one submission id and one
// transaction.
type SubmissionStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewSubmissionStore(db *bun.DB) *SubmissionStore {
	return &SubmissionStore{db: db, now: time.Now}
}

func (s *SubmissionStore) RecordSubmission(ctx context.Context, quizID, userID string, answers []domain.AnswerRecord) (domain.SubmissionAck, error) {
	ack := domain.SubmissionAck{
		SubmissionID: uuid.NewString(),
		Rows:         len(answers),
		RecordedAt:   s.now().UTC().Round(0),
	}
	if len(answers) == 0 {
		return ack, nil
	}

	rows := make([]submissionRow, len(answers))
	for i, a := range answers {
		rows[i] = submissionRow{
			SubmissionID:     ack.SubmissionID,
			QuizID:           quizID,
			UserID:           userID,
			QuestionID:       a.QuestionID,
			SelectedOptionID: a.SelectedOptionID,
			IsCorrect:        a.IsCorrect,
			MarksAwarded:     a.MarksAwarded,
			MaxMarks:         a.MaxMarks,
			NegativeMarks:    a.NegativeMarks,
			RecordedAt:       ack.RecordedAt,
		}
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
	if err != nil {
		return domain.SubmissionAck{}, fmt.Errorf("record submission: %w", err)
	}
	return ack, nil
}

// SubmissionRows returns the rows recorded for a submission, in insertion order.
func (s *SubmissionStore) SubmissionRows(ctx context.Context, submissionID string) ([]domain.AnswerRecord, error) {
	var rows []submissionRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("submission_id = ?", submissionID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}
	out := make([]domain.AnswerRecord, len(rows))
	for i, r := range rows {
		out[i] = domain.AnswerRecord{
			QuestionID:       r.QuestionID,
			SelectedOptionID: r.SelectedOptionID,
			IsCorrect:        r.IsCorrect,
			MarksAwarded:     r.MarksAwarded,
			MaxMarks:         r.MaxMarks,
			NegativeMarks:    r.NegativeMarks,
		}
	}
	return out, nil
}
