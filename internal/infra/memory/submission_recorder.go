package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-assessment-service/internal/domain"
)

// SubmissionRow is one recorded option selection.
type SubmissionRow struct {
	SubmissionID string
	QuizID       string
	UserID       string
	Answer       domain.AnswerRecord
	RecordedAt   time.Time
}

// SubmissionRecorder stores submission rows in memory.
type SubmissionRecorder struct {
	mu   sync.Mutex
	rows []SubmissionRow
	now  func() time.Time
}

func NewSubmissionRecorder() *SubmissionRecorder {
	return &SubmissionRecorder{now: time.Now}
}

func (r *SubmissionRecorder) RecordSubmission(_ context.Context, quizID, userID string, answers []domain.AnswerRecord) (domain.SubmissionAck, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ack := domain.SubmissionAck{
		SubmissionID: uuid.NewString(),
		Rows:         len(answers),
		RecordedAt:   r.now().UTC(),
	}
	for _, a := range answers {
		r.rows = append(r.rows, SubmissionRow{
			SubmissionID: ack.SubmissionID,
			QuizID:       quizID,
			UserID:       userID,
			Answer:       a,
			RecordedAt:   ack.RecordedAt,
		})
	}
	return ack, nil
}

// Rows returns a copy of everything recorded so far.
func (r *SubmissionRecorder) Rows() []SubmissionRow {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SubmissionRow, len(r.rows))
	copy(out, r.rows)
	return out
}
