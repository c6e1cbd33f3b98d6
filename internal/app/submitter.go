package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"quiz-assessment-service/internal/domain"
)

// SessionVerifier resolves a session token to a user id. It returns domain.ErrSessionInvalid
// when the token is missing, expired or forged.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// SubmissionRecorder durably stores one row per submitted option selection. Deduplication of
// retried submissions is its concern.
type SubmissionRecorder interface {
	RecordSubmission(ctx context.Context, quizID, userID string, answers []domain.AnswerRecord) (domain.SubmissionAck, error)
}

// ResultPublisher announces acknowledged submissions. Failures are logged, never returned.
type ResultPublisher interface {
	PublishSubmission(ctx context.Context, result domain.SubmissionResult) error
}

// Submitter turns an attempt snapshot into a recorded submission. Manual and timer-forced
// submissions both go through Submit.
type Submitter struct {
	sessions  SessionVerifier
	recorder  SubmissionRecorder
	publisher ResultPublisher
	now       func() time.Time
}

func NewSubmitter(sessions SessionVerifier, recorder SubmissionRecorder) *Submitter {
	return &Submitter{sessions: sessions, recorder: recorder, now: time.Now}
}

// WithPublisher sets an optional publisher notified after acknowledgment.
func (s *Submitter) WithPublisher(p ResultPublisher) *Submitter {
	s.publisher = p
	return s
}

// Submit verifies the session, requires a persisted snapshot, records every non-null answer as
// one batch and clears the snapshot only after the recorder acknowledged it. On failure the
// snapshot is left in place so the user can retry.
func (s *Submitter) Submit(ctx context.Context, snapshots SnapshotStore, token string, snap domain.AttemptSnapshot, forced bool) (domain.SubmissionResult, error) {
	userID, err := s.sessions.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrSessionInvalid) {
			return domain.SubmissionResult{}, err
		}
		return domain.SubmissionResult{}, fmt.Errorf("%w: %v", domain.ErrSessionInvalid, err)
	}

	key := domain.AttemptKey(snap.QuizID)
	stored, err := snapshots.Load(ctx, key)
	if err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("load snapshot: %w", err)
	}
	if stored == nil {
		return domain.SubmissionResult{}, fmt.Errorf("quiz %s: %w", snap.QuizID, domain.ErrNoAttemptData)
	}

	totals := ComputeTotals(snap.Answers)
	answers := make([]domain.AnswerRecord, 0, totals.AttemptedCount)
	for _, a := range snap.Answers {
		if a != nil {
			answers = append(answers, *a)
		}
	}

	ack, err := s.recorder.RecordSubmission(ctx, snap.QuizID, userID, answers)
	if err != nil {
		if errors.Is(err, domain.ErrSessionInvalid) {
			return domain.SubmissionResult{}, err
		}
		log.Printf("submission for quiz %s failed, snapshot kept: %v", snap.QuizID, err)
		return domain.SubmissionResult{}, fmt.Errorf("%w: %v", domain.ErrNetworkFailure, err)
	}

	if err := snapshots.Clear(ctx, key); err != nil {
		log.Printf("clear snapshot %s: %v", key, err)
	}

	submittedAt := ack.RecordedAt
	if submittedAt.IsZero() {
		submittedAt = s.now().UTC()
	}
	result := domain.SubmissionResult{
		SubmissionID:     ack.SubmissionID,
		QuizID:           snap.QuizID,
		UserID:           userID,
		TotalQuestions:   len(snap.Questions),
		CorrectCount:     totals.CorrectCount,
		IncorrectCount:   totals.IncorrectCount,
		AttemptedCount:   totals.AttemptedCount,
		PositiveMarks:    totals.PositiveMarks,
		NegativeMarks:    totals.NegativeMarks,
		TotalScore:       totals.TotalScore(),
		TimeTakenSeconds: int(snap.TimeTaken() / time.Second),
		Forced:           forced,
		SubmittedAt:      submittedAt,
	}
	log.Printf("quiz %s submitted by %s: score=%.2f attempted=%d/%d forced=%v",
		result.QuizID, userID, result.TotalScore, result.AttemptedCount, result.TotalQuestions, forced)

	if s.publisher != nil {
		if err := s.publisher.PublishSubmission(ctx, result); err != nil {
			log.Printf("publish submission %s: %v", result.SubmissionID, err)
		}
	}
	return result, nil
}
