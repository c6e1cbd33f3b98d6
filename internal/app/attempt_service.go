package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"quiz-assessment-service/internal/domain"
)

// TimerMode selects how the countdown is restored when a saved attempt is resumed.
type TimerMode string

const (
	// TimerNominal restarts the countdown from the quiz duration on every load.
	TimerNominal TimerMode = "nominal"
	// TimerElapsed subtracts the wall-clock time since the attempt started.
	TimerElapsed TimerMode = "elapsed"
)

// ParseTimerMode maps a config value to a TimerMode, defaulting to TimerNominal.
func ParseTimerMode(raw string) (TimerMode, error) {
	switch TimerMode(raw) {
	case "", TimerNominal:
		return TimerNominal, nil
	case TimerElapsed:
		return TimerElapsed, nil
	}
	return "", fmt.Errorf("unknown timer mode %q", raw)
}

// AttemptService starts and resumes attempts.
type AttemptService struct {
	quizzes   QuizDirectory
	mappings  MappingStore
	snapshots SnapshotStore
	sessions  SessionVerifier
	submitter *Submitter
	timerMode TimerMode
	now       func() time.Time
}

func NewAttemptService(quizzes QuizDirectory, mappings MappingStore, snapshots SnapshotStore, sessions SessionVerifier, submitter *Submitter) *AttemptService {
	return &AttemptService{
		quizzes:   quizzes,
		mappings:  mappings,
		snapshots: snapshots,
		sessions:  sessions,
		submitter: submitter,
		timerMode: TimerNominal,
		now:       time.Now,
	}
}

// WithTimerMode sets the resume policy of the countdown.
func (s *AttemptService) WithTimerMode(mode TimerMode) *AttemptService {
	s.timerMode = mode
	return s
}

// WithClock is used by tests for deterministic timestamps.
func (s *AttemptService) WithClock(now func() time.Time) *AttemptService {
	s.now = now
	return s
}

// ListQuizzesForUser returns the visible quizzes grouped by group.
func (s *AttemptService) ListQuizzesForUser(ctx context.Context) ([]domain.QuizGroup, error) {
	quizzes, err := s.quizzes.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	return GroupQuizzes(quizzes), nil
}

// Start opens an attempt for the token's user. A saved snapshot for the quiz is resumed
// verbatim, including the question payload it was started with; otherwise a fresh attempt is
// built from the quiz's current mappings and persisted. The bool reports a resume.
func (s *AttemptService) Start(ctx context.Context, token, quizID string) (*Attempt, bool, error) {
	userID, err := s.sessions.Verify(ctx, token)
	if err != nil {
		return nil, false, err
	}
	store := UserSnapshots(s.snapshots, userID)
	key := domain.AttemptKey(quizID)
	now := s.now().UTC().Round(0)

	saved, err := store.Load(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("load snapshot: %w", err)
	}
	if saved != nil {
		s.resumeTimer(saved, now)
		attempt := newAttempt(*saved, store, s.submitter, token, s.now)
		attempt.mu.Lock()
		err = attempt.persistLocked(ctx)
		attempt.mu.Unlock()
		if err != nil {
			return nil, false, err
		}
		log.Printf("resuming attempt %s for %s at question %d", key, userID, saved.Current)
		return attempt, true, nil
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, false, err
	}
	if !quiz.OpenAt(now) {
		return nil, false, fmt.Errorf("quiz %s: %w", quizID, domain.ErrQuizClosed)
	}
	mappings, err := s.mappings.ListMappings(ctx, quizID)
	if err != nil {
		return nil, false, err
	}
	if len(mappings) == 0 {
		return nil, false, domain.Invalid("quizId", fmt.Sprintf("quiz %s has no questions", quizID))
	}

	snap := freshSnapshot(quiz, userID, BuildPayload(quiz, mappings), now)
	attempt := newAttempt(snap, store, s.submitter, token, s.now)

	attempt.mu.Lock()
	err = attempt.persistLocked(ctx)
	attempt.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	log.Printf("started attempt %s for %s with %d questions", key, userID, len(snap.Questions))
	return attempt, false, nil
}

// resumeTimer restores the countdown of a saved attempt. In nominal mode the time already
// counted down is carried in PriorElapsed so the result still reports the full time taken.
func (s *AttemptService) resumeTimer(snap *domain.AttemptSnapshot, now time.Time) {
	switch s.timerMode {
	case TimerElapsed:
		snap.Remaining = domain.RemainingFromDuration(snap.Duration - now.Sub(snap.StartedAt))
	default:
		if spent := snap.Duration - snap.Remaining.Duration(); spent > 0 {
			snap.PriorElapsed += spent
		}
		snap.Remaining = domain.RemainingFromDuration(snap.Duration)
	}
}
