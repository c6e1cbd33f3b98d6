package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quiz-assessment-service/internal/domain"
)

// EventType names the notifications an attempt emits to its subscribers.
type EventType string

const (
	EventTick         EventType = "tick"
	EventState        EventType = "state"
	EventSubmitted    EventType = "submitted"
	EventSubmitFailed EventType = "submitFailed"
)

// Event is pushed to subscribers after ticks, state changes and submissions.
type Event struct {
	Type      EventType                `json:"type"`
	Remaining domain.RemainingTime     `json:"remaining"`
	Current   int                      `json:"current"`
	Result    *domain.SubmissionResult `json:"result,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

// StatusSummary counts questions per status for the question palette.
type StatusSummary struct {
	NotVisited      int `json:"notVisited"`
	NotAnswered     int `json:"notAnswered"`
	Answered        int `json:"answered"`
	MarkedForReview int `json:"markedForReview"`
}

// OptionView is an option without its correctness flag.
type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// AttemptView is what a client renders for the current question.
type AttemptView struct {
	QuizID           string                   `json:"quizId"`
	Current          int                      `json:"current"`
	Total            int                      `json:"total"`
	QuestionID       string                   `json:"questionId"`
	Text             string                   `json:"text"`
	Options          []OptionView             `json:"options"`
	SelectedOptionID string                   `json:"selectedOptionId,omitempty"`
	Statuses         []domain.QuestionStatus  `json:"statuses"`
	Summary          StatusSummary            `json:"summary"`
	Remaining        domain.RemainingTime     `json:"remaining"`
	Submitting       bool                     `json:"submitting"`
	Result           *domain.SubmissionResult `json:"result,omitempty"`
}

// Attempt is one user's pass through a quiz. Actions and timer ticks serialize on mu; every
// answer change is written through to the snapshot store before the call returns.
type Attempt struct {
	mu        sync.Mutex
	snap      domain.AttemptSnapshot
	store     SnapshotStore
	submitter *Submitter
	token     string
	now       func() time.Time

	expired     bool
	submitting  bool
	result      *domain.SubmissionResult
	subscribers map[chan Event]struct{}
}

func newAttempt(snap domain.AttemptSnapshot, store SnapshotStore, submitter *Submitter, token string, now func() time.Time) *Attempt {
	return &Attempt{
		snap:        snap,
		store:       store,
		submitter:   submitter,
		token:       token,
		now:         now,
		subscribers: make(map[chan Event]struct{}),
	}
}

// freshSnapshot initializes an attempt: every question not-visited, no answers, full countdown.
func freshSnapshot(quiz domain.Quiz, userID string, questions []domain.QuizQuestion, now time.Time) domain.AttemptSnapshot {
	statuses := make([]domain.QuestionStatus, len(questions))
	for i := range statuses {
		statuses[i] = domain.StatusNotVisited
	}
	return domain.AttemptSnapshot{
		QuizID:    quiz.ID,
		GroupID:   quiz.GroupID,
		UserID:    userID,
		Duration:  quiz.Duration(),
		Questions: questions,
		Answers:   make([]*domain.AnswerRecord, len(questions)),
		Statuses:  statuses,
		Remaining: domain.RemainingFromDuration(quiz.Duration()),
		StartedAt: now,
	}
}

// Snapshot returns a deep copy of the current state.
func (a *Attempt) Snapshot() domain.AttemptSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneSnapshot(a.snap)
}

// View renders the current question without leaking correct answers.
func (a *Attempt) View() AttemptView {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.viewLocked()
}

// HasOption reports whether optionID belongs to the current question. Callers relaying
// untrusted input check this before SelectAnswer.
func (a *Attempt) HasOption(optionID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap.Questions[a.snap.Current].HasOption(optionID)
}

// Submitted reports whether the attempt has been acknowledged.
func (a *Attempt) Submitted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result != nil
}

// NavigateTo moves to question index. Leaving an unanswered, never-left question marks it
// not-answered.
func (a *Attempt) NavigateTo(ctx context.Context, index int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkEditableLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(a.snap.Questions) {
		return domain.Invalid("index", fmt.Sprintf("question %d out of range [0,%d)", index, len(a.snap.Questions)))
	}
	if index == a.snap.Current {
		return nil
	}
	a.leaveCurrentLocked()
	a.snap.Current = index
	if err := a.persistLocked(ctx); err != nil {
		return err
	}
	a.broadcastLocked(Event{Type: EventState})
	return nil
}

// Next moves forward one question, staying on the last one.
func (a *Attempt) Next(ctx context.Context) error {
	a.mu.Lock()
	next := a.snap.Current + 1
	if next >= len(a.snap.Questions) {
		next = len(a.snap.Questions) - 1
	}
	a.mu.Unlock()
	return a.NavigateTo(ctx, next)
}

// Previous moves back one question, staying on the first one.
func (a *Attempt) Previous(ctx context.Context) error {
	a.mu.Lock()
	prev := a.snap.Current - 1
	if prev < 0 {
		prev = 0
	}
	a.mu.Unlock()
	return a.NavigateTo(ctx, prev)
}

// SelectAnswer records optionID for the current question. An option outside the current
// question is a programming error and panics.
func (a *Attempt) SelectAnswer(ctx context.Context, optionID string) (domain.AnswerRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkEditableLocked(); err != nil {
		return domain.AnswerRecord{}, err
	}
	q := a.snap.Questions[a.snap.Current]
	if !q.HasOption(optionID) {
		panic(fmt.Sprintf("attempt: option %q is not an option of question %q", optionID, q.QuestionID))
	}

	record := BuildAnswer(q, optionID)
	a.snap.Answers[a.snap.Current] = &record
	a.snap.Statuses[a.snap.Current] = domain.StatusAnswered
	if err := a.persistLocked(ctx); err != nil {
		return domain.AnswerRecord{}, err
	}
	a.broadcastLocked(Event{Type: EventState})
	return record, nil
}

// ClearAnswer drops the current answer and reverts the question to not-answered.
func (a *Attempt) ClearAnswer(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkEditableLocked(); err != nil {
		return err
	}
	a.snap.Answers[a.snap.Current] = nil
	a.snap.Statuses[a.snap.Current] = domain.StatusNotAnswered
	if err := a.persistLocked(ctx); err != nil {
		return err
	}
	a.broadcastLocked(Event{Type: EventState})
	return nil
}

// MarkForReview flags the current question and advances to the next not-visited question
// (or simply the next one). On the last question it submits the attempt and returns the result.
func (a *Attempt) MarkForReview(ctx context.Context) (*domain.SubmissionResult, error) {
	a.mu.Lock()
	if err := a.checkEditableLocked(); err != nil {
		a.mu.Unlock()
		return nil, err
	}
	a.snap.Statuses[a.snap.Current] = domain.StatusMarkedForReview

	last := a.snap.Current == len(a.snap.Questions)-1
	if !last {
		a.snap.Current = a.nextIndexLocked()
	}
	if err := a.persistLocked(ctx); err != nil {
		a.mu.Unlock()
		return nil, err
	}
	a.broadcastLocked(Event{Type: EventState})
	a.mu.Unlock()

	if !last {
		return nil, nil
	}
	result, err := a.submit(ctx, false)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Tick advances the countdown by one second. When it reaches zero the attempt is force
// submitted, once; later ticks are ignored.
func (a *Attempt) Tick(ctx context.Context) error {
	a.mu.Lock()
	if a.result != nil || a.expired {
		a.mu.Unlock()
		return nil
	}
	a.snap.Remaining = a.snap.Remaining.Decrement()
	a.broadcastLocked(Event{Type: EventTick})
	if !a.snap.Remaining.IsZero() {
		a.mu.Unlock()
		return nil
	}
	a.expired = true
	a.mu.Unlock()

	_, err := a.ForceSubmit(ctx)
	return err
}

// Run drives Tick from ticker until ctx is done or the attempt is submitted.
func (a *Attempt) Run(ctx context.Context, ticker Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			_ = a.Tick(ctx)
			if a.Submitted() {
				return
			}
		}
	}
}

// Submit records the attempt. Repeated calls after acknowledgment return the same result.
func (a *Attempt) Submit(ctx context.Context) (domain.SubmissionResult, error) {
	return a.submit(ctx, false)
}

// ForceSubmit is the timer-driven submission. It marks the current question as visited and
// then follows the same path as Submit.
func (a *Attempt) ForceSubmit(ctx context.Context) (domain.SubmissionResult, error) {
	return a.submit(ctx, true)
}

// Reset discards all progress, clears the snapshot and restarts the attempt on the same
// pinned questions.
func (a *Attempt) Reset(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkMutableLocked(); err != nil {
		return err
	}
	if err := a.store.Clear(ctx, domain.AttemptKey(a.snap.QuizID)); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	quiz := domain.Quiz{ID: a.snap.QuizID, GroupID: a.snap.GroupID}
	fresh := freshSnapshot(quiz, a.snap.UserID, a.snap.Questions, a.now().UTC().Round(0))
	fresh.Duration = a.snap.Duration
	fresh.Remaining = domain.RemainingFromDuration(a.snap.Duration)
	a.snap = fresh
	a.expired = false
	if err := a.persistLocked(ctx); err != nil {
		return err
	}
	a.broadcastLocked(Event{Type: EventState})
	return nil
}

// Subscribe returns a channel of attempt events. The caller must invoke cancel.
func (a *Attempt) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	a.mu.Lock()
	a.subscribers[ch] = struct{}{}
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel
}

func (a *Attempt) submit(ctx context.Context, forced bool) (domain.SubmissionResult, error) {
	a.mu.Lock()
	if a.result != nil {
		r := *a.result
		a.mu.Unlock()
		return r, nil
	}
	if a.submitting {
		a.mu.Unlock()
		return domain.SubmissionResult{}, domain.ErrSubmissionInFlight
	}
	if forced {
		a.leaveCurrentLocked()
		if err := a.persistLocked(ctx); err != nil {
			a.mu.Unlock()
			return domain.SubmissionResult{}, err
		}
	}
	a.submitting = true
	snap := cloneSnapshot(a.snap)
	a.broadcastLocked(Event{Type: EventState})
	a.mu.Unlock()

	result, err := a.submitter.Submit(ctx, a.store, a.token, snap, forced)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.submitting = false
	if err != nil {
		a.broadcastLocked(Event{Type: EventSubmitFailed, Error: err.Error()})
		return domain.SubmissionResult{}, err
	}
	a.result = &result
	a.broadcastLocked(Event{Type: EventSubmitted, Result: &result})
	return result, nil
}

func (a *Attempt) checkMutableLocked() error {
	if a.result != nil {
		return domain.ErrAttemptSubmitted
	}
	if a.submitting {
		return domain.ErrSubmissionInFlight
	}
	return nil
}

// checkEditableLocked additionally rejects answer and navigation changes after the countdown
// expired, so a retried forced submission scores what was there at zero.
func (a *Attempt) checkEditableLocked() error {
	if err := a.checkMutableLocked(); err != nil {
		return err
	}
	if a.expired {
		return domain.ErrAttemptExpired
	}
	return nil
}

// leaveCurrentLocked marks the current question visited-but-skipped.
func (a *Attempt) leaveCurrentLocked() {
	cur := a.snap.Current
	if a.snap.Answers[cur] == nil && a.snap.Statuses[cur] == domain.StatusNotVisited {
		a.snap.Statuses[cur] = domain.StatusNotAnswered
	}
}

// nextIndexLocked picks the first not-visited question after the current one, falling back to
// the next index.
func (a *Attempt) nextIndexLocked() int {
	for i := a.snap.Current + 1; i < len(a.snap.Statuses); i++ {
		if a.snap.Statuses[i] == domain.StatusNotVisited {
			return i
		}
	}
	return a.snap.Current + 1
}

func (a *Attempt) persistLocked(ctx context.Context) error {
	a.snap.LastSavedAt = a.now().UTC().Round(0)
	if err := a.store.Save(ctx, domain.AttemptKey(a.snap.QuizID), a.snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (a *Attempt) broadcastLocked(ev Event) {
	ev.Remaining = a.snap.Remaining
	ev.Current = a.snap.Current
	for ch := range a.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest queued event so a slow reader never blocks the attempt.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (a *Attempt) viewLocked() AttemptView {
	q := a.snap.Questions[a.snap.Current]
	options := make([]OptionView, len(q.Options))
	for i, opt := range q.Options {
		options[i] = OptionView{ID: opt.ID, Text: opt.Text}
	}
	view := AttemptView{
		QuizID:     a.snap.QuizID,
		Current:    a.snap.Current,
		Total:      len(a.snap.Questions),
		QuestionID: q.QuestionID,
		Text:       q.Text,
		Options:    options,
		Statuses:   append([]domain.QuestionStatus(nil), a.snap.Statuses...),
		Summary:    summarize(a.snap.Statuses),
		Remaining:  a.snap.Remaining,
		Submitting: a.submitting,
		Result:     a.result,
	}
	if ans := a.snap.Answers[a.snap.Current]; ans != nil {
		view.SelectedOptionID = ans.SelectedOptionID
	}
	return view
}

func summarize(statuses []domain.QuestionStatus) StatusSummary {
	var s StatusSummary
	for _, st := range statuses {
		switch st {
		case domain.StatusNotVisited:
			s.NotVisited++
		case domain.StatusNotAnswered:
			s.NotAnswered++
		case domain.StatusAnswered:
			s.Answered++
		case domain.StatusMarkedForReview:
			s.MarkedForReview++
		}
	}
	return s
}

func cloneSnapshot(s domain.AttemptSnapshot) domain.AttemptSnapshot {
	out := s
	out.Questions = append([]domain.QuizQuestion(nil), s.Questions...)
	out.Statuses = append([]domain.QuestionStatus(nil), s.Statuses...)
	out.Answers = make([]*domain.AnswerRecord, len(s.Answers))
	for i, a := range s.Answers {
		if a != nil {
			cp := *a
			out.Answers[i] = &cp
		}
	}
	return out
}
