package domain

import "time"

// QuestionStatus is the per-question state of an attempt.
type QuestionStatus string

const (
	StatusNotVisited      QuestionStatus = "not-visited"
	StatusNotAnswered     QuestionStatus = "not-answered"
	StatusAnswered        QuestionStatus = "answered"
	StatusMarkedForReview QuestionStatus = "marked-for-review"
)

// QuizQuestion is one entry of the resolved payload an attempt runs on.
type QuizQuestion struct {
	MappingID        string    `json:"mappingId"`
	QuestionID       string    `json:"questionId"`
	Text             string    `json:"text"`
	Options          []Option  `json:"options"`
	CorrectOptionIDs OptionSet `json:"correctOptionIds"`
	TotalMarks       float64   `json:"totalMarks"`
	NegativeMarks    float64   `json:"negativeMarks"`
}

// HasOption reports whether optionID belongs to the question.
func (q QuizQuestion) HasOption(optionID string) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// AnswerRecord is the user's selection for one question.
type AnswerRecord struct {
	QuestionID       string  `json:"questionId"`
	SelectedOptionID string  `json:"selectedOptionId"`
	IsCorrect        bool    `json:"isCorrect"`
	MarksAwarded     float64 `json:"marksAwarded"`
	MaxMarks         float64 `json:"maxMarks"`
	NegativeMarks    float64 `json:"negativeMarks"`
}

// RemainingTime is the countdown shown to the user.
type RemainingTime struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// RemainingFromDuration splits d into hours, minutes and seconds. Negative d is zero.
func RemainingFromDuration(d time.Duration) RemainingTime {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return RemainingTime{
		Hours:   total / 3600,
		Minutes: (total % 3600) / 60,
		Seconds: total % 60,
	}
}

// Duration converts the countdown back to a duration.
func (r RemainingTime) Duration() time.Duration {
	return time.Duration(r.Hours)*time.Hour + time.Duration(r.Minutes)*time.Minute + time.Duration(r.Seconds)*time.Second
}

// IsZero reports whether the countdown reached 0:0:0.
func (r RemainingTime) IsZero() bool {
	return r.Hours <= 0 && r.Minutes <= 0 && r.Seconds <= 0
}

// Decrement removes one second, borrowing from minutes and hours. It stops at zero.
func (r RemainingTime) Decrement() RemainingTime {
	if r.IsZero() {
		return RemainingTime{}
	}
	r.Seconds--
	if r.Seconds < 0 {
		r.Seconds = 59
		r.Minutes--
		if r.Minutes < 0 {
			r.Minutes = 59
			r.Hours--
		}
	}
	return r
}

// AttemptSnapshot is the persisted form of an attempt. Questions pins the payload the attempt
// started with.
type AttemptSnapshot struct {
	QuizID      string           `json:"quizId"`
	GroupID     string           `json:"groupId"`
	UserID      string           `json:"userId"`
	Duration    time.Duration    `json:"duration"`
	Questions   []QuizQuestion   `json:"questions"`
	Answers     []*AnswerRecord  `json:"answers"`
	Statuses    []QuestionStatus `json:"statuses"`
	Remaining   RemainingTime    `json:"remaining"`
	Current     int              `json:"current"`
	StartedAt   time.Time        `json:"startedAt"`
	LastSavedAt time.Time        `json:"lastSavedAt"`
	// PriorElapsed is countdown time spent in earlier sessions when a resume restarted the
	// countdown from the full duration.
	PriorElapsed time.Duration `json:"priorElapsed,omitempty"`
}

// TimeTaken is the countdown time consumed across every session of the attempt.
func (s AttemptSnapshot) TimeTaken() time.Duration {
	taken := s.PriorElapsed + s.Duration - s.Remaining.Duration()
	if taken < 0 {
		return 0
	}
	return taken
}

// AttemptKey is the snapshot key for a quiz attempt.
func AttemptKey(quizID string) string {
	return "quiz_attempt_" + quizID
}

// Totals is the reduction of an answer log.
type Totals struct {
	PositiveMarks  float64 `json:"positiveMarks"`
	NegativeMarks  float64 `json:"negativeMarks"`
	CorrectCount   int     `json:"correctCount"`
	IncorrectCount int     `json:"incorrectCount"`
	AttemptedCount int     `json:"attemptedCount"`
}

// TotalScore is positive minus negative marks. It is not clamped at zero.
func (t Totals) TotalScore() float64 {
	return t.PositiveMarks - t.NegativeMarks
}

// SubmissionAck is the acknowledgment returned by submission persistence.
type SubmissionAck struct {
	SubmissionID string    `json:"submissionId"`
	Rows         int       `json:"rows"`
	RecordedAt   time.Time `json:"recordedAt"`
}

// SubmissionResult is the immutable outcome of a submitted attempt.
type SubmissionResult struct {
	SubmissionID     string    `json:"submissionId"`
	QuizID           string    `json:"quizId"`
	UserID           string    `json:"userId"`
	TotalQuestions   int       `json:"totalQuestions"`
	CorrectCount     int       `json:"correctCount"`
	IncorrectCount   int       `json:"incorrectCount"`
	AttemptedCount   int       `json:"attemptedCount"`
	PositiveMarks    float64   `json:"positiveMarks"`
	NegativeMarks    float64   `json:"negativeMarks"`
	TotalScore       float64   `json:"totalScore"`
	TimeTakenSeconds int       `json:"timeTakenSeconds"`
	Forced           bool      `json:"forced"`
	SubmittedAt      time.Time `json:"submittedAt"`
}
