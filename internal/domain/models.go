package domain

import (
	"fmt"
	"time"
)

// QuestionKind tells whether a question has one or several correct options.
type QuestionKind string

const (
	KindSingle   QuestionKind = "single"
	KindMultiple QuestionKind = "multiple"
)

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question is an entry of the question bank.
type Question struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	GroupID string       `json:"groupId"`
	LevelID string       `json:"levelId"`
	Kind    QuestionKind `json:"kind,omitempty"`
	Options []Option     `json:"options"`
}

// CorrectSet returns the ids of the options flagged correct.
func (q Question) CorrectSet() OptionSet {
	ids := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		if opt.Correct {
			ids = append(ids, opt.ID)
		}
	}
	return NewOptionSet(ids...)
}

// Validate checks the option invariants of a question.
func (q Question) Validate() error {
	if q.ID == "" {
		return Invalid("questionId", "required")
	}
	if len(q.Options) < 2 {
		return Invalid("options", fmt.Sprintf("question %s needs at least 2 options", q.ID))
	}
	correct := q.CorrectSet().Len()
	if correct < 1 {
		return Invalid("options", fmt.Sprintf("question %s has no correct option", q.ID))
	}
	if q.Kind == KindMultiple && correct < 2 {
		return Invalid("options", fmt.Sprintf("multiple-correct question %s needs at least 2 correct options", q.ID))
	}
	return nil
}

// Quiz is a timed collection of questions drawn from one group.
type Quiz struct {
	ID              string    `json:"id"`
	GroupID         string    `json:"groupId"`
	Title           string    `json:"title"`
	DurationMinutes int       `json:"durationMinutes"`
	NegativeMarking bool      `json:"negativeMarking"`
	StartAt         time.Time `json:"startAt"`
	EndAt           time.Time `json:"endAt"`
	Visible         bool      `json:"visible"`
	QuestionCount   int       `json:"questionCount"`
}

// Duration returns the configured attempt length.
func (q Quiz) Duration() time.Duration {
	return time.Duration(q.DurationMinutes) * time.Minute
}

// OpenAt reports whether the quiz can be attempted at now. Zero bounds are unbounded.
func (q Quiz) OpenAt(now time.Time) bool {
	if !q.Visible {
		return false
	}
	if !q.StartAt.IsZero() && now.Before(q.StartAt) {
		return false
	}
	if !q.EndAt.IsZero() && now.After(q.EndAt) {
		return false
	}
	return true
}

// QuizGroup is a display bucket of quizzes sharing a group.
type QuizGroup struct {
	GroupID string `json:"groupId"`
	Quizzes []Quiz `json:"quizzes"`
}

// Mapping links a question to a quiz with its marks. Question is a snapshot taken at mapping
// time so an unmapped question can be restored without reloading the bank.
type Mapping struct {
	ID            string    `json:"id"`
	QuizID        string    `json:"quizId"`
	QuestionID    string    `json:"questionId"`
	GroupID       string    `json:"groupId"`
	LevelID       string    `json:"levelId"`
	TotalMarks    float64   `json:"totalMarks"`
	NegativeMarks float64   `json:"negativeMarks"`
	Position      int       `json:"position"`
	Question      Question  `json:"question"`
	CreatedAt     time.Time `json:"createdAt"`
}

// MappedQuestion is a question already assigned to a quiz.
type MappedQuestion struct {
	MappingID     string   `json:"mappingId"`
	Question      Question `json:"question"`
	TotalMarks    float64  `json:"totalMarks"`
	NegativeMarks float64  `json:"negativeMarks"`
}

// MappedQuestion projects the mapping for display.
func (m Mapping) MappedQuestion() MappedQuestion {
	return MappedQuestion{
		MappingID:     m.ID,
		Question:      m.Question,
		TotalMarks:    m.TotalMarks,
		NegativeMarks: m.NegativeMarks,
	}
}

// Selection is one admin-chosen question with optional marks. Nil marks use the defaults.
type Selection struct {
	QuestionID    string   `json:"questionId"`
	Marks         *float64 `json:"marks,omitempty"`
	NegativeMarks *float64 `json:"negativeMarks,omitempty"`
}

const (
	DefaultMarks         = 1.0
	DefaultNegativeMarks = 0.0
)

// Resolved returns the marks with defaults applied.
func (s Selection) Resolved() (marks, negative float64) {
	marks, negative = DefaultMarks, DefaultNegativeMarks
	if s.Marks != nil {
		marks = *s.Marks
	}
	if s.NegativeMarks != nil {
		negative = *s.NegativeMarks
	}
	return marks, negative
}

// Assignable is the result of computing the assignable pool of a quiz.
type Assignable struct {
	QuizID        string           `json:"quizId"`
	GroupID       string           `json:"groupId"`
	LevelID       string           `json:"levelId"`
	Unmapped      []Question       `json:"unmapped"`
	AlreadyMapped []MappedQuestion `json:"alreadyMapped"`
}

// MappingResult is returned by a committed map batch.
type MappingResult struct {
	QuizID        string    `json:"quizId"`
	Mapped        []Mapping `json:"mapped"`
	QuestionCount int       `json:"questionCount"`
}

// UnmapOutcome reports the fate of one mapping id in an unmap batch.
type UnmapOutcome struct {
	MappingID string `json:"mappingId"`
	Removed   bool   `json:"removed"`
	Error     string `json:"error,omitempty"`
	Err       error  `json:"-"`
}

// UnmapResult is returned by an unmap batch. Restored holds the questions that became
// assignable again, rebuilt from the removed mappings' snapshots.
type UnmapResult struct {
	QuizID        string         `json:"quizId"`
	Outcomes      []UnmapOutcome `json:"outcomes"`
	Removed       int            `json:"removed"`
	Restored      []Question     `json:"restored"`
	QuestionCount int            `json:"questionCount"`
}
