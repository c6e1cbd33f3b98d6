package app

import "quiz-assessment-service/internal/domain"

// SelectionSet collects the questions an admin picked from the assignable pool, with their
// per-question marks, before they are committed with MapSelected.
type SelectionSet struct {
	order []string
	items map[string]*domain.Selection
}

func NewSelectionSet() *SelectionSet {
	return &SelectionSet{items: make(map[string]*domain.Selection)}
}

// Select adds a question with default marks. Selecting twice is a no-op.
func (s *SelectionSet) Select(questionID string) {
	if _, ok := s.items[questionID]; ok {
		return
	}
	s.order = append(s.order, questionID)
	s.items[questionID] = &domain.Selection{QuestionID: questionID}
}

// Deselect drops a question and its edits.
func (s *SelectionSet) Deselect(questionID string) {
	if _, ok := s.items[questionID]; !ok {
		return
	}
	delete(s.items, questionID)
	for i, id := range s.order {
		if id == questionID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// SetMarks edits one selected question. Returns false if it is not selected.
func (s *SelectionSet) SetMarks(questionID string, marks float64) bool {
	sel, ok := s.items[questionID]
	if !ok {
		return false
	}
	sel.Marks = &marks
	return true
}

// SetNegativeMarks edits one selected question. Returns false if it is not selected.
func (s *SelectionSet) SetNegativeMarks(questionID string, negative float64) bool {
	sel, ok := s.items[questionID]
	if !ok {
		return false
	}
	sel.NegativeMarks = &negative
	return true
}

// SetAllMarks overrides the marks of every selected question, including earlier edits.
func (s *SelectionSet) SetAllMarks(marks float64) {
	for _, sel := range s.items {
		v := marks
		sel.Marks = &v
	}
}

// SetAllNegativeMarks overrides the negative marks of every selected question.
func (s *SelectionSet) SetAllNegativeMarks(negative float64) {
	for _, sel := range s.items {
		v := negative
		sel.NegativeMarks = &v
	}
}

// Contains reports whether questionID is selected.
func (s *SelectionSet) Contains(questionID string) bool {
	_, ok := s.items[questionID]
	return ok
}

// Len returns the number of selected questions.
func (s *SelectionSet) Len() int { return len(s.order) }

// Selections returns the selected questions in selection order.
func (s *SelectionSet) Selections() []domain.Selection {
	out := make([]domain.Selection, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.items[id])
	}
	return out
}

// Reset empties the set, typically after a successful commit.
func (s *SelectionSet) Reset() {
	s.order = nil
	s.items = make(map[string]*domain.Selection)
}
