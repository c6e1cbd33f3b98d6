package app

import (
	"testing"

	"quiz-assessment-service/internal/domain"
)

func TestComputeTotals(t *testing.T) {
	q := domain.QuizQuestion{QuestionID: "q", CorrectOptionIDs: domain.NewOptionSet("b"), TotalMarks: 4, NegativeMarks: 1}
	right := BuildAnswer(q, "b")
	wrong := BuildAnswer(q, "a")

	totals := ComputeTotals([]*domain.AnswerRecord{&right, nil, &wrong, &right})
	if totals.AttemptedCount != 3 || totals.CorrectCount != 2 || totals.IncorrectCount != 1 {
		t.Fatalf("unexpected counts %+v", totals)
	}
	if totals.PositiveMarks != 8 || totals.NegativeMarks != 1 || totals.TotalScore() != 7 {
		t.Fatalf("unexpected marks %+v", totals)
	}
	if totals.CorrectCount+totals.IncorrectCount != totals.AttemptedCount {
		t.Fatalf("counts do not add up")
	}
}

func TestComputeTotalsAllWrongGoesNegative(t *testing.T) {
	q := domain.QuizQuestion{QuestionID: "q", CorrectOptionIDs: domain.NewOptionSet("b"), TotalMarks: 1, NegativeMarks: 0.25}
	wrong := BuildAnswer(q, "c")
	totals := ComputeTotals([]*domain.AnswerRecord{&wrong, &wrong})
	if totals.TotalScore() != -0.5 {
		t.Fatalf("expected -0.5, got %v", totals.TotalScore())
	}
}

func TestBuildPayloadOrdersAndZeroesNegatives(t *testing.T) {
	question := func(id string) domain.Question {
		return domain.Question{ID: id, Options: []domain.Option{{ID: "a"}, {ID: "b", Correct: true}}}
	}
	mappings := []domain.Mapping{
		{ID: "m2", QuestionID: "q2", Position: 1, TotalMarks: 3, NegativeMarks: 1, Question: question("q2")},
		{ID: "m1", QuestionID: "q1", Position: 0, TotalMarks: 2, NegativeMarks: 1, Question: question("q1")},
	}
	payload := BuildPayload(domain.Quiz{ID: "quiz", NegativeMarking: false}, mappings)
	if len(payload) != 2 || payload[0].QuestionID != "q1" || payload[1].QuestionID != "q2" {
		t.Fatalf("unexpected order %+v", payload)
	}
	for _, q := range payload {
		if q.NegativeMarks != 0 {
			t.Fatalf("expected negatives zeroed, got %+v", q)
		}
		if !q.CorrectOptionIDs.Contains("b") {
			t.Fatalf("expected b correct for %s", q.QuestionID)
		}
	}
}
