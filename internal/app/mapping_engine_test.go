package app_test

import (
	"context"
	"errors"
	"testing"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/domain"
)

func TestSetAllMarksOverridesEveryQuestion(t *testing.T) {
	set := app.NewSelectionSet()
	for _, id := range []string{"q1", "q2", "q3", "q4", "q5"} {
		set.Select(id)
	}
	set.SetMarks("q3", 7)

	set.SetAllMarks(2)

	sels := set.Selections()
	if len(sels) != 5 {
		t.Fatalf("expected 5 selections, got %d", len(sels))
	}
	for _, sel := range sels {
		marks, _ := sel.Resolved()
		if marks != 2 {
			t.Fatalf("expected marks 2 for %s, got %v", sel.QuestionID, marks)
		}
	}
}

func TestSelectionDefaults(t *testing.T) {
	set := app.NewSelectionSet()
	set.Select("q1")
	set.Select("q1")
	set.Select("q2")
	set.Deselect("q2")
	if set.SetMarks("q2", 3) {
		t.Fatalf("expected SetMarks on deselected question to fail")
	}

	sels := set.Selections()
	if len(sels) != 1 {
		t.Fatalf("expected 1 selection, got %d", len(sels))
	}
	marks, negative := sels[0].Resolved()
	if marks != domain.DefaultMarks || negative != domain.DefaultNegativeMarks {
		t.Fatalf("expected defaults, got marks=%v negative=%v", marks, negative)
	}
}

func TestFetchAssignableFiltersByLevelAndMapping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 6, sampleQuiz())

	pool, err := f.engine.FetchAssignable(ctx, testQuiz, testGroup, "easy")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(pool.Unmapped) != 3 {
		t.Fatalf("expected 3 easy questions, got %d", len(pool.Unmapped))
	}

	if _, err := f.engine.MapSelected(ctx, testQuiz, testGroup, []domain.Selection{{QuestionID: "q1"}}); err != nil {
		t.Fatalf("map: %v", err)
	}

	pool, err = f.engine.FetchAssignable(ctx, testQuiz, testGroup, "easy")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(pool.Unmapped) != 2 || len(pool.AlreadyMapped) != 1 {
		t.Fatalf("expected 2 unmapped/1 mapped, got %d/%d", len(pool.Unmapped), len(pool.AlreadyMapped))
	}
	if got := pool.AlreadyMapped[0]; got.Question.ID != "q1" || got.TotalMarks != 1 || got.NegativeMarks != 0 {
		t.Fatalf("unexpected mapped question %+v", got)
	}

	if _, err := f.engine.FetchAssignable(ctx, testQuiz, "other-group", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for foreign group, got %v", err)
	}
}

func TestMapSelectedUpdatesQuestionCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5, sampleQuiz())

	res := f.mapAll(t, 2, 0.5)
	if len(res.Mapped) != 5 || res.QuestionCount != 5 {
		t.Fatalf("expected 5 mapped, got %d (count %d)", len(res.Mapped), res.QuestionCount)
	}
	for i, m := range res.Mapped {
		if m.TotalMarks != 2 || m.NegativeMarks != 0.5 || m.Position != i {
			t.Fatalf("unexpected mapping %+v", m)
		}
	}

	quiz, err := f.quizzes.GetQuiz(ctx, testQuiz)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.QuestionCount != 5 {
		t.Fatalf("expected quiz question count 5, got %d", quiz.QuestionCount)
	}
}

func TestMapSelectedValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3, sampleQuiz())
	neg := -1.0

	cases := map[string][]domain.Selection{
		"empty":          nil,
		"unknown":        {{QuestionID: "q99"}},
		"duplicate":      {{QuestionID: "q1"}, {QuestionID: "q1"}},
		"negative marks": {{QuestionID: "q1", Marks: &neg}},
	}
	for name, sels := range cases {
		if _, err := f.engine.MapSelected(ctx, testQuiz, testGroup, sels); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	if _, err := f.engine.MapSelected(ctx, testQuiz, "g2", []domain.Selection{{QuestionID: "q1"}}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for wrong group, got %v", err)
	}

	mappings, _ := f.mappings.ListMappings(ctx, testQuiz)
	if len(mappings) != 0 {
		t.Fatalf("expected no mappings after rejected batches, got %d", len(mappings))
	}
}

func TestMapSelectedRejectsDuplicateMapping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3, sampleQuiz())

	if _, err := f.engine.MapSelected(ctx, testQuiz, testGroup, []domain.Selection{{QuestionID: "q1"}}); err != nil {
		t.Fatalf("map: %v", err)
	}
	_, err := f.engine.MapSelected(ctx, testQuiz, testGroup, []domain.Selection{{QuestionID: "q2"}, {QuestionID: "q1"}})
	if !errors.Is(err, domain.ErrMappingConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	mappings, _ := f.mappings.ListMappings(ctx, testQuiz)
	if len(mappings) != 1 {
		t.Fatalf("expected batch to be all-or-nothing, got %d mappings", len(mappings))
	}
	assertNoDuplicatePairs(t, mappings)
}

func TestMapSelectedDetectsConcurrentCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3, sampleQuiz())

	racing := &racingStore{MappingStore: f.mappings}
	engine := app.NewMappingEngine(bankFor(3), f.quizzes, racing)
	racing.before = func() {
		// Another admin maps q2 between our fetch and our commit.
		other := app.NewMappingEngine(bankFor(3), f.quizzes, f.mappings)
		if _, err := other.MapSelected(ctx, testQuiz, testGroup, []domain.Selection{{QuestionID: "q2"}}); err != nil {
			t.Fatalf("concurrent map: %v", err)
		}
	}

	_, err := engine.MapSelected(ctx, testQuiz, testGroup, []domain.Selection{{QuestionID: "q1"}, {QuestionID: "q2"}})
	if !errors.Is(err, domain.ErrMappingConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	mappings, _ := f.mappings.ListMappings(ctx, testQuiz)
	if len(mappings) != 1 || mappings[0].QuestionID != "q2" {
		t.Fatalf("expected only the concurrent mapping, got %+v", mappings)
	}
}

func TestUnmapThenRemap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3, sampleQuiz())
	res := f.mapAll(t, 1, 0)

	var mappingID string
	for _, m := range res.Mapped {
		if m.QuestionID == "q2" {
			mappingID = m.ID
		}
	}

	pool, err := f.engine.FetchAssignable(ctx, testQuiz, testGroup, "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(pool.Unmapped) != 0 {
		t.Fatalf("expected empty pool, got %d", len(pool.Unmapped))
	}

	unmapped, err := f.engine.UnmapSelected(ctx, testQuiz, []string{mappingID})
	if err != nil {
		t.Fatalf("unmap: %v", err)
	}
	if unmapped.Removed != 1 || unmapped.QuestionCount != 2 {
		t.Fatalf("expected 1 removed and count 2, got %+v", unmapped)
	}
	if len(unmapped.Restored) != 1 || unmapped.Restored[0].ID != "q2" || len(unmapped.Restored[0].Options) != 3 {
		t.Fatalf("expected q2 restored with options, got %+v", unmapped.Restored)
	}

	// Client-side view updates without a round-trip.
	pool.ApplyUnmapped(unmapped)
	if len(pool.Unmapped) != 1 || pool.Unmapped[0].ID != "q2" {
		t.Fatalf("expected q2 back in local pool, got %+v", pool.Unmapped)
	}

	fresh, err := f.engine.FetchAssignable(ctx, testQuiz, testGroup, "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(fresh.Unmapped) != 1 || fresh.Unmapped[0].ID != "q2" {
		t.Fatalf("expected q2 assignable, got %+v", fresh.Unmapped)
	}
	for _, m := range fresh.AlreadyMapped {
		if m.Question.ID == "q2" {
			t.Fatalf("q2 still listed as mapped")
		}
	}

	remapped, err := f.engine.MapSelected(ctx, testQuiz, testGroup, []domain.Selection{{QuestionID: "q2"}})
	if err != nil {
		t.Fatalf("remap: %v", err)
	}
	pool.ApplyMapped(remapped)
	if len(pool.Unmapped) != 0 {
		t.Fatalf("expected pool empty after remap, got %+v", pool.Unmapped)
	}
	mappings, _ := f.mappings.ListMappings(ctx, testQuiz)
	assertNoDuplicatePairs(t, mappings)
}

func TestUnmapReportsStaleIDsPerItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2, sampleQuiz())
	res := f.mapAll(t, 1, 0)
	first, second := res.Mapped[0].ID, res.Mapped[1].ID

	if _, err := f.engine.UnmapSelected(ctx, testQuiz, []string{first}); err != nil {
		t.Fatalf("unmap: %v", err)
	}

	out, err := f.engine.UnmapSelected(ctx, testQuiz, []string{first, second})
	if err != nil {
		t.Fatalf("unmap batch: %v", err)
	}
	if out.Removed != 1 || len(out.Outcomes) != 2 {
		t.Fatalf("expected 1 removed out of 2, got %+v", out)
	}
	if out.Outcomes[0].Removed || !errors.Is(out.Outcomes[0].Err, domain.ErrNotFound) {
		t.Fatalf("expected not found for stale id, got %+v", out.Outcomes[0])
	}
	if !out.Outcomes[1].Removed {
		t.Fatalf("expected second id removed, got %+v", out.Outcomes[1])
	}
	if out.QuestionCount != 0 {
		t.Fatalf("expected count 0, got %d", out.QuestionCount)
	}
}

func assertNoDuplicatePairs(t *testing.T, mappings []domain.Mapping) {
	t.Helper()
	seen := make(map[string]bool)
	for _, m := range mappings {
		key := m.QuizID + "/" + m.QuestionID
		if seen[key] {
			t.Fatalf("duplicate mapping %s", key)
		}
		seen[key] = true
	}
}

type racingStore struct {
	app.MappingStore
	before func()
}

func (s *racingStore) CommitMappings(ctx context.Context, quizID string, batch []domain.Mapping) (int, error) {
	if s.before != nil {
		s.before()
		s.before = nil
	}
	return s.MappingStore.CommitMappings(ctx, quizID, batch)
}
