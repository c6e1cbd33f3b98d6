package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestOptionSetUnmarshalAcceptsLegacyForms(t *testing.T) {
	cases := map[string]OptionSet{
		`["b","a","b"]`: {"a", "b"},
		`[2, 1]`:        {"1", "2"},
		`"a | c"`:       {"a", "c"},
		`"a"`:           {"a"},
		`7`:             {"7"},
		`null`:          {},
	}
	for raw, want := range cases {
		var got OptionSet
		if err := json.Unmarshal([]byte(raw), &got); err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: expected %v, got %v", raw, want, got)
		}
	}

	var bad OptionSet
	if err := json.Unmarshal([]byte(`[{"id":"a"}]`), &bad); err == nil {
		t.Fatalf("expected error for object ids")
	}
}

func TestOptionSetMarshalsAsArray(t *testing.T) {
	var empty OptionSet
	data, err := json.Marshal(empty)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("expected [], got %s", data)
	}
	if !ParseOptionSet("b|a").Contains("a") || ParseOptionSet("b|a").Contains("c") {
		t.Fatalf("contains mismatch")
	}
}

func TestQuestionValidate(t *testing.T) {
	opts := func(correct ...bool) []Option {
		out := make([]Option, len(correct))
		for i, c := range correct {
			out[i] = Option{ID: string(rune('a' + i)), Correct: c}
		}
		return out
	}
	cases := []struct {
		name string
		q    Question
		ok   bool
	}{
		{"single", Question{ID: "q", Kind: KindSingle, Options: opts(false, true)}, true},
		{"one option", Question{ID: "q", Options: opts(true)}, false},
		{"no correct", Question{ID: "q", Options: opts(false, false)}, false},
		{"multiple needs two", Question{ID: "q", Kind: KindMultiple, Options: opts(true, false, false)}, false},
		{"multiple", Question{ID: "q", Kind: KindMultiple, Options: opts(true, true, false)}, true},
	}
	for _, tc := range cases {
		err := tc.q.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestQuizOpenAt(t *testing.T) {
	base := Quiz{Visible: true}
	now := mustTime("2026-05-01T10:00:00Z")
	if !base.OpenAt(now) {
		t.Fatalf("expected unbounded quiz open")
	}
	early := base
	early.StartAt = mustTime("2026-05-02T00:00:00Z")
	if early.OpenAt(now) {
		t.Fatalf("expected quiz not yet open")
	}
	hidden := base
	hidden.Visible = false
	if hidden.OpenAt(now) {
		t.Fatalf("expected hidden quiz closed")
	}
}
