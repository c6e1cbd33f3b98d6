package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// legacyAnswerSeparator joins multiple correct answers in the display/text form.
const legacyAnswerSeparator = "|"

// OptionSet is the canonical representation of a set of option IDs. It is kept sorted and
// free of duplicates so two equal sets compare equal with reflect.DeepEqual.
type OptionSet []string

// NewOptionSet normalizes ids into an OptionSet. Empty ids are dropped.
func NewOptionSet(ids ...string) OptionSet {
	seen := make(map[string]struct{}, len(ids))
	out := make(OptionSet, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ParseOptionSet accepts the legacy text form: a single id or ids joined with " | ".
func ParseOptionSet(raw string) OptionSet {
	return NewOptionSet(strings.Split(raw, legacyAnswerSeparator)...)
}

// Contains reports whether id is in the set.
func (s OptionSet) Contains(id string) bool {
	i := sort.SearchStrings(s, id)
	return i < len(s) && s[i] == id
}

// Len returns the number of ids in the set.
func (s OptionSet) Len() int { return len(s) }

// MarshalJSON always emits an array.
func (s OptionSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}

// UnmarshalJSON accepts an array of strings or numbers, a single string (possibly " | " joined),
// a single number, or null.
func (s *OptionSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = NewOptionSet()
		return nil
	}

	switch data[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("option set: %w", err)
		}
		ids := make([]string, 0, len(items))
		for _, item := range items {
			id, err := scalarID(item)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		*s = NewOptionSet(ids...)
		return nil
	case '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("option set: %w", err)
		}
		*s = ParseOptionSet(raw)
		return nil
	default:
		id, err := scalarID(data)
		if err != nil {
			return err
		}
		*s = NewOptionSet(id)
		return nil
	}
}

func scalarID(data json.RawMessage) (string, error) {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		return str, nil
	}
	var num json.Number
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&num); err != nil {
		return "", fmt.Errorf("option set: unsupported id %s", string(data))
	}
	if _, err := strconv.ParseFloat(num.String(), 64); err != nil {
		return "", fmt.Errorf("option set: unsupported id %s", string(data))
	}
	return num.String(), nil
}
