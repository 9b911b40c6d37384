package models

import (
	"encoding/json"
	"strings"
)

// Answer holds the recorded response for a single question: a scalar string
// for most question types, or an ordered selection list for checkbox
// questions. On the wire it serializes as a bare string or a string array,
// matching the answers object the server expects.
type Answer struct {
	Value      string
	Selections []string
	Multi      bool
}

// ScalarAnswer wraps a single-value response.
func ScalarAnswer(value string) Answer {
	return Answer{Value: value}
}

// MultiAnswer wraps an ordered checkbox selection.
func MultiAnswer(selections ...string) Answer {
	return Answer{Selections: selections, Multi: true}
}

// IsZero reports whether no response has been recorded. A checkbox answer
// with every option toggled back off counts as absent.
func (a Answer) IsZero() bool {
	if a.Multi {
		return len(a.Selections) == 0
	}
	return a.Value == ""
}

// Key returns the stringified form used for branch-map lookups. Multi-select
// answers join their selections in toggle order.
func (a Answer) Key() string {
	if a.Multi {
		return strings.Join(a.Selections, ",")
	}
	return a.Value
}

// Toggle flips a selection in or out of a multi answer, preserving the order
// of the remaining selections. Toggling the same value twice is a no-op.
func (a Answer) Toggle(value string) Answer {
	out := Answer{Multi: true}
	found := false
	for _, s := range a.Selections {
		if s == value {
			found = true
			continue
		}
		out.Selections = append(out.Selections, s)
	}
	if !found {
		out.Selections = append(out.Selections, value)
	}
	return out
}

// MarshalJSON encodes multi answers as arrays and everything else as strings.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.Multi {
		if a.Selections == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(a.Selections)
	}
	return json.Marshal(a.Value)
}

// UnmarshalJSON accepts either encoding.
func (a *Answer) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		a.Multi = true
		a.Value = ""
		return json.Unmarshal(data, &a.Selections)
	}
	a.Multi = false
	a.Selections = nil
	return json.Unmarshal(data, &a.Value)
}
