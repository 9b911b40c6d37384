// Package flow implements the client-side traversal engine: the answer store
// and the state machine that walks a respondent through a dynamically
// branching question sequence.
package flow

import (
	"log/slog"

	"github.com/formcourier/FormCourier/internal/models"
)

// AnswerStore maps question sequence indices to recorded answers. It is owned
// by a single in-progress submission and performs no validation; validity is
// the walker's concern, keyed by question type.
type AnswerStore struct {
	answers map[int]models.Answer
}

// NewAnswerStore creates an empty answer store.
func NewAnswerStore() *AnswerStore {
	return &AnswerStore{answers: make(map[int]models.Answer)}
}

// RestoreAnswerStore rehydrates an answer store from a persisted snapshot.
// The snapshot is copied so the store never aliases persisted state.
func RestoreAnswerStore(snapshot map[int]models.Answer) *AnswerStore {
	s := NewAnswerStore()
	for idx, a := range snapshot {
		if a.Multi {
			a.Selections = append([]string(nil), a.Selections...)
		}
		s.answers[idx] = a
	}
	return s
}

// Set records the answer for a question. For checkbox questions the value is
// toggled into or out of the ordered selection rather than overwritten, so
// setting the same value twice restores the prior state.
func (s *AnswerStore) Set(q models.Question, value string) {
	idx := q.SequenceIndex
	if q.Type == models.QuestionTypeCheckbox {
		current := s.answers[idx]
		if !current.Multi {
			current = models.MultiAnswer()
		}
		s.answers[idx] = current.Toggle(value)
		slog.Debug("AnswerStore toggled checkbox value", "index", idx, "value", value)
		return
	}
	s.answers[idx] = models.ScalarAnswer(value)
}

// Get returns the answer at the given sequence index, if one is recorded.
func (s *AnswerStore) Get(index int) (models.Answer, bool) {
	a, ok := s.answers[index]
	return a, ok
}

// Unset discards the answer at the given sequence index. Used when navigating
// backward so that resuming forward re-asks the question cleanly.
func (s *AnswerStore) Unset(index int) {
	delete(s.answers, index)
}

// Len returns the number of recorded answers.
func (s *AnswerStore) Len() int {
	return len(s.answers)
}

// Snapshot returns a copy of the answer map suitable for persisting.
func (s *AnswerStore) Snapshot() map[int]models.Answer {
	out := make(map[int]models.Answer, len(s.answers))
	for idx, a := range s.answers {
		if a.Multi {
			a.Selections = append([]string(nil), a.Selections...)
		}
		out[idx] = a
	}
	return out
}
