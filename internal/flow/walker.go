package flow

import (
	"log/slog"

	"github.com/formcourier/FormCourier/internal/models"
)

// Walker is the traversal state machine over a question sequence and an
// answer store. It computes the next and previous question indices, applies
// branch rules, and exposes the navigation guards the UI layer consults
// before invoking Next or Submit. The walker never renders anything; it is
// the only place navigation logic lives.
type Walker struct {
	questions []models.Question
	answers   *AnswerStore
	current   int
	history   []int
}

// NewWalker starts a traversal at the first question.
func NewWalker(questions []models.Question, answers *AnswerStore) *Walker {
	return &Walker{questions: questions, answers: answers}
}

// ResumeWalker rehydrates a traversal from persisted state, restoring the
// current index and the visited-question history.
func ResumeWalker(questions []models.Question, answers *AnswerStore, current int, history []int) *Walker {
	if current < 0 || current >= len(questions) {
		current = 0
	}
	return &Walker{
		questions: questions,
		answers:   answers,
		current:   current,
		history:   append([]int(nil), history...),
	}
}

// Current returns the sequence index of the question being asked.
func (w *Walker) Current() int {
	return w.current
}

// CurrentQuestion returns the question being asked.
func (w *Walker) CurrentQuestion() models.Question {
	return w.questions[w.current]
}

// History returns a copy of the visited-question indices, oldest first.
func (w *Walker) History() []int {
	return append([]int(nil), w.history...)
}

// Answers exposes the answer store backing this traversal.
func (w *Walker) Answers() *AnswerStore {
	return w.answers
}

// AtStart reports whether the walker is at the first question.
func (w *Walker) AtStart() bool {
	return w.current == 0
}

// AtEnd reports whether the walker is at the terminal question.
func (w *Walker) AtEnd() bool {
	return w.current == len(w.questions)-1
}

// nextIndex resolves the target of a forward move:
//  1. A wildcard branch entry wins unconditionally, even when the question is
//     required and unanswered.
//  2. A non-required question advances linearly.
//  3. A required question with no answer blocks.
//  4. A required, answered question follows its branch map; a miss falls
//     through to linear advance.
func (w *Walker) nextIndex() (int, bool) {
	q := w.questions[w.current]
	if target, ok := q.BranchMap[models.BranchWildcard]; ok {
		return target, true
	}
	if !q.Required {
		return w.current + 1, true
	}
	a, ok := w.answers.Get(w.current)
	if !ok || a.IsZero() {
		return 0, false
	}
	if target, ok := q.ResolveBranch(a.Key()); ok {
		return target, true
	}
	return w.current + 1, true
}

// Advance moves to the next question, pushing the current index onto the
// traversal history. It returns false without mutating any state when
// navigation is blocked or the walker is already at the terminal question.
func (w *Walker) Advance() bool {
	if w.AtEnd() {
		return false
	}
	target, ok := w.nextIndex()
	if !ok {
		slog.Debug("Walker advance blocked", "index", w.current)
		return false
	}
	if target >= len(w.questions) {
		target = len(w.questions) - 1
	}
	w.history = append(w.history, w.current)
	slog.Debug("Walker advanced", "from", w.current, "to", target)
	w.current = target
	return true
}

// Retreat moves back to the most recently visited question, discarding the
// answer for the question being left so that moving forward again re-asks it.
// Returns false when the walker is at the first question (or has no history
// to pop), which the caller should treat as an exit request.
func (w *Walker) Retreat() bool {
	if w.current == 0 || len(w.history) == 0 {
		slog.Debug("Walker retreat at start, exit requested", "index", w.current)
		return false
	}
	w.answers.Unset(w.current)
	prev := w.history[len(w.history)-1]
	w.history = w.history[:len(w.history)-1]
	slog.Debug("Walker retreated", "from", w.current, "to", prev)
	w.current = prev
	return true
}

// CanAdvance mirrors Advance's decision without mutating state, adding the
// syntactic validity check: a required question blocks until it has a valid
// answer, a non-required question never blocks, and a wildcard branch
// overrides everything.
func (w *Walker) CanAdvance() bool {
	q := w.questions[w.current]
	if _, ok := q.BranchMap[models.BranchWildcard]; ok {
		return true
	}
	if !q.Required {
		return true
	}
	a, ok := w.answers.Get(w.current)
	if !ok || a.IsZero() {
		return false
	}
	return ValidAnswer(q, a)
}

// CanSubmit reports whether the traversal is at the terminal question and
// that question does not block.
func (w *Walker) CanSubmit() bool {
	return w.AtEnd() && w.CanAdvance()
}

// IsValid applies the per-type validation rule to the answer recorded at the
// given index. An unanswered question is valid.
func (w *Walker) IsValid(index int) bool {
	if index < 0 || index >= len(w.questions) {
		return false
	}
	a, _ := w.answers.Get(index)
	return ValidAnswer(w.questions[index], a)
}
