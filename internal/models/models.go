// Package models defines the core data structures for FormCourier.
//
// It includes the form and question definitions consumed by the traversal
// engine, the locally queued submission and attachment records, and the wire
// payloads exchanged with the central server during sync.
package models

import (
	"errors"
	"fmt"
)

// QuestionType identifies the input kind of a question and selects its
// validation rule.
type QuestionType string

const (
	QuestionTypeText     QuestionType = "text"
	QuestionTypeMCQ      QuestionType = "mcq"
	QuestionTypeInteger  QuestionType = "integer"
	QuestionTypeDecimal  QuestionType = "decimal"
	QuestionTypeRange    QuestionType = "range"
	QuestionTypeCheckbox QuestionType = "checkbox"
	QuestionTypePhone    QuestionType = "phone"
	QuestionTypeEmail    QuestionType = "email"
	QuestionTypeDate     QuestionType = "date"
	QuestionTypeMedia    QuestionType = "media"
)

// BranchWildcard is the branch-map key that unconditionally redirects the
// traversal regardless of the answer or the required flag.
const BranchWildcard = "*"

// Error variables for better error handling and testability
var (
	ErrInvalidQuestionType = errors.New("invalid question type")
	ErrMissingOptions      = errors.New("options are required for mcq and checkbox questions")
	ErrBranchTarget        = errors.New("branch target out of question range")
	ErrEmptyForm           = errors.New("form has no questions")
	ErrSequenceMismatch    = errors.New("question sequence index does not match position")
)

// IsValidQuestionType checks if the given question type is supported.
func IsValidQuestionType(qt QuestionType) bool {
	switch qt {
	case QuestionTypeText, QuestionTypeMCQ, QuestionTypeInteger, QuestionTypeDecimal,
		QuestionTypeRange, QuestionTypeCheckbox, QuestionTypePhone, QuestionTypeEmail,
		QuestionTypeDate, QuestionTypeMedia:
		return true
	default:
		return false
	}
}

// Question is a single entry in a form's question sequence. It is immutable
// once loaded for a session; the traversal engine branches on SequenceIndex,
// not on ID (which comes from the form's authoring source).
type Question struct {
	ID            string         `json:"id"`
	SequenceIndex int            `json:"sequenceIndex"`
	Text          string         `json:"text"`
	Type          QuestionType   `json:"type"`
	Required      bool           `json:"required"`
	Options       []string       `json:"options,omitempty"`
	BranchMap     map[string]int `json:"branchMap,omitempty"`
	Min           *float64       `json:"min,omitempty"`
	Max           *float64       `json:"max,omitempty"`
}

// ResolveBranch looks up the branch target for a stringified answer value.
// The wildcard entry, if present, always wins. Returns false when the branch
// map has no applicable entry, meaning the caller falls through to linear
// advance.
func (q Question) ResolveBranch(answer string) (int, bool) {
	if target, ok := q.BranchMap[BranchWildcard]; ok {
		return target, true
	}
	if target, ok := q.BranchMap[answer]; ok {
		return target, true
	}
	return 0, false
}

// Validate checks the structural integrity of a question definition.
func (q Question) Validate() error {
	if !IsValidQuestionType(q.Type) {
		return fmt.Errorf("%w: %q", ErrInvalidQuestionType, q.Type)
	}
	if (q.Type == QuestionTypeMCQ || q.Type == QuestionTypeCheckbox) && len(q.Options) == 0 {
		return ErrMissingOptions
	}
	return nil
}

// Form is an importable survey definition. FormID is assigned at import time
// and never reused; the question order defines the sequence indices the
// traversal engine branches on.
type Form struct {
	FormID      int        `json:"FormID"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatedDate string     `json:"date"`
	Questions   []Question `json:"Questions"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	SharedWith  []string   `json:"sharedWith,omitempty"`
}

// NormalizeSequence assigns each question's sequence index from its array
// position. The wire shape carries no index field; traversal branches on
// position, so indices are derived at decode time, never trusted from input.
func (f *Form) NormalizeSequence() {
	for i := range f.Questions {
		f.Questions[i].SequenceIndex = i
	}
}

// Validate checks that the form is non-empty, the questions are individually
// valid and correctly indexed, and every branch target lands inside the
// question sequence.
func (f Form) Validate() error {
	if len(f.Questions) == 0 {
		return ErrEmptyForm
	}
	for i, q := range f.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
		if q.SequenceIndex != i {
			return fmt.Errorf("question %d has sequence index %d: %w", i, q.SequenceIndex, ErrSequenceMismatch)
		}
		for key, target := range q.BranchMap {
			if target < 0 || target >= len(f.Questions) {
				return fmt.Errorf("question %d, branch %q -> %d: %w", i, key, target, ErrBranchTarget)
			}
		}
	}
	return nil
}
