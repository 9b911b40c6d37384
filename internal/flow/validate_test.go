package flow

import (
	"testing"

	"github.com/formcourier/FormCourier/internal/models"
)

func TestValidAnswerByType(t *testing.T) {
	min, max := 1.0, 10.0
	tests := []struct {
		name  string
		q     models.Question
		value string
		want  bool
	}{
		{"text anything", models.Question{Type: models.QuestionTypeText}, "hello world", true},
		{"integer valid", models.Question{Type: models.QuestionTypeInteger}, "42", true},
		{"integer negative", models.Question{Type: models.QuestionTypeInteger}, "-7", true},
		{"integer decimal rejected", models.Question{Type: models.QuestionTypeInteger}, "4.2", false},
		{"integer text rejected", models.Question{Type: models.QuestionTypeInteger}, "abc", false},
		{"decimal valid", models.Question{Type: models.QuestionTypeDecimal}, "3.14", true},
		{"decimal bare fraction", models.Question{Type: models.QuestionTypeDecimal}, ".5", true},
		{"decimal integer ok", models.Question{Type: models.QuestionTypeDecimal}, "3", true},
		{"decimal trailing dot rejected", models.Question{Type: models.QuestionTypeDecimal}, "3.", false},
		{"phone valid", models.Question{Type: models.QuestionTypePhone}, "4165551234", true},
		{"phone too short", models.Question{Type: models.QuestionTypePhone}, "555123", false},
		{"phone with dashes rejected", models.Question{Type: models.QuestionTypePhone}, "416-555-1234", false},
		{"email valid", models.Question{Type: models.QuestionTypeEmail}, "a@b.co", true},
		{"email no domain dot", models.Question{Type: models.QuestionTypeEmail}, "a@b", false},
		{"email with space", models.Question{Type: models.QuestionTypeEmail}, "a b@c.co", false},
		{"date valid", models.Question{Type: models.QuestionTypeDate}, "2024-06-15", true},
		{"date wrong shape", models.Question{Type: models.QuestionTypeDate}, "15/06/2024", false},
		{"date impossible day", models.Question{Type: models.QuestionTypeDate}, "2024-02-31", false},
		{"date leap day", models.Question{Type: models.QuestionTypeDate}, "2024-02-29", true},
		{"range in bounds", models.Question{Type: models.QuestionTypeRange, Min: &min, Max: &max}, "5", true},
		{"range below min", models.Question{Type: models.QuestionTypeRange, Min: &min, Max: &max}, "0", false},
		{"range above max", models.Question{Type: models.QuestionTypeRange, Min: &min, Max: &max}, "11", false},
		{"range unbounded", models.Question{Type: models.QuestionTypeRange}, "123.4", true},
		{"range non-numeric", models.Question{Type: models.QuestionTypeRange}, "five", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidAnswer(tt.q, models.ScalarAnswer(tt.value))
			if got != tt.want {
				t.Errorf("ValidAnswer(%s, %q) = %v, want %v", tt.q.Type, tt.value, got, tt.want)
			}
		})
	}
}

func TestValidAnswerAbsentAlwaysValid(t *testing.T) {
	q := models.Question{Type: models.QuestionTypeInteger, Required: true}
	if !ValidAnswer(q, models.Answer{}) {
		t.Errorf("absent answer should be valid; presence is the walker's concern")
	}
}

func TestValidAnswerCheckbox(t *testing.T) {
	required := models.Question{Type: models.QuestionTypeCheckbox, Required: true}

	// Toggling every selection back off leaves an absent answer; the
	// walker's presence guard is what blocks it, not validation.
	empty := models.MultiAnswer().Toggle("a").Toggle("a")
	if !empty.IsZero() {
		t.Fatalf("fully untoggled checkbox should count as absent")
	}
	if !ValidAnswer(required, empty) {
		t.Errorf("absent checkbox answer should pass validation")
	}
	if !ValidAnswer(required, models.MultiAnswer().Toggle("a")) {
		t.Errorf("required checkbox with a selection should be valid")
	}
}
