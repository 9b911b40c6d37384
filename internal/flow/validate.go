package flow

import (
	"regexp"
	"strconv"
	"time"

	"github.com/formcourier/FormCourier/internal/models"
)

// DateLayout is the accepted date answer format.
const DateLayout = "2006-01-02"

var (
	integerPattern = regexp.MustCompile(`^-?\d+$`)
	decimalPattern = regexp.MustCompile(`^-?\d*\.?\d+$`)
	phonePattern   = regexp.MustCompile(`^\d{10}$`)
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	datePattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// ValidAnswer applies the per-type syntactic validation rule to a recorded
// answer. An absent answer is always valid here; presence requirements are
// enforced by the walker's guards, and a failing answer is never cleared, it
// only blocks advancing.
func ValidAnswer(q models.Question, a models.Answer) bool {
	if a.IsZero() {
		return true
	}
	switch q.Type {
	case models.QuestionTypeInteger:
		return integerPattern.MatchString(a.Value)
	case models.QuestionTypeDecimal:
		return decimalPattern.MatchString(a.Value)
	case models.QuestionTypePhone:
		return phonePattern.MatchString(a.Value)
	case models.QuestionTypeEmail:
		return emailPattern.MatchString(a.Value)
	case models.QuestionTypeDate:
		return validDate(a.Value)
	case models.QuestionTypeRange:
		return validRange(q, a.Value)
	case models.QuestionTypeCheckbox:
		return !q.Required || len(a.Selections) > 0
	default:
		return true
	}
}

// validDate requires the YYYY-MM-DD shape and a calendar-valid date, so
// inputs like 2024-02-31 are rejected.
func validDate(value string) bool {
	if !datePattern.MatchString(value) {
		return false
	}
	_, err := time.Parse(DateLayout, value)
	return err == nil
}

func validRange(q models.Question, value string) bool {
	if !decimalPattern.MatchString(value) {
		return false
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return false
	}
	if q.Min != nil && n < *q.Min {
		return false
	}
	if q.Max != nil && n > *q.Max {
		return false
	}
	return true
}
