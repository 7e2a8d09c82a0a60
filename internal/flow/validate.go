package flow

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationStatus is the outcome of ValidateText.
type ValidationStatus string

const (
	ValidationOK       ValidationStatus = "ok"
	ValidationRequired ValidationStatus = "required"
	ValidationTooShort ValidationStatus = "too_short"
	ValidationTooLong  ValidationStatus = "too_long"
)

// ValidationResult carries a status and the message shown to the user.
type ValidationResult struct {
	Status  ValidationStatus
	Message string
}

// OK reports whether the candidate passed.
func (r ValidationResult) OK() bool {
	return r.Status == ValidationOK
}

// ValidateText checks a candidate text against the question's validation rules
// without recording it. Questions without rules (or unknown ids) always pass.
// Lengths are counted in runes.
func (e *Engine) ValidateText(questionID, candidate string) ValidationResult {
	q, ok := e.Question(questionID)
	if !ok || q.Validation == nil {
		return ValidationResult{Status: ValidationOK}
	}
	v := q.Validation

	if v.Required && strings.TrimSpace(candidate) == "" {
		return ValidationResult{Status: ValidationRequired, Message: "This field is required"}
	}
	n := utf8.RuneCountInString(candidate)
	if v.MinLength > 0 && n < v.MinLength {
		return ValidationResult{Status: ValidationTooShort, Message: fmt.Sprintf("Minimum %d characters required", v.MinLength)}
	}
	if v.MaxLength > 0 && n > v.MaxLength {
		return ValidationResult{Status: ValidationTooLong, Message: fmt.Sprintf("Maximum %d characters allowed", v.MaxLength)}
	}
	return ValidationResult{Status: ValidationOK}
}
