package promptgen

import (
	"fmt"

	"github.com/BTreeMap/AgentForm/internal/models"
)

// MissingFieldError rejects a request before the provider is contacted.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", models.ErrMissingField, e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return models.ErrMissingField
}

// ProviderError reports a provider failure before any fragment was produced.
type ProviderError struct {
	Cause error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", models.ErrProviderFailure, e.Cause)
}

// Unwrap exposes both the sentinel and the provider's own error.
func (e *ProviderError) Unwrap() []error {
	return []error{models.ErrProviderFailure, e.Cause}
}
