package flow

import (
	"fmt"

	"github.com/BTreeMap/AgentForm/internal/models"
)

// ConfigError reports a content-authoring defect in a question list. It matches
// models.ErrConfiguration with errors.Is.
type ConfigError struct {
	QuestionID string
	Reason     string
}

func (e *ConfigError) Error() string {
	if e.QuestionID == "" {
		return fmt.Sprintf("%s: %s", models.ErrConfiguration, e.Reason)
	}
	return fmt.Sprintf("%s: question %q: %s", models.ErrConfiguration, e.QuestionID, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return models.ErrConfiguration
}

func configErrorf(questionID, format string, args ...interface{}) error {
	return &ConfigError{QuestionID: questionID, Reason: fmt.Sprintf(format, args...)}
}
