package flow

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadQuestionnaire reads and validates a questionnaire YAML file.
func LoadQuestionnaire(path string) (Questionnaire, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("LoadQuestionnaire: read failed", "path", path, "error", err)
		return Questionnaire{}, fmt.Errorf("failed to read questionnaire %s: %w", path, err)
	}
	q, err := ParseQuestionnaire(data)
	if err != nil {
		return Questionnaire{}, fmt.Errorf("questionnaire %s: %w", path, err)
	}
	slog.Debug("LoadQuestionnaire: loaded", "path", path, "name", q.Name, "questions", len(q.Questions))
	return q, nil
}

// ParseQuestionnaire decodes questionnaire YAML and validates it.
func ParseQuestionnaire(data []byte) (Questionnaire, error) {
	var q Questionnaire
	if err := yaml.Unmarshal(data, &q); err != nil {
		return Questionnaire{}, &ConfigError{Reason: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if err := q.Validate(); err != nil {
		slog.Error("ParseQuestionnaire: validation failed", "name", q.Name, "error", err)
		return Questionnaire{}, err
	}
	return q, nil
}
