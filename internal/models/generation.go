package models

import "time"

// GenerationRequest asks for a system prompt for an agent, structured by a framework.
type GenerationRequest struct {
	Framework    string `json:"framework"`
	AgentName    string `json:"agentName"`
	AgentPurpose string `json:"agentPurpose"`
	TargetUsers  string `json:"targetUsers"`
}

// MissingField returns the JSON name of the first empty field, or "" if the request is complete.
func (r GenerationRequest) MissingField() string {
	switch {
	case r.Framework == "":
		return "framework"
	case r.AgentName == "":
		return "agentName"
	case r.AgentPurpose == "":
		return "agentPurpose"
	case r.TargetUsers == "":
		return "targetUsers"
	default:
		return ""
	}
}

// GenerationStatus describes how a generation stream ended.
type GenerationStatus string

const (
	// GenerationCompleted means the provider finished normally.
	GenerationCompleted GenerationStatus = "completed"
	// GenerationInterrupted means the provider failed after output was emitted.
	GenerationInterrupted GenerationStatus = "interrupted"
	// GenerationCancelled means the consumer stopped reading early.
	GenerationCancelled GenerationStatus = "cancelled"
	// GenerationFailed means the provider failed before any output.
	GenerationFailed GenerationStatus = "failed"
)

// GenerationReceipt records the outcome of one generation.
type GenerationReceipt struct {
	ID         string           `json:"id"`
	Framework  string           `json:"framework"`
	AgentName  string           `json:"agent_name"`
	Status     GenerationStatus `json:"status"`
	Fragments  int              `json:"fragments"`
	Bytes      int              `json:"bytes"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Submission is a completed questionnaire.
type Submission struct {
	ID              string    `json:"id"`
	Questionnaire   string    `json:"questionnaire"`
	Answers         []Answer  `json:"answers"`
	GeneratedPrompt string    `json:"generated_prompt,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
