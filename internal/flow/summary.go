package flow

import (
	"github.com/BTreeMap/AgentForm/internal/models"
)

// Summary is what the completion screen shows about the configured agent.
type Summary struct {
	Name            string `json:"name,omitempty"`
	Purpose         string `json:"purpose,omitempty"`
	Users           string `json:"users,omitempty"`
	Style           string `json:"style,omitempty"`
	Framework       string `json:"framework,omitempty"`
	Plan            string `json:"plan,omitempty"`
	CustomKnowledge bool   `json:"customKnowledge"`
	Files           int    `json:"files"`
}

// Summary collects the agent wizard answers.
func (e *Engine) Summary() Summary {
	var s Summary
	for _, a := range e.AllAnswers() {
		switch a.QuestionID {
		case QuestionAgentName:
			s.Name = a.Value.String()
		case QuestionAgentPurpose:
			s.Purpose = a.Value.String()
		case QuestionTargetUsers:
			s.Users = a.Value.String()
		case QuestionPromptStyle:
			s.Style = a.Value.String()
		case QuestionFramework:
			s.Framework = a.Value.String()
		case QuestionPricingPlan:
			s.Plan = a.Value.String()
		case QuestionKnowledgeBase:
			choice, _ := a.Value.Text()
			s.CustomKnowledge = choice == KnowledgeCustom
		case QuestionFileUpload:
			s.Files = len(a.Value.Items())
		}
	}
	return s
}

// GenerationRequest builds a prompt generation request from the wizard answers.
// Unanswered fields stay empty; the generator rejects incomplete requests.
func (e *Engine) GenerationRequest() models.GenerationRequest {
	text := func(id string) string {
		a, ok := e.answers[id]
		if !ok {
			return ""
		}
		s, _ := a.Value.Text()
		return s
	}
	return models.GenerationRequest{
		Framework:    text(QuestionFramework),
		AgentName:    text(QuestionAgentName),
		AgentPurpose: text(QuestionAgentPurpose),
		TargetUsers:  text(QuestionTargetUsers),
	}
}
