package flow

import (
	"github.com/BTreeMap/AgentForm/internal/models"
)

// Questionnaire names of the built-in question lists.
const (
	QuestionnaireAgentWizard = "agent-wizard"
	QuestionnaireGenericForm = "generic-form"
)

// Question ids of the agent wizard that other components read.
const (
	QuestionWelcome          = "welcome"
	QuestionAgentName        = "agentName"
	QuestionAgentPurpose     = "agentPurpose"
	QuestionTargetUsers      = "targetUsers"
	QuestionPromptStyle      = "promptStyle"
	QuestionFramework        = "framework"
	QuestionUserMessageColor = "userMessageColor"
	QuestionAIMessageColor   = "aiMessageColor"
	QuestionPricingPlan      = "pricingPlan"
	QuestionKnowledgeBase    = "knowledgeBase"
	QuestionFileUpload       = "fileUpload"
	QuestionCreationProcess  = "creationProcess"
	QuestionCompletion       = "completion"
)

// Knowledge base choices; the branch map keys on these literals.
const (
	KnowledgeStandard = "No, use standard knowledge only"
	KnowledgeCustom   = "Yes, upload documents for specialized knowledge"
)

// Questionnaire is a named question list plus its label interpolation settings.
type Questionnaire struct {
	Name         string            `json:"name" yaml:"name"`
	NameQuestion string            `json:"nameQuestion,omitempty" yaml:"nameQuestion,omitempty"`
	Placeholder  string            `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Questions    []models.Question `json:"questions" yaml:"questions"`
}

// Validate lints the questionnaire content. Unlike NewEngine it also checks
// kinds, choices and branch targets, so authoring mistakes surface at load time.
func (q Questionnaire) Validate() error {
	if len(q.Questions) == 0 {
		return configErrorf("", "questionnaire %q has no questions", q.Name)
	}
	ids := make(map[string]struct{}, len(q.Questions))
	for i, question := range q.Questions {
		if question.ID == "" {
			return configErrorf("", "question at position %d has no id", i)
		}
		if _, dup := ids[question.ID]; dup {
			return configErrorf(question.ID, "duplicate id")
		}
		ids[question.ID] = struct{}{}

		if !models.IsValidQuestionKind(question.Kind) {
			return configErrorf(question.ID, "unknown type %q", question.Kind)
		}
		if question.Kind.IsChoice() && len(question.Choices) == 0 {
			return configErrorf(question.ID, "type %q requires options", question.Kind)
		}
		if len(question.Descriptions) > len(question.Choices) {
			return configErrorf(question.ID, "%d descriptions for %d options", len(question.Descriptions), len(question.Choices))
		}
		if v := question.Validation; v != nil {
			if v.MinLength < 0 || v.MaxLength < 0 {
				return configErrorf(question.ID, "negative length limit")
			}
			if v.MaxLength > 0 && v.MinLength > v.MaxLength {
				return configErrorf(question.ID, "minLength %d exceeds maxLength %d", v.MinLength, v.MaxLength)
			}
		}
	}
	for _, question := range q.Questions {
		for answer, target := range question.BranchMap {
			if _, ok := ids[target]; !ok {
				return configErrorf(question.ID, "branch for answer %q targets unknown question %q", answer, target)
			}
		}
	}
	if q.NameQuestion != "" {
		if _, ok := ids[q.NameQuestion]; !ok {
			return configErrorf(q.NameQuestion, "name question is not part of the questionnaire")
		}
	}
	return nil
}

var colorChoices = []string{
	"#1a1a1a",
	"#333333",
	"#4d4d4d",
	"#666666",
	"#808080",
	"#999999",
}

// AgentWizard returns the AI agent creation questionnaire.
func AgentWizard(frameworks []string) Questionnaire {
	return Questionnaire{
		Name:         QuestionnaireAgentWizard,
		NameQuestion: QuestionAgentName,
		Placeholder:  DefaultPlaceholder,
		Questions: []models.Question{
			{ID: QuestionWelcome, Kind: models.KindStatic},
			{
				ID:          QuestionAgentName,
				Kind:        models.KindText,
				Label:       "What's the name of your AI agent?",
				Required:    true,
				Placeholder: "E.g., AssistBot, MarketingGPT, CodeHelper...",
				Validation:  &models.Validation{Required: true, MaxLength: 30},
			},
			{
				ID:          QuestionAgentPurpose,
				Kind:        models.KindParagraph,
				Label:       "Great! What would you like [agentName] to specifically do?",
				Required:    true,
				Placeholder: "E.g., Help me analyze marketing data, assist with coding problems, generate creative content...",
				Validation:  &models.Validation{Required: true, MinLength: 10},
			},
			{
				ID:          QuestionTargetUsers,
				Kind:        models.KindParagraph,
				Label:       "Who will be using [agentName]?",
				Required:    true,
				Placeholder: "E.g., Self, Marketing professionals, software developers, content writers, students...",
				Validation:  &models.Validation{Required: true},
			},
			{
				ID:       QuestionPromptStyle,
				Kind:     models.KindKeyboardChoice,
				Label:    "Select a conversational style for [agentName]:",
				Required: true,
				Choices: []string{
					"Professional & Formal",
					"Friendly & Casual",
					"Technical & Precise",
					"Creative & Inspiring",
					"Concise & Direct",
				},
				Descriptions: []string{
					"Maintains a business-like tone with proper language and formality",
					"Conversational and approachable, using casual language and friendly expressions",
					"Focuses on accuracy and detail with domain-specific terminology",
					"Uses expressive language with metaphors and imaginative descriptions",
					"Provides straightforward answers without unnecessary elaboration",
				},
			},
			{
				ID:       QuestionFramework,
				Kind:     models.KindKeyboardChoice,
				Label:    "Which prompt framework should structure [agentName]'s system message?",
				Required: true,
				Choices:  frameworks,
			},
			{
				ID:       QuestionUserMessageColor,
				Kind:     models.KindColor,
				Label:    "Customize the appearance of your conversation with [agentName]:",
				Required: true,
				Choices:  colorChoices,
			},
			{
				ID:       QuestionAIMessageColor,
				Kind:     models.KindColor,
				Label:    "Now select the color for [agentName]'s messages:",
				Required: true,
				Choices:  colorChoices,
			},
			{
				ID:       QuestionPricingPlan,
				Kind:     models.KindChoice,
				Label:    "Select a pricing plan for [agentName]:",
				Required: true,
				Choices:  []string{"Free Tier", "Standard", "Professional", "Enterprise"},
				Descriptions: []string{
					"Basic capabilities, 100 messages/month",
					"$9.99/month, Enhanced capabilities, 1,000 messages/month",
					"$19.99/month, Advanced capabilities, unlimited messages",
					"Custom pricing, Full capabilities, dedicated support",
				},
			},
			{
				ID:       QuestionKnowledgeBase,
				Kind:     models.KindChoice,
				Label:    "Would you like to enhance [agentName] with custom knowledge?",
				Required: true,
				Choices:  []string{KnowledgeStandard, KnowledgeCustom},
				BranchMap: map[string]string{
					KnowledgeStandard: QuestionCreationProcess,
					KnowledgeCustom:   QuestionFileUpload,
				},
			},
			{
				ID:          QuestionFileUpload,
				Kind:        models.KindFileList,
				Label:       "Upload documents to enhance [agentName]'s knowledge base:",
				Placeholder: "Upload PDF, DOCX, or TXT files",
			},
			{ID: QuestionCreationProcess, Kind: models.KindLoading, Label: "Creating your AI agent..."},
			{ID: QuestionCompletion, Kind: models.KindStatic, Label: "[agentName] is ready!"},
		},
	}
}

// GenericForm returns the plain feedback form.
func GenericForm() Questionnaire {
	return Questionnaire{
		Name: QuestionnaireGenericForm,
		Questions: []models.Question{
			{ID: "q1", Kind: models.KindText, Label: "What is your name?", Required: true, Placeholder: "Type your full name"},
			{
				ID:       "q2",
				Kind:     models.KindChoice,
				Label:    "How would you rate your experience with us?",
				Required: true,
				Choices:  []string{"Excellent", "Good", "Average", "Poor"},
			},
			{ID: "q3", Kind: models.KindText, Label: "What is your email address?", Required: true, Placeholder: "your@email.com"},
			{ID: "q4", Kind: models.KindText, Label: "How many years of experience do you have?", Placeholder: "Enter a number"},
			{ID: "q5", Kind: models.KindParagraph, Label: "Any additional comments or feedback?", Placeholder: "Share your thoughts..."},
		},
	}
}
