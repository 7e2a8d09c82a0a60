package models

import (
	"maps"
	"slices"
)

// QuestionKind identifies how a question is presented and what shape its answer takes.
type QuestionKind string

const (
	// KindText is a single-line free text question.
	KindText QuestionKind = "text"
	// KindParagraph is a multi-line free text question.
	KindParagraph QuestionKind = "paragraph"
	// KindChoice selects one of the listed choices.
	KindChoice QuestionKind = "multipleChoice"
	// KindColor selects one of the listed colors.
	KindColor QuestionKind = "colorSelection"
	// KindFileList collects a list of file references.
	KindFileList QuestionKind = "fileUpload"
	// KindStatic displays content without collecting input.
	KindStatic QuestionKind = "static"
	// KindLoading displays progress while content is generated.
	KindLoading QuestionKind = "loading"
	// KindKeyboardChoice selects a choice by its number key.
	KindKeyboardChoice QuestionKind = "keyboardMultipleChoice"
)

// IsValidQuestionKind checks if the given kind is supported.
func IsValidQuestionKind(k QuestionKind) bool {
	switch k {
	case KindText, KindParagraph, KindChoice, KindColor, KindFileList, KindStatic, KindLoading, KindKeyboardChoice:
		return true
	default:
		return false
	}
}

// IsChoice reports whether the kind answers with one of the question's choices.
func (k QuestionKind) IsChoice() bool {
	return k == KindChoice || k == KindColor || k == KindKeyboardChoice
}

// IsText reports whether the kind takes free text subject to Validation rules.
func (k QuestionKind) IsText() bool {
	return k == KindText || k == KindParagraph
}

// Validation holds advisory rules for text answers. Zero lengths mean "no limit".
type Validation struct {
	Required  bool `json:"required,omitempty" yaml:"required,omitempty"`
	MinLength int  `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength int  `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
}

// Question is a static question definition.
type Question struct {
	ID           string            `json:"id" yaml:"id"`
	Kind         QuestionKind      `json:"type" yaml:"type"`
	Label        string            `json:"text" yaml:"text"`
	Required     bool              `json:"required,omitempty" yaml:"required,omitempty"`
	Placeholder  string            `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Choices      []string          `json:"options,omitempty" yaml:"options,omitempty"`
	Descriptions []string          `json:"descriptions,omitempty" yaml:"descriptions,omitempty"`
	Validation   *Validation       `json:"validation,omitempty" yaml:"validation,omitempty"`
	BranchMap    map[string]string `json:"conditionalNext,omitempty" yaml:"conditionalNext,omitempty"`
}

// Clone returns a deep copy of q that shares no slices, maps or pointers with it.
func (q Question) Clone() Question {
	q.Choices = slices.Clone(q.Choices)
	q.Descriptions = slices.Clone(q.Descriptions)
	q.BranchMap = maps.Clone(q.BranchMap)
	if q.Validation != nil {
		v := *q.Validation
		q.Validation = &v
	}
	return q
}

// Description returns the description paired with choice i, or "" when the
// descriptions list is shorter than the choices list.
func (q Question) Description(i int) string {
	if i < 0 || i >= len(q.Descriptions) || i >= len(q.Choices) {
		return ""
	}
	return q.Descriptions[i]
}

// ChoiceIndex returns the position of choice c, or -1.
func (q Question) ChoiceIndex(c string) int {
	for i, choice := range q.Choices {
		if choice == c {
			return i
		}
	}
	return -1
}
