package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ValueKind tags the shape of an answer value.
type ValueKind int

const (
	// ValueEmpty means the question is unanswered.
	ValueEmpty ValueKind = iota
	// ValueText holds a single string.
	ValueText
	// ValueMultiText holds a sequence of strings (file lists, multi-select).
	ValueMultiText
)

// String returns the kind name used in logs.
func (k ValueKind) String() string {
	switch k {
	case ValueText:
		return "text"
	case ValueMultiText:
		return "multi_text"
	default:
		return "empty"
	}
}

// Value is the recorded value of an answer: Empty, Text or MultiText.
// The zero Value is Empty.
type Value struct {
	kind  ValueKind
	text  string
	items []string
}

// Empty returns the unanswered value.
func Empty() Value {
	return Value{}
}

// Text returns a single-string value.
func Text(s string) Value {
	return Value{kind: ValueText, text: s}
}

// MultiText returns a sequence value. The slice is copied.
func MultiText(items []string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{kind: ValueMultiText, items: cp}
}

// Kind reports which variant v holds.
func (v Value) Kind() ValueKind {
	return v.kind
}

// Text returns the string payload and whether v is a Text value.
func (v Value) Text() (string, bool) {
	return v.text, v.kind == ValueText
}

// Items returns a copy of the sequence payload; nil unless v is MultiText.
func (v Value) Items() []string {
	if v.kind != ValueMultiText {
		return nil
	}
	cp := make([]string, len(v.items))
	copy(cp, v.items)
	return cp
}

// IsEmpty reports whether v counts as unanswered for required-question checks:
// Empty, an all-whitespace Text, or a zero-length MultiText.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case ValueText:
		return strings.TrimSpace(v.text) == ""
	case ValueMultiText:
		return len(v.items) == 0
	default:
		return true
	}
}

// String renders the value for display.
func (v Value) String() string {
	switch v.kind {
	case ValueText:
		return v.text
	case ValueMultiText:
		return strings.Join(v.items, ", ")
	default:
		return ""
	}
}

// MarshalJSON encodes Empty as null, Text as a string and MultiText as an array.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueText:
		return json.Marshal(v.text)
	case ValueMultiText:
		if v.items == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.items)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, a string or an array of strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = Empty()
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	case '[':
		var items []string
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return fmt.Errorf("answer array must contain strings: %w", err)
		}
		*v = Value{kind: ValueMultiText, items: items}
		if v.items == nil {
			v.items = []string{}
		}
		return nil
	default:
		return fmt.Errorf("answer must be null, a string or an array of strings")
	}
}

// Answer is the value recorded for one question.
type Answer struct {
	QuestionID string `json:"questionId"`
	Value      Value  `json:"answer"`
}
