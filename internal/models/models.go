// Package models defines the core data structures for AgentForm.
//
// It includes question definitions, recorded answers, generation requests and the
// API response envelope, which are shared across modules.
package models

import (
	"errors"
)

// Error variables for better error handling and testability
var (
	// ErrConfiguration marks a malformed question list (duplicate ids, dangling branch targets).
	ErrConfiguration = errors.New("invalid questionnaire configuration")
	// ErrValidationBlocked is reported when a required question has no answer at advance time.
	ErrValidationBlocked = errors.New("required question has no answer")
	// ErrNotFound is returned when a question id or stored record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrMissingField is returned when a generation request lacks a mandatory field.
	ErrMissingField = errors.New("missing required field")
	// ErrProviderFailure is returned when the text-generation provider fails before streaming starts.
	ErrProviderFailure = errors.New("text generation provider failed")
)

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
	// APIStatusRecorded indicates data was successfully recorded via API.
	APIStatusRecorded APIStatus = "recorded"
)

// APIResponse represents a standardized API response structure.
type APIResponse struct {
	Status  APIStatus   `json:"status"`            // status of the API response
	Error   string      `json:"error,omitempty"`   // error message for failed requests
	Message string      `json:"message,omitempty"` // optional additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{
		response: APIResponse{},
	}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = status
	return b
}

// WithError sets the error message of the API response.
func (b *APIResponseBuilder) WithError(message string) *APIResponseBuilder {
	b.response.Error = message
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build returns the constructed APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// Recorded creates a response acknowledging that data was stored.
func Recorded(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusRecorded).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithError(message).
		Build()
}
