// Package util provides utility functions for the AgentForm application.
package util

import (
	"strings"

	"github.com/google/uuid"
)

// ID prefixes identify the record type at a glance in logs and listings.
const (
	SubmissionIDPrefix = "s_"
	ReceiptIDPrefix    = "g_"
)

// GenerateID returns prefix followed by a random UUID without dashes.
func GenerateID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GenerateSubmissionID generates a unique submission ID with "s_" prefix.
func GenerateSubmissionID() string {
	return GenerateID(SubmissionIDPrefix)
}

// GenerateReceiptID generates a unique generation receipt ID with "g_" prefix.
func GenerateReceiptID() string {
	return GenerateID(ReceiptIDPrefix)
}
