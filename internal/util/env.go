package util

import (
	"log/slog"
	"os"
	"strings"
)

var boolWords = map[string]bool{
	"true": true, "1": true, "yes": true, "on": true,
	"false": false, "0": false, "no": false, "off": false,
}

// ParseBoolEnv reads a boolean environment variable. Accepts true/1/yes/on and
// false/0/no/off in any case; unset or unrecognized values yield defaultValue.
func ParseBoolEnv(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if v, ok := boolWords[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return v
	}
	slog.Warn("ParseBoolEnv: invalid boolean value, using default", "key", key, "value", raw, "default", defaultValue)
	return defaultValue
}

// FirstEnv returns the value of the first set, non-blank variable among keys.
func FirstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}
