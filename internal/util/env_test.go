package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"", false, false},
		{"yes", false, true},
		{" ON ", false, true},
		{"0", true, false},
		{"off", true, false},
		{"maybe", true, true},
	}
	for _, tt := range tests {
		t.Setenv("AGENTFORM_TEST_BOOL", tt.value)
		if got := ParseBoolEnv("AGENTFORM_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}

func TestFirstEnv(t *testing.T) {
	t.Setenv("AGENTFORM_TEST_A", "")
	t.Setenv("AGENTFORM_TEST_B", "  ")
	t.Setenv("AGENTFORM_TEST_C", "third")
	t.Setenv("AGENTFORM_TEST_D", "fourth")

	if got := FirstEnv("AGENTFORM_TEST_A", "AGENTFORM_TEST_B", "AGENTFORM_TEST_C", "AGENTFORM_TEST_D"); got != "third" {
		t.Errorf("FirstEnv = %q, want %q", got, "third")
	}
	if got := FirstEnv("AGENTFORM_TEST_A"); got != "" {
		t.Errorf("FirstEnv of blank = %q, want empty", got)
	}
	if got := FirstEnv(); got != "" {
		t.Errorf("FirstEnv() = %q, want empty", got)
	}
}
