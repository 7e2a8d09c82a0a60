package models

import (
	"encoding/json"
	"testing"
)

func TestAPIResponseEnvelopes(t *testing.T) {
	tests := []struct {
		name string
		resp APIResponse
		want string
	}{
		{"success without result", Success(nil), `{"status":"ok"}`},
		{"success with result", Success([]string{"a"}), `{"status":"ok","result":["a"]}`},
		{"recorded", Recorded(map[string]string{"id": "s_1"}), `{"status":"recorded","result":{"id":"s_1"}}`},
		{"error", Error("Missing required fields"), `{"status":"error","error":"Missing required fields"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.resp)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAPIResponseBuilder(t *testing.T) {
	resp := NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage("done").
		Build()
	if resp.Status != APIStatusOK || resp.Message != "done" || resp.Error != "" {
		t.Errorf("unexpected response: %+v", resp)
	}
}
