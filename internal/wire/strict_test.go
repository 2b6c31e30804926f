package wire

import (
	"strings"
	"testing"
)

type testFrame struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Args   any    `json:"args,omitempty"`
}

func TestStrictDecode_RejectsDuplicateKeys(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr string
	}{
		{
			name:    "duplicate with different case - id and Id",
			json:    `{"id":"legitimate","Id":"smuggled"}`,
			wantErr: "duplicate key with different case",
		},
		{
			name:    "duplicate with different case - method and METHOD",
			json:    `{"method":"math.add","METHOD":"secret"}`,
			wantErr: "duplicate key with different case",
		},
		{
			name:    "duplicate in nested object",
			json:    `{"id":"1","args":{"key":"value","Key":"smuggled"}}`,
			wantErr: "duplicate key with different case",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result testFrame
			err := StrictDecode([]byte(tt.json), &result)
			if err == nil {
				t.Fatalf("StrictDecode() expected error, got nil. Result: %+v", result)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("StrictDecode() error = %v, want error containing %v", err, tt.wantErr)
			}
		})
	}
}

func TestStrictDecode_RejectsUnknownFields(t *testing.T) {
	var result testFrame
	err := StrictDecode([]byte(`{"id":"1","method":"m","bogus":true}`), &result)
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestStrictDecode_AcceptsValidFrame(t *testing.T) {
	var result testFrame
	err := StrictDecode([]byte(`{"id":"1","method":"math.add","args":[1,2]}`), &result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ID != "1" || result.Method != "math.add" {
		t.Errorf("unexpected decode result: %+v", result)
	}
}

func TestStrictDecode_CaseMismatchRejected(t *testing.T) {
	var result testFrame
	err := StrictDecode([]byte(`{"ID":"1","method":"m"}`), &result)
	if err == nil {
		t.Fatal("expected error for case-mismatched field")
	}
}
