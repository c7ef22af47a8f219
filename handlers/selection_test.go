package handlers

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func TestParseSelection(t *testing.T) {
	optA, optB := uuid.New(), uuid.New()

	tests := []struct {
		name     string
		raw      string
		wantErr  bool
		single   *uuid.UUID
		multiple []uuid.UUID
	}{
		{name: "scalar id", raw: fmt.Sprintf("%q", optA), single: &optA},
		{name: "array of ids", raw: fmt.Sprintf("[%q,%q]", optA, optB), multiple: []uuid.UUID{optA, optB}},
		{name: "empty array clears", raw: "[]", multiple: []uuid.UUID{}},
		{name: "invalid scalar", raw: `"not-a-uuid"`, wantErr: true},
		{name: "invalid member", raw: fmt.Sprintf("[%q,\"nope\"]", optA), wantErr: true},
		{name: "object shape", raw: `{"id":"x"}`, wantErr: true},
		{name: "missing", raw: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseSelection(json.RawMessage(tc.raw))
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.single != nil {
				if got.Single == nil || *got.Single != *tc.single {
					t.Fatalf("expected single selection %s, got %+v", tc.single, got)
				}
				return
			}
			if got.Multiple == nil {
				t.Fatalf("expected multiple selection, got %+v", got)
			}
			if len(got.Multiple) != len(tc.multiple) {
				t.Fatalf("expected %d ids, got %d", len(tc.multiple), len(got.Multiple))
			}
			for i := range tc.multiple {
				if got.Multiple[i] != tc.multiple[i] {
					t.Fatalf("expected id %s at %d, got %s", tc.multiple[i], i, got.Multiple[i])
				}
			}
		})
	}
}
