package drawid

import (
	"strings"
	"testing"
)

func TestPrefixes(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() string
		prefix string
	}{
		{"drawing", NewDrawing, "dwg"},
		{"job", NewJob, "job"},
		{"result", NewResult, "res"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := tt.newFn()
			if !strings.HasPrefix(id, tt.prefix+"_") {
				t.Errorf("id %s missing prefix %s_", id, tt.prefix)
			}
			if !IsValid(id, tt.prefix) {
				t.Errorf("IsValid(%s, %s) = false", id, tt.prefix)
			}
			if id != strings.ToLower(id) {
				t.Errorf("id %s is not lowercase", id)
			}
		})
	}
}

func TestIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewDrawing()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestIsValidRejectsMalformedIDs(t *testing.T) {
	tests := []struct {
		value  string
		prefix string
	}{
		{"", "dwg"},
		{"dwg_", "dwg"},
		{"dwg_notaulid", "dwg"},
		{"job_01h000000000000000000000000", "dwg"}, // wrong prefix
		{NewJob(), "dwg"},
	}
	for _, tt := range tests {
		if IsValid(tt.value, tt.prefix) {
			t.Errorf("IsValid(%q, %q) = true, want false", tt.value, tt.prefix)
		}
	}
}
