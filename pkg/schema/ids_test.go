package schema

import (
	"strings"
	"testing"
)

func TestGeneratedIDs_PrefixAndLength(t *testing.T) {
	tests := []struct {
		name   string
		gen    func() string
		prefix string
		length int
	}{
		{"user", NewUserID, "u_", 2 + 30},
		{"session", NewSessionID, "s_", 2 + 30},
		{"api key", NewAPIKey, "sn4_", 4 + 28},
		{"organic request", NewOrganicRequestID, "oreq_", 5 + 27},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := tt.gen()
			if !strings.HasPrefix(id, tt.prefix) {
				t.Fatalf("id %q missing prefix %q", id, tt.prefix)
			}
			if len(id) != tt.length {
				t.Fatalf("id %q has length %d, want %d", id, len(id), tt.length)
			}
			for _, c := range id[len(tt.prefix):] {
				if !strings.ContainsRune(idAlphabet, c) {
					t.Fatalf("id %q contains %q outside alphabet", id, c)
				}
			}
		})
	}
}

func TestGeneratedIDs_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		key := NewAPIKey()
		if seen[key] {
			t.Fatalf("duplicate key generated: %s", key)
		}
		seen[key] = true
	}
}
