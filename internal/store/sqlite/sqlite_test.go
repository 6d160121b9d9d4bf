package sqlite

import (
	"context"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestSearchUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Seed users
	users := []string{"alice", "alex", "alan", "bob", "charlie"}
	for _, u := range users {
		if _, err := s.CreateUser(ctx, u, "hash"); err != nil {
			t.Fatalf("failed to create user %s: %v", u, err)
		}
	}

	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{
			name:     "search 'al'",
			query:    "al",
			expected: []string{"alan", "alex", "alice"},
		},
		{
			name:     "search 'li'",
			query:    "li",
			expected: []string{"alice", "charlie"},
		},
		{
			name:     "search non-existent",
			query:    "z",
			expected: []string{},
		},
		{
			name:     "LIKE is case-insensitive for ASCII",
			query:    "Bob",
			expected: []string{"bob"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := s.SearchUsers(ctx, tt.query)
			if err != nil {
				t.Fatalf("SearchUsers failed: %v", err)
			}

			var names []string
			for _, u := range results {
				names = append(names, u.Username)
			}

			if len(results) != len(tt.expected) {
				t.Errorf("expected %d results, got %d: %v", len(tt.expected), len(results), names)
				return
			}

			for i, name := range names {
				if name != tt.expected[i] {
					t.Errorf("expected %s at index %d, got %s", tt.expected[i], i, name)
				}
			}
		})
	}
}
