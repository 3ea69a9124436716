package store

import (
	"path/filepath"
	"testing"
)

// createTestStore opens a fresh store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var peopleSchema = Schema{
	{Name: "id", Type: "int32"},
	{Name: "name", Type: "string"},
	{Name: "score", Type: "float64?"},
	{Name: "active", Type: "bool"},
}

func peopleRows(t *testing.T) any {
	t.Helper()
	rows, err := peopleSchema.Rows([]map[string]any{
		{"id": 1, "name": "Alice", "score": 4.5, "active": true},
		{"id": 2, "name": "Bob", "active": false},
		{"id": 3, "name": "Carol", "score": 3, "active": true},
	})
	if err != nil {
		t.Fatalf("Rows() failed: %v", err)
	}
	return rows
}
