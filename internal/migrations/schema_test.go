package migrations

import (
	"strings"
	"testing"
)

func TestHistoryMigrationCreatesTableAndIndex(t *testing.T) {
	body, err := embeddedFS.ReadFile("sql/000001_import_history.up.sql")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	sql := string(body)
	for _, snippet := range []string{
		"CREATE TABLE import_history",
		"CHECK (source IN ('upload', 'object'))",
		"CHECK (status IN ('succeeded', 'failed'))",
		"CREATE INDEX import_history_started_at_idx",
	} {
		if !strings.Contains(sql, snippet) {
			t.Fatalf("migration missing %q", snippet)
		}
	}
}

func TestEmbeddedMigrationsLoad(t *testing.T) {
	items, err := loadMigrations(embeddedFS)
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if !strings.Contains(items[1].UpSQL, "size_bytes") {
		t.Fatalf("migration 2 up = %q", items[1].UpSQL)
	}
}
