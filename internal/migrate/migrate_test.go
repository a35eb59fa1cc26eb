package migrate

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeLines(t *testing.T, path string, lines []map[string]any) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, l := range lines {
		if err := enc.Encode(l); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
}

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	var out []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		out = append(out, m)
	}
	return out
}

func TestRunUpgradesTableRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "items.jsonl")
	writeLines(t, path, []map[string]any{
		{"__recordType": "descriptor", "valueTypeIdentifier": "item", "version": float64(1)},
		{"__recordType": "entry", "id": "abc", "item_type": "table"},
	})

	from, to, err := Run(path, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if from != 1 || to != 2 {
		t.Fatalf("expected 1->2, got %d->%d", from, to)
	}

	lines := readLines(t, path)
	if lines[0]["version"] != float64(2) {
		t.Fatalf("descriptor version not bumped: %v", lines[0])
	}
	if lines[1]["table_columns"] == nil || lines[1]["number_of_visible_columns"] == nil {
		t.Fatalf("table record not upgraded: %v", lines[1])
	}

	backup := path + ".v1"
	if _, err := os.Stat(backup); err != nil {
		t.Fatalf("expected backup file %s to exist: %v", backup, err)
	}
}

func TestRunIsNoopAtTargetVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "items.jsonl")
	writeLines(t, path, []map[string]any{
		{"__recordType": "descriptor", "valueTypeIdentifier": "item", "version": float64(3)},
	})
	from, to, err := Run(path, 3)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if from != 3 || to != 3 {
		t.Fatalf("expected noop 3->3, got %d->%d", from, to)
	}
}

func TestListMigrationsOrdered(t *testing.T) {
	list := ListMigrations()
	for i := 1; i < len(list); i++ {
		if list[i].FromVersion < list[i-1].FromVersion {
			t.Fatalf("ListMigrations not ordered: %+v", list)
		}
	}
}
