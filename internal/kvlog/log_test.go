package kvlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/infumap/storage-core/internal/errs"
	"github.com/infumap/storage-core/internal/types"
)

// widget is a minimal Serializable used only to exercise Log[T] without
// depending on the full Item capability model.
type widget struct {
	Id    types.Uid
	Name  string
	Count int64
}

func (w *widget) ValueTypeIdentifier() string { return "widget" }
func (w *widget) GetId() types.Uid            { return w.Id }

func (w *widget) ToJSON() (map[string]any, error) {
	return map[string]any{
		"__recordType": "widget",
		"id":           w.Id.String(),
		"name":         w.Name,
		"count":        w.Count,
	}, nil
}

func (w *widget) CreateUpdate(old *widget) (map[string]any, error) {
	diff := map[string]any{"__recordType": "update", "id": w.Id.String()}
	if w.Name != old.Name {
		diff["name"] = w.Name
	}
	if w.Count != old.Count {
		diff["count"] = w.Count
	}
	return diff, nil
}

func (w *widget) ApplyUpdate(diff map[string]any) error {
	if v, ok := diff["name"].(string); ok {
		w.Name = v
	}
	if v, ok := diff["count"]; ok {
		switch n := v.(type) {
		case float64:
			w.Count = int64(n)
		case int64:
			w.Count = n
		}
	}
	return nil
}

func widgetFromJSON(m map[string]any) (*widget, error) {
	id, _ := m["id"].(string)
	name, _ := m["name"].(string)
	var count int64
	switch n := m["count"].(type) {
	case float64:
		count = int64(n)
	case int64:
		count = n
	}
	return &widget{Id: types.Uid(id), Name: name, Count: count}, nil
}

func openTestLog(t *testing.T, path string) *Log[widget, *widget] {
	t.Helper()
	l, err := Open[widget, *widget](path, "widget", 1, widgetFromJSON)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLogAddGetRemove(t *testing.T) {
	dir := t.TempDir()
	l := openTestLog(t, filepath.Join(dir, "widgets.jsonl"))

	id := types.NewUid()
	w := &widget{Id: id, Name: "gizmo", Count: 1}
	if err := l.Add(w); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got, ok := l.Get(id)
	if !ok || got.Name != "gizmo" {
		t.Fatalf("Get after Add = %v, %v", got, ok)
	}

	if err := l.Remove(id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := l.Get(id); ok {
		t.Fatalf("expected id gone after Remove")
	}
}

func TestLogUpdateEmptyDiffWritesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "widgets.jsonl")
	l := openTestLog(t, path)

	id := types.NewUid()
	if err := l.Add(&widget{Id: id, Name: "a", Count: 1}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	sizeBefore := fileSize(t, path)

	if err := l.Update(&widget{Id: id, Name: "a", Count: 1}); err != nil {
		t.Fatalf("Update (noop): %v", err)
	}
	if got := fileSize(t, path); got != sizeBefore {
		t.Fatalf("noop update changed file size: %d -> %d", sizeBefore, got)
	}

	if err := l.Update(&widget{Id: id, Name: "b", Count: 1}); err != nil {
		t.Fatalf("Update (real change): %v", err)
	}
	if got := fileSize(t, path); got == sizeBefore {
		t.Fatalf("real update did not grow file")
	}
	w, _ := l.Get(id)
	if w.Name != "b" {
		t.Fatalf("update not applied in memory: %+v", w)
	}
}

func TestLogReplayIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "widgets.jsonl")
	l := openTestLog(t, path)

	id := types.NewUid()
	if err := l.Add(&widget{Id: id, Name: "a", Count: 1}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := l.Update(&widget{Id: id, Name: "c", Count: 9}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open[widget, *widget](path, "widget", 1, widgetFromJSON)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	w, ok := reopened.Get(id)
	if !ok {
		t.Fatalf("id missing after replay")
	}
	if w.Name != "c" || w.Count != 9 {
		t.Fatalf("replay produced wrong state: %+v", w)
	}
}

func TestLogReplayAppliesDelete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "widgets.jsonl")
	l := openTestLog(t, path)

	kept := types.NewUid()
	gone := types.NewUid()
	if err := l.Add(&widget{Id: kept, Name: "keep", Count: 1}); err != nil {
		t.Fatalf("Add kept: %v", err)
	}
	if err := l.Add(&widget{Id: gone, Name: "gone", Count: 2}); err != nil {
		t.Fatalf("Add gone: %v", err)
	}
	if err := l.Remove(gone); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open[widget, *widget](path, "widget", 1, widgetFromJSON)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, ok := reopened.Get(gone); ok {
		t.Fatalf("deleted id survived replay")
	}
	if _, ok := reopened.Get(kept); !ok {
		t.Fatalf("kept id missing after replay")
	}
	if reopened.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", reopened.Len())
	}
}

func TestLogReplayRejectsVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "widgets.jsonl")
	l := openTestLog(t, path)
	if err := l.Add(&widget{Id: types.NewUid(), Name: "a", Count: 1}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err := Open[widget, *widget](path, "widget", 2, widgetFromJSON)
	if !errs.Is(err, errs.CorruptLog) {
		t.Fatalf("expected CorruptLog opening a v1 log at expected version 2, got %v", err)
	}
}

func TestLogReplayRejectsDeleteForUnknownId(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "widgets.jsonl")
	l := openTestLog(t, path)
	if err := l.Add(&widget{Id: types.NewUid(), Name: "a", Count: 1}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := f.WriteString(`{"__recordType":"delete","id":"` + types.NewUid().String() + `"}` + "\n"); err != nil {
		t.Fatalf("write stray delete record: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err = Open[widget, *widget](path, "widget", 1, widgetFromJSON)
	if !errs.Is(err, errs.CorruptLog) {
		t.Fatalf("expected CorruptLog replaying a delete for an unknown id, got %v", err)
	}
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	return info.Size()
}
