package searchindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/infumap/storage-core/internal/types"
)

func newTitledNote(title string) *types.Item {
	t := title
	return &types.Item{Id: types.NewUid(), ItemType: types.Note, Title: &t}
}

func TestUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(ctx, filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	item := newTitledNote("quarterly budget review")
	if err := idx.Upsert(ctx, item); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := idx.Search(ctx, "budget", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Id != item.Id {
		t.Fatalf("expected one hit for %s, got %+v", item.Id, results)
	}
}

func TestRemoveDropsFromSearch(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(ctx, filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	item := newTitledNote("ephemeral note")
	idx.Upsert(ctx, item)
	if err := idx.Remove(ctx, item.Id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	results, err := idx.Search(ctx, "ephemeral", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no hits after Remove, got %+v", results)
	}
}

func TestRebuildReplacesIndex(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(ctx, filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	stale := newTitledNote("stale entry")
	idx.Upsert(ctx, stale)

	fresh := newTitledNote("fresh content")
	if err := idx.Rebuild(ctx, []*types.Item{fresh}); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	if results, _ := idx.Search(ctx, "stale", 10); len(results) != 0 {
		t.Fatalf("expected stale entry gone after rebuild")
	}
	results, err := idx.Search(ctx, "fresh", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Id != fresh.Id {
		t.Fatalf("expected fresh entry after rebuild, got %+v", results)
	}
}
