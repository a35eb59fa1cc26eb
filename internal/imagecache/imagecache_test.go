package imagecache

import (
	"context"
	"sync"
	"testing"

	"github.com/infumap/storage-core/internal/types"
)

type fakeFetcher struct {
	data  []byte
	calls int
}

func (f *fakeFetcher) Get(_ context.Context, _, _ string) ([]byte, error) {
	f.calls++
	return f.data, nil
}

func TestPutGetExactMatch(t *testing.T) {
	c := New(t.TempDir(), 0, 0)
	itemId := types.NewUid()
	owner := types.NewUid()
	size := Size{WidthPx: 256}

	if err := c.Put(itemId, size, owner, []byte("img-data")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := c.Get(itemId, size, owner)
	if !ok || string(got) != "img-data" {
		t.Fatalf("Get = %v, %v", got, ok)
	}
}

func TestLookupWithinBand(t *testing.T) {
	c := New(t.TempDir(), 20, 10)
	itemId := types.NewUid()
	owner := types.NewUid()
	c.Put(itemId, Size{WidthPx: 300}, owner, []byte("d300"))

	// requesting 280: scaling candidate 300 down to 280 loses 20/300, about
	// 6.7%, well within the 20% scale-down band.
	size, data, ok := c.Lookup(itemId, 280, owner)
	if !ok || size.WidthPx != 300 || string(data) != "d300" {
		t.Fatalf("expected band match at 300, got %+v %q %v", size, data, ok)
	}

	// requesting 1000: 300 is 70% smaller, outside any reasonable band.
	if _, _, ok := c.Lookup(itemId, 1000, owner); ok {
		t.Fatalf("expected no match far outside band")
	}
}

func TestPutConcurrentRaceIdempotent(t *testing.T) {
	c := New(t.TempDir(), 0, 0)
	itemId := types.NewUid()
	owner := types.NewUid()
	size := Size{WidthPx: 128}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Put(itemId, size, owner, []byte("race"))
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Fatalf("concurrent Put returned error: %v", err)
		}
	}
	data, ok := c.Get(itemId, size, owner)
	if !ok || string(data) != "race" {
		t.Fatalf("expected consistent winner bytes, got %q %v", data, ok)
	}
}

func TestResolveMissFillsCacheThenHits(t *testing.T) {
	c := New(t.TempDir(), 20, 10)
	itemId := types.NewUid()
	owner := types.NewUid()
	fetcher := &fakeFetcher{data: []byte("original-bytes")}

	size, data, err := c.Resolve(context.Background(), itemId, owner, 200, 1000, fetcher, PassthroughResizer{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if size.WidthPx != 200 || string(data) != "original-bytes" {
		t.Fatalf("unexpected resolve result: %+v %q", size, data)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected one fetch on miss, got %d", fetcher.calls)
	}

	size2, data2, err := c.Resolve(context.Background(), itemId, owner, 200, 1000, fetcher, PassthroughResizer{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if size2.WidthPx != 200 || string(data2) != "original-bytes" {
		t.Fatalf("unexpected resolve result on hit: %+v %q", size2, data2)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected cache hit to avoid a second fetch, got %d calls", fetcher.calls)
	}
}

func TestResolveRequestAtOrAboveOriginalWidthServesOriginal(t *testing.T) {
	c := New(t.TempDir(), 20, 10)
	itemId := types.NewUid()
	owner := types.NewUid()
	fetcher := &fakeFetcher{data: []byte("full-res")}

	size, data, err := c.Resolve(context.Background(), itemId, owner, 1000, 1000, fetcher, PassthroughResizer{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !size.Original || string(data) != "full-res" {
		t.Fatalf("expected original derivative, got %+v %q", size, data)
	}
}

func TestDeleteAllRemovesOwnedEntriesOnly(t *testing.T) {
	c := New(t.TempDir(), 0, 0)
	itemId := types.NewUid()
	owner := types.NewUid()
	c.Put(itemId, Size{WidthPx: 64}, owner, []byte("a"))
	c.Put(itemId, Size{Original: true}, owner, []byte("b"))
	otherOwner := types.NewUid()
	c.Put(itemId, Size{WidthPx: 64}, otherOwner, []byte("c"))

	if err := c.DeleteAll(itemId, owner); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if data, ok := c.Get(itemId, Size{WidthPx: 64}, otherOwner); !ok || string(data) != "c" {
		t.Fatalf("expected another owner's entry to survive DeleteAll, got %q %v", data, ok)
	}
	if _, ok := c.Get(itemId, Size{WidthPx: 64}, owner); ok {
		t.Fatalf("expected entry gone after DeleteAll")
	}
	if _, ok := c.Get(itemId, Size{Original: true}, owner); ok {
		t.Fatalf("expected original entry gone after DeleteAll")
	}
}
