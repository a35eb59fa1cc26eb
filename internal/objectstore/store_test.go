package objectstore

import (
	"context"
	"testing"
)

func TestStoreLocalOnlyPutGetDelete(t *testing.T) {
	key, _ := GenerateMasterKey()
	s, err := New(context.Background(), Config{LocalBaseDir: t.TempDir()}, key)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if err := s.Put(ctx, "owner1", "item1", []byte("hello world")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "owner1", "item1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hello world" {
		t.Fatalf("Get returned %q", got)
	}

	if err := s.Delete(ctx, "owner1", "item1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "owner1", "item1"); err == nil {
		t.Fatalf("expected Get to fail after Delete")
	}
}

func TestStoreRequiresAtLeastOneBackend(t *testing.T) {
	key, _ := GenerateMasterKey()
	if _, err := New(context.Background(), Config{}, key); err == nil {
		t.Fatalf("expected error constructing Store with no backends")
	}
}
