package objectstore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/infumap/storage-core/internal/errs"
)

// localBackend stores blobs under baseDir, sharded into 256 subdirectories
// by the first two hex characters of filename, matching the item cache
// and image cache's sharding scheme so a single directory never
// accumulates millions of entries.
type localBackend struct {
	baseDir string
}

func newLocalBackend(baseDir string) *localBackend { return &localBackend{baseDir: baseDir} }

func (l *localBackend) name() string { return "local" }

func (l *localBackend) shardDir(filename string) string {
	prefix := "00"
	if len(filename) >= 2 {
		prefix = filename[:2]
	}
	return filepath.Join(l.baseDir, prefix)
}

func (l *localBackend) path(filename string) string {
	return filepath.Join(l.shardDir(filename), filename)
}

func (l *localBackend) get(_ context.Context, filename string) ([]byte, error) {
	data, err := os.ReadFile(l.path(filename))
	if os.IsNotExist(err) {
		return nil, errs.New(errs.NotFound, "local blob %s not found", filename)
	}
	if err != nil {
		return nil, errs.Wrap(errs.Io, err, "reading local blob %s", filename)
	}
	return data, nil
}

func (l *localBackend) put(_ context.Context, filename string, data []byte) error {
	dir := l.shardDir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.Io, err, "creating shard dir %s", dir)
	}
	tmp := l.path(filename) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errs.Wrap(errs.Io, err, "writing local blob %s", filename)
	}
	if err := os.Rename(tmp, l.path(filename)); err != nil {
		return errs.Wrap(errs.Io, err, "renaming local blob %s into place", filename)
	}
	return nil
}

func (l *localBackend) delete(_ context.Context, filename string) error {
	err := os.Remove(l.path(filename))
	if err != nil && !os.IsNotExist(err) {
		return errs.Wrap(errs.Io, err, "deleting local blob %s", filename)
	}
	return nil
}
