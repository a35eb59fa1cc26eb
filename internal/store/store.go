// Package store wires together the per-owner item database, the user
// registry, the blob object store, the image derivative cache and the
// search index into the single entry point the CLI (and any embedding
// application) drives.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/infumap/storage-core/internal/errs"
	"github.com/infumap/storage-core/internal/imagecache"
	"github.com/infumap/storage-core/internal/itemdb"
	"github.com/infumap/storage-core/internal/kvlog"
	"github.com/infumap/storage-core/internal/objectstore"
	"github.com/infumap/storage-core/internal/searchindex"
	"github.com/infumap/storage-core/internal/types"
)

const userLogVersion = 1

// Config names every directory and backend the store needs.
type Config struct {
	DataDir   string
	CacheDir  string
	Objects   objectstore.Config
	MasterKey []byte

	ImageCacheMaxScaleDownPercent int64
	ImageCacheMaxScaleUpPercent  int64
}

// Store owns the user log and the per-owner item databases and search
// indexes. Its mutex guards only the maps of opened item databases and
// indexes; each item database and kv log serializes its own mutations with
// its own mutex, and blob and image I/O synchronize independently inside
// their own packages.
type Store struct {
	mu sync.Mutex

	cfg     Config
	users   *kvlog.Log[types.User, *types.User]
	itemDbs map[types.Uid]*itemdb.ItemDb
	indexes map[types.Uid]*searchindex.Index

	objects *objectstore.Store
	images  *imagecache.Cache
}

// Open loads (or creates) the user log and prepares per-owner state
// lazily, an owner's item log and search index are opened the first time
// they're touched, not eagerly on Store startup.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, errs.Wrap(errs.Io, err, "creating data dir %s", cfg.DataDir)
	}
	users, err := kvlog.Open[types.User, *types.User](filepath.Join(cfg.DataDir, "users.jsonl"), "user", userLogVersion, types.UserFromJSON)
	if err != nil {
		return nil, err
	}
	objects, err := objectstore.New(ctx, cfg.Objects, cfg.MasterKey)
	if err != nil {
		return nil, err
	}
	images := imagecache.New(cfg.CacheDir, cfg.ImageCacheMaxScaleDownPercent, cfg.ImageCacheMaxScaleUpPercent)

	return &Store{
		cfg:     cfg,
		users:   users,
		itemDbs: make(map[types.Uid]*itemdb.ItemDb),
		indexes: make(map[types.Uid]*searchindex.Index),
		objects: objects,
		images:  images,
	}, nil
}

func (s *Store) itemLogPath(ownerId types.Uid) string {
	return filepath.Join(s.cfg.DataDir, "items", ownerId.ShardPrefix(), fmt.Sprintf("%s.jsonl", ownerId))
}

func (s *Store) searchIndexPath(ownerId types.Uid) string {
	return filepath.Join(s.cfg.CacheDir, "search", ownerId.ShardPrefix(), fmt.Sprintf("%s.db", ownerId))
}

// ItemDb returns (opening on first use) the item database for ownerId.
func (s *Store) ItemDb(ownerId types.Uid) (*itemdb.ItemDb, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.itemDbs[ownerId]; ok {
		return db, nil
	}
	path := s.itemLogPath(ownerId)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errs.Wrap(errs.Io, err, "creating item log dir for owner %s", ownerId)
	}
	db, err := itemdb.Open(path, ownerId)
	if err != nil {
		return nil, err
	}
	s.itemDbs[ownerId] = db
	return db, nil
}

// SearchIndex returns (opening on first use) the search index for ownerId.
func (s *Store) SearchIndex(ctx context.Context, ownerId types.Uid) (*searchindex.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.indexes[ownerId]; ok {
		return idx, nil
	}
	path := s.searchIndexPath(ownerId)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errs.Wrap(errs.Io, err, "creating search index dir for owner %s", ownerId)
	}
	idx, err := searchindex.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	s.indexes[ownerId] = idx
	return idx, nil
}

// Objects returns the blob object store.
func (s *Store) Objects() *objectstore.Store { return s.objects }

// Images returns the image derivative cache.
func (s *Store) Images() *imagecache.Cache { return s.images }

// Users returns the user registry log.
func (s *Store) Users() *kvlog.Log[types.User, *types.User] { return s.users }

// Close releases every open log and index.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, db := range s.itemDbs {
		note(db.Close())
	}
	for _, idx := range s.indexes {
		note(idx.Close())
	}
	note(s.users.Close())
	return firstErr
}
