// Package objectstore implements the encrypted blob object store: local
// filesystem plus up to two S3-compatible backends, fanned out on write
// and consulted in a fixed preference order on read.
package objectstore

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/infumap/storage-core/internal/errs"
)

// Config configures a Store's backends. S3Primary/S3Secondary are optional;
// a Store with only a local directory configured still works, it simply
// has no redundancy.
type Config struct {
	LocalBaseDir string
	S3Primary    *S3Config
	S3Secondary  *S3Config
}

// Store fans blob writes out across every configured backend and, on
// read, prefers local, then the primary S3 backend, then the secondary,
// falling back only when the backend actually attempted comes back with
// an error. Local never falls back to S3: if local is configured but the
// blob is missing there, that is reported as NotFound rather than masked
// by a remote copy, so local corruption surfaces instead of hiding behind
// a slower redundant store.
type Store struct {
	masterKey []byte
	local     *localBackend
	primary   *s3Backend
	secondary *s3Backend
}

// New derives the blob subkey from masterKey and constructs every backend
// cfg names.
func New(ctx context.Context, cfg Config, masterKey []byte) (*Store, error) {
	blobKey, err := DeriveSubkey(masterKey, "blob")
	if err != nil {
		return nil, err
	}
	s := &Store{masterKey: blobKey}
	if cfg.LocalBaseDir != "" {
		s.local = newLocalBackend(cfg.LocalBaseDir)
	}
	if cfg.S3Primary != nil {
		b, err := newS3Backend(ctx, "s3-primary", *cfg.S3Primary)
		if err != nil {
			return nil, err
		}
		s.primary = b
	}
	if cfg.S3Secondary != nil {
		b, err := newS3Backend(ctx, "s3-secondary", *cfg.S3Secondary)
		if err != nil {
			return nil, err
		}
		s.secondary = b
	}
	if s.local == nil && s.primary == nil && s.secondary == nil {
		return nil, errs.New(errs.InvalidArg, "object store requires at least one backend")
	}
	return s, nil
}

func (s *Store) backends() []backend {
	var out []backend
	if s.local != nil {
		out = append(out, s.local)
	}
	if s.primary != nil {
		out = append(out, s.primary)
	}
	if s.secondary != nil {
		out = append(out, s.secondary)
	}
	return out
}

// Put encrypts data once and writes it to every configured backend in
// parallel, requiring all of them to succeed, a write is durable only
// once every copy exists.
func (s *Store) Put(ctx context.Context, ownerId, itemId string, data []byte) error {
	ciphertext, err := encrypt(s.masterKey, objectAAD(ownerId, itemId), data, uint32(time.Now().Unix()))
	if err != nil {
		return err
	}
	name := filename(ownerId, itemId)

	g, gctx := errgroup.WithContext(ctx)
	for _, b := range s.backends() {
		b := b
		g.Go(func() error {
			if err := b.put(gctx, name, ciphertext); err != nil {
				return errs.Wrap(errs.Backend, err, "backend %s", b.name())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return nil
}

// Get reads and decrypts the blob for (ownerId, itemId). When local is
// configured it is the only backend consulted, and its error (including
// not found) is returned as is. Otherwise S3 primary is tried first, and
// S3 secondary only if the primary returned an error.
func (s *Store) Get(ctx context.Context, ownerId, itemId string) ([]byte, error) {
	name := filename(ownerId, itemId)
	aad := objectAAD(ownerId, itemId)

	decryptAndReturn := func(ciphertext []byte) ([]byte, error) {
		return decrypt(s.masterKey, aad, ciphertext)
	}

	if s.local != nil {
		ciphertext, err := s.local.get(ctx, name)
		if err != nil {
			// local never falls back to S3, even if S3 backends are
			// configured: a blob local should hold is either there or
			// genuinely lost, and masking that with a remote copy would
			// hide local corruption instead of surfacing it.
			return nil, err
		}
		return decryptAndReturn(ciphertext)
	}

	if s.primary == nil && s.secondary == nil {
		return nil, errs.New(errs.Backend, "no backends configured")
	}

	var primaryErr error
	if s.primary != nil {
		ciphertext, err := s.primary.get(ctx, name)
		if err == nil {
			return decryptAndReturn(ciphertext)
		}
		primaryErr = err
		if s.secondary == nil {
			return nil, err
		}
	}

	ciphertext, err := s.secondary.get(ctx, name)
	if err != nil {
		if primaryErr != nil {
			return nil, errs.Wrap(errs.Backend, err, "s3 secondary also failed after primary error: %v", primaryErr)
		}
		return nil, err
	}
	return decryptAndReturn(ciphertext)
}

// Delete fans out to every configured backend in parallel, requiring all
// to succeed, mirroring Put's all-or-nothing durability contract.
func (s *Store) Delete(ctx context.Context, ownerId, itemId string) error {
	name := filename(ownerId, itemId)
	g, gctx := errgroup.WithContext(ctx)
	for _, b := range s.backends() {
		b := b
		g.Go(func() error {
			if err := b.delete(gctx, name); err != nil {
				return errs.Wrap(errs.Backend, err, "backend %s", b.name())
			}
			return nil
		})
	}
	return g.Wait()
}
