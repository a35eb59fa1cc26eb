// Package backup implements the backup archive container format: a
// compressed, encrypted wrapper around an arbitrary payload (typically a
// tar of a user's kv-logs and blobs). It handles only the archive's
// envelope, compression, encryption, and the magic/version header that
// lets Read tell old archives from new ones, not the orchestration of
// what gets backed up, which is out of scope for the storage core.
package backup

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"

	"github.com/infumap/storage-core/internal/errs"
	"github.com/infumap/storage-core/internal/objectstore"
)

// Magic identifies an archive's container format. IMZ1 is the current
// zstd-based format this package writes; IMB0 is the legacy brotli-based
// format, readable for migration but never written.
type Magic string

const (
	MagicZstdCurrent Magic = "IMZ1"
	MagicBrotliLegacy Magic = "IMB0"
)

const magicLen = 4

// Write compresses plaintext with zstd, encrypts it with the "backup"
// purpose subkey derived from masterKey, and prefixes the result with the
// IMZ1 magic.
func Write(w io.Writer, masterKey []byte, aad []byte, plaintext []byte) error {
	backupKey, err := objectstore.DeriveSubkey(masterKey, "backup")
	if err != nil {
		return err
	}

	var compressed bytes.Buffer
	enc, err := zstd.NewWriter(&compressed)
	if err != nil {
		return errs.Wrap(errs.Io, err, "constructing zstd writer")
	}
	if _, err := enc.Write(plaintext); err != nil {
		enc.Close()
		return errs.Wrap(errs.Io, err, "compressing backup payload")
	}
	if err := enc.Close(); err != nil {
		return errs.Wrap(errs.Io, err, "flushing zstd stream")
	}

	ciphertext, err := objectstore.Encrypt(backupKey, aad, compressed.Bytes())
	if err != nil {
		return err
	}

	if _, err := w.Write([]byte(MagicZstdCurrent)); err != nil {
		return errs.Wrap(errs.Io, err, "writing archive magic")
	}
	if _, err := w.Write(ciphertext); err != nil {
		return errs.Wrap(errs.Io, err, "writing archive body")
	}
	return nil
}

// Read detects the archive's magic and decodes it back to the original
// plaintext, supporting both the current IMZ1 format and the legacy IMB0
// format (read-only, no caller of this package ever writes IMB0).
func Read(r io.Reader, masterKey []byte, aad []byte) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.Io, err, "reading archive")
	}
	if len(data) < magicLen {
		return nil, errs.New(errs.CorruptLog, "archive too short to contain a magic header")
	}
	magic := Magic(data[:magicLen])
	body := data[magicLen:]

	switch magic {
	case MagicZstdCurrent:
		backupKey, err := objectstore.DeriveSubkey(masterKey, "backup")
		if err != nil {
			return nil, err
		}
		compressed, err := objectstore.Decrypt(backupKey, aad, body)
		if err != nil {
			return nil, err
		}
		dec, err := zstd.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, errs.Wrap(errs.Io, err, "constructing zstd reader")
		}
		defer dec.Close()
		plaintext, err := io.ReadAll(dec)
		if err != nil {
			return nil, errs.Wrap(errs.Io, err, "decompressing backup payload")
		}
		return plaintext, nil

	case MagicBrotliLegacy:
		// Legacy archives predate the backup-purpose subkey split: they
		// were encrypted directly with the blob subkey.
		blobKey, err := objectstore.DeriveSubkey(masterKey, "blob")
		if err != nil {
			return nil, err
		}
		compressed, err := objectstore.Decrypt(blobKey, aad, body)
		if err != nil {
			return nil, err
		}
		plaintext, err := io.ReadAll(brotli.NewReader(bytes.NewReader(compressed)))
		if err != nil {
			return nil, errs.Wrap(errs.Io, err, "decompressing legacy brotli payload")
		}
		return plaintext, nil

	default:
		return nil, errs.New(errs.CorruptLog, "unrecognized archive magic %q", string(magic))
	}
}
