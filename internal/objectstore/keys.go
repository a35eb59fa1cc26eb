package objectstore

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/infumap/storage-core/internal/errs"
)

const masterKeySize = 32 // AES-256

// GenerateMasterKey produces a fresh random master key, for the keygen
// command to write out on first-time setup.
func GenerateMasterKey() ([]byte, error) {
	k := make([]byte, masterKeySize)
	if _, err := rand.Read(k); err != nil {
		return nil, errs.Wrap(errs.Crypto, err, "generating master key")
	}
	return k, nil
}

// DeriveSubkey derives a 32-byte AES-256 key for a specific purpose (e.g.
// "blob" or "backup") from the master key, so a single configured secret
// never directly encrypts two different kinds of data with the same key.
func DeriveSubkey(masterKey []byte, purpose string) ([]byte, error) {
	r := hkdf.New(sha256.New, masterKey, nil, []byte("infumap-storage-core:"+purpose))
	sub := make([]byte, masterKeySize)
	if _, err := io.ReadFull(r, sub); err != nil {
		return nil, errs.Wrap(errs.Crypto, err, "deriving %s subkey", purpose)
	}
	return sub, nil
}
