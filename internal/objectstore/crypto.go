package objectstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/infumap/storage-core/internal/errs"
)

// fileIdentifier and fileVersion are the magic prefix every encrypted blob
// carries on disk.
var fileIdentifier = [4]byte{'i', 'n', 'f', 'u'}

const fileVersion = 0
const nonceSize = 12

// encrypt produces the wire format: 4-byte identifier, 1-byte version,
// 12-byte nonce, then AES-256-GCM ciphertext+tag. The nonce is never fully
// random: its first 4 bytes are the current unix time, the remaining 8 are
// random, so that nonce reuse across a restart is vanishingly unlikely
// without needing a persisted counter.
func encrypt(key []byte, aad []byte, plaintext []byte, unixNow uint32) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errs.Wrap(errs.Crypto, err, "constructing aes cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errs.Wrap(errs.Crypto, err, "constructing gcm")
	}

	nonce := make([]byte, nonceSize)
	binary.BigEndian.PutUint32(nonce[:4], unixNow)
	if _, err := rand.Read(nonce[4:]); err != nil {
		return nil, errs.Wrap(errs.Crypto, err, "generating nonce randomness")
	}

	out := make([]byte, 0, 5+nonceSize+len(plaintext)+gcm.Overhead())
	out = append(out, fileIdentifier[:]...)
	out = append(out, fileVersion)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, plaintext, aad)
	return out, nil
}

// decrypt validates the wire header and authenticates+decrypts the body.
func decrypt(key []byte, aad []byte, blob []byte) ([]byte, error) {
	if len(blob) < 5+nonceSize {
		return nil, errs.New(errs.Crypto, "encrypted blob too short (%d bytes)", len(blob))
	}
	if blob[0] != fileIdentifier[0] || blob[1] != fileIdentifier[1] || blob[2] != fileIdentifier[2] || blob[3] != fileIdentifier[3] {
		return nil, errs.New(errs.Crypto, "encrypted blob missing infu identifier")
	}
	if blob[4] != fileVersion {
		return nil, errs.New(errs.Crypto, "unsupported encrypted blob version %d", blob[4])
	}
	nonce := blob[5 : 5+nonceSize]
	ciphertext := blob[5+nonceSize:]

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errs.Wrap(errs.Crypto, err, "constructing aes cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errs.Wrap(errs.Crypto, err, "constructing gcm")
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, errs.Wrap(errs.Crypto, err, "authentication failed, blob may be corrupt or tampered")
	}
	return plaintext, nil
}

// objectAAD builds the additional-authenticated-data string binding a
// ciphertext to the exact (owner, item) pair it was written for, so a
// blob copied between items or users fails to decrypt.
func objectAAD(ownerId, itemId string) []byte {
	return []byte(fmt.Sprintf("%s_%s", ownerId, itemId))
}
