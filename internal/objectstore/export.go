package objectstore

import "time"

// Encrypt exposes the store's AES-256-GCM wire format to other packages
// (the backup archive writer) that need the same authenticated encryption
// scheme but under a different HKDF-derived subkey purpose.
func Encrypt(key, aad, plaintext []byte) ([]byte, error) {
	return encrypt(key, aad, plaintext, uint32(time.Now().Unix()))
}

// Decrypt is the inverse of Encrypt.
func Decrypt(key, aad, ciphertext []byte) ([]byte, error) {
	return decrypt(key, aad, ciphertext)
}
