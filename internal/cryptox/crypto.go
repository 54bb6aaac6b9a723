// Package cryptox holds the AES-GCM and key-derivation primitives used by the
// key vault and the entry codec.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// NonceSize is the GCM nonce length in bytes (96 bits).
	NonceSize = 12
	// TagSize is the GCM authentication tag length in bytes (128 bits).
	TagSize = 16
	// SaltSize is the argon2id salt length used for key-encryption keys.
	SaltSize = 16
)

var (
	// ErrShortCiphertext means the input is too short to hold a nonce and a tag.
	ErrShortCiphertext = errors.New("ciphertext too short")
	// ErrAuthFailed means the GCM tag did not verify: wrong key or tampered data.
	ErrAuthFailed = errors.New("message authentication failed")
	// ErrInvalidKeySize is returned for keys that are not KeySize bytes long.
	ErrInvalidKeySize = errors.New("invalid key size")
)

// NewAEAD builds an AES-256-GCM AEAD from a 32-byte key.
//
// The caller owns key and may wipe it once NewAEAD returns; the cipher keeps
// its own expanded schedule.
func NewAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext with a fresh random nonce and returns
// nonce || ciphertext || tag. additionalData is authenticated but not stored.
func Seal(aead cipher.AEAD, plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

// Open reverses Seal. It returns ErrShortCiphertext when blob cannot hold a
// nonce and a tag, and ErrAuthFailed when the tag does not verify.
func Open(aead cipher.AEAD, blob, additionalData []byte) ([]byte, error) {
	ns := aead.NonceSize()
	if len(blob) < ns+aead.Overhead() {
		return nil, ErrShortCiphertext
	}
	plaintext, err := aead.Open(nil, blob[:ns], blob[ns:], additionalData)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// DeriveKEK derives a 32-byte key-encryption key from a passphrase with argon2id.
func DeriveKEK(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// RandomBytes returns n bytes from crypto/rand.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Wipe overwrites b with zeros. Nil is allowed.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
