// Package keyvault provides the secret keys used by the entry codec.
//
// Keys are handed out as opaque *Key handles. A handle wraps an AES-256-GCM
// AEAD; the raw key bytes are wiped as soon as the AEAD has been built and
// are never reachable through the handle.
//
// Two vaults are provided:
//
//   - MemoryVault keeps keys for the lifetime of the process only.
//   - FileVault persists keys wrapped under a passphrase-derived key
//     (argon2id + AES-GCM) in a 0600 file. This stands in for a hardware
//     backed keystore and is only as strong as the passphrase and the file
//     permissions of the host.
package keyvault

import (
	"context"
	"crypto/cipher"
	"errors"
	"log/slog"
	"sync"

	"github.com/dmitrijs2005/xjournal/internal/cryptox"
)

var (
	ErrEmptyAlias      = errors.New("key alias must not be empty")
	ErrWrongPassphrase = errors.New("vault passphrase does not match")
	ErrCorruptVault    = errors.New("vault file is corrupt")
)

// Vault returns the key stored under alias, generating it first if absent.
type Vault interface {
	GetOrCreateKey(ctx context.Context, alias string) (*Key, error)
}

// Key is an opaque handle to a symmetric key. It is safe for concurrent use.
type Key struct {
	alias string
	aead  cipher.AEAD
}

// newKey builds a handle from raw key bytes and wipes them.
func newKey(alias string, raw []byte) (*Key, error) {
	defer cryptox.Wipe(raw)
	aead, err := cryptox.NewAEAD(raw)
	if err != nil {
		return nil, err
	}
	return &Key{alias: alias, aead: aead}, nil
}

// Alias returns the name the key was requested under.
func (k *Key) Alias() string { return k.alias }

// Seal encrypts plaintext and returns nonce || ciphertext || tag.
func (k *Key) Seal(plaintext, additionalData []byte) ([]byte, error) {
	return cryptox.Seal(k.aead, plaintext, additionalData)
}

// Open decrypts a blob produced by Seal.
func (k *Key) Open(blob, additionalData []byte) ([]byte, error) {
	return cryptox.Open(k.aead, blob, additionalData)
}

func (k *Key) String() string { return "keyvault.Key(" + k.alias + ")" }

// LogValue keeps handles from being expanded by slog.
func (k *Key) LogValue() slog.Value { return slog.StringValue(k.String()) }

// MemoryVault generates keys on first use and keeps them in memory.
type MemoryVault struct {
	mu   sync.Mutex
	keys map[string]*Key
}

func NewMemoryVault() *MemoryVault {
	return &MemoryVault{keys: make(map[string]*Key)}
}

func (v *MemoryVault) GetOrCreateKey(ctx context.Context, alias string) (*Key, error) {
	if alias == "" {
		return nil, ErrEmptyAlias
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if k, ok := v.keys[alias]; ok {
		return k, nil
	}
	raw, err := cryptox.RandomBytes(cryptox.KeySize)
	if err != nil {
		return nil, err
	}
	k, err := newKey(alias, raw)
	if err != nil {
		return nil, err
	}
	v.keys[alias] = k
	return k, nil
}
