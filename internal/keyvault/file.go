package keyvault

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmitrijs2005/xjournal/internal/cryptox"
	"github.com/spf13/afero"
)

const (
	fileVaultVersion = 1
	checkPlaintext   = "xjournal-vault-check"
	checkAD          = "check"
)

// fileVaultData is the on-disk layout. Every key is wrapped under the KEK
// with its alias as additional data, so wrapped keys cannot be swapped.
type fileVaultData struct {
	Version int               `json:"version"`
	Salt    string            `json:"salt"`
	Check   string            `json:"check"`
	Keys    map[string]string `json:"keys"`
}

// FileVault persists wrapped keys in a single JSON file.
type FileVault struct {
	fs   afero.Fs
	path string

	mu    sync.Mutex
	kek   *Key
	data  fileVaultData
	cache map[string]*Key
}

// OpenFileVault opens the vault at path, creating it when it does not exist.
// An existing vault must have been created with the same passphrase,
// otherwise ErrWrongPassphrase is returned.
func OpenFileVault(fs afero.Fs, path string, passphrase []byte) (*FileVault, error) {
	v := &FileVault{fs: fs, path: path, cache: make(map[string]*Key)}

	raw, err := afero.ReadFile(fs, path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := v.create(passphrase); err != nil {
			return nil, err
		}
		return v, nil
	case err != nil:
		return nil, fmt.Errorf("read vault: %w", err)
	}

	if err := json.Unmarshal(raw, &v.data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptVault, err)
	}
	if v.data.Version != fileVaultVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptVault, v.data.Version)
	}
	salt, err := base64.StdEncoding.DecodeString(v.data.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %v", ErrCorruptVault, err)
	}
	check, err := base64.StdEncoding.DecodeString(v.data.Check)
	if err != nil {
		return nil, fmt.Errorf("%w: check: %v", ErrCorruptVault, err)
	}

	kek, err := newKey("kek", cryptox.DeriveKEK(passphrase, salt))
	if err != nil {
		return nil, err
	}
	if _, err := kek.Open(check, []byte(checkAD)); err != nil {
		return nil, ErrWrongPassphrase
	}
	v.kek = kek
	if v.data.Keys == nil {
		v.data.Keys = make(map[string]string)
	}
	return v, nil
}

func (v *FileVault) create(passphrase []byte) error {
	salt, err := cryptox.RandomBytes(cryptox.SaltSize)
	if err != nil {
		return err
	}
	kek, err := newKey("kek", cryptox.DeriveKEK(passphrase, salt))
	if err != nil {
		return err
	}
	check, err := kek.Seal([]byte(checkPlaintext), []byte(checkAD))
	if err != nil {
		return err
	}
	v.kek = kek
	v.data = fileVaultData{
		Version: fileVaultVersion,
		Salt:    base64.StdEncoding.EncodeToString(salt),
		Check:   base64.StdEncoding.EncodeToString(check),
		Keys:    make(map[string]string),
	}
	if dir := filepath.Dir(v.path); dir != "." {
		if err := v.fs.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create vault dir: %w", err)
		}
	}
	return v.persist()
}

func (v *FileVault) GetOrCreateKey(ctx context.Context, alias string) (*Key, error) {
	if alias == "" {
		return nil, ErrEmptyAlias
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if k, ok := v.cache[alias]; ok {
		return k, nil
	}

	if wrapped, ok := v.data.Keys[alias]; ok {
		blob, err := base64.StdEncoding.DecodeString(wrapped)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrCorruptVault, alias, err)
		}
		raw, err := v.kek.Open(blob, []byte(alias))
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrCorruptVault, alias, err)
		}
		k, err := newKey(alias, raw)
		if err != nil {
			return nil, err
		}
		v.cache[alias] = k
		return k, nil
	}

	raw, err := cryptox.RandomBytes(cryptox.KeySize)
	if err != nil {
		return nil, err
	}
	wrapped, err := v.kek.Seal(raw, []byte(alias))
	if err != nil {
		cryptox.Wipe(raw)
		return nil, err
	}
	v.data.Keys[alias] = base64.StdEncoding.EncodeToString(wrapped)
	if err := v.persist(); err != nil {
		delete(v.data.Keys, alias)
		cryptox.Wipe(raw)
		return nil, err
	}

	k, err := newKey(alias, raw)
	if err != nil {
		return nil, err
	}
	v.cache[alias] = k
	return k, nil
}

// persist writes the vault through a temp file and a rename.
func (v *FileVault) persist() error {
	b, err := json.MarshalIndent(v.data, "", "  ")
	if err != nil {
		return err
	}
	tmp := v.path + ".tmp"
	if err := afero.WriteFile(v.fs, tmp, b, 0o600); err != nil {
		return fmt.Errorf("write vault: %w", err)
	}
	if err := v.fs.Rename(tmp, v.path); err != nil {
		return fmt.Errorf("replace vault: %w", err)
	}
	return nil
}
