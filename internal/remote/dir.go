package remote

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// DirStore writes objects as files into a directory. It is meant for local
// backups and tests; Fs is usually afero.NewOsFs().
type DirStore struct {
	fs  afero.Fs
	dir string
}

func NewDirStore(fs afero.Fs, dir string) *DirStore {
	return &DirStore{fs: fs, dir: dir}
}

// CreateObject writes payload to dir/name atomically and returns the path.
// An existing object with the same name is replaced.
func (s *DirStore) CreateObject(ctx context.Context, name string, payload []byte) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", ioError("create object", err)
	}

	if err := s.fs.MkdirAll(s.dir, 0o700); err != nil {
		return "", ioError("create directory", err)
	}

	target := filepath.Join(s.dir, name)
	tmp := target + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, payload, 0o600); err != nil {
		return "", ioError("write object", err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		_ = s.fs.Remove(tmp)
		return "", ioError("rename object", err)
	}
	return target, nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
