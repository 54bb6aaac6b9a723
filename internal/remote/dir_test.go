package remote

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirStore_CreateObject(t *testing.T) {
	fs := afero.NewMemMapFs()
	st := NewDirStore(fs, "/backup/j1")
	ctx := context.Background()

	p, err := st.CreateObject(ctx, "100_a.dat", []byte("one"))
	require.NoError(t, err)
	assert.Equal(t, "/backup/j1/100_a.dat", p)

	_, err = st.CreateObject(ctx, "100_a.dat", []byte("two"))
	require.NoError(t, err)

	got, err := afero.ReadFile(fs, p)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	exists, err := afero.Exists(fs, p+".tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDirStore_Errors(t *testing.T) {
	ctx := context.Background()

	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := NewDirStore(afero.NewMemMapFs(), "/d").CreateObject(ctx, name, nil)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}

	ro := NewDirStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/d")
	_, err := ro.CreateObject(ctx, "1_a.dat", []byte("x"))
	require.ErrorIs(t, err, ErrIO)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = NewDirStore(afero.NewMemMapFs(), "/d").CreateObject(cctx, "1_a.dat", []byte("x"))
	require.ErrorIs(t, err, ErrIO)
}
