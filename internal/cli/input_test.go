package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubReadPassword(t *testing.T, pw []byte, err error) {
	t.Helper()
	orig := readPassword
	readPassword = func(int) ([]byte, error) { return pw, err }
	t.Cleanup(func() { readPassword = orig })
}

func TestGetPassphrase_FromEnv(t *testing.T) {
	t.Setenv(EnvPassphrase, "s3cret")
	stubReadPassword(t, nil, errors.New("must not be called"))

	var out bytes.Buffer
	pw, err := getPassphrase(&out)
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret"), pw)
	assert.Empty(t, out.String())
}

func TestGetPassphrase_Prompt(t *testing.T) {
	t.Setenv(EnvPassphrase, "")
	stubReadPassword(t, []byte("typed"), nil)

	var out bytes.Buffer
	pw, err := getPassphrase(&out)
	require.NoError(t, err)
	assert.Equal(t, []byte("typed"), pw)
	assert.Contains(t, out.String(), "Vault passphrase:")
}

func TestGetPassphrase_Empty(t *testing.T) {
	t.Setenv(EnvPassphrase, "")
	stubReadPassword(t, []byte{}, nil)

	_, err := getPassphrase(&bytes.Buffer{})
	require.ErrorIs(t, err, ErrEmptyPassphrase)
}

func TestGetPassphrase_ReadError(t *testing.T) {
	t.Setenv(EnvPassphrase, "")
	boom := errors.New("not a terminal")
	stubReadPassword(t, nil, boom)

	_, err := getPassphrase(&bytes.Buffer{})
	require.ErrorIs(t, err, boom)
}

func TestGetMultiline(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"stops at empty line", "first\nsecond\n\nignored\n", "first\nsecond"},
		{"eof without newline", "only line", "only line"},
		{"crlf", "a\r\nb\r\n\r\n", "a\nb"},
		{"empty", "\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := getMultiline(bufio.NewReader(strings.NewReader(tt.input)), "Content", &out)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Content")
		})
	}
}
