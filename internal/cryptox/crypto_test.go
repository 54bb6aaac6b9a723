package cryptox

import (
	"bytes"
	"crypto/cipher"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestKey(t *testing.T) []byte {
	t.Helper()
	key, err := RandomBytes(KeySize)
	require.NoError(t, err)
	return key
}

func TestSealOpen_RoundTrip(t *testing.T) {
	aead, err := NewAEAD(newTestKey(t))
	require.NoError(t, err)

	blob, err := Seal(aead, []byte("hello"), []byte("ad"))
	require.NoError(t, err)
	require.Len(t, blob, NonceSize+len("hello")+TagSize)

	pt, err := Open(aead, blob, []byte("ad"))
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), pt)
}

func TestSeal_FreshNoncePerCall(t *testing.T) {
	aead, err := NewAEAD(newTestKey(t))
	require.NoError(t, err)

	a, err := Seal(aead, []byte("same"), nil)
	require.NoError(t, err)
	b, err := Seal(aead, []byte("same"), nil)
	require.NoError(t, err)

	require.False(t, bytes.Equal(a[:NonceSize], b[:NonceSize]))
}

func TestOpen_Failures(t *testing.T) {
	aead, err := NewAEAD(newTestKey(t))
	require.NoError(t, err)
	other, err := NewAEAD(newTestKey(t))
	require.NoError(t, err)

	blob, err := Seal(aead, []byte("payload"), []byte("ad"))
	require.NoError(t, err)

	tests := []struct {
		name string
		aead cipher.AEAD
		blob []byte
		ad   []byte
		want error
	}{
		{"short", aead, blob[:NonceSize+TagSize-1], []byte("ad"), ErrShortCiphertext},
		{"wrong key", other, blob, []byte("ad"), ErrAuthFailed},
		{"wrong additional data", aead, blob, []byte("xx"), ErrAuthFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.aead, tt.blob, tt.ad)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewAEAD_InvalidKeySize(t *testing.T) {
	_, err := NewAEAD(make([]byte, 16))
	require.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestDeriveKEK_DeterministicAndSaltSensitive(t *testing.T) {
	pw := []byte("secret-password")

	k1 := DeriveKEK(pw, []byte("salt-1"))
	k2 := DeriveKEK(pw, []byte("salt-1"))
	k3 := DeriveKEK(pw, []byte("salt-2"))

	require.Len(t, k1, KeySize)
	require.Equal(t, k1, k2)
	require.NotEqual(t, k1, k3)
}

func TestWipe(t *testing.T) {
	buf := []byte{1, 2, 3}
	Wipe(buf)
	require.Equal(t, []byte{0, 0, 0}, buf)
	Wipe(nil)
}
