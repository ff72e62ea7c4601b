package crypto

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestEncryptRoundTrip(t *testing.T) {
	svc, err := New(testKey)
	require.NoError(t, err)
	require.True(t, svc.Configured())

	sealed, err := svc.EncryptString("555-0100")
	require.NoError(t, err)
	require.False(t, bytes.Contains(sealed, []byte("555-0100")))

	plain, err := svc.DecryptString(sealed)
	require.NoError(t, err)
	require.Equal(t, "555-0100", plain)
}

func TestFloatRoundTrip(t *testing.T) {
	svc, err := New(testKey)
	require.NoError(t, err)

	salary := 85000.5
	sealed, err := svc.EncryptFloat(&salary)
	require.NoError(t, err)

	got, err := svc.DecryptFloat(sealed)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, salary, *got)

	sealed, err = svc.EncryptFloat(nil)
	require.NoError(t, err)
	require.Nil(t, sealed)
	got, err = svc.DecryptFloat(nil)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestUnconfiguredPassesThrough(t *testing.T) {
	svc, err := New("")
	require.NoError(t, err)
	require.False(t, svc.Configured())

	out, err := svc.Encrypt([]byte("plain"))
	require.NoError(t, err)
	require.Equal(t, []byte("plain"), out)
}

func TestNewRejectsShortKey(t *testing.T) {
	_, err := New(strings.Repeat("a", 10))
	require.Error(t, err)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	a, err := New(testKey)
	require.NoError(t, err)
	b, err := New(strings.Repeat("f", 64))
	require.NoError(t, err)

	sealed, err := a.EncryptString("secret")
	require.NoError(t, err)
	_, err = b.DecryptString(sealed)
	require.Error(t, err)
}

func TestNewAcceptsBase64Key(t *testing.T) {
	svc, err := New(base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, keySize)))
	require.NoError(t, err)
	require.True(t, svc.Configured())
}

func TestDecryptRejectsTruncatedValue(t *testing.T) {
	svc, err := New(testKey)
	require.NoError(t, err)
	_, err = svc.Decrypt([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrCiphertextTooShort)
}
