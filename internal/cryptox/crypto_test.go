package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	secret := []byte("device-secret")
	salt := []byte("fixed-salt")

	key1 := DeriveKey(secret, salt)
	key2 := DeriveKey(secret, salt)

	require.Len(t, key1, KeySize)
	if !bytes.Equal(key1, key2) {
		t.Errorf("expected same result for same inputs, got different")
	}
}

func TestDeriveKey_DifferentSalts(t *testing.T) {
	secret := []byte("device-secret")

	if bytes.Equal(DeriveKey(secret, []byte("salt-1")), DeriveKey(secret, []byte("salt-2"))) {
		t.Errorf("expected different results for different salts, got same")
	}
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := DeriveKey([]byte("s"), []byte("salt"))

	sealed, err := Seal([]byte("1|abcdef"), key)
	require.NoError(t, err)
	require.NotContains(t, string(sealed), "abcdef")

	plain, err := Open(sealed, key)
	require.NoError(t, err)
	require.Equal(t, "1|abcdef", string(plain))
}

func TestOpen_WrongKeyFails(t *testing.T) {
	sealed, err := Seal([]byte("token"), DeriveKey([]byte("a"), []byte("salt")))
	require.NoError(t, err)

	_, err = Open(sealed, DeriveKey([]byte("b"), []byte("salt")))
	require.Error(t, err)
}

func TestOpen_TooShort(t *testing.T) {
	_, err := Open([]byte{1, 2}, DeriveKey([]byte("a"), []byte("salt")))
	require.ErrorIs(t, err, ErrCiphertextTooShort)
}
