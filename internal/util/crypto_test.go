package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec(map[int]string{1: "test-key-one"}, 1)
	require.NoError(t, err)
	return codec
}

func TestCodecRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	for _, plain := range []string{"", "coffee", "äöü €42", strings.Repeat("x", 500)} {
		blob, err := codec.EncryptString(plain)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(blob, "v1:"), "blob %q missing version prefix", blob)

		got, err := codec.DecryptString(blob)
		require.NoError(t, err)
		require.Equal(t, plain, got)
	}
}

func TestCodecNonDeterministic(t *testing.T) {
	codec := newTestCodec(t)

	a, err := codec.EncryptString("same plaintext")
	require.NoError(t, err)
	b, err := codec.EncryptString("same plaintext")
	require.NoError(t, err)
	require.NotEqual(t, a, b, "two seals of the same value must differ")
}

func TestCodecCentsExact(t *testing.T) {
	codec := newTestCodec(t)

	for _, cents := range []int64{0, 1, -1, 12345, 999999999999999} {
		blob, err := codec.EncryptCents(cents)
		require.NoError(t, err)
		got, err := codec.DecryptCents(blob)
		require.NoError(t, err)
		require.Equal(t, cents, got)
	}
}

func TestCodecWrongKey(t *testing.T) {
	codec := newTestCodec(t)
	other, err := NewCodec(map[int]string{1: "a different key"}, 1)
	require.NoError(t, err)

	blob, err := codec.EncryptString("secret")
	require.NoError(t, err)

	_, err = other.DecryptString(blob)
	require.ErrorIs(t, err, ErrDecryption)
}

func TestCodecCorruptBlob(t *testing.T) {
	codec := newTestCodec(t)

	for _, blob := range []string{
		"",
		"not a blob",
		"v1:",
		"v1:!!!not-base64!!!",
		"v1:YWJj", // valid base64, too short for a nonce
		"vX:YWJj",
	} {
		_, err := codec.DecryptString(blob)
		require.ErrorIs(t, err, ErrDecryption, "blob %q", blob)
	}
}

func TestCodecUnknownVersion(t *testing.T) {
	v2, err := NewCodec(map[int]string{2: "key two"}, 2)
	require.NoError(t, err)
	blob, err := v2.EncryptString("sealed under v2")
	require.NoError(t, err)

	v1only := newTestCodec(t)
	_, err = v1only.DecryptString(blob)
	require.ErrorIs(t, err, ErrDecryption)
}

func TestCodecRotation(t *testing.T) {
	old, err := NewCodec(map[int]string{1: "key one"}, 1)
	require.NoError(t, err)
	oldBlob, err := old.EncryptCents(4200)
	require.NoError(t, err)

	rotated, err := NewCodec(map[int]string{1: "key one", 2: "key two"}, 2)
	require.NoError(t, err)
	require.Equal(t, 2, rotated.ActiveVersion())

	// old ciphertexts stay readable
	got, err := rotated.DecryptCents(oldBlob)
	require.NoError(t, err)
	require.Equal(t, int64(4200), got)

	// new ciphertexts carry the new version
	newBlob, err := rotated.EncryptCents(100)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(newBlob, "v2:"))
}

func TestCodecActiveVersionMustExist(t *testing.T) {
	_, err := NewCodec(map[int]string{1: "key"}, 3)
	require.Error(t, err)
}

func TestDecryptCentsOr(t *testing.T) {
	codec := newTestCodec(t)

	require.Equal(t, int64(7), codec.DecryptCentsOr("", 7))
	require.Equal(t, int64(7), codec.DecryptCentsOr("garbage", 7))

	blob, err := codec.EncryptCents(55)
	require.NoError(t, err)
	require.Equal(t, int64(55), codec.DecryptCentsOr(blob, 7))
}
