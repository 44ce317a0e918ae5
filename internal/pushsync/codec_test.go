package pushsync

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeApplicationKeyRoundTrip(t *testing.T) {
	// Lengths 0..8 cover every padding variant (len%4 of 0, 2 and 3; a
	// remainder of 1 cannot occur in valid base64).
	for size := 0; size <= 8; size++ {
		buf := make([]byte, size)
		_, err := rand.Read(buf)
		require.NoError(t, err)

		encoded := EncodeApplicationKey(buf)
		decoded, err := DecodeApplicationKey(encoded)
		require.NoError(t, err, "size %d", size)
		assert.Equal(t, buf, decoded, "size %d", size)
		assert.Equal(t, encoded, EncodeApplicationKey(decoded), "size %d", size)
	}
}

func TestDecodeApplicationKeyURLSafeAlphabet(t *testing.T) {
	// Bytes chosen so the url-safe encoding contains both '-' and '_'.
	raw := []byte{0xfb, 0xef, 0xff}
	encoded := base64.RawURLEncoding.EncodeToString(raw)
	require.Contains(t, encoded, "-")
	require.Contains(t, encoded, "_")

	decoded, err := DecodeApplicationKey(encoded)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestDecodeApplicationKeyUnpaddedInput(t *testing.T) {
	decoded, err := DecodeApplicationKey("AQAB")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00, 0x01}, decoded)

	decoded, err = DecodeApplicationKey("AQ")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, decoded)
}

func TestDecodeApplicationKeyRejectsGarbage(t *testing.T) {
	_, err := DecodeApplicationKey("!!definitely not a key!!")
	assert.Error(t, err)
}
