package codec

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("9DB17053BCB342F6")

func TestEncryptECBPadsShortPlaintextToOneBlock(t *testing.T) {
	out, err := EncryptECB("consulta", testKey)
	require.NoError(t, err)

	raw, err := hex.DecodeString(out)
	require.NoError(t, err)
	assert.Equal(t, 16, len(raw))
}

func TestEncryptECBPadsTwentyBytesToTwoBlocks(t *testing.T) {
	plaintext := strings.Repeat("a", 20)
	out, err := EncryptECB(plaintext, testKey)
	require.NoError(t, err)

	raw, err := hex.DecodeString(out)
	require.NoError(t, err)
	assert.Equal(t, 32, len(raw))
}

func TestEncryptECBOutputAlwaysBlockMultiple(t *testing.T) {
	for length := 0; length <= 64; length++ {
		plaintext := strings.Repeat("x", length)
		out, err := EncryptECB(plaintext, testKey)
		require.NoError(t, err)

		raw, err := hex.DecodeString(out)
		require.NoError(t, err)
		assert.Equal(t, 0, len(raw)%16, "plaintext length %d", length)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	for _, plaintext := range []string{
		"sesion123;consultarDominio",
		"exactly 16 bytes",
		"a",
		strings.Repeat("block", 10),
	} {
		encrypted, err := EncryptECB(plaintext, testKey)
		require.NoError(t, err)

		decrypted, err := DecryptECB(encrypted, testKey)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestEncryptECBRejectsBadKey(t *testing.T) {
	_, err := EncryptECB("anything", []byte("short"))
	assert.Error(t, err)
}

func TestDecryptECBRejectsInvalidInput(t *testing.T) {
	_, err := DecryptECB("not-hex", testKey)
	assert.Error(t, err)

	// Valid hex but not block-aligned
	_, err = DecryptECB("abcd", testKey)
	assert.Error(t, err)
}

func TestEncryptECBDeterministic(t *testing.T) {
	// ECB with no IV: the same control string always yields the same
	// parameter, which is what the portal expects
	first, err := EncryptECB("activarModoConsulta", testKey)
	require.NoError(t, err)
	second, err := EncryptECB("activarModoConsulta", testKey)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
