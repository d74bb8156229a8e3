// Package codec implements the block encryption one portal family requires
// for its RPC event parameter: AES-128 in ECB mode with zero padding, no IV.
//
// This is a known weak construction (identical plaintext blocks produce
// identical ciphertext blocks, and zero padding is ambiguous). It is kept
// only for protocol compliance with the remote service: the plaintext is a
// fixed control string carrying no secret, so confidentiality is not a goal.
package codec

import (
	"crypto/aes"
	"encoding/hex"
	"fmt"
)

// EncryptECB encrypts plaintext with key (16 bytes), zero-padding to the
// next 16-byte boundary, and returns the ciphertext hex-encoded. The output
// length in bytes is always a multiple of the AES block size.
func EncryptECB(plaintext string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to initialize cipher: %w", err)
	}

	padded := zeroPad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += aes.BlockSize {
		block.Encrypt(out[i:i+aes.BlockSize], padded[i:i+aes.BlockSize])
	}

	return hex.EncodeToString(out), nil
}

// DecryptECB reverses EncryptECB. No padding validation is performed; any
// trailing zero bytes are stripped, matching the remote service's behavior.
func DecryptECB(ciphertext string, key []byte) (string, error) {
	raw, err := hex.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("ciphertext is not valid hex: %w", err)
	}
	if len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(raw))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to initialize cipher: %w", err)
	}

	out := make([]byte, len(raw))
	for i := 0; i < len(raw); i += aes.BlockSize {
		block.Decrypt(out[i:i+aes.BlockSize], raw[i:i+aes.BlockSize])
	}

	end := len(out)
	for end > 0 && out[end-1] == 0 {
		end--
	}
	return string(out[:end]), nil
}

func zeroPad(data []byte, blockSize int) []byte {
	rem := len(data) % blockSize
	if rem == 0 && len(data) > 0 {
		return data
	}
	padded := make([]byte, len(data)+blockSize-rem)
	copy(padded, data)
	return padded
}
