package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateOpaqueToken returns a hex-encoded random token with byteLen bytes
// of entropy. Used for pairing tokens and long-lived agent credentials.
func GenerateOpaqueToken(byteLen int) (string, error) {
	if byteLen < 16 {
		byteLen = 16
	}

	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
