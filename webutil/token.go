package webutil

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateRandomToken returns a hex-encoded token of byteLength random
// bytes, suitable for session identifiers.
func GenerateRandomToken(byteLength int) (string, error) {
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
