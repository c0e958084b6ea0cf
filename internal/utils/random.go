package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// RandomString returns n cryptographically random bytes, base64url encoded
// without padding.
func RandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("utils: read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
