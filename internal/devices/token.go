package devices

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
)

const tokenBytes = 32

// newToken returns 32 random bytes rendered as 64 lowercase hex characters.
func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func tokensEqual(stored, supplied string) bool {
	if stored == "" || supplied == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
