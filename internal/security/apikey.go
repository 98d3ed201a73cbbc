package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const apiKeyPrefix = "fgk_"

// NewAPIKey returns a fresh plaintext API key. The plaintext leaves this
// process exactly once, in the creation response; only HashAPIKey output and
// the LastSix fragment are ever persisted.
func NewAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return apiKeyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashAPIKey is the one-way digest used both at issuance and at admission.
func HashAPIKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// LastSix is the display fragment shown in key listings.
func LastSix(plaintext string) string {
	if len(plaintext) < 6 {
		return plaintext
	}
	return plaintext[len(plaintext)-6:]
}
