package tokens

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// rawTokenBytes is 192 bits of entropy
const rawTokenBytes = 24

// Generate creates a random URL-safe voting token.
// Only its lookup key is ever persisted.
func Generate() (string, error) {
	b := make([]byte, rawTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate voting token: %w", err)
	}
	return strings.TrimRight(base64.URLEncoding.EncodeToString(b), "="), nil
}

// LookupKey derives the stored lookup key for a raw token
func LookupKey(rawToken, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(strings.TrimSpace(rawToken)))
	return hex.EncodeToString(h.Sum(nil))
}
