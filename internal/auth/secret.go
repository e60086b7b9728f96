package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

const (
	// SecretPrefix is the prefix for generated admin secrets
	SecretPrefix = "gl_admin_"
	// SecretLength is the number of random bytes in a generated secret
	SecretLength = 32
)

// GenerateSecret generates a new admin secret suitable for ADMIN_SECRET_KEY.
func GenerateSecret() (string, error) {
	bytes := make([]byte, SecretLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return SecretPrefix + hex.EncodeToString(bytes), nil
}

// SecretsMatch compares two secrets in constant time. Both sides are hashed
// first so the comparison does not leak the configured secret's length.
func SecretsMatch(given, want string) bool {
	a := sha256.Sum256([]byte(given))
	b := sha256.Sum256([]byte(want))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// Fingerprint returns a short, non-reversible identifier for a secret, safe
// to print in logs and CLI output.
func Fingerprint(secret string) string {
	hash := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(hash[:4])
}
