package storage

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// sqliteTimeLayout is fixed width so stored timestamps compare lexically
const sqliteTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// generateID generates a new UUID
func generateID() string {
	return uuid.New().String()
}

// normalizeAddress lowercases a wallet address for storage and lookup
func normalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// normalizeTxHash lowercases a transaction hash so hex case variants of the
// same transaction collide
func normalizeTxHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}

func sqliteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}
