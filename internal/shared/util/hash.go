package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashOwnerKey returns a storage-safe identifier for an owner ID.
func HashOwnerKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
