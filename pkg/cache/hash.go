package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// hashKey returns kind, a colon and the SHA-256 of the JSON encoding of parts.
func hashKey(kind string, parts ...any) string {
	h := sha256.New()
	_ = json.NewEncoder(h).Encode(parts)
	return kind + ":" + hex.EncodeToString(h.Sum(nil))
}

// Hash returns the hex SHA-256 digest of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
