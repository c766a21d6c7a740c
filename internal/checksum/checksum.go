// Package checksum computes the content digests used as document ETags.
// The hex SHA-256 of a document's raw bytes identifies its revision for
// optimistic concurrency (If-Match over HTTP, the checksum argument over
// MCP) and for change detection during index sync.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Matches reports whether sum is the digest of data.
func Matches(data []byte, sum string) bool {
	return Sum(data) == sum
}
