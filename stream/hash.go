package stream

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/LRAbbade/mongolite/bson"
)

// Digest computes the SHA-256 of a document's encoded bytes. Two documents
// have equal digests exactly when their bytes are equal, so key order
// matters.
func Digest(doc *bson.Document) [32]byte {
	return DigestBytes(doc.Raw())
}

// DigestBytes computes SHA-256 of raw bytes.
func DigestBytes(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// HashToHex converts a 32-byte hash to lowercase hex string.
func HashToHex(h [32]byte) string {
	return hex.EncodeToString(h[:])
}

// HexToHash parses a 64-character hex string to a 32-byte hash.
func HexToHash(s string) ([32]byte, bool) {
	var h [32]byte
	if len(s) != 64 {
		return h, false
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, false
	}
	return h, true
}
