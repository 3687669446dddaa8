// Package stream reads and writes concatenated BSON documents, the layout
// produced by mongodump and consumed by mongorestore.
//
// A stream is a plain sequence of length-prefixed documents with no
// framing of its own:
//
//	<int32 len><elements...><0x00><int32 len>...
//
// Streams may be wrapped in gzip or zstd. Readers detect the wrapper from
// its magic bytes unless one is forced with WithCompression.
package stream

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// Compression identifies the wrapper around a document stream.
type Compression int

const (
	None Compression = 0 // None is an uncompressed stream.
	Gzip Compression = 1 // Gzip is a gzip-wrapped stream.
	Zstd Compression = 2 // Zstd is a zstd-wrapped stream.
)

// String returns the compression name.
func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Extension returns the file extension conventionally used for c.
func (c Compression) Extension() string {
	switch c {
	case Gzip:
		return ".bson.gz"
	case Zstd:
		return ".bson.zst"
	default:
		return ".bson"
	}
}

// ParseCompression parses a compression name.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "gzip", "gz":
		return Gzip, nil
	case "zstd", "zst":
		return Zstd, nil
	default:
		return None, fmt.Errorf("stream: unknown compression %q", s)
	}
}

// DetectCompression guesses the compression of a file from its name.
func DetectCompression(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return Gzip
	case ".zst", ".zstd":
		return Zstd
	default:
		return None
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b, 0x08}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// detect reports the compression implied by the leading bytes of a stream.
func detect(head []byte) Compression {
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return Gzip
	case bytes.HasPrefix(head, zstdMagic):
		return Zstd
	default:
		return None
	}
}

// MaxDocumentSize is the default per-document limit (16 MiB), matching the
// server's maximum BSON object size.
const MaxDocumentSize = 16 * 1024 * 1024

// ParseError reports a framing problem in a document stream. Offset is the
// position in the uncompressed stream, or -1 when unknown.
type ParseError struct {
	Reason string
	Offset int64
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("stream: %s at offset %d", e.Reason, e.Offset)
	}
	return fmt.Sprintf("stream: %s", e.Reason)
}
