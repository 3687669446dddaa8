package stream

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/LRAbbade/mongolite/bson"
	"github.com/LRAbbade/mongolite/log"
)

// Reader reads BSON documents from an io.Reader.
type Reader struct {
	r        *bufio.Reader
	closer   io.Closer
	maxSize  int
	validate bool
	iterOpts []bson.IteratorOption
	logger   log.Logger

	compression Compression
	forced      bool

	offset int64
	count  int
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxDocumentSize sets the per-document limit (default: 16 MiB).
func WithMaxDocumentSize(max int) ReaderOption {
	return func(r *Reader) {
		if max > 0 {
			r.maxSize = max
		}
	}
}

// WithCompression disables magic-byte detection and reads the stream with
// the given compression.
func WithCompression(c Compression) ReaderOption {
	return func(r *Reader) {
		r.compression = c
		r.forced = true
	}
}

// WithValidation fully validates every document before returning it.
// Iterator options such as bson.WithMaxDepth apply to the validation walk.
func WithValidation(opts ...bson.IteratorOption) ReaderOption {
	return func(r *Reader) {
		r.validate = true
		r.iterOpts = opts
	}
}

// WithLogger sets the logger used for per-document debug output.
func WithLogger(l log.Logger) ReaderOption {
	return func(r *Reader) {
		r.logger = l
	}
}

// NewReader creates a document stream reader. When no compression is forced
// the first bytes of src are inspected for a gzip or zstd header.
func NewReader(src io.Reader, opts ...ReaderOption) (*Reader, error) {
	reader := &Reader{
		maxSize: MaxDocumentSize,
		logger:  log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(reader)
	}

	br := bufio.NewReader(src)
	if !reader.forced {
		head, err := br.Peek(len(zstdMagic))
		if err != nil && err != io.EOF {
			return nil, errors.Wrap(err, "stream: detect compression")
		}
		reader.compression = detect(head)
	}

	switch reader.compression {
	case None:
		reader.r = br
	case Gzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "stream: open gzip")
		}
		reader.r = bufio.NewReader(gz)
		reader.closer = gz
	case Zstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "stream: open zstd")
		}
		rc := zr.IOReadCloser()
		reader.r = bufio.NewReader(rc)
		reader.closer = rc
	default:
		return nil, fmt.Errorf("stream: unsupported compression %s", reader.compression)
	}

	reader.logger = reader.logger.With("compression", reader.compression.String())
	return reader, nil
}

// Compression reports the compression the stream is being read with.
func (r *Reader) Compression() Compression {
	return r.compression
}

// Offset returns the uncompressed offset of the next document.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Count returns the number of documents read so far.
func (r *Reader) Count() int {
	return r.count
}

// Next reads and returns the next document.
// Returns io.EOF when the stream ends cleanly between documents.
func (r *Reader) Next() (*bson.Document, error) {
	var prefix [4]byte
	n, err := io.ReadFull(r.r, prefix[:])
	if err == io.EOF {
		return nil, io.EOF
	}
	if err == io.ErrUnexpectedEOF {
		return nil, &ParseError{Reason: fmt.Sprintf("truncated length prefix: %d of 4 bytes", n), Offset: r.offset}
	}
	if err != nil {
		return nil, errors.Wrap(err, "stream: read length prefix")
	}

	size := int32(binary.LittleEndian.Uint32(prefix[:]))
	if size < bson.EmptyDocumentLength {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid document length %d", size), Offset: r.offset}
	}
	if int64(size) > int64(r.maxSize) {
		return nil, &ParseError{Reason: fmt.Sprintf("document of %d bytes exceeds limit %d", size, r.maxSize), Offset: r.offset}
	}

	buf := make([]byte, size)
	copy(buf, prefix[:])
	if _, err := io.ReadFull(r.r, buf[4:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, &ParseError{Reason: fmt.Sprintf("truncated document: want %d bytes", size), Offset: r.offset}
		}
		return nil, errors.Wrap(err, "stream: read document")
	}

	doc, err := bson.ParseRaw(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "stream: document %d at offset %d", r.count, r.offset)
	}
	if r.validate {
		if err := bson.Validate(buf, r.iterOpts...); err != nil {
			return nil, errors.Wrapf(err, "stream: document %d at offset %d", r.count, r.offset)
		}
	}

	r.logger.With("offset", r.offset).With("size", size).Debugf("read document %d", r.count)
	r.offset += int64(size)
	r.count++
	return doc, nil
}

// ReadAll reads all remaining documents.
func (r *Reader) ReadAll() ([]*bson.Document, error) {
	var docs []*bson.Document
	for {
		doc, err := r.Next()
		if err == io.EOF {
			return docs, nil
		}
		if err != nil {
			return docs, err
		}
		docs = append(docs, doc)
	}
}

// Close releases the decompressor, if any. It does not close the source.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}
