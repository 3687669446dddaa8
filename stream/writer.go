package stream

import (
	"bufio"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/LRAbbade/mongolite/bson"
	"github.com/LRAbbade/mongolite/log"
)

// Writer writes BSON documents to an io.Writer.
type Writer struct {
	bw     *bufio.Writer
	comp   io.WriteCloser // nil when uncompressed
	logger log.Logger

	compression Compression
	encodeOpts  bson.EncodeOptions

	offset int64
	count  int
	closed bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriterCompression wraps the output in gzip or zstd.
func WithWriterCompression(c Compression) WriterOption {
	return func(w *Writer) {
		w.compression = c
	}
}

// WithEncodeOptions sets the options used by WriteValue.
func WithEncodeOptions(opts bson.EncodeOptions) WriterOption {
	return func(w *Writer) {
		w.encodeOpts = opts
	}
}

// WithWriterLogger sets the logger used for per-document debug output.
func WithWriterLogger(l log.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = l
	}
}

// NewWriter creates a document stream writer. Close must be called to flush
// buffered and compressed output; it does not close dst.
func NewWriter(dst io.Writer, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		logger:     log.NewNopLogger(),
		encodeOpts: bson.EncodeOptions{MaxDepth: bson.DefaultMaxDepth},
	}
	for _, opt := range opts {
		opt(w)
	}

	switch w.compression {
	case None:
		w.bw = bufio.NewWriter(dst)
	case Gzip:
		w.comp = gzip.NewWriter(dst)
		w.bw = bufio.NewWriter(w.comp)
	case Zstd:
		enc, err := zstd.NewWriter(dst)
		if err != nil {
			return nil, errors.Wrap(err, "stream: open zstd")
		}
		w.comp = enc
		w.bw = bufio.NewWriter(enc)
	default:
		return nil, fmt.Errorf("stream: unsupported compression %s", w.compression)
	}

	w.logger = w.logger.With("compression", w.compression.String())
	return w, nil
}

// Count returns the number of documents written so far.
func (w *Writer) Count() int {
	return w.count
}

// WriteDocument appends one document to the stream.
func (w *Writer) WriteDocument(doc *bson.Document) error {
	if w.closed {
		return errors.New("stream: write to closed writer")
	}
	raw := doc.Raw()
	if _, err := w.bw.Write(raw); err != nil {
		return errors.Wrapf(err, "stream: write document %d", w.count)
	}
	w.logger.With("offset", w.offset).With("size", len(raw)).Debugf("wrote document %d", w.count)
	w.offset += int64(len(raw))
	w.count++
	return nil
}

// WriteValue encodes a document tree and appends it to the stream.
func (w *Writer) WriteValue(v *bson.Value) error {
	doc, err := bson.FromTreeWithOptions(v, w.encodeOpts)
	if err != nil {
		return errors.Wrapf(err, "stream: encode document %d", w.count)
	}
	return w.WriteDocument(doc)
}

// Close flushes buffered output and finishes the compressed stream.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.bw.Flush(); err != nil {
		return errors.Wrap(err, "stream: flush")
	}
	if w.comp != nil {
		if err := w.comp.Close(); err != nil {
			return errors.Wrap(err, "stream: close compressor")
		}
	}
	return nil
}
