package bson

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

var errWriterClosed = errors.New("bson: writer is finished")

// Writer builds one BSON document incrementally. Each container reserves
// its length prefix when it is started and backfills it when it is ended.
//
// Errors are sticky: after the first failure every call is a no-op and
// Finish returns that error.
//
//	w := bson.NewWriter()
//	w.AppendString("name", "ada")
//	w.StartArray("tags")
//	w.AppendInt32("0", 1)
//	w.End()
//	raw, err := w.Finish()
type Writer struct {
	buf   []byte
	stack []int    // start offsets of open documents
	keys  []string // keys of open documents, for error paths
	err   error
}

// NewWriter creates a Writer with the top-level document already open.
func NewWriter() *Writer {
	w := &Writer{buf: make([]byte, 0, 64)}
	w.open("")
	return w
}

// Reset discards all written data and reopens the top-level document.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.stack = w.stack[:0]
	w.keys = w.keys[:0]
	w.err = nil
	w.open("")
}

// Err returns the first error encountered, or nil.
func (w *Writer) Err() error {
	return w.err
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) open(key string) {
	w.stack = append(w.stack, len(w.buf))
	w.keys = append(w.keys, key)
	w.buf = append(w.buf, 0, 0, 0, 0)
}

func (w *Writer) path(key string) string {
	p := ""
	for i, k := range w.keys {
		if i > 0 {
			p = joinPath(p, k)
		}
	}
	return joinPath(p, key)
}

// header writes the type tag and key of a new element.
func (w *Writer) header(t Type, key string) bool {
	if w.err != nil {
		return false
	}
	if len(w.stack) == 0 {
		w.err = errWriterClosed
		return false
	}
	if strings.IndexByte(key, 0x00) >= 0 {
		w.err = unrepresentable(w.path(key), "key contains NUL byte")
		return false
	}
	if !utf8.ValidString(key) {
		w.err = unrepresentable(w.path(key), "key is not valid UTF-8")
		return false
	}
	w.buf = append(w.buf, byte(t))
	w.buf = append(w.buf, key...)
	w.buf = append(w.buf, 0x00)
	return true
}

// ============================================================
// Containers
// ============================================================

// StartDocument opens an embedded document under key.
func (w *Writer) StartDocument(key string) {
	if w.header(TypeDocument, key) {
		w.open(key)
	}
}

// StartArray opens an array under key. Its elements must be appended with
// the keys "0", "1", ...
func (w *Writer) StartArray(key string) {
	if w.header(TypeArray, key) {
		w.open(key)
	}
}

// End closes the innermost open document or array.
func (w *Writer) End() {
	if w.err != nil {
		return
	}
	if len(w.stack) <= 1 {
		w.err = errors.New("bson: End without matching Start")
		return
	}
	w.closeTop()
}

func (w *Writer) closeTop() {
	start := w.stack[len(w.stack)-1]
	key := w.keys[len(w.keys)-1]
	w.stack = w.stack[:len(w.stack)-1]
	w.keys = w.keys[:len(w.keys)-1]

	w.buf = append(w.buf, 0x00)
	size := len(w.buf) - start
	if size > math.MaxInt32 {
		w.err = unrepresentable(w.path(key), "document of %d bytes exceeds the int32 length prefix", size)
		return
	}
	binary.LittleEndian.PutUint32(w.buf[start:], uint32(size))
}

// Finish closes the top-level document and returns its bytes. The Writer
// must be Reset before reuse.
func (w *Writer) Finish() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	if len(w.stack) == 0 {
		return nil, errWriterClosed
	}
	if len(w.stack) > 1 {
		return nil, fmt.Errorf("bson: %d unclosed containers", len(w.stack)-1)
	}
	w.closeTop()
	if w.err != nil {
		return nil, w.err
	}
	out := w.buf
	w.buf = nil
	return out, nil
}

// ============================================================
// Scalars
// ============================================================

func (w *Writer) appendInt32(v int32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
}

func (w *Writer) appendInt64(v int64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(v))
}

// appendString writes a length-prefixed, NUL-terminated string.
func (w *Writer) appendString(key, s string) bool {
	if !utf8.ValidString(s) {
		w.err = unrepresentable(w.path(key), "string is not valid UTF-8")
		return false
	}
	if len(s) >= math.MaxInt32 {
		w.err = unrepresentable(w.path(key), "string of %d bytes is too long", len(s))
		return false
	}
	w.appendInt32(int32(len(s) + 1))
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0x00)
	return true
}

func (w *Writer) appendCString(key, s, what string) bool {
	if strings.IndexByte(s, 0x00) >= 0 {
		w.err = unrepresentable(w.path(key), "%s contains NUL byte", what)
		return false
	}
	if !utf8.ValidString(s) {
		w.err = unrepresentable(w.path(key), "%s is not valid UTF-8", what)
		return false
	}
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0x00)
	return true
}

// AppendDouble appends a double.
func (w *Writer) AppendDouble(key string, v float64) {
	if w.header(TypeDouble, key) {
		w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
	}
}

// AppendString appends a UTF-8 string.
func (w *Writer) AppendString(key, v string) {
	if w.header(TypeString, key) {
		w.appendString(key, v)
	}
}

// AppendDocument appends an already-encoded document.
func (w *Writer) AppendDocument(key string, raw []byte) {
	w.appendRawDocument(TypeDocument, key, raw)
}

// AppendArray appends an already-encoded array document.
func (w *Writer) AppendArray(key string, raw []byte) {
	w.appendRawDocument(TypeArray, key, raw)
}

func (w *Writer) appendRawDocument(t Type, key string, raw []byte) {
	if w.err != nil {
		return
	}
	if err := checkFrame(raw, 0); err != nil {
		w.err = unrepresentable(w.path(key), "embedded %s: %v", t, err)
		return
	}
	if w.header(t, key) {
		w.buf = append(w.buf, raw...)
	}
}

// AppendBinary appends binary data with the given subtype. The old binary
// subtype gets its nested length written automatically.
func (w *Writer) AppendBinary(key string, subtype byte, data []byte) {
	if !w.header(TypeBinary, key) {
		return
	}
	n := len(data)
	if subtype == BinaryOld {
		n += 4
	}
	if n > math.MaxInt32 {
		w.err = unrepresentable(w.path(key), "binary of %d bytes is too long", len(data))
		return
	}
	w.appendInt32(int32(n))
	w.buf = append(w.buf, subtype)
	if subtype == BinaryOld {
		w.appendInt32(int32(len(data)))
	}
	w.buf = append(w.buf, data...)
}

// AppendUndefined appends the deprecated undefined value.
func (w *Writer) AppendUndefined(key string) {
	w.header(TypeUndefined, key)
}

// AppendObjectID appends an ObjectId.
func (w *Writer) AppendObjectID(key string, oid [12]byte) {
	if w.header(TypeObjectID, key) {
		w.buf = append(w.buf, oid[:]...)
	}
}

// AppendBool appends a boolean.
func (w *Writer) AppendBool(key string, v bool) {
	if w.header(TypeBoolean, key) {
		if v {
			w.buf = append(w.buf, 0x01)
		} else {
			w.buf = append(w.buf, 0x00)
		}
	}
}

// AppendDateTime appends a UTC datetime in milliseconds since the epoch.
func (w *Writer) AppendDateTime(key string, ms int64) {
	if w.header(TypeDateTime, key) {
		w.appendInt64(ms)
	}
}

// AppendNull appends null.
func (w *Writer) AppendNull(key string) {
	w.header(TypeNull, key)
}

// AppendRegex appends a regular expression. Neither part may contain NUL.
func (w *Writer) AppendRegex(key, pattern, options string) {
	if w.header(TypeRegex, key) {
		if w.appendCString(key, pattern, "regex pattern") {
			w.appendCString(key, options, "regex options")
		}
	}
}

// AppendDBPointer appends the deprecated DBPointer.
func (w *Writer) AppendDBPointer(key, ns string, oid [12]byte) {
	if w.header(TypeDBPointer, key) && w.appendString(key, ns) {
		w.buf = append(w.buf, oid[:]...)
	}
}

// AppendJavaScript appends JavaScript code.
func (w *Writer) AppendJavaScript(key, code string) {
	if w.header(TypeJavaScript, key) {
		w.appendString(key, code)
	}
}

// AppendSymbol appends the deprecated symbol.
func (w *Writer) AppendSymbol(key, v string) {
	if w.header(TypeSymbol, key) {
		w.appendString(key, v)
	}
}

// AppendCodeWithScope appends JavaScript code with an encoded scope document.
func (w *Writer) AppendCodeWithScope(key, code string, scope []byte) {
	if w.err != nil {
		return
	}
	if err := checkFrame(scope, 0); err != nil {
		w.err = unrepresentable(w.path(key), "scope: %v", err)
		return
	}
	if !w.header(TypeCodeWithScope, key) {
		return
	}
	start := len(w.buf)
	w.appendInt32(0)
	if !w.appendString(key, code) {
		return
	}
	w.buf = append(w.buf, scope...)
	size := len(w.buf) - start
	if size > math.MaxInt32 {
		w.err = unrepresentable(w.path(key), "code with scope of %d bytes is too long", size)
		return
	}
	binary.LittleEndian.PutUint32(w.buf[start:], uint32(size))
}

// AppendInt32 appends a 32-bit integer.
func (w *Writer) AppendInt32(key string, v int32) {
	if w.header(TypeInt32, key) {
		w.appendInt32(v)
	}
}

// AppendTimestamp appends a replication timestamp.
func (w *Writer) AppendTimestamp(key string, t, i uint32) {
	if w.header(TypeTimestamp, key) {
		w.buf = binary.LittleEndian.AppendUint32(w.buf, i)
		w.buf = binary.LittleEndian.AppendUint32(w.buf, t)
	}
}

// AppendInt64 appends a 64-bit integer.
func (w *Writer) AppendInt64(key string, v int64) {
	if w.header(TypeInt64, key) {
		w.appendInt64(v)
	}
}

// AppendDecimal128 appends a decimal128 from its high and low 64 bits.
func (w *Writer) AppendDecimal128(key string, hi, lo uint64) {
	if w.header(TypeDecimal128, key) {
		w.buf = binary.LittleEndian.AppendUint64(w.buf, lo)
		w.buf = binary.LittleEndian.AppendUint64(w.buf, hi)
	}
}

// AppendMinKey appends the MinKey sentinel.
func (w *Writer) AppendMinKey(key string) {
	w.header(TypeMinKey, key)
}

// AppendMaxKey appends the MaxKey sentinel.
func (w *Writer) AppendMaxKey(key string) {
	w.header(TypeMaxKey, key)
}
