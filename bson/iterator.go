package bson

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

const (
	// EmptyDocumentLength is the length of a document with no elements.
	EmptyDocumentLength = 5

	// DefaultMaxDepth is the default limit on nested documents and arrays.
	DefaultMaxDepth = 100
)

// Iterator is a forward-only cursor over the elements of one BSON document.
// It borrows the buffer it was created from and never copies or modifies it.
//
// Validation is lazy: each element is bounds-checked when Next reaches it,
// before any accessor can see it. Nested documents and arrays are visited
// through Recurse, which returns an independent Iterator scoped to the nested
// byte range.
//
//	it, err := bson.NewIterator(buf)
//	if err != nil { ... }
//	for it.Next() {
//		fmt.Println(it.Key(), it.Type())
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	buf      []byte // exactly one document, length prefix through terminator
	base     int    // absolute offset of buf[0] within the outermost buffer
	pos      int    // offset of the next element
	end      int    // offset of the terminating NUL
	depth    int
	maxDepth int

	// Current element
	typ     Type
	key     string
	elemOff int
	valOff  int
	value   []byte

	err  error
	done bool
}

// IteratorOption configures an Iterator.
type IteratorOption func(*Iterator)

// WithMaxDepth sets the maximum nesting depth Recurse allows (default: 100).
func WithMaxDepth(n int) IteratorOption {
	return func(it *Iterator) {
		if n > 0 {
			it.maxDepth = n
		}
	}
}

// NewIterator creates an Iterator over buf, which must hold exactly one
// document. It fails with a MalformedDocumentError if the length prefix
// disagrees with len(buf) or the terminating NUL is missing.
func NewIterator(buf []byte, opts ...IteratorOption) (*Iterator, error) {
	it := &Iterator{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(it)
	}
	if err := checkFrame(buf, 0); err != nil {
		return nil, err
	}
	it.buf = buf
	it.pos = 4
	it.end = len(buf) - 1
	return it, nil
}

// checkFrame verifies the length prefix and terminator of a document that
// starts at absolute offset base.
func checkFrame(buf []byte, base int) error {
	if len(buf) < EmptyDocumentLength {
		return malformed(base, "", "document too short: %d bytes", len(buf))
	}
	declared := int32(binary.LittleEndian.Uint32(buf))
	if declared < EmptyDocumentLength || int(declared) != len(buf) {
		return malformed(base, "", "length prefix %d does not match document size %d", declared, len(buf))
	}
	if buf[len(buf)-1] != 0x00 {
		return malformed(base+len(buf)-1, "", "missing document terminator")
	}
	return nil
}

// Next advances to the next element. It returns false at the end of the
// document or when the element fails validation; check Err to tell them
// apart.
func (it *Iterator) Next() bool {
	if it.err != nil || it.done {
		return false
	}
	it.typ, it.key, it.value = 0, "", nil

	if it.pos >= it.end {
		it.done = true
		return false
	}

	start := it.pos
	t := Type(it.buf[start])
	if t == 0x00 {
		return it.fail(malformed(it.base+start, "", "unexpected document terminator before end of document"))
	}

	keyLen := bytes.IndexByte(it.buf[start+1:it.end], 0x00)
	if keyLen < 0 {
		return it.fail(malformed(it.base+start+1, "", "unterminated key"))
	}
	keyBytes := it.buf[start+1 : start+1+keyLen]
	if !utf8.Valid(keyBytes) {
		return it.fail(malformed(it.base+start+1, "", "key is not valid UTF-8"))
	}
	key := string(keyBytes)

	if !t.IsValid() {
		return it.fail(&UnsupportedTypeError{Type: t, Key: key, Offset: it.base + start})
	}

	valOff := start + 1 + keyLen + 1
	n, reason := measure(t, it.buf[valOff:it.end])
	if reason != "" {
		return it.fail(malformed(it.base+valOff, key, "%s", reason))
	}

	it.typ = t
	it.key = key
	it.elemOff = start
	it.valOff = valOff
	it.value = it.buf[valOff : valOff+n]
	it.pos = valOff + n
	return true
}

func (it *Iterator) fail(err error) bool {
	it.err = err
	return false
}

// Err returns the validation error that stopped iteration, or nil.
func (it *Iterator) Err() error {
	return it.err
}

// Clone returns an independent cursor at the same position. The buffer is
// shared, not copied.
func (it *Iterator) Clone() *Iterator {
	c := *it
	return &c
}

// Key returns the current element's key.
func (it *Iterator) Key() string {
	return it.key
}

// Type returns the current element's type tag.
func (it *Iterator) Type() Type {
	return it.typ
}

// Offset returns the absolute byte offset of the current element's type tag.
func (it *Iterator) Offset() int {
	return it.base + it.elemOff
}

// Value returns the current element's raw value bytes. The slice aliases the
// underlying buffer and must not be modified.
func (it *Iterator) Value() []byte {
	return it.value
}

// Depth returns the nesting depth of this cursor; the outermost document is 0.
func (it *Iterator) Depth() int {
	return it.depth
}

// ============================================================
// Measuring
// ============================================================

// measure returns the byte length of a value of type t at the start of src,
// which ends at the enclosing document's terminator. A non-empty reason means
// the value is malformed.
func measure(t Type, src []byte) (int, string) {
	switch t {
	case TypeDouble, TypeDateTime, TypeTimestamp, TypeInt64:
		return fixed(t, src, 8)
	case TypeInt32:
		return fixed(t, src, 4)
	case TypeObjectID:
		return fixed(t, src, 12)
	case TypeDecimal128:
		return fixed(t, src, 16)
	case TypeBoolean:
		n, reason := fixed(t, src, 1)
		if reason == "" && src[0] > 1 {
			return 0, fmt.Sprintf("invalid boolean value 0x%02x", src[0])
		}
		return n, reason
	case TypeNull, TypeUndefined, TypeMinKey, TypeMaxKey:
		return 0, ""
	case TypeString, TypeJavaScript, TypeSymbol:
		return measureString(src)
	case TypeDocument, TypeArray:
		return measureDocument(src)
	case TypeBinary:
		return measureBinary(src)
	case TypeRegex:
		pattern := bytes.IndexByte(src, 0x00)
		if pattern < 0 {
			return 0, "unterminated regex pattern"
		}
		options := bytes.IndexByte(src[pattern+1:], 0x00)
		if options < 0 {
			return 0, "unterminated regex options"
		}
		return pattern + 1 + options + 1, ""
	case TypeDBPointer:
		n, reason := measureString(src)
		if reason != "" {
			return 0, reason
		}
		if len(src) < n+12 {
			return 0, "dbPointer id overruns document"
		}
		return n + 12, ""
	case TypeCodeWithScope:
		return measureCodeWithScope(src)
	default:
		return 0, fmt.Sprintf("unknown type 0x%02x", byte(t))
	}
}

func fixed(t Type, src []byte, n int) (int, string) {
	if len(src) < n {
		return 0, fmt.Sprintf("%s value needs %d bytes, %d remain", t, n, len(src))
	}
	return n, ""
}

func measureString(src []byte) (int, string) {
	if len(src) < 4 {
		return 0, "string length prefix truncated"
	}
	l := int32(binary.LittleEndian.Uint32(src))
	if l < 1 {
		return 0, fmt.Sprintf("invalid string length %d", l)
	}
	if 4+int(l) > len(src) {
		return 0, fmt.Sprintf("string of length %d overruns document", l)
	}
	if src[4+int(l)-1] != 0x00 {
		return 0, "string missing NUL terminator"
	}
	return 4 + int(l), ""
}

func measureDocument(src []byte) (int, string) {
	if len(src) < 4 {
		return 0, "embedded document length prefix truncated"
	}
	l := int32(binary.LittleEndian.Uint32(src))
	if l < EmptyDocumentLength {
		return 0, fmt.Sprintf("invalid embedded document length %d", l)
	}
	if int(l) > len(src) {
		return 0, fmt.Sprintf("embedded document of length %d overruns parent", l)
	}
	if src[int(l)-1] != 0x00 {
		return 0, "embedded document missing terminator"
	}
	return int(l), ""
}

func measureBinary(src []byte) (int, string) {
	if len(src) < 5 {
		return 0, "binary header truncated"
	}
	l := int32(binary.LittleEndian.Uint32(src))
	if l < 0 {
		return 0, fmt.Sprintf("invalid binary length %d", l)
	}
	if 5+int(l) > len(src) {
		return 0, fmt.Sprintf("binary of length %d overruns document", l)
	}
	if src[4] == BinaryOld {
		if l < 4 || int32(binary.LittleEndian.Uint32(src[5:])) != l-4 {
			return 0, "invalid old binary length"
		}
	}
	return 5 + int(l), ""
}

func measureCodeWithScope(src []byte) (int, string) {
	if len(src) < 4 {
		return 0, "code with scope length prefix truncated"
	}
	total := int32(binary.LittleEndian.Uint32(src))
	// int32 total, string (4 + at least 1), document (at least 5)
	if total < 14 {
		return 0, fmt.Sprintf("invalid code with scope length %d", total)
	}
	if int(total) > len(src) {
		return 0, fmt.Sprintf("code with scope of length %d overruns document", total)
	}
	body := src[4:total]
	sn, reason := measureString(body)
	if reason != "" {
		return 0, reason
	}
	dn, reason := measureDocument(body[sn:])
	if reason != "" {
		return 0, reason
	}
	if 4+sn+dn != int(total) {
		return 0, "code with scope length mismatch"
	}
	return int(total), ""
}

// ============================================================
// Typed Accessors
// ============================================================

// BinaryOld is the deprecated binary subtype that nests its own length.
const BinaryOld byte = 0x02

func (it *Iterator) expect(t Type) error {
	if it.typ != t {
		if it.typ == 0 {
			return fmt.Errorf("bson: expected %s, no current element", t)
		}
		return fmt.Errorf("bson: expected %s, got %s", t, it.typ)
	}
	return nil
}

// AsDouble returns the current double value.
func (it *Iterator) AsDouble() (float64, error) {
	if err := it.expect(TypeDouble); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(it.value)), nil
}

// AsString returns the current string value.
func (it *Iterator) AsString() (string, error) {
	if err := it.expect(TypeString); err != nil {
		return "", err
	}
	return it.stringAt(it.value, it.valOff)
}

// AsJavaScript returns the current JavaScript code.
func (it *Iterator) AsJavaScript() (string, error) {
	if err := it.expect(TypeJavaScript); err != nil {
		return "", err
	}
	return it.stringAt(it.value, it.valOff)
}

// AsSymbol returns the current symbol.
func (it *Iterator) AsSymbol() (string, error) {
	if err := it.expect(TypeSymbol); err != nil {
		return "", err
	}
	return it.stringAt(it.value, it.valOff)
}

// stringAt reads a measured length-prefixed string starting at relative offset off.
func (it *Iterator) stringAt(b []byte, off int) (string, error) {
	l := int(binary.LittleEndian.Uint32(b))
	s := b[4 : 4+l-1]
	if !utf8.Valid(s) {
		return "", malformed(it.base+off, it.key, "string is not valid UTF-8")
	}
	return string(s), nil
}

// AsInt32 returns the current 32-bit integer.
func (it *Iterator) AsInt32() (int32, error) {
	if err := it.expect(TypeInt32); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(it.value)), nil
}

// AsInt64 returns the current 64-bit integer.
func (it *Iterator) AsInt64() (int64, error) {
	if err := it.expect(TypeInt64); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(it.value)), nil
}

// AsBool returns the current boolean.
func (it *Iterator) AsBool() (bool, error) {
	if err := it.expect(TypeBoolean); err != nil {
		return false, err
	}
	return it.value[0] == 1, nil
}

// AsNull succeeds if the current element is null.
func (it *Iterator) AsNull() error {
	return it.expect(TypeNull)
}

// AsObjectID returns the current 12-byte ObjectId.
func (it *Iterator) AsObjectID() ([12]byte, error) {
	var oid [12]byte
	if err := it.expect(TypeObjectID); err != nil {
		return oid, err
	}
	copy(oid[:], it.value)
	return oid, nil
}

// AsDateTime returns the current UTC datetime as milliseconds since the epoch.
func (it *Iterator) AsDateTime() (int64, error) {
	if err := it.expect(TypeDateTime); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(it.value)), nil
}

// AsTimestamp returns the current timestamp's seconds and increment.
func (it *Iterator) AsTimestamp() (t, i uint32, err error) {
	if err := it.expect(TypeTimestamp); err != nil {
		return 0, 0, err
	}
	return binary.LittleEndian.Uint32(it.value[4:]), binary.LittleEndian.Uint32(it.value), nil
}

// AsBinary returns the current binary subtype and payload. For the old
// binary subtype the nested length is stripped.
func (it *Iterator) AsBinary() (subtype byte, data []byte, err error) {
	if err := it.expect(TypeBinary); err != nil {
		return 0, nil, err
	}
	subtype = it.value[4]
	data = it.value[5:]
	if subtype == BinaryOld {
		data = data[4:]
	}
	return subtype, data, nil
}

// AsRegex returns the current regular expression pattern and options.
func (it *Iterator) AsRegex() (pattern, options string, err error) {
	if err := it.expect(TypeRegex); err != nil {
		return "", "", err
	}
	p := bytes.IndexByte(it.value, 0x00)
	pb, ob := it.value[:p], it.value[p+1:len(it.value)-1]
	if !utf8.Valid(pb) || !utf8.Valid(ob) {
		return "", "", malformed(it.base+it.valOff, it.key, "regex is not valid UTF-8")
	}
	return string(pb), string(ob), nil
}

// AsDBPointer returns the current DBPointer namespace and id.
func (it *Iterator) AsDBPointer() (ns string, oid [12]byte, err error) {
	if err := it.expect(TypeDBPointer); err != nil {
		return "", oid, err
	}
	n, _ := measureString(it.value)
	ns, err = it.stringAt(it.value, it.valOff)
	if err != nil {
		return "", oid, err
	}
	copy(oid[:], it.value[n:])
	return ns, oid, nil
}

// AsCodeWithScope returns the current code and an Iterator over its scope.
func (it *Iterator) AsCodeWithScope() (code string, scope *Iterator, err error) {
	if err := it.expect(TypeCodeWithScope); err != nil {
		return "", nil, err
	}
	body := it.value[4:]
	code, err = it.stringAt(body, it.valOff+4)
	if err != nil {
		return "", nil, err
	}
	sn, _ := measureString(body)
	scope, err = it.child(body[sn:], it.valOff+4+sn)
	if err != nil {
		return "", nil, err
	}
	return code, scope, nil
}

// AsDecimal128 returns the current decimal128 as its high and low 64 bits.
func (it *Iterator) AsDecimal128() (hi, lo uint64, err error) {
	if err := it.expect(TypeDecimal128); err != nil {
		return 0, 0, err
	}
	return binary.LittleEndian.Uint64(it.value[8:]), binary.LittleEndian.Uint64(it.value), nil
}

// Recurse returns a new Iterator over the current embedded document or
// array. The child shares the buffer but not the position: advancing it
// never moves this cursor. It fails with a MalformedDocumentError when the
// child would exceed the maximum nesting depth.
func (it *Iterator) Recurse() (*Iterator, error) {
	if it.typ != TypeDocument && it.typ != TypeArray {
		return nil, fmt.Errorf("bson: cannot recurse into %s", it.typ)
	}
	return it.child(it.value, it.valOff)
}

func (it *Iterator) child(doc []byte, off int) (*Iterator, error) {
	if it.depth+1 > it.maxDepth {
		return nil, malformed(it.base+off, it.key, "maximum nesting depth %d exceeded", it.maxDepth)
	}
	if err := checkFrame(doc, it.base+off); err != nil {
		return nil, err
	}
	return &Iterator{
		buf:      doc,
		base:     it.base + off,
		pos:      4,
		end:      len(doc) - 1,
		depth:    it.depth + 1,
		maxDepth: it.maxDepth,
	}, nil
}
