package bson

import "bytes"

// Document is an opaque handle holding the bytes of exactly one BSON
// document. Its framing (length prefix and terminator) is checked when it is
// created; element contents are validated lazily by Iterator, or eagerly by
// Validate.
type Document struct {
	raw []byte
}

var emptyDocument = []byte{EmptyDocumentLength, 0x00, 0x00, 0x00, 0x00}

// NewDocument returns a document with no elements.
func NewDocument() *Document {
	raw := make([]byte, len(emptyDocument))
	copy(raw, emptyDocument)
	return &Document{raw: raw}
}

// ParseRaw wraps buf as a Document. The declared length must equal len(buf)
// and the last byte must be the terminator. buf is kept, not copied, so the
// caller must not modify it afterwards.
func ParseRaw(buf []byte) (*Document, error) {
	if err := checkFrame(buf, 0); err != nil {
		return nil, err
	}
	return &Document{raw: buf}, nil
}

// FromTree encodes a document tree into a Document.
func FromTree(v *Value) (*Document, error) {
	raw, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return &Document{raw: raw}, nil
}

// FromTreeWithOptions is FromTree with explicit encode options.
func FromTreeWithOptions(v *Value, opts EncodeOptions) (*Document, error) {
	raw, err := NewEncoder(opts).Encode(v)
	if err != nil {
		return nil, err
	}
	return &Document{raw: raw}, nil
}

// ToRaw returns a copy of the document bytes.
func ToRaw(d *Document) []byte {
	return d.Raw()
}

// ToTree decodes the document into a tree with the default options.
func ToTree(d *Document) (*Value, error) {
	return d.Tree()
}

// ToJSON renders the document as compact extended JSON.
func ToJSON(d *Document) (string, error) {
	return d.JSON()
}

// Raw returns a copy of the document bytes. Its length equals the declared
// length prefix.
func (d *Document) Raw() []byte {
	out := make([]byte, len(d.raw))
	copy(out, d.raw)
	return out
}

// Size returns the document's byte length.
func (d *Document) Size() int {
	return len(d.raw)
}

// Len counts the top-level elements. It returns -1 if the document is
// malformed.
func (d *Document) Len() int {
	it, err := d.Iterator()
	if err != nil {
		return -1
	}
	n, err := count(it)
	if err != nil {
		return -1
	}
	return n
}

// Iterator returns a new cursor over the document's elements.
func (d *Document) Iterator(opts ...IteratorOption) (*Iterator, error) {
	return NewIterator(d.raw, opts...)
}

// Tree decodes the document with the default options.
func (d *Document) Tree() (*Value, error) {
	return d.TreeWithOptions(DefaultDecodeOptions())
}

// TreeWithOptions decodes the document with opts.
func (d *Document) TreeWithOptions(opts DecodeOptions) (*Value, error) {
	return NewDecoder(opts).Decode(d.raw)
}

// Validate walks every element, including nested documents, arrays and
// code-with-scope scopes, and returns the first violation.
func (d *Document) Validate(opts ...IteratorOption) error {
	return Validate(d.raw, opts...)
}

// Equal reports whether two documents have identical bytes.
func (d *Document) Equal(o *Document) bool {
	if d == nil || o == nil {
		return d == o
	}
	return bytes.Equal(d.raw, o.raw)
}

// String returns the document as extended JSON, or a placeholder if it
// cannot be rendered.
func (d *Document) String() string {
	s, err := d.JSON()
	if err != nil {
		return "<invalid bson document: " + err.Error() + ">"
	}
	return s
}

