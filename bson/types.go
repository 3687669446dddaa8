package bson

import (
	"fmt"
	"math"
	"strconv"
)

// ============================================================
// Wire Type Tags
// ============================================================

// Type is the one-byte tag that precedes every element on the wire.
type Type byte

const (
	TypeDouble        Type = 0x01
	TypeString        Type = 0x02
	TypeDocument      Type = 0x03
	TypeArray         Type = 0x04
	TypeBinary        Type = 0x05
	TypeUndefined     Type = 0x06 // deprecated
	TypeObjectID      Type = 0x07
	TypeBoolean       Type = 0x08
	TypeDateTime      Type = 0x09 // UTC milliseconds since the epoch
	TypeNull          Type = 0x0A
	TypeRegex         Type = 0x0B
	TypeDBPointer     Type = 0x0C // deprecated
	TypeJavaScript    Type = 0x0D
	TypeSymbol        Type = 0x0E // deprecated
	TypeCodeWithScope Type = 0x0F
	TypeInt32         Type = 0x10
	TypeTimestamp     Type = 0x11
	TypeInt64         Type = 0x12
	TypeDecimal128    Type = 0x13
	TypeMinKey        Type = 0xFF
	TypeMaxKey        Type = 0x7F
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case TypeDouble:
		return "double"
	case TypeString:
		return "string"
	case TypeDocument:
		return "document"
	case TypeArray:
		return "array"
	case TypeBinary:
		return "binary"
	case TypeUndefined:
		return "undefined"
	case TypeObjectID:
		return "objectId"
	case TypeBoolean:
		return "bool"
	case TypeDateTime:
		return "date"
	case TypeNull:
		return "null"
	case TypeRegex:
		return "regex"
	case TypeDBPointer:
		return "dbPointer"
	case TypeJavaScript:
		return "javascript"
	case TypeSymbol:
		return "symbol"
	case TypeCodeWithScope:
		return "javascriptWithScope"
	case TypeInt32:
		return "int"
	case TypeTimestamp:
		return "timestamp"
	case TypeInt64:
		return "long"
	case TypeDecimal128:
		return "decimal"
	case TypeMinKey:
		return "minKey"
	case TypeMaxKey:
		return "maxKey"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(t))
	}
}

// IsValid reports whether t is a type defined by the BSON format.
func (t Type) IsValid() bool {
	switch {
	case t >= TypeDouble && t <= TypeDecimal128:
		return true
	case t == TypeMinKey || t == TypeMaxKey:
		return true
	default:
		return false
	}
}

// ============================================================
// Value Kinds
// ============================================================

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt32
	KindInt64
	KindDouble
	KindString
	KindDocument
	KindArray
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindDocument:
		return "document"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Value is a node of a decoded BSON tree. Values are immutable: they are
// built wholesale by the constructors below or by the Decoder.
//
// A nil *Value is treated as null everywhere.
type Value struct {
	kind Kind

	// Scalar values (only one valid based on kind)
	boolVal  bool
	intVal   int64
	floatVal float64
	strVal   string

	// Container values
	docVal []Entry
	arrVal []*Value
}

// Entry is one key/value pair of a document.
type Entry struct {
	Key   string
	Value *Value
}

// E creates an Entry for use with Doc.
func E(key string, value *Value) Entry {
	return Entry{Key: key, Value: value}
}

// ============================================================
// Constructors
// ============================================================

// Null creates a null value.
func Null() *Value {
	return &Value{kind: KindNull}
}

// Bool creates a boolean value.
func Bool(v bool) *Value {
	return &Value{kind: KindBool, boolVal: v}
}

// Int32 creates a 32-bit integer value.
func Int32(v int32) *Value {
	return &Value{kind: KindInt32, intVal: int64(v)}
}

// Int64 creates a 64-bit integer value.
func Int64(v int64) *Value {
	return &Value{kind: KindInt64, intVal: v}
}

// Double creates a double-precision float value.
func Double(v float64) *Value {
	return &Value{kind: KindDouble, floatVal: v}
}

// String creates a UTF-8 string value.
func String(v string) *Value {
	return &Value{kind: KindString, strVal: v}
}

// Doc creates a document from entries in order. The entries are copied, so
// later changes to the caller's slice do not affect the document. Keys must
// be unique; the Encoder rejects documents that repeat a key.
func Doc(entries ...Entry) *Value {
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return &Value{kind: KindDocument, docVal: cp}
}

// Array creates an array from values in order.
func Array(values ...*Value) *Value {
	cp := make([]*Value, len(values))
	copy(cp, values)
	return &Value{kind: KindArray, arrVal: cp}
}

// ============================================================
// Accessors
// ============================================================

// Kind returns the value kind.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// IsNull returns true if this is a null value.
func (v *Value) IsNull() bool {
	return v == nil || v.kind == KindNull
}

// AsBool returns the boolean value.
func (v *Value) AsBool() (bool, error) {
	if err := v.expect(KindBool); err != nil {
		return false, err
	}
	return v.boolVal, nil
}

// AsInt32 returns the 32-bit integer value.
func (v *Value) AsInt32() (int32, error) {
	if err := v.expect(KindInt32); err != nil {
		return 0, err
	}
	return int32(v.intVal), nil
}

// AsInt64 returns the 64-bit integer value.
func (v *Value) AsInt64() (int64, error) {
	if err := v.expect(KindInt64); err != nil {
		return 0, err
	}
	return v.intVal, nil
}

// AsDouble returns the float value.
func (v *Value) AsDouble() (float64, error) {
	if err := v.expect(KindDouble); err != nil {
		return 0, err
	}
	return v.floatVal, nil
}

// AsString returns the string value.
func (v *Value) AsString() (string, error) {
	if err := v.expect(KindString); err != nil {
		return "", err
	}
	return v.strVal, nil
}

// AsDocument returns the document entries. The returned slice must not be
// modified.
func (v *Value) AsDocument() ([]Entry, error) {
	if err := v.expect(KindDocument); err != nil {
		return nil, err
	}
	return v.docVal, nil
}

// AsArray returns the array elements. The returned slice must not be
// modified.
func (v *Value) AsArray() ([]*Value, error) {
	if err := v.expect(KindArray); err != nil {
		return nil, err
	}
	return v.arrVal, nil
}

func (v *Value) expect(k Kind) error {
	if v.Kind() != k {
		return fmt.Errorf("bson: expected %s, got %s", k, v.Kind())
	}
	return nil
}

// Len returns the number of entries of a document or elements of an array.
func (v *Value) Len() int {
	switch v.Kind() {
	case KindDocument:
		return len(v.docVal)
	case KindArray:
		return len(v.arrVal)
	default:
		return 0
	}
}

// Keys returns the document keys in order.
func (v *Value) Keys() []string {
	if v.Kind() != KindDocument {
		return nil
	}
	keys := make([]string, len(v.docVal))
	for i, e := range v.docVal {
		keys[i] = e.Key
	}
	return keys
}

// Get returns a field value by key from a document, or nil.
func (v *Value) Get(key string) *Value {
	if v.Kind() != KindDocument {
		return nil
	}
	for _, e := range v.docVal {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

// Index returns the i-th element of an array.
func (v *Value) Index(i int) (*Value, error) {
	if v.Kind() != KindArray {
		return nil, fmt.Errorf("bson: not an array")
	}
	if i < 0 || i >= len(v.arrVal) {
		return nil, fmt.Errorf("bson: index %d out of bounds (len=%d)", i, len(v.arrVal))
	}
	return v.arrVal[i], nil
}

// Number returns a numeric value as float64 for int32, int64 and double.
func (v *Value) Number() (float64, bool) {
	switch v.Kind() {
	case KindInt32, KindInt64:
		return float64(v.intVal), true
	case KindDouble:
		return v.floatVal, true
	default:
		return 0, false
	}
}

// ============================================================
// Equality
// ============================================================

// Equal reports whether v and o are structurally equal: same kinds, equal
// leaves, same key order and same element order. Doubles compare by bit
// pattern so that NaN equals NaN.
func (v *Value) Equal(o *Value) bool {
	if v.Kind() != o.Kind() {
		return false
	}
	switch v.Kind() {
	case KindNull:
		return true
	case KindBool:
		return v.boolVal == o.boolVal
	case KindInt32, KindInt64:
		return v.intVal == o.intVal
	case KindDouble:
		return math.Float64bits(v.floatVal) == math.Float64bits(o.floatVal)
	case KindString:
		return v.strVal == o.strVal
	case KindDocument:
		if len(v.docVal) != len(o.docVal) {
			return false
		}
		for i := range v.docVal {
			if v.docVal[i].Key != o.docVal[i].Key || !v.docVal[i].Value.Equal(o.docVal[i].Value) {
				return false
			}
		}
		return true
	case KindArray:
		if len(v.arrVal) != len(o.arrVal) {
			return false
		}
		for i := range v.arrVal {
			if !v.arrVal[i].Equal(o.arrVal[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String returns a short debugging representation of the value.
func (v *Value) String() string {
	switch v.Kind() {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.boolVal)
	case KindInt32, KindInt64:
		return strconv.FormatInt(v.intVal, 10)
	case KindDouble:
		return strconv.FormatFloat(v.floatVal, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.strVal)
	case KindDocument:
		s := "{"
		for i, e := range v.docVal {
			if i > 0 {
				s += " "
			}
			s += strconv.Quote(e.Key) + ":" + e.Value.String()
		}
		return s + "}"
	case KindArray:
		s := "["
		for i, e := range v.arrVal {
			if i > 0 {
				s += " "
			}
			s += e.String()
		}
		return s + "]"
	default:
		return "unknown"
	}
}
