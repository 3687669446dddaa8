package bson

import (
	"errors"
	"strings"
	"testing"
)

// ============================================================
// Walking
// ============================================================

func TestIterator_EmptyDocument(t *testing.T) {
	it, err := NewIterator(hexBytes(t, "05 00 00 00 00"))
	if err != nil {
		t.Fatalf("NewIterator failed: %v", err)
	}
	if it.Next() {
		t.Fatalf("Next on empty document returned true")
	}
	if err := it.Err(); err != nil {
		t.Errorf("Err = %v, want nil", err)
	}
	if it.Next() {
		t.Errorf("Next after end returned true")
	}
}

func TestIterator_AllTypes(t *testing.T) {
	it, err := NewIterator(allTypes(t))
	if err != nil {
		t.Fatalf("NewIterator failed: %v", err)
	}

	want := []struct {
		key string
		typ Type
	}{
		{"double", TypeDouble},
		{"string", TypeString},
		{"doc", TypeDocument},
		{"array", TypeArray},
		{"binary", TypeBinary},
		{"oldbinary", TypeBinary},
		{"undefined", TypeUndefined},
		{"oid", TypeObjectID},
		{"bool", TypeBoolean},
		{"date", TypeDateTime},
		{"null", TypeNull},
		{"regex", TypeRegex},
		{"dbpointer", TypeDBPointer},
		{"code", TypeJavaScript},
		{"symbol", TypeSymbol},
		{"codews", TypeCodeWithScope},
		{"int32", TypeInt32},
		{"timestamp", TypeTimestamp},
		{"int64", TypeInt64},
		{"decimal", TypeDecimal128},
		{"min", TypeMinKey},
		{"max", TypeMaxKey},
	}

	for i, w := range want {
		if !it.Next() {
			t.Fatalf("element %d: Next returned false: %v", i, it.Err())
		}
		if it.Key() != w.key || it.Type() != w.typ {
			t.Errorf("element %d: got %s/%s, want %s/%s", i, it.Key(), it.Type(), w.key, w.typ)
		}
	}
	if it.Next() {
		t.Errorf("extra element %q", it.Key())
	}
	if err := it.Err(); err != nil {
		t.Errorf("Err = %v", err)
	}
}

func TestIterator_Accessors(t *testing.T) {
	it, err := NewIterator(allTypes(t))
	if err != nil {
		t.Fatalf("NewIterator failed: %v", err)
	}

	for it.Next() {
		switch it.Key() {
		case "double":
			if v, _ := it.AsDouble(); v != 1.5 {
				t.Errorf("double = %v", v)
			}
		case "string":
			if v, _ := it.AsString(); v != "héllo" {
				t.Errorf("string = %q", v)
			}
		case "binary":
			sub, data, _ := it.AsBinary()
			if sub != 0 || string(data) != "\x01\x02\x03" {
				t.Errorf("binary = %x %x", sub, data)
			}
		case "oldbinary":
			sub, data, _ := it.AsBinary()
			if sub != BinaryOld || string(data) != "\x04\x05" {
				t.Errorf("old binary = %x %x", sub, data)
			}
		case "oid":
			oid, _ := it.AsObjectID()
			if oid[0] != 0x52 || oid[11] != 0x03 {
				t.Errorf("oid = %x", oid)
			}
		case "bool":
			if v, _ := it.AsBool(); !v {
				t.Errorf("bool = false")
			}
		case "date":
			if v, _ := it.AsDateTime(); v != 1392822881288 {
				t.Errorf("date = %d", v)
			}
		case "null":
			if err := it.AsNull(); err != nil {
				t.Errorf("AsNull: %v", err)
			}
		case "regex":
			p, o, _ := it.AsRegex()
			if p != "^a" || o != "i" {
				t.Errorf("regex = %q %q", p, o)
			}
		case "dbpointer":
			ns, oid, _ := it.AsDBPointer()
			if ns != "db.coll" || oid[0] != 0x52 {
				t.Errorf("dbpointer = %q %x", ns, oid)
			}
		case "code":
			if v, _ := it.AsJavaScript(); v != "f()" {
				t.Errorf("code = %q", v)
			}
		case "symbol":
			if v, _ := it.AsSymbol(); v != "sym" {
				t.Errorf("symbol = %q", v)
			}
		case "codews":
			code, scope, err := it.AsCodeWithScope()
			if err != nil {
				t.Fatalf("AsCodeWithScope failed: %v", err)
			}
			if code != "g()" {
				t.Errorf("code = %q", code)
			}
			if !scope.Next() || scope.Key() != "x" {
				t.Errorf("scope first element = %q (%v)", scope.Key(), scope.Err())
			}
		case "int32":
			if v, _ := it.AsInt32(); v != -7 {
				t.Errorf("int32 = %d", v)
			}
		case "timestamp":
			ts, inc, _ := it.AsTimestamp()
			if ts != 1392822881 || inc != 1 {
				t.Errorf("timestamp = %d/%d", ts, inc)
			}
		case "int64":
			if v, _ := it.AsInt64(); v != 1<<40 {
				t.Errorf("int64 = %d", v)
			}
		case "decimal":
			hi, lo, _ := it.AsDecimal128()
			if hi != 0x3040000000000000 || lo != 15 {
				t.Errorf("decimal = %x/%x", hi, lo)
			}
		}
	}
	if err := it.Err(); err != nil {
		t.Fatalf("Err = %v", err)
	}
}

func TestIterator_TypeMismatch(t *testing.T) {
	it, _ := NewIterator(hexBytes(t, "0c000000 10 6100 01000000 00"))
	if !it.Next() {
		t.Fatalf("Next failed: %v", it.Err())
	}
	_, err := it.AsString()
	if err == nil || !strings.Contains(err.Error(), "expected string, got int") {
		t.Errorf("AsString on int32: err = %v", err)
	}
}

// ============================================================
// Recursion
// ============================================================

func TestIterator_RecurseIsIndependent(t *testing.T) {
	w := NewWriter()
	w.StartDocument("a")
	w.AppendInt32("b", 1)
	w.AppendInt32("c", 2)
	w.End()
	w.AppendInt32("d", 3)
	it, _ := NewIterator(finish(t, w))

	if !it.Next() || it.Key() != "a" {
		t.Fatalf("first element = %q", it.Key())
	}
	child, err := it.Recurse()
	if err != nil {
		t.Fatalf("Recurse failed: %v", err)
	}
	if !child.Next() || child.Key() != "b" {
		t.Fatalf("child first = %q", child.Key())
	}
	// type(4) 'a'(5) NUL(6) inner length(7..10), first inner element at 11
	if child.Offset() != 11 {
		t.Errorf("child offset = %d, want 11", child.Offset())
	}
	if child.Depth() != 1 {
		t.Errorf("child depth = %d, want 1", child.Depth())
	}
	child.Next()

	if it.Key() != "a" {
		t.Errorf("parent moved to %q", it.Key())
	}
	if !it.Next() || it.Key() != "d" {
		t.Errorf("parent next = %q", it.Key())
	}
}

func TestIterator_MaxDepth(t *testing.T) {
	it, _ := NewIterator(nestedDocs(t, 3), WithMaxDepth(2))
	var err error
	for depth := 0; depth < 3; depth++ {
		if !it.Next() {
			t.Fatalf("depth %d: Next failed: %v", depth, it.Err())
		}
		it, err = it.Recurse()
		if err != nil {
			break
		}
	}
	if !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("err = %v, want malformed", err)
	}
	if !strings.Contains(err.Error(), "maximum nesting depth 2 exceeded") {
		t.Errorf("err = %v", err)
	}
}

func TestIterator_Clone(t *testing.T) {
	w := NewWriter()
	w.AppendInt32("a", 1)
	w.AppendInt32("b", 2)
	it, _ := NewIterator(finish(t, w))

	c := it.Clone()
	n := 0
	for c.Next() {
		n++
	}
	if n != 2 {
		t.Errorf("clone counted %d elements", n)
	}
	if !it.Next() || it.Key() != "a" {
		t.Errorf("original advanced by clone: %q", it.Key())
	}
}

// ============================================================
// Malformed Input
// ============================================================

func TestIterator_MalformedFrame(t *testing.T) {
	tests := []struct {
		name string
		hex  string
		want string
	}{
		{"too short", "04000000", "document too short"},
		{"length exceeds buffer", "06000000 00", "does not match document size"},
		{"length below buffer", "05000000 00 00", "does not match document size"},
		{"missing terminator", "05000000 01", "missing document terminator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIterator(hexBytes(t, tt.hex))
			var me *MalformedDocumentError
			if !errors.As(err, &me) {
				t.Fatalf("err = %v, want *MalformedDocumentError", err)
			}
			if !strings.Contains(me.Reason, tt.want) {
				t.Errorf("reason = %q, want %q", me.Reason, tt.want)
			}
		})
	}
}

func TestIterator_MalformedElement(t *testing.T) {
	tests := []struct {
		name string
		hex  string
		want string
	}{
		{"truncated int32", "0a000000 10 6100 0100 00", "int value needs 4 bytes"},
		{"unterminated key", "08000000 10 6162 00", "unterminated key"},
		{"string overruns", "0f000000 02 6100 ff000000 6869 00 00", "overruns document"},
		{"zero string length", "0d000000 02 6100 00000000 00 00", "invalid string length 0"},
		{"string without NUL", "0e000000 02 6100 02000000 6869 00", "string missing NUL terminator"},
		{"bad boolean", "09000000 08 6100 02 00", "invalid boolean value 0x02"},
		{"early terminator", "07000000 00 00 00", "unexpected document terminator"},
		{"embedded overrun", "0d000000 03 6100 06000000 00 00", "overruns parent"},
		{"invalid utf8 key", "09000000 0a ff00 00 00", "key is not valid UTF-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := NewIterator(hexBytes(t, tt.hex))
			if err != nil {
				t.Fatalf("NewIterator failed: %v", err)
			}
			for it.Next() {
			}
			err = it.Err()
			if !errors.Is(err, ErrMalformedDocument) {
				t.Fatalf("err = %v, want malformed", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestIterator_UnknownType(t *testing.T) {
	it, _ := NewIterator(hexBytes(t, "08000000 20 6100 00"))
	if it.Next() {
		t.Fatalf("Next accepted unknown type")
	}
	var ute *UnsupportedTypeError
	if !errors.As(it.Err(), &ute) {
		t.Fatalf("err = %v, want *UnsupportedTypeError", it.Err())
	}
	if ute.Type != 0x20 || ute.Key != "a" || ute.Offset != 4 {
		t.Errorf("error = %+v", ute)
	}
	if !errors.Is(it.Err(), ErrUnsupportedType) || !errors.Is(it.Err(), ErrMalformedDocument) {
		t.Errorf("unknown tag should match both sentinels")
	}
}

func TestIterator_InvalidUTF8String(t *testing.T) {
	it, _ := NewIterator(hexBytes(t, "0e000000 02 7300 02000000 ff00 00"))
	if !it.Next() {
		t.Fatalf("Next failed: %v", it.Err())
	}
	_, err := it.AsString()
	if !errors.Is(err, ErrMalformedDocument) {
		t.Errorf("err = %v, want malformed", err)
	}
}
