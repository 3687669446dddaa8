package bson

import (
	"encoding/hex"
	"strings"
	"testing"
)

// hexBytes decodes a hex string, ignoring spaces.
func hexBytes(t testing.TB, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func finish(t testing.TB, w *Writer) []byte {
	t.Helper()
	raw, err := w.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	return raw
}

// nestedDocs builds {"a":{"a":...{}}} with depth embedded documents.
func nestedDocs(t testing.TB, depth int) []byte {
	t.Helper()
	w := NewWriter()
	for i := 0; i < depth; i++ {
		w.StartDocument("a")
	}
	for i := 0; i < depth; i++ {
		w.End()
	}
	return finish(t, w)
}

// nestedTree is the tree form of nestedDocs.
func nestedTree(depth int) *Value {
	v := Doc()
	for i := 0; i < depth; i++ {
		v = Doc(E("a", v))
	}
	return v
}

// allTypes returns a document holding one element of every BSON type.
func allTypes(t testing.TB) []byte {
	t.Helper()
	scope := NewWriter()
	scope.AppendInt32("x", 1)

	oid := [12]byte{0x52, 0xdc, 0x18, 0x55, 0x6c, 0x52, 0x8d, 0x77, 0x36, 0x00, 0x00, 0x03}

	w := NewWriter()
	w.AppendDouble("double", 1.5)
	w.AppendString("string", "héllo")
	w.StartDocument("doc")
	w.AppendInt32("n", 1)
	w.End()
	w.StartArray("array")
	w.AppendString("0", "x")
	w.AppendBool("1", false)
	w.End()
	w.AppendBinary("binary", 0x00, []byte{1, 2, 3})
	w.AppendBinary("oldbinary", BinaryOld, []byte{4, 5})
	w.AppendUndefined("undefined")
	w.AppendObjectID("oid", oid)
	w.AppendBool("bool", true)
	w.AppendDateTime("date", 1392822881288)
	w.AppendNull("null")
	w.AppendRegex("regex", "^a", "i")
	w.AppendDBPointer("dbpointer", "db.coll", oid)
	w.AppendJavaScript("code", "f()")
	w.AppendSymbol("symbol", "sym")
	w.AppendCodeWithScope("codews", "g()", finish(t, scope))
	w.AppendInt32("int32", -7)
	w.AppendTimestamp("timestamp", 1392822881, 1)
	w.AppendInt64("int64", 1<<40)
	w.AppendDecimal128("decimal", 0x3040000000000000, 15)
	w.AppendMinKey("min")
	w.AppendMaxKey("max")
	return finish(t, w)
}
