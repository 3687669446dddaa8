package stream

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/LRAbbade/mongolite/bson"
	"github.com/LRAbbade/mongolite/log"
)

func sampleDocs(t *testing.T) []*bson.Document {
	t.Helper()
	trees := []*bson.Value{
		bson.Doc(bson.E("_id", bson.Int32(1)), bson.E("name", bson.String("a"))),
		bson.Doc(),
		bson.Doc(bson.E("nested", bson.Doc(bson.E("list", bson.Array(bson.Bool(true), bson.Null()))))),
	}
	docs := make([]*bson.Document, 0, len(trees))
	for _, tree := range trees {
		doc, err := bson.FromTree(tree)
		if err != nil {
			t.Fatalf("FromTree failed: %v", err)
		}
		docs = append(docs, doc)
	}
	return docs
}

func writeAll(t *testing.T, c Compression, docs []*bson.Document) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, WithWriterCompression(c))
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	for _, doc := range docs {
		if err := w.WriteDocument(doc); err != nil {
			t.Fatalf("WriteDocument failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return buf.Bytes()
}

func rawOf(docs []*bson.Document) [][]byte {
	out := make([][]byte, len(docs))
	for i, d := range docs {
		out[i] = d.Raw()
	}
	return out
}

// ============================================================
// Round Trip Tests
// ============================================================

func TestRoundTrip(t *testing.T) {
	docs := sampleDocs(t)

	for _, c := range []Compression{None, Gzip, Zstd} {
		t.Run(c.String(), func(t *testing.T) {
			data := writeAll(t, c, docs)

			r, err := NewReader(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("NewReader failed: %v", err)
			}
			defer r.Close()

			if r.Compression() != c {
				t.Errorf("detected %s, want %s", r.Compression(), c)
			}
			got, err := r.ReadAll()
			if err != nil {
				t.Fatalf("ReadAll failed: %v", err)
			}
			if diff := cmp.Diff(rawOf(docs), rawOf(got)); diff != "" {
				t.Errorf("documents mismatch (-want +got):\n%s", diff)
			}
			if r.Count() != len(docs) {
				t.Errorf("Count = %d, want %d", r.Count(), len(docs))
			}
		})
	}
}

func TestUncompressedLayout(t *testing.T) {
	docs := sampleDocs(t)
	data := writeAll(t, None, docs)

	var want []byte
	for _, d := range docs {
		want = append(want, d.Raw()...)
	}
	if !bytes.Equal(data, want) {
		t.Errorf("uncompressed stream should be plain concatenation")
	}
}

func TestForcedCompression(t *testing.T) {
	docs := sampleDocs(t)
	data := writeAll(t, None, docs)

	// Forcing gzip on plain data must fail at open.
	if _, err := NewReader(bytes.NewReader(data), WithCompression(Gzip)); err == nil {
		t.Errorf("expected gzip header error")
	}

	r, err := NewReader(bytes.NewReader(data), WithCompression(None))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(got) != len(docs) {
		t.Errorf("got %d documents, want %d", len(got), len(docs))
	}
}

func TestWriteValue(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.WriteValue(bson.Doc(bson.E("x", bson.Int64(5)))); err != nil {
		t.Fatalf("WriteValue failed: %v", err)
	}
	if err := w.WriteValue(bson.Array()); err == nil {
		t.Errorf("expected error for top-level array")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.WriteValue(bson.Doc()); err == nil {
		t.Errorf("expected error writing after Close")
	}
	if w.Count() != 1 {
		t.Errorf("Count = %d, want 1", w.Count())
	}

	r, _ := NewReader(&buf)
	doc, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	tree, err := doc.TreeWithOptions(bson.DecodeOptions{ExactInt64: true})
	if err != nil {
		t.Fatalf("Tree failed: %v", err)
	}
	if !tree.Equal(bson.Doc(bson.E("x", bson.Int64(5)))) {
		t.Errorf("got %s", tree)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next after last = %v, want io.EOF", err)
	}
}

// ============================================================
// Error Tests
// ============================================================

func TestReader_Errors(t *testing.T) {
	good := sampleDocs(t)[0].Raw()

	tests := []struct {
		name   string
		data   []byte
		opts   []ReaderOption
		reason string
		offset int64
	}{
		{
			name:   "truncated prefix",
			data:   append(append([]byte{}, good...), 0x10, 0x00),
			reason: "truncated length prefix",
			offset: int64(len(good)),
		},
		{
			name:   "truncated document",
			data:   good[:len(good)-3],
			reason: "truncated document",
			offset: 0,
		},
		{
			name:   "length below minimum",
			data:   []byte{0x04, 0x00, 0x00, 0x00},
			reason: "invalid document length 4",
			offset: 0,
		},
		{
			name:   "over limit",
			data:   good,
			opts:   []ReaderOption{WithMaxDocumentSize(8)},
			reason: "exceeds limit 8",
			offset: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReader(bytes.NewReader(tt.data), append(tt.opts, WithCompression(None))...)
			if err != nil {
				t.Fatalf("NewReader failed: %v", err)
			}
			_, err = r.ReadAll()
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *ParseError", err)
			}
			if !strings.Contains(pe.Reason, tt.reason) {
				t.Errorf("reason = %q, want %q", pe.Reason, tt.reason)
			}
			if pe.Offset != tt.offset {
				t.Errorf("offset = %d, want %d", pe.Offset, tt.offset)
			}
		})
	}
}

func TestReader_MalformedDocument(t *testing.T) {
	// Framing is intact but the string element overruns the document.
	bad := []byte{
		0x10, 0x00, 0x00, 0x00,
		0x02, 'a', 0x00, 0x40, 0x00, 0x00, 0x00, 'x', 'y', 0x00,
		0x00, 0x00,
	}

	r, _ := NewReader(bytes.NewReader(bad))
	if _, err := r.Next(); err != nil {
		t.Fatalf("framing-only read should succeed, got %v", err)
	}

	r, _ = NewReader(bytes.NewReader(bad), WithValidation())
	_, err := r.Next()
	if !errors.Is(err, bson.ErrMalformedDocument) {
		t.Fatalf("err = %v, want ErrMalformedDocument", err)
	}
	if !strings.Contains(err.Error(), "document 0 at offset 0") {
		t.Errorf("error %q lacks stream position", err)
	}
}

func TestReader_ValidationDepth(t *testing.T) {
	tree := bson.Doc(bson.E("a", bson.Doc(bson.E("b", bson.Doc()))))
	doc, err := bson.FromTree(tree)
	if err != nil {
		t.Fatalf("FromTree failed: %v", err)
	}

	r, _ := NewReader(bytes.NewReader(doc.Raw()), WithValidation(bson.WithMaxDepth(1)))
	if _, err := r.Next(); !errors.Is(err, bson.ErrMalformedDocument) {
		t.Errorf("err = %v, want depth failure", err)
	}
}

func TestEmptyStream(t *testing.T) {
	for _, c := range []Compression{None, Gzip, Zstd} {
		t.Run(c.String(), func(t *testing.T) {
			data := writeAll(t, c, nil)
			r, err := NewReader(bytes.NewReader(data), WithCompression(c))
			if err != nil {
				t.Fatalf("NewReader failed: %v", err)
			}
			if _, err := r.Next(); err != io.EOF {
				t.Errorf("Next = %v, want io.EOF", err)
			}
		})
	}
}

func TestReader_Logging(t *testing.T) {
	log.SetLevel("debug")
	defer log.SetLevel("info")

	var out bytes.Buffer
	docs := sampleDocs(t)
	r, _ := NewReader(bytes.NewReader(writeAll(t, None, docs)), WithLogger(log.NewLogger(&out)))
	if _, err := r.ReadAll(); err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{`msg="read document 0"`, "compression=none", "offset=0"} {
		if !strings.Contains(got, want) {
			t.Errorf("log output missing %q:\n%s", want, got)
		}
	}
}

// ============================================================
// Compression Tests
// ============================================================

func TestParseCompression(t *testing.T) {
	tests := []struct {
		in   string
		want Compression
	}{
		{"", None},
		{"none", None},
		{"GZIP", Gzip},
		{"gz", Gzip},
		{"zstd", Zstd},
		{"zst", Zstd},
	}
	for _, tt := range tests {
		got, err := ParseCompression(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseCompression(%q) = %s, %v; want %s", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseCompression("lz4"); err == nil {
		t.Errorf("expected error for lz4")
	}
}

func TestDetectCompression(t *testing.T) {
	tests := map[string]Compression{
		"dump/users.bson":     None,
		"dump/users.bson.gz":  Gzip,
		"dump/users.bson.zst": Zstd,
		"USERS.BSON.GZ":       Gzip,
	}
	for path, want := range tests {
		if got := DetectCompression(path); got != want {
			t.Errorf("DetectCompression(%q) = %s, want %s", path, got, want)
		}
	}
	if Zstd.Extension() != ".bson.zst" || None.Extension() != ".bson" {
		t.Errorf("unexpected extensions")
	}
}

// ============================================================
// Hash Tests
// ============================================================

func TestDigest(t *testing.T) {
	docs := sampleDocs(t)
	h := Digest(docs[1])
	hex := HashToHex(h)
	// sha256 of the empty document 0500000000.
	want := "49e8e3297545c15ab6a79471a7a34d43e24a8f1cb25ea3d8417c61f699267a3f"
	if hex != want {
		t.Errorf("digest = %s, want %s", hex, want)
	}

	back, ok := HexToHash(hex)
	if !ok || back != h {
		t.Errorf("HexToHash round trip failed")
	}
	if Digest(docs[0]) == h {
		t.Errorf("different documents should not share a digest")
	}
	if _, ok := HexToHash("zz"); ok {
		t.Errorf("short hex accepted")
	}
	if _, ok := HexToHash(strings.Repeat("g", 64)); ok {
		t.Errorf("non-hex accepted")
	}
}
