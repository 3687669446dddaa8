package bson

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/compose/mejson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mgobson "gopkg.in/mgo.v2/bson"
)

// ============================================================
// JSON -> BSON
// ============================================================

// jsonObject is a parsed JSON object with member order preserved.
type jsonObject struct {
	members []jsonMember
	offset  int64
}

type jsonMember struct {
	key   string
	value interface{} // nil, bool, string, json.Number, []interface{}, *jsonObject
}

func (o *jsonObject) get(key string) (interface{}, bool) {
	for _, m := range o.members {
		if m.key == key {
			return m.value, true
		}
	}
	return nil, false
}

// ParseJSON parses text holding exactly one JSON object into a Document.
//
// Numbers become int32 when they are integral and fit, int64 when they are
// integral and wider, and doubles otherwise. Objects of one or two keys that
// all start with '$' are read as MongoDB extended JSON markers:
//
//	{"$oid": "..."}                         ObjectId
//	{"$date": ms | "RFC 3339" | {"$numberLong": "ms"}}
//	{"$timestamp": {"t": n, "i": n}}
//	{"$binary": "base64", "$type": "hex"}
//	{"$regex": "...", "$options": "..."}
//	{"$numberLong": "n"}, {"$numberInt": "n"}
//	{"$numberDouble": "n" | "NaN" | "Infinity" | "-Infinity"}
//	{"$numberDecimal": "n"}
//	{"$code": "..."}, {"$code": "...", "$scope": {...}}
//	{"$symbol": "..."}, {"$dbPointer": {"$ref": "...", "$id": {"$oid": "..."}}}
//	{"$minKey": 1}, {"$maxKey": 1}, {"$undefined": true}
//
// Other '$' keys are kept as ordinary document keys. Failures are reported as
// *InvalidJSONError with the byte offset of the problem.
func ParseJSON(text string) (*Document, error) {
	p := newJSONParser(text)
	root, err := p.parse()
	if err != nil {
		return nil, err
	}
	w := NewWriter()
	if err := writeJSONMembers(w, root); err != nil {
		return nil, err
	}
	raw, err := w.Finish()
	if err != nil {
		return nil, &InvalidJSONError{Message: err.Error(), Offset: root.offset}
	}
	return &Document{raw: raw}, nil
}

type jsonParser struct {
	dec      *json.Decoder
	maxDepth int
}

func newJSONParser(text string) *jsonParser {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	return &jsonParser{dec: dec, maxDepth: DefaultMaxDepth}
}

func (p *jsonParser) parse() (*jsonObject, error) {
	tok, err := p.dec.Token()
	if err != nil {
		return nil, p.syntaxError(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, &InvalidJSONError{Message: "top-level value must be an object", Offset: 0}
	}
	root, err := p.parseObject(p.dec.InputOffset()-1, 0)
	if err != nil {
		return nil, err
	}
	if tok, err := p.dec.Token(); err != io.EOF {
		if err != nil {
			return nil, p.syntaxError(err)
		}
		return nil, &InvalidJSONError{
			Message: fmt.Sprintf("unexpected %v after top-level object", tok),
			Offset:  p.dec.InputOffset(),
		}
	}
	return root, nil
}

func (p *jsonParser) syntaxError(err error) error {
	var se *json.SyntaxError
	switch {
	case errors.As(err, &se):
		return &InvalidJSONError{Message: se.Error(), Offset: se.Offset}
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		return &InvalidJSONError{Message: "unexpected end of JSON input", Offset: p.dec.InputOffset()}
	default:
		return &InvalidJSONError{Message: err.Error(), Offset: p.dec.InputOffset()}
	}
}

func (p *jsonParser) parseObject(offset int64, depth int) (*jsonObject, error) {
	if depth > p.maxDepth {
		return nil, &InvalidJSONError{Message: fmt.Sprintf("maximum nesting depth %d exceeded", p.maxDepth), Offset: offset}
	}
	obj := &jsonObject{offset: offset}
	seen := make(map[string]struct{})
	for p.dec.More() {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, p.syntaxError(err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, &InvalidJSONError{Message: "object key must be a string", Offset: p.dec.InputOffset()}
		}
		if _, dup := seen[key]; dup {
			return nil, &InvalidJSONError{Message: fmt.Sprintf("duplicate key %q", key), Offset: p.dec.InputOffset()}
		}
		seen[key] = struct{}{}

		v, err := p.parseValue(depth)
		if err != nil {
			return nil, err
		}
		obj.members = append(obj.members, jsonMember{key: key, value: v})
	}
	if _, err := p.dec.Token(); err != nil {
		return nil, p.syntaxError(err)
	}
	return obj, nil
}

func (p *jsonParser) parseArray(offset int64, depth int) ([]interface{}, error) {
	if depth > p.maxDepth {
		return nil, &InvalidJSONError{Message: fmt.Sprintf("maximum nesting depth %d exceeded", p.maxDepth), Offset: offset}
	}
	items := []interface{}{}
	for p.dec.More() {
		v, err := p.parseValue(depth)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	if _, err := p.dec.Token(); err != nil {
		return nil, p.syntaxError(err)
	}
	return items, nil
}

func (p *jsonParser) parseValue(depth int) (interface{}, error) {
	tok, err := p.dec.Token()
	if err != nil {
		return nil, p.syntaxError(err)
	}
	switch t := tok.(type) {
	case json.Delim:
		offset := p.dec.InputOffset() - 1
		switch t {
		case '{':
			return p.parseObject(offset, depth+1)
		case '[':
			return p.parseArray(offset, depth+1)
		}
		return nil, &InvalidJSONError{Message: "unexpected " + t.String(), Offset: offset}
	default:
		return t, nil
	}
}

// ============================================================
// Writing parsed JSON
// ============================================================

func writeJSONMembers(w *Writer, obj *jsonObject) error {
	for _, m := range obj.members {
		if err := writeJSONValue(w, m.key, m.value, obj.offset); err != nil {
			return err
		}
	}
	return nil
}

func writeJSONValue(w *Writer, key string, val interface{}, offset int64) error {
	switch v := val.(type) {
	case nil:
		w.AppendNull(key)
	case bool:
		w.AppendBool(key, v)
	case string:
		w.AppendString(key, v)
	case json.Number:
		if err := writeJSONNumber(w, key, v, offset); err != nil {
			return err
		}
	case []interface{}:
		w.StartArray(key)
		for i, item := range v {
			if err := writeJSONValue(w, strconv.Itoa(i), item, offset); err != nil {
				return err
			}
		}
		w.End()
	case *jsonObject:
		handled, err := writeExtended(w, key, v)
		if err != nil {
			return err
		}
		if !handled {
			w.StartDocument(key)
			if err := writeJSONMembers(w, v); err != nil {
				return err
			}
			w.End()
		}
	default:
		return &InvalidJSONError{Message: fmt.Sprintf("unexpected JSON token %T", val), Offset: offset}
	}
	if err := w.Err(); err != nil {
		return &InvalidJSONError{Message: err.Error(), Offset: offset}
	}
	return nil
}

func writeJSONNumber(w *Writer, key string, n json.Number, offset int64) error {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			if i >= math.MinInt32 && i <= math.MaxInt32 {
				w.AppendInt32(key, int32(i))
			} else {
				w.AppendInt64(key, i)
			}
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return &InvalidJSONError{Message: fmt.Sprintf("number %s out of range", s), Offset: offset}
	}
	w.AppendDouble(key, f)
	return nil
}

// isExtended reports whether obj has the shape of an extended JSON marker.
func isExtended(obj *jsonObject) bool {
	if len(obj.members) != 1 && len(obj.members) != 2 {
		return false
	}
	for _, m := range obj.members {
		if !strings.HasPrefix(m.key, "$") {
			return false
		}
	}
	return true
}

// mejsonSignatures are the key sets of the markers decoded by mejson.
var mejsonSignatures = []string{
	"$oid",
	"$date",
	"$timestamp",
	"$binary/$type",
	"$regex",
	"$options/$regex",
}

// mejsonSignature reports whether obj's keys, in either order, form one of
// mejsonSignatures.
func mejsonSignature(obj *jsonObject) bool {
	keys := make([]string, len(obj.members))
	for i, m := range obj.members {
		keys[i] = m.key
	}
	if len(keys) == 2 && keys[0] > keys[1] {
		keys[0], keys[1] = keys[1], keys[0]
	}
	sig := strings.Join(keys, "/")
	for _, s := range mejsonSignatures {
		if s == sig {
			return true
		}
	}
	return false
}

// writeExtended writes obj as the BSON value of a marker and reports whether
// it was one. A recognised marker with an invalid payload is an error.
func writeExtended(w *Writer, key string, obj *jsonObject) (bool, error) {
	if !isExtended(obj) {
		return false, nil
	}
	fail := func(format string, args ...interface{}) (bool, error) {
		return false, &InvalidJSONError{Message: fmt.Sprintf(format, args...), Offset: obj.offset}
	}
	first := obj.members[0]
	single := len(obj.members) == 1

	switch {
	case single && first.key == "$numberLong":
		s, ok := first.value.(string)
		if !ok {
			return fail("$numberLong must be a string")
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fail("invalid $numberLong %q", s)
		}
		w.AppendInt64(key, i)

	case single && first.key == "$numberInt":
		s, ok := first.value.(string)
		if !ok {
			return fail("$numberInt must be a string")
		}
		i, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return fail("invalid $numberInt %q", s)
		}
		w.AppendInt32(key, int32(i))

	case single && first.key == "$numberDouble":
		s, ok := first.value.(string)
		if !ok {
			return fail("$numberDouble must be a string")
		}
		f, err := parseDoubleString(s)
		if err != nil {
			return fail("invalid $numberDouble %q", s)
		}
		w.AppendDouble(key, f)

	case single && first.key == "$numberDecimal":
		s, ok := first.value.(string)
		if !ok {
			return fail("$numberDecimal must be a string")
		}
		d, err := primitive.ParseDecimal128(s)
		if err != nil {
			return fail("invalid $numberDecimal %q", s)
		}
		hi, lo := d.GetBytes()
		w.AppendDecimal128(key, hi, lo)

	case single && (first.key == "$minKey" || first.key == "$maxKey"):
		if n, ok := first.value.(json.Number); !ok || n.String() != "1" {
			return fail("%s must be 1", first.key)
		}
		if first.key == "$minKey" {
			w.AppendMinKey(key)
		} else {
			w.AppendMaxKey(key)
		}

	case single && first.key == "$undefined":
		if b, ok := first.value.(bool); !ok || !b {
			return fail("$undefined must be true")
		}
		w.AppendUndefined(key)

	case single && first.key == "$symbol":
		s, ok := first.value.(string)
		if !ok {
			return fail("$symbol must be a string")
		}
		w.AppendSymbol(key, s)

	case hasKey(obj, "$code"):
		return writeCode(w, key, obj)

	case single && first.key == "$dbPointer":
		ref, ok := first.value.(*jsonObject)
		if !ok {
			return fail("$dbPointer must be an object")
		}
		ns, okRef := ref.get("$ref")
		id, okID := ref.get("$id")
		nsStr, isStr := ns.(string)
		idObj, isObj := id.(*jsonObject)
		if !okRef || !okID || !isStr || !isObj || len(ref.members) != 2 {
			return fail("$dbPointer must have $ref and $id")
		}
		oidVal, _ := idObj.get("$oid")
		oid, err := parseObjectIDHex(oidVal)
		if err != nil || len(idObj.members) != 1 {
			return fail("invalid $dbPointer $id")
		}
		w.AppendDBPointer(key, nsStr, oid)

	case single && first.key == "$date":
		return writeDate(w, key, obj)

	case mejsonSignature(obj):
		return writeMejson(w, key, obj)

	default:
		return false, nil
	}
	return true, nil
}

func hasKey(obj *jsonObject, key string) bool {
	_, ok := obj.get(key)
	return ok
}

func writeCode(w *Writer, key string, obj *jsonObject) (bool, error) {
	fail := func(msg string) (bool, error) {
		return false, &InvalidJSONError{Message: msg, Offset: obj.offset}
	}
	codeVal, _ := obj.get("$code")
	code, ok := codeVal.(string)
	if !ok {
		return fail("$code must be a string")
	}
	if len(obj.members) == 1 {
		w.AppendJavaScript(key, code)
		return true, nil
	}
	scopeVal, ok := obj.get("$scope")
	if !ok {
		return fail("$code may only be combined with $scope")
	}
	scopeObj, ok := scopeVal.(*jsonObject)
	if !ok {
		return fail("$scope must be an object")
	}
	sw := NewWriter()
	if err := writeJSONMembers(sw, scopeObj); err != nil {
		return false, err
	}
	scope, err := sw.Finish()
	if err != nil {
		return false, &InvalidJSONError{Message: err.Error(), Offset: scopeObj.offset}
	}
	w.AppendCodeWithScope(key, code, scope)
	return true, nil
}

// maxTimeMillis bounds the datetimes time.Time can carry in UnixNano form.
const maxTimeMillis = math.MaxInt64 / int64(time.Millisecond)

func writeDate(w *Writer, key string, obj *jsonObject) (bool, error) {
	v := obj.members[0].value
	switch d := v.(type) {
	case *jsonObject:
		s, ok := d.get("$numberLong")
		str, isStr := s.(string)
		if !ok || !isStr || len(d.members) != 1 {
			return false, &InvalidJSONError{Message: "invalid $date", Offset: obj.offset}
		}
		ms, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return false, &InvalidJSONError{Message: fmt.Sprintf("invalid $date %q", str), Offset: obj.offset}
		}
		w.AppendDateTime(key, ms)
		return true, nil

	case json.Number:
		ms, err := d.Int64()
		if err != nil {
			f, ferr := d.Float64()
			if ferr != nil || f != math.Trunc(f) {
				return false, &InvalidJSONError{Message: fmt.Sprintf("invalid $date %s: milliseconds must be integral", d), Offset: obj.offset}
			}
			break
		}
		if ms > maxTimeMillis || ms < -maxTimeMillis {
			w.AppendDateTime(key, ms)
			return true, nil
		}

	case string:
		if t, err := time.Parse(time.RFC3339Nano, d); err == nil {
			w.AppendDateTime(key, t.UnixMilli())
			return true, nil
		}
	}
	return writeMejson(w, key, obj)
}

// writeMejson decodes the $oid, $date, $timestamp, $binary and $regex
// markers through mejson.
func writeMejson(w *Writer, key string, obj *jsonObject) (bool, error) {
	fail := func() (bool, error) {
		names := make([]string, len(obj.members))
		for i, m := range obj.members {
			names[i] = m.key
		}
		return false, &InvalidJSONError{
			Message: fmt.Sprintf("invalid extended JSON %s", strings.Join(names, "/")),
			Offset:  obj.offset,
		}
	}
	if !mejsonShape(obj) {
		return fail()
	}

	payload := obj.plain()
	if sub, ok := payload["$type"].(string); ok && len(sub) == 1 {
		payload["$type"] = "0" + sub
	}
	res, err := mejson.Unmarshal(map[string]interface{}{"v": payload})
	if err != nil {
		return fail()
	}
	switch v := res["v"].(type) {
	case mgobson.ObjectId:
		var oid [12]byte
		copy(oid[:], v)
		w.AppendObjectID(key, oid)
	case time.Time:
		w.AppendDateTime(key, v.UnixMilli())
	case mgobson.MongoTimestamp:
		u := uint64(v)
		w.AppendTimestamp(key, uint32(u>>32), uint32(u))
	case mgobson.Binary:
		w.AppendBinary(key, v.Kind, v.Data)
	case mgobson.RegEx:
		w.AppendRegex(key, v.Pattern, v.Options)
	default:
		return fail()
	}
	return true, nil
}

// mejsonShape checks that a marker payload has the primitive shape mejson
// expects before it is handed over.
func mejsonShape(obj *jsonObject) bool {
	for _, m := range obj.members {
		switch m.key {
		case "$oid", "$binary", "$type", "$regex", "$options":
			if _, ok := m.value.(string); !ok {
				return false
			}
		case "$date":
			switch m.value.(type) {
			case string, json.Number:
			default:
				return false
			}
		case "$timestamp":
			ts, ok := m.value.(*jsonObject)
			if !ok || len(ts.members) != 2 {
				return false
			}
			for _, f := range []string{"t", "i"} {
				v, _ := ts.get(f)
				n, ok := v.(json.Number)
				if !ok {
					return false
				}
				i, err := strconv.ParseInt(n.String(), 10, 64)
				if err != nil || i < 0 || i > math.MaxUint32 {
					return false
				}
			}
		default:
			return false
		}
	}
	return true
}

// plain converts obj to the generic map form mejson consumes. Integral
// numbers become int, others float64.
func (o *jsonObject) plain() map[string]interface{} {
	m := make(map[string]interface{}, len(o.members))
	for _, mem := range o.members {
		m[mem.key] = plainValue(mem.value)
	}
	return m
}

func plainValue(v interface{}) interface{} {
	switch x := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(x.String(), 10, 0); err == nil {
			return int(i)
		}
		f, _ := x.Float64()
		return f
	case *jsonObject:
		return x.plain()
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, item := range x {
			out[i] = plainValue(item)
		}
		return out
	default:
		return v
	}
}

func parseObjectIDHex(v interface{}) ([12]byte, error) {
	var oid [12]byte
	s, ok := v.(string)
	if !ok || len(s) != 24 {
		return oid, fmt.Errorf("bson: invalid ObjectId %v", v)
	}
	if _, err := hex.Decode(oid[:], []byte(s)); err != nil {
		return oid, fmt.Errorf("bson: invalid ObjectId %q", s)
	}
	return oid, nil
}

func parseDoubleString(s string) (float64, error) {
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, 64)
}

// ============================================================
// BSON -> JSON
// ============================================================

// JSONOptions configures extended JSON output.
type JSONOptions struct {
	// Indent, when non-empty, pretty-prints with this per-level indent.
	Indent string
}

// JSON renders the document as compact extended JSON. Keys keep wire order;
// types without a plain JSON form use the markers ParseJSON accepts, so
// ParseJSON(JSON()) reproduces the same bytes.
func (d *Document) JSON() (string, error) {
	return d.JSONWithOptions(JSONOptions{})
}

// JSONWithOptions renders the document as extended JSON with opts.
func (d *Document) JSONWithOptions(opts JSONOptions) (string, error) {
	it, err := d.Iterator()
	if err != nil {
		return "", err
	}
	e := &jsonEmitter{}
	if err := e.emitDocument(it); err != nil {
		return "", err
	}
	if opts.Indent == "" {
		return e.buf.String(), nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, e.buf.Bytes(), "", opts.Indent); err != nil {
		return "", err
	}
	return out.String(), nil
}

type jsonEmitter struct {
	buf bytes.Buffer
}

func (e *jsonEmitter) emitDocument(it *Iterator) error {
	e.buf.WriteByte('{')
	first := true
	for it.Next() {
		if !first {
			e.buf.WriteByte(',')
		}
		first = false
		e.emitString(it.Key())
		e.buf.WriteByte(':')
		if err := e.emitValue(it); err != nil {
			return err
		}
	}
	if err := it.Err(); err != nil {
		return err
	}
	e.buf.WriteByte('}')
	return nil
}

func (e *jsonEmitter) emitArray(it *Iterator) error {
	e.buf.WriteByte('[')
	first := true
	for it.Next() {
		if !first {
			e.buf.WriteByte(',')
		}
		first = false
		if err := e.emitValue(it); err != nil {
			return err
		}
	}
	if err := it.Err(); err != nil {
		return err
	}
	e.buf.WriteByte(']')
	return nil
}

func (e *jsonEmitter) emitString(s string) {
	b, _ := json.Marshal(s)
	e.buf.Write(b)
}

// emitMejson writes a value through mejson's marshaller.
func (e *jsonEmitter) emitMejson(v interface{}) error {
	m, err := mejson.Marshal(v)
	if err != nil {
		return err
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	e.buf.Write(b)
	return nil
}

func (e *jsonEmitter) emitValue(it *Iterator) error {
	switch it.Type() {
	case TypeDouble:
		f, _ := it.AsDouble()
		e.buf.WriteString(formatDouble(f))

	case TypeString:
		s, err := it.AsString()
		if err != nil {
			return err
		}
		e.emitString(s)

	case TypeDocument, TypeArray:
		child, err := it.Recurse()
		if err != nil {
			return err
		}
		if it.Type() == TypeArray {
			return e.emitArray(child)
		}
		return e.emitDocument(child)

	case TypeBinary:
		sub, data, _ := it.AsBinary()
		e.buf.WriteString(`{"$binary":"`)
		e.buf.WriteString(base64.StdEncoding.EncodeToString(data))
		fmt.Fprintf(&e.buf, `","$type":"%02x"}`, sub)

	case TypeUndefined:
		e.buf.WriteString(`{"$undefined":true}`)

	case TypeObjectID:
		oid, _ := it.AsObjectID()
		return e.emitMejson(mgobson.ObjectId(oid[:]))

	case TypeBoolean:
		b, _ := it.AsBool()
		e.buf.WriteString(strconv.FormatBool(b))

	case TypeDateTime:
		ms, _ := it.AsDateTime()
		if ms > maxTimeMillis || ms < -maxTimeMillis {
			fmt.Fprintf(&e.buf, `{"$date":{"$numberLong":"%d"}}`, ms)
			return nil
		}
		return e.emitMejson(time.Unix(0, ms*int64(time.Millisecond)))

	case TypeNull:
		e.buf.WriteString("null")

	case TypeRegex:
		pattern, options, err := it.AsRegex()
		if err != nil {
			return err
		}
		return e.emitMejson(mgobson.RegEx{Pattern: pattern, Options: options})

	case TypeDBPointer:
		ns, oid, err := it.AsDBPointer()
		if err != nil {
			return err
		}
		e.buf.WriteString(`{"$dbPointer":{"$ref":`)
		e.emitString(ns)
		fmt.Fprintf(&e.buf, `,"$id":{"$oid":"%x"}}}`, oid[:])

	case TypeJavaScript:
		code, err := it.AsJavaScript()
		if err != nil {
			return err
		}
		e.buf.WriteString(`{"$code":`)
		e.emitString(code)
		e.buf.WriteByte('}')

	case TypeSymbol:
		s, err := it.AsSymbol()
		if err != nil {
			return err
		}
		e.buf.WriteString(`{"$symbol":`)
		e.emitString(s)
		e.buf.WriteByte('}')

	case TypeCodeWithScope:
		code, scope, err := it.AsCodeWithScope()
		if err != nil {
			return err
		}
		e.buf.WriteString(`{"$code":`)
		e.emitString(code)
		e.buf.WriteString(`,"$scope":`)
		if err := e.emitDocument(scope); err != nil {
			return err
		}
		e.buf.WriteByte('}')

	case TypeInt32:
		i, _ := it.AsInt32()
		e.buf.WriteString(strconv.FormatInt(int64(i), 10))

	case TypeTimestamp:
		t, i, _ := it.AsTimestamp()
		fmt.Fprintf(&e.buf, `{"$timestamp":{"t":%d,"i":%d}}`, t, i)

	case TypeInt64:
		i, _ := it.AsInt64()
		fmt.Fprintf(&e.buf, `{"$numberLong":"%d"}`, i)

	case TypeDecimal128:
		hi, lo, _ := it.AsDecimal128()
		e.buf.WriteString(`{"$numberDecimal":`)
		e.emitString(primitive.NewDecimal128(hi, lo).String())
		e.buf.WriteByte('}')

	case TypeMinKey:
		e.buf.WriteString(`{"$minKey":1}`)

	case TypeMaxKey:
		e.buf.WriteString(`{"$maxKey":1}`)

	default:
		return &UnsupportedTypeError{Type: it.Type(), Key: it.Key(), Offset: it.Offset()}
	}
	return nil
}

// formatDouble renders f so that it reads back as a double: integral values
// get a ".0" suffix and non-finite values use $numberDouble.
func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return `{"$numberDouble":"NaN"}`
	case math.IsInf(f, 1):
		return `{"$numberDouble":"Infinity"}`
	case math.IsInf(f, -1):
		return `{"$numberDouble":"-Infinity"}`
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
