package bson

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"

	mgobson "gopkg.in/mgo.v2/bson"
)

// ============================================================
// Go Value -> Tree
// ============================================================

// FromNative converts a Go value into a tree.
//
//	nil, *Value(nil)           -> null
//	bool                       -> bool
//	int8..int32, uint8, uint16 -> int32
//	int, uint                  -> int32 when it fits, else int64
//	int64, uint32, uint64      -> int64 (uint64 above 2^63-1 is rejected)
//	float32, float64           -> double
//	string                     -> string
//	json.Number                -> int32, int64 or double
//	mgo bson.D                 -> document, in order
//	maps with string keys      -> document, keys sorted
//	slices, arrays             -> array
//
// Anything else, including []byte, fails with *UnrepresentableValueError.
func FromNative(in interface{}) (*Value, error) {
	return fromNative(in, "", 0)
}

func fromNative(in interface{}, path string, depth int) (*Value, error) {
	if depth > DefaultMaxDepth {
		return nil, unrepresentable(path, "maximum nesting depth %d exceeded", DefaultMaxDepth)
	}
	switch v := in.(type) {
	case nil:
		return Null(), nil
	case *Value:
		if v == nil {
			return Null(), nil
		}
		return v, nil
	case bool:
		return Bool(v), nil
	case int:
		return intValue(int64(v)), nil
	case int8:
		return Int32(int32(v)), nil
	case int16:
		return Int32(int32(v)), nil
	case int32:
		return Int32(v), nil
	case int64:
		return Int64(v), nil
	case uint8:
		return Int32(int32(v)), nil
	case uint16:
		return Int32(int32(v)), nil
	case uint32:
		return Int64(int64(v)), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return nil, unrepresentable(path, "unsigned integer %d overflows int64", v)
		}
		return intValue(int64(v)), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, unrepresentable(path, "unsigned integer %d overflows int64", v)
		}
		return Int64(int64(v)), nil
	case float32:
		return Double(float64(v)), nil
	case float64:
		return Double(v), nil
	case string:
		return String(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return intValue(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, unrepresentable(path, "invalid number %q", v.String())
		}
		return Double(f), nil
	case []byte:
		return nil, unrepresentable(path, "binary data has no tree form")
	case mgobson.D:
		entries := make([]Entry, 0, len(v))
		for _, elem := range v {
			child, err := fromNative(elem.Value, joinPath(path, elem.Name), depth+1)
			if err != nil {
				return nil, err
			}
			entries = append(entries, Entry{Key: elem.Name, Value: child})
		}
		return &Value{kind: KindDocument, docVal: entries}, nil
	case mgobson.M:
		return fromMap(map[string]interface{}(v), path, depth)
	case map[string]interface{}:
		return fromMap(v, path, depth)
	case []interface{}:
		values := make([]*Value, len(v))
		for i, item := range v {
			child, err := fromNative(item, joinPath(path, strconv.Itoa(i)), depth+1)
			if err != nil {
				return nil, err
			}
			values[i] = child
		}
		return &Value{kind: KindArray, arrVal: values}, nil
	}
	return fromReflect(reflect.ValueOf(in), path, depth)
}

func intValue(i int64) *Value {
	if i >= math.MinInt32 && i <= math.MaxInt32 {
		return Int32(int32(i))
	}
	return Int64(i)
}

func fromMap(m map[string]interface{}, path string, depth int) (*Value, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		child, err := fromNative(m[k], joinPath(path, k), depth+1)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: k, Value: child})
	}
	return &Value{kind: KindDocument, docVal: entries}, nil
}

func fromReflect(rv reflect.Value, path string, depth int) (*Value, error) {
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return fromNative(rv.Elem().Interface(), path, depth)
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, unrepresentable(path, "binary data has no tree form")
		}
		values := make([]*Value, rv.Len())
		for i := range values {
			child, err := fromNative(rv.Index(i).Interface(), joinPath(path, strconv.Itoa(i)), depth+1)
			if err != nil {
				return nil, err
			}
			values[i] = child
		}
		return &Value{kind: KindArray, arrVal: values}, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, unrepresentable(path, "map key type %s is not a string", rv.Type().Key())
		}
		m := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return fromMap(m, path, depth)
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return intValue(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return nil, unrepresentable(path, "unsigned integer %d overflows int64", rv.Uint())
		}
		return intValue(int64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return Double(rv.Float()), nil
	}
	if !rv.IsValid() {
		return Null(), nil
	}
	return nil, unrepresentable(path, "unsupported Go type %s", rv.Type())
}

// ============================================================
// Tree -> Go Value
// ============================================================

// Interface converts v into plain Go values: nil, bool, int32, int64,
// float64, string, mgo bson.D for documents and []interface{} for arrays.
// The result can be passed to mgo's bson.Marshal.
func (v *Value) Interface() interface{} {
	switch v.Kind() {
	case KindBool:
		return v.boolVal
	case KindInt32:
		return int32(v.intVal)
	case KindInt64:
		return v.intVal
	case KindDouble:
		return v.floatVal
	case KindString:
		return v.strVal
	case KindDocument:
		d := make(mgobson.D, len(v.docVal))
		for i, e := range v.docVal {
			d[i] = mgobson.DocElem{Name: e.Key, Value: e.Value.Interface()}
		}
		return d
	case KindArray:
		out := make([]interface{}, len(v.arrVal))
		for i, e := range v.arrVal {
			out[i] = e.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON renders the tree as plain JSON. Int64 leaves are emitted as
// numbers, so values above 2^53 may lose precision in other JSON readers.
func (v *Value) MarshalJSON() ([]byte, error) {
	switch v.Kind() {
	case KindDocument:
		buf := []byte{'{'}
		for i, e := range v.docVal {
			if i > 0 {
				buf = append(buf, ',')
			}
			k, err := json.Marshal(e.Key)
			if err != nil {
				return nil, err
			}
			child, err := e.Value.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, k...)
			buf = append(buf, ':')
			buf = append(buf, child...)
		}
		return append(buf, '}'), nil
	case KindArray:
		buf := []byte{'['}
		for i, e := range v.arrVal {
			if i > 0 {
				buf = append(buf, ',')
			}
			child, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, child...)
		}
		return append(buf, ']'), nil
	case KindDouble:
		if math.IsNaN(v.floatVal) || math.IsInf(v.floatVal, 0) {
			return nil, fmt.Errorf("bson: %v has no JSON form", v.floatVal)
		}
		return json.Marshal(v.floatVal)
	default:
		return json.Marshal(v.Interface())
	}
}
