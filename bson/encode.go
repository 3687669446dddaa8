package bson

import "strconv"

// EncodeOptions configures conversion from a tree to bytes.
type EncodeOptions struct {
	// MaxDepth limits nested documents and arrays (default: 100).
	MaxDepth int
}

// Encoder converts *Value trees into BSON through a Writer.
type Encoder struct {
	opts EncodeOptions
}

// NewEncoder creates an Encoder.
func NewEncoder(opts EncodeOptions) *Encoder {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Encoder{opts: opts}
}

// Encode converts a document tree with the default options.
func Encode(v *Value) ([]byte, error) {
	return NewEncoder(EncodeOptions{}).Encode(v)
}

// Encode converts v, which must be a document, into BSON bytes. Document
// keys are written in order; array elements get the keys "0", "1", ...
func (e *Encoder) Encode(v *Value) ([]byte, error) {
	if v.Kind() != KindDocument {
		return nil, unrepresentable("", "top-level value must be a document, got %s", v.Kind())
	}
	w := NewWriter()
	if err := e.writeEntries(w, v.docVal, "", 0); err != nil {
		return nil, err
	}
	return w.Finish()
}

func (e *Encoder) writeEntries(w *Writer, entries []Entry, path string, depth int) error {
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if _, dup := seen[entry.Key]; dup {
			return unrepresentable(joinPath(path, entry.Key), "duplicate key")
		}
		seen[entry.Key] = struct{}{}
		if err := e.writeValue(w, entry.Key, entry.Value, joinPath(path, entry.Key), depth); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) writeValue(w *Writer, key string, v *Value, path string, depth int) error {
	switch v.Kind() {
	case KindNull:
		w.AppendNull(key)
	case KindBool:
		w.AppendBool(key, v.boolVal)
	case KindInt32:
		w.AppendInt32(key, int32(v.intVal))
	case KindInt64:
		w.AppendInt64(key, v.intVal)
	case KindDouble:
		w.AppendDouble(key, v.floatVal)
	case KindString:
		w.AppendString(key, v.strVal)

	case KindDocument:
		if depth+1 > e.opts.MaxDepth {
			return unrepresentable(path, "maximum nesting depth %d exceeded", e.opts.MaxDepth)
		}
		w.StartDocument(key)
		if err := e.writeEntries(w, v.docVal, path, depth+1); err != nil {
			return err
		}
		w.End()

	case KindArray:
		if depth+1 > e.opts.MaxDepth {
			return unrepresentable(path, "maximum nesting depth %d exceeded", e.opts.MaxDepth)
		}
		w.StartArray(key)
		for i, elem := range v.arrVal {
			idx := strconv.Itoa(i)
			if err := e.writeValue(w, idx, elem, joinPath(path, idx), depth+1); err != nil {
				return err
			}
		}
		w.End()

	default:
		return unrepresentable(path, "unknown value kind %s", v.Kind())
	}
	return w.Err()
}
