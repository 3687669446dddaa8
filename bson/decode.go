package bson

// ============================================================
// Decoder Options
// ============================================================

// DecodeOptions configures conversion from bytes to a tree.
type DecodeOptions struct {
	// MaxDepth limits nested documents and arrays (default: 100).
	MaxDepth int

	// ExactInt64 keeps int64 leaves as int64. When false they are widened to
	// doubles, which loses precision above 2^53.
	ExactInt64 bool
}

// DefaultDecodeOptions returns the default decode options.
func DefaultDecodeOptions() DecodeOptions {
	return DecodeOptions{MaxDepth: DefaultMaxDepth}
}

// ============================================================
// Decoder
// ============================================================

// Decoder converts validated BSON into *Value trees. Each container is read
// twice: once by a counting cursor that sizes the result, once by the content
// cursor that fills it. The two cursors never share position.
type Decoder struct {
	opts DecodeOptions
}

// NewDecoder creates a Decoder.
func NewDecoder(opts DecodeOptions) *Decoder {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Decoder{opts: opts}
}

// Decode converts one BSON document with the default options.
func Decode(buf []byte) (*Value, error) {
	return NewDecoder(DefaultDecodeOptions()).Decode(buf)
}

// Decode converts the single BSON document in buf into a tree. Any failure
// aborts the whole conversion; no partial tree is returned.
func (d *Decoder) Decode(buf []byte) (*Value, error) {
	iter, err := NewIterator(buf, WithMaxDepth(d.opts.MaxDepth))
	if err != nil {
		return nil, err
	}
	return d.DecodeDocument(iter, iter.Clone())
}

// DecodeDocument builds a document from iter, using counter, an independent
// cursor over the same range, to size it first. Keys keep wire order.
func (d *Decoder) DecodeDocument(iter, counter *Iterator) (*Value, error) {
	n, err := count(counter)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, n)
	seen := make(map[string]struct{}, n)
	for iter.Next() {
		key := iter.Key()
		if _, dup := seen[key]; dup {
			return nil, malformed(iter.Offset(), key, "duplicate key")
		}
		seen[key] = struct{}{}

		v, err := d.convertValue(iter)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: key, Value: v})
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return &Value{kind: KindDocument, docVal: entries}, nil
}

// DecodeArray builds an array from iter, sized by counter. Element keys are
// ignored; position comes from wire order.
func (d *Decoder) DecodeArray(iter, counter *Iterator) (*Value, error) {
	n, err := count(counter)
	if err != nil {
		return nil, err
	}

	values := make([]*Value, 0, n)
	for iter.Next() {
		v, err := d.convertValue(iter)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return &Value{kind: KindArray, arrVal: values}, nil
}

func count(counter *Iterator) (int, error) {
	n := 0
	for counter.Next() {
		n++
	}
	return n, counter.Err()
}

// convertValue converts the element under iter. Containers recurse with two
// fresh child cursors.
func (d *Decoder) convertValue(iter *Iterator) (*Value, error) {
	switch iter.Type() {
	case TypeInt32:
		v, err := iter.AsInt32()
		if err != nil {
			return nil, err
		}
		return Int32(v), nil

	case TypeNull:
		return Null(), nil

	case TypeBoolean:
		v, err := iter.AsBool()
		if err != nil {
			return nil, err
		}
		return Bool(v), nil

	case TypeDouble:
		v, err := iter.AsDouble()
		if err != nil {
			return nil, err
		}
		return Double(v), nil

	case TypeInt64:
		v, err := iter.AsInt64()
		if err != nil {
			return nil, err
		}
		if d.opts.ExactInt64 {
			return Int64(v), nil
		}
		return Double(float64(v)), nil

	case TypeString:
		v, err := iter.AsString()
		if err != nil {
			return nil, err
		}
		return String(v), nil

	case TypeDocument, TypeArray:
		child, err := iter.Recurse()
		if err != nil {
			return nil, err
		}
		counter, err := iter.Recurse()
		if err != nil {
			return nil, err
		}
		if iter.Type() == TypeArray {
			return d.DecodeArray(child, counter)
		}
		return d.DecodeDocument(child, counter)

	default:
		return nil, &UnsupportedTypeError{Type: iter.Type(), Key: iter.Key(), Offset: iter.Offset()}
	}
}
