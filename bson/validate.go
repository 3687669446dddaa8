package bson

import "strconv"

// Validate checks that buf holds exactly one well-formed BSON document,
// visiting every element at every depth. Text is checked for valid UTF-8 and
// array keys must be the consecutive indices "0", "1", ...
func Validate(buf []byte, opts ...IteratorOption) error {
	it, err := NewIterator(buf, opts...)
	if err != nil {
		return err
	}
	return validateDocument(it, false)
}

func validateDocument(it *Iterator, array bool) error {
	i := 0
	for it.Next() {
		if array && it.Key() != strconv.Itoa(i) {
			return malformed(it.Offset(), it.Key(), "array key out of sequence, want %q", strconv.Itoa(i))
		}
		i++
		if err := validateElement(it); err != nil {
			return err
		}
	}
	return it.Err()
}

func validateElement(it *Iterator) error {
	var err error
	switch it.Type() {
	case TypeString:
		_, err = it.AsString()
	case TypeJavaScript:
		_, err = it.AsJavaScript()
	case TypeSymbol:
		_, err = it.AsSymbol()
	case TypeRegex:
		_, _, err = it.AsRegex()
	case TypeDBPointer:
		_, _, err = it.AsDBPointer()
	case TypeDocument, TypeArray:
		var child *Iterator
		if child, err = it.Recurse(); err == nil {
			err = validateDocument(child, it.Type() == TypeArray)
		}
	case TypeCodeWithScope:
		var scope *Iterator
		if _, scope, err = it.AsCodeWithScope(); err == nil {
			err = validateDocument(scope, false)
		}
	}
	return err
}
