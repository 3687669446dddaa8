package bson

import (
	"errors"
	"fmt"
)

// Sentinel errors for classifying failures with errors.Is.
var (
	ErrMalformedDocument    = errors.New("bson: malformed document")
	ErrUnsupportedType      = errors.New("bson: unsupported type")
	ErrUnrepresentableValue = errors.New("bson: unrepresentable value")
	ErrInvalidJSON          = errors.New("bson: invalid JSON")
)

// MalformedDocumentError reports a structural violation in binary input:
// a bad length prefix, a value overrunning its parent, a missing terminator,
// invalid UTF-8 or nesting deeper than allowed.
type MalformedDocumentError struct {
	Reason string
	Offset int    // absolute byte offset into the outermost buffer, -1 if unknown
	Key    string // key of the element being read, if any
}

func (e *MalformedDocumentError) Error() string {
	msg := "bson: malformed document: " + e.Reason
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" at offset %d", e.Offset)
	}
	if e.Key != "" {
		msg += fmt.Sprintf(" (key %q)", e.Key)
	}
	return msg
}

// Is matches ErrMalformedDocument.
func (e *MalformedDocumentError) Is(target error) bool {
	return target == ErrMalformedDocument
}

func malformed(offset int, key, format string, args ...interface{}) *MalformedDocumentError {
	return &MalformedDocumentError{Reason: fmt.Sprintf(format, args...), Offset: offset, Key: key}
}

// UnsupportedTypeError reports an element whose type tag has no tree
// representation. When the tag is not a BSON type at all the element cannot
// be measured, so the error also matches ErrMalformedDocument.
type UnsupportedTypeError struct {
	Type   Type
	Key    string
	Offset int
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("bson: unsupported type %s (0x%02x) at offset %d (key %q)",
		e.Type, byte(e.Type), e.Offset, e.Key)
}

// Is matches ErrUnsupportedType, and ErrMalformedDocument for undefined tags.
func (e *UnsupportedTypeError) Is(target error) bool {
	switch target {
	case ErrUnsupportedType:
		return true
	case ErrMalformedDocument:
		return !e.Type.IsValid()
	default:
		return false
	}
}

// UnrepresentableValueError reports a value that has no BSON encoding.
type UnrepresentableValueError struct {
	Reason string
	Path   string // dotted path of the offending value, empty for the root
}

func (e *UnrepresentableValueError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("bson: unrepresentable value at %s: %s", e.Path, e.Reason)
	}
	return "bson: unrepresentable value: " + e.Reason
}

// Is matches ErrUnrepresentableValue.
func (e *UnrepresentableValueError) Is(target error) bool {
	return target == ErrUnrepresentableValue
}

func unrepresentable(path, format string, args ...interface{}) *UnrepresentableValueError {
	return &UnrepresentableValueError{Reason: fmt.Sprintf(format, args...), Path: path}
}

// InvalidJSONError reports text that is not well-formed JSON or that breaks
// the extended JSON conventions. Message carries the parser's diagnostic.
type InvalidJSONError struct {
	Message string
	Offset  int64 // byte offset into the input
}

func (e *InvalidJSONError) Error() string {
	return fmt.Sprintf("bson: invalid JSON at offset %d: %s", e.Offset, e.Message)
}

// Is matches ErrInvalidJSON.
func (e *InvalidJSONError) Is(target error) bool {
	return target == ErrInvalidJSON
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}
