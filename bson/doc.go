// Package bson implements a two-way codec between BSON, the length-prefixed
// binary document format, and an immutable in-memory value tree.
//
// # Data Flow
//
//	raw bytes -> Iterator (lazy, validating) -> Decoder -> *Value
//	*Value    -> Encoder -> Writer -> raw bytes
//
// A Document wraps the bytes of exactly one BSON document. It is produced by
// ParseRaw (validate-and-wrap), ParseJSON (extended JSON) or FromTree, and
// converts back with Raw, JSON and Tree.
//
// # Value Model
//
// Scalars: null, bool, int32, int64, double, string
// Containers: document (ordered, unique keys), array (positional)
//
// By default int64 leaves are widened to doubles when a document is decoded
// into a tree. Set DecodeOptions.ExactInt64 to keep them as int64.
//
// # Wire Format
//
//	document = int32 total_length | element* | 0x00
//	element  = uint8 type | cstring key | payload
//
// Arrays are documents whose keys are the decimal indices "0", "1", ...
//
// # Errors
//
// Every failure aborts the whole operation and is reported with one of the
// typed errors MalformedDocumentError, UnsupportedTypeError,
// UnrepresentableValueError or InvalidJSONError. Use errors.Is with
// ErrMalformedDocument, ErrUnsupportedType, ErrUnrepresentableValue or
// ErrInvalidJSON to classify them.
//
// # Concurrency
//
// Decoding never mutates its input, so any number of goroutines may decode
// the same buffer at once. Iterators, Writers and Encoders are not safe for
// concurrent use; create one per goroutine.
package bson
