// Package encoding provides the byte-level codecs the storage layer
// builds on: fixed-width integers, strings, buffers, and the
// length-framed composite key scheme that lets a single physical
// key/value namespace host many logical stores (package store).
//
// Every encoding here is a pure function pair, serialize/deserialize,
// with no knowledge of the underlying store. Ordering guarantees (which
// encodings produce byte sequences whose lexicographic order matches
// numeric order) are called out per encoding; callers of package store
// must pick key encodings whose byte order matches the order they want
// from iteration.
package encoding

import (
	"encoding/binary"
	"errors"
)

// ErrPrefixSize is returned by PrefixEncoding when the serialized prefix
// component is not exactly the configured width.
var ErrPrefixSize = errors.New("encoding: prefix component has the wrong size")

// Encoding converts a typed value to and from its byte representation.
type Encoding[T any] interface {
	Serialize(v T) []byte
	Deserialize(b []byte) (T, error)
}

// U32BE encodes a uint32 as 4 big-endian bytes. Byte order matches
// numeric order, so this is the encoding to use for store keys that
// must iterate in ascending numeric order (leaf indices, node indices).
var U32BE Encoding[uint32] = u32beEncoding{}

type u32beEncoding struct{}

func (u32beEncoding) Serialize(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func (u32beEncoding) Deserialize(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, errors.New("encoding: U32BE requires exactly 4 bytes")
	}
	return binary.BigEndian.Uint32(b), nil
}

// U32LE encodes a uint32 as 4 little-endian bytes. Byte order does not
// match numeric order; use only where ordering is irrelevant (e.g. the
// otherIndex field embedded inside a node record, per spec §6.2).
var U32LE Encoding[uint32] = u32leEncoding{}

type u32leEncoding struct{}

func (u32leEncoding) Serialize(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func (u32leEncoding) Deserialize(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, errors.New("encoding: U32LE requires exactly 4 bytes")
	}
	return binary.LittleEndian.Uint32(b), nil
}

// U64BE encodes a uint64 as 8 big-endian bytes. Used for counters that
// may exceed 32 bits and for bigint-style values.
var U64BE Encoding[uint64] = u64beEncoding{}

type u64beEncoding struct{}

func (u64beEncoding) Serialize(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func (u64beEncoding) Deserialize(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, errors.New("encoding: U64BE requires exactly 8 bytes")
	}
	return binary.BigEndian.Uint64(b), nil
}

// StringEncoding encodes a string as its raw UTF-8 bytes.
var StringEncoding Encoding[string] = stringEncoding{}

type stringEncoding struct{}

func (stringEncoding) Serialize(v string) []byte { return []byte(v) }
func (stringEncoding) Deserialize(b []byte) (string, error) {
	return string(b), nil
}

// BufferEncoding is the identity encoding: serialize and deserialize are
// both copies of the raw bytes, so stored values are never aliased with
// caller-owned slices.
var BufferEncoding Encoding[[]byte] = bufferEncoding{}

type bufferEncoding struct{}

func (bufferEncoding) Serialize(v []byte) []byte {
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func (bufferEncoding) Deserialize(b []byte) ([]byte, error) {
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// NullableBuffer encodes an optional []byte with a one-byte presence
// flag (0x00 = absent, 0x01 = present) followed by the raw bytes.
var NullableBuffer Encoding[[]byte] = nullableBufferEncoding{}

type nullableBufferEncoding struct{}

func (nullableBufferEncoding) Serialize(v []byte) []byte {
	if v == nil {
		return []byte{0x00}
	}
	out := make([]byte, 1+len(v))
	out[0] = 0x01
	copy(out[1:], v)
	return out
}

func (nullableBufferEncoding) Deserialize(b []byte) ([]byte, error) {
	if len(b) == 0 || b[0] == 0x00 {
		return nil, nil
	}
	out := make([]byte, len(b)-1)
	copy(out, b[1:])
	return out, nil
}

// NullableString encodes an optional string the same way as
// NullableBuffer, distinguishing "" (present, empty) from absent.
var NullableString Encoding[*string] = nullableStringEncoding{}

type nullableStringEncoding struct{}

func (nullableStringEncoding) Serialize(v *string) []byte {
	if v == nil {
		return []byte{0x00}
	}
	out := make([]byte, 1+len(*v))
	out[0] = 0x01
	copy(out[1:], *v)
	return out
}

func (nullableStringEncoding) Deserialize(b []byte) (*string, error) {
	if len(b) == 0 || b[0] == 0x00 {
		return nil, nil
	}
	s := string(b[1:])
	return &s, nil
}
