// Codec: the canonical big-endian binary encoding for Value, used both for
// persistence (storage layer payloads) and for anything crossing the wire
// to a client. The byte layout is an external contract and does not follow
// any third-party serialization format, so it is implemented directly on
// encoding/binary rather than reaching for a library (see DESIGN.md).
package gvalue

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/orneryd/nornicdb-core/internal/eid"
)

// ErrInvalidTag is returned when decoding encounters an unrecognized tag
// byte.
var ErrInvalidTag = errors.New("gvalue: invalid value tag")

// ErrCorruption is returned when decoding runs out of input before the
// payload implied by a valid tag (and, for strings, its length prefix) is
// satisfied.
var ErrCorruption = errors.New("gvalue: corrupt or truncated encoding")

// Encode serializes v into its tag-byte-plus-payload form.
func Encode(v Value) []byte {
	switch v.Tag {
	case TagString:
		return encodeTagAndBytes(byte(TagString), []byte(v.Str))
	case TagInt:
		buf := make([]byte, 9)
		buf[0] = byte(TagInt)
		binary.BigEndian.PutUint64(buf[1:], uint64(v.Int))
		return buf
	case TagFloat:
		buf := make([]byte, 9)
		buf[0] = byte(TagFloat)
		binary.BigEndian.PutUint64(buf[1:], math.Float64bits(v.Flt))
		return buf
	case TagNodeRef, TagEdgeRef, TagID:
		buf := make([]byte, 1+eid.Size)
		buf[0] = byte(v.Tag)
		copy(buf[1:], v.Ref.Bytes())
		return buf
	case TagBool:
		b := byte(0)
		if v.Bln {
			b = 1
		}
		return []byte{byte(TagBool), b}
	case TagNull:
		return []byte{byte(TagNull)}
	default:
		panic(fmt.Sprintf("gvalue: Encode called on invalid tag %d", v.Tag))
	}
}

func encodeTagAndBytes(tag byte, payload []byte) []byte {
	buf := make([]byte, 1+4+len(payload))
	buf[0] = tag
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(payload)))
	copy(buf[5:], payload)
	return buf
}

// Decode parses the tag-byte-plus-payload encoding produced by Encode.
// Decoding is strict: an unrecognized tag byte is ErrInvalidTag, and a
// buffer too short for its tag's payload is ErrCorruption.
func Decode(data []byte) (Value, error) {
	v, _, err := decodeSized(data)
	return v, err
}

// decodeSized is Decode plus the number of bytes of data consumed, so
// callers walking a concatenated sequence of encoded values (property
// maps) don't need to re-encode a value just to learn its width.
func decodeSized(data []byte) (Value, int, error) {
	if len(data) < 1 {
		return Value{}, 0, ErrCorruption
	}
	tag := Tag(data[0])
	rest := data[1:]

	switch tag {
	case TagString:
		s, consumed, err := decodeLengthPrefixed(rest)
		if err != nil {
			return Value{}, 0, err
		}
		return StringOf(string(s)), 1 + consumed, nil
	case TagInt:
		if len(rest) < 8 {
			return Value{}, 0, ErrCorruption
		}
		return Int(int64(binary.BigEndian.Uint64(rest))), 1 + 8, nil
	case TagFloat:
		if len(rest) < 8 {
			return Value{}, 0, ErrCorruption
		}
		return Float(math.Float64frombits(binary.BigEndian.Uint64(rest))), 1 + 8, nil
	case TagNodeRef, TagEdgeRef, TagID:
		if len(rest) < eid.Size {
			return Value{}, 0, ErrCorruption
		}
		id, err := eid.FromBytes(rest[:eid.Size])
		if err != nil {
			return Value{}, 0, fmt.Errorf("gvalue: decoding ref: %w", err)
		}
		return Value{Tag: tag, Ref: id}, 1 + eid.Size, nil
	case TagBool:
		if len(rest) < 1 {
			return Value{}, 0, ErrCorruption
		}
		return Bool(rest[0] != 0), 1 + 1, nil
	case TagNull:
		return Null, 1, nil
	default:
		return Value{}, 0, ErrInvalidTag
	}
}

// decodeLengthPrefixed reads a 4-byte big-endian length prefix followed by
// that many bytes, returning the payload and the number of bytes consumed
// (prefix + payload).
func decodeLengthPrefixed(data []byte) ([]byte, int, error) {
	if len(data) < 4 {
		return nil, 0, ErrCorruption
	}
	n := int(binary.BigEndian.Uint32(data[:4]))
	if n < 0 || len(data) < 4+n {
		return nil, 0, ErrCorruption
	}
	return data[4 : 4+n], 4 + n, nil
}

// EncodeStringSet encodes a set of labels as a 4-byte count followed by
// that many length-prefixed strings.
func EncodeStringSet(labels []string) []byte {
	var out []byte
	count := make([]byte, 4)
	binary.BigEndian.PutUint32(count, uint32(len(labels)))
	out = append(out, count...)
	for _, l := range labels {
		out = append(out, lengthPrefixed([]byte(l))...)
	}
	return out
}

// DecodeStringSet decodes the format written by EncodeStringSet, returning
// the labels and the number of bytes consumed.
func DecodeStringSet(data []byte) ([]string, int, error) {
	if len(data) < 4 {
		return nil, 0, ErrCorruption
	}
	n := int(binary.BigEndian.Uint32(data[:4]))
	off := 4
	labels := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s, consumed, err := decodeLengthPrefixed(data[off:])
		if err != nil {
			return nil, 0, err
		}
		labels = append(labels, string(s))
		off += consumed
	}
	return labels, off, nil
}

// EncodeProperties encodes an ordered property map as a 4-byte count
// followed by that many (length-prefixed key, tagged value) pairs. Order is the caller-supplied key order (insertion order).
func EncodeProperties(keys []string, values map[string]Value) []byte {
	var out []byte
	count := make([]byte, 4)
	binary.BigEndian.PutUint32(count, uint32(len(keys)))
	out = append(out, count...)
	for _, k := range keys {
		out = append(out, lengthPrefixed([]byte(k))...)
		out = append(out, Encode(values[k])...)
	}
	return out
}

// DecodeProperties decodes the format written by EncodeProperties,
// returning the keys in their stored order, the value map, and the number
// of bytes consumed.
func DecodeProperties(data []byte) ([]string, map[string]Value, int, error) {
	if len(data) < 4 {
		return nil, nil, 0, ErrCorruption
	}
	n := int(binary.BigEndian.Uint32(data[:4]))
	off := 4
	keys := make([]string, 0, n)
	values := make(map[string]Value, n)
	for i := 0; i < n; i++ {
		k, consumed, err := decodeLengthPrefixed(data[off:])
		if err != nil {
			return nil, nil, 0, err
		}
		off += consumed
		v, vConsumed, err := decodeSized(data[off:])
		if err != nil {
			return nil, nil, 0, err
		}
		off += vConsumed
		key := string(k)
		keys = append(keys, key)
		values[key] = v
	}
	return keys, values, off, nil
}

func lengthPrefixed(b []byte) []byte {
	buf := make([]byte, 4+len(b))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(b)))
	copy(buf[4:], b)
	return buf
}
