// Package gvalue implements the dynamically-tagged Value type shared by the
// storage layer and the expression evaluator, along with its canonical
// binary encoding.
//
// Value is deliberately small and comparable-by-content rather than an
// interface{}: callers that need to store a Value in a map key, or compare
// two Values for structural equality, can do so without reflection.
//
// Example:
//
//	v := gvalue.Int(42)
//	enc := gvalue.Encode(v)
//	dec, _ := gvalue.Decode(enc)
//	fmt.Println(gvalue.Eql(v, dec)) // true
package gvalue

import (
	"fmt"
	"math"

	"github.com/orneryd/nornicdb-core/internal/eid"
)

// Tag identifies which variant a Value holds. The numeric values match the
// wire tag bytes in the binary encoding.
type Tag byte

const (
	TagString  Tag = 1
	TagInt     Tag = 2
	TagFloat   Tag = 3
	TagNodeRef Tag = 4
	TagEdgeRef Tag = 5
	TagID      Tag = 6
	TagBool    Tag = 7
	TagNull    Tag = 8
)

func (t Tag) String() string {
	switch t {
	case TagString:
		return "string"
	case TagInt:
		return "int"
	case TagFloat:
		return "float"
	case TagNodeRef:
		return "node_ref"
	case TagEdgeRef:
		return "edge_ref"
	case TagID:
		return "id"
	case TagBool:
		return "bool"
	case TagNull:
		return "null"
	default:
		return fmt.Sprintf("tag(%d)", byte(t))
	}
}

// Value is a tagged union over the eight value variants. Only the
// field matching Tag is meaningful; the others are zero.
type Value struct {
	Tag Tag
	Str string
	Int int64
	Flt float64
	Ref eid.ElementId
	Bln bool
}

// Null is the singleton null value.
var Null = Value{Tag: TagNull}

// StringOf builds a string value. Named StringOf to avoid colliding with the
// Str field.
func StringOf(s string) Value { return Value{Tag: TagString, Str: s} }

// Int builds an int64 value.
func Int(i int64) Value { return Value{Tag: TagInt, Int: i} }

// Float builds a float64 value.
func Float(f float64) Value { return Value{Tag: TagFloat, Flt: f} }

// NodeRef builds a node_ref value pointing at an existing node id.
func NodeRef(id eid.ElementId) Value { return Value{Tag: TagNodeRef, Ref: id} }

// EdgeRef builds an edge_ref value pointing at an existing edge id.
func EdgeRef(id eid.ElementId) Value { return Value{Tag: TagEdgeRef, Ref: id} }

// ID builds a free-standing id value, not tied to any entity.
func ID(id eid.ElementId) Value { return Value{Tag: TagID, Ref: id} }

// Bool builds a boolean value.
func Bool(b bool) Value { return Value{Tag: TagBool, Bln: b} }

// IsNumeric reports whether v is an int or float, the two variants eligible
// for numeric promotion in arithmetic and comparison.
func (v Value) IsNumeric() bool {
	return v.Tag == TagInt || v.Tag == TagFloat
}

// AsFloat64 widens an int or float Value to float64. Only valid when
// IsNumeric is true.
func (v Value) AsFloat64() float64 {
	if v.Tag == TagInt {
		return float64(v.Int)
	}
	return v.Flt
}

// Truthy implements the truthiness rule: false, numeric zero, NaN,
// empty string, and null are falsy; everything else is truthy.
func (v Value) Truthy() bool {
	switch v.Tag {
	case TagNull:
		return false
	case TagBool:
		return v.Bln
	case TagInt:
		return v.Int != 0
	case TagFloat:
		return v.Flt != 0 && !math.IsNaN(v.Flt)
	case TagString:
		return v.Str != ""
	default:
		// node_ref, edge_ref, id: existence of a reference is truthy.
		return true
	}
}

// String renders v for debugging/display; it is not the wire encoding.
func (v Value) String() string {
	switch v.Tag {
	case TagNull:
		return "null"
	case TagBool:
		return fmt.Sprintf("%t", v.Bln)
	case TagInt:
		return fmt.Sprintf("%d", v.Int)
	case TagFloat:
		return fmt.Sprintf("%g", v.Flt)
	case TagString:
		return v.Str
	case TagNodeRef, TagEdgeRef, TagID:
		return v.Ref.String()
	default:
		return "<invalid>"
	}
}
