package gvalue

import "errors"

// ErrOverflow is returned by Add/Sub when an int64+int64 operation would
// wrap. Overflow traps by returning an error instead of panicking or
// silently wrapping, so a single
// malformed arithmetic expression fails the query, not the process.
var ErrOverflow = errors.New("gvalue: integer overflow")

// Add implements the add rule: string+string concatenates, int+int
// adds as int (traps on overflow), int+float and float+float widen to
// float, anything else yields null.
func Add(a, b Value) (Value, error) {
	switch {
	case a.Tag == TagString && b.Tag == TagString:
		return StringOf(a.Str + b.Str), nil
	case a.Tag == TagInt && b.Tag == TagInt:
		sum := a.Int + b.Int
		if (b.Int > 0 && sum < a.Int) || (b.Int < 0 && sum > a.Int) {
			return Value{}, ErrOverflow
		}
		return Int(sum), nil
	case a.IsNumeric() && b.IsNumeric():
		return Float(a.AsFloat64() + b.AsFloat64()), nil
	default:
		return Null, nil
	}
}

// Sub implements the sub rule: numeric only, with the same
// int/float promotion as Add; anything else yields null.
func Sub(a, b Value) (Value, error) {
	switch {
	case a.Tag == TagInt && b.Tag == TagInt:
		diff := a.Int - b.Int
		if (b.Int < 0 && diff < a.Int) || (b.Int > 0 && diff > a.Int) {
			return Value{}, ErrOverflow
		}
		return Int(diff), nil
	case a.IsNumeric() && b.IsNumeric():
		return Float(a.AsFloat64() - b.AsFloat64()), nil
	default:
		return Null, nil
	}
}

// Eql implements structural equality with numeric promotion:
// distinct tags that are not both numeric are unequal, null equals only
// null, and numeric values compare by promoted value.
func Eql(a, b Value) Value {
	if a.Tag == TagNull || b.Tag == TagNull {
		return Bool(a.Tag == TagNull && b.Tag == TagNull)
	}
	if a.IsNumeric() && b.IsNumeric() {
		return Bool(a.AsFloat64() == b.AsFloat64())
	}
	if a.Tag != b.Tag {
		return Bool(false)
	}
	switch a.Tag {
	case TagString:
		return Bool(a.Str == b.Str)
	case TagBool:
		return Bool(a.Bln == b.Bln)
	case TagNodeRef, TagEdgeRef, TagID:
		return Bool(a.Ref == b.Ref)
	default:
		return Bool(false)
	}
}
