// Package values implements the typed runtime values of the interpreter:
// i32, i64, f32, f64, and a label pseudo-type.
// It is the sole place source-text numbers become fixed-width host values,
// per the coercion rules in the specification.
package values

import (
	"fmt"
	"math"
)

// Type discriminates the four numeric value types plus a label
// pseudo-type.
type Type byte

const (
	I32 Type = iota
	I64
	F32
	F64
	Label
)

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case Label:
		return "label"
	default:
		return fmt.Sprintf("Type(%d)", byte(t))
	}
}

// ParseType maps a valtype name, e.g. "i32", to a Type. ok is false for any
// unrecognized name.
func ParseType(name string) (t Type, ok bool) {
	switch name {
	case "i32":
		return I32, true
	case "i64":
		return I64, true
	case "f32":
		return F32, true
	case "f64":
		return F64, true
	default:
		return 0, false
	}
}

// Value is a typed runtime value. Each type keeps its payload in its own
// field below (i32, i64, f32, f64); only the field matching Type is
// meaningful.
type Value struct {
	Type Type
	i32  int32
	i64  int64
	f32  float32
	f64  float64
}

// String implements fmt.Stringer, mainly for debug dumps and CLI output.
func (v Value) String() string {
	switch v.Type {
	case I32:
		return fmt.Sprintf("i32:%d", v.i32)
	case I64:
		return fmt.Sprintf("i64:%d", v.i64)
	case F32:
		return fmt.Sprintf("f32:%v", v.f32)
	case F64:
		return fmt.Sprintf("f64:%v", v.f64)
	case Label:
		return fmt.Sprintf("label:%d", v.i32)
	default:
		return "invalid"
	}
}

// I32 returns the i32 payload. It does not check v.Type.
func (v Value) I32() int32 { return v.i32 }

// I64 returns the i64 payload. It does not check v.Type.
func (v Value) I64() int64 { return v.i64 }

// F32 returns the f32 payload. It does not check v.Type.
func (v Value) F32() float32 { return v.f32 }

// F64 returns the f64 payload. It does not check v.Type.
func (v Value) F64() float64 { return v.f64 }

// AsUint32 reinterprets the i32 payload as unsigned, used by unsigned
// comparisons, divisions and shifts.
func (v Value) AsUint32() uint32 { return uint32(v.i32) }

// AsUint64 reinterprets the i64 payload as unsigned.
func (v Value) AsUint64() uint64 { return uint64(v.i64) }

// NewI32 builds an i32 value by wrapping x modulo 2^32, per
// i32.createValue's coercion rule.
func NewI32(x int64) Value {
	return Value{Type: I32, i32: int32(uint32(x))}
}

// NewI64 builds an i64 value, wrapping x modulo 2^64.
func NewI64(x int64) Value {
	return Value{Type: I64, i64: x}
}

// NewF32 builds an f32 value, passing x through as declared.
func NewF32(x float32) Value {
	return Value{Type: F32, f32: x}
}

// NewF64 builds an f64 value, passing x through as declared.
func NewF64(x float64) Value {
	return Value{Type: F64, f64: x}
}

// NewLabel builds a label pseudo-value carrying a branch depth. The
// interpreter's label stack holds label names (ast.ID), not Values.
func NewLabel(depth int32) Value {
	return Value{Type: Label, i32: depth}
}

// CreateValue normalizes a host float64 into the Value of the given type,
// implementing the per-type createValue coercion rules:
//   - i32/i64: truncate toward zero, then wrap modulo 2^32 / 2^64.
//   - f32/f64: pass through (f32 narrows to float32 precision).
//
// x must be finite for integer types; CreateValue does not itself validate
// that — callers working from NumberLiteral values already went through the
// numeric literal decoder, which rejects non-finite text for integer types.
func CreateValue(t Type, x float64) Value {
	switch t {
	case I32, I64:
		// Reduce modulo 2^64 while still a float: converting a float64
		// outside the int64 range straight to int64 is not defined in Go.
		n := math.Mod(math.Trunc(x), 1<<64)
		if n >= 1<<63 {
			n -= 1 << 64
		} else if n < -(1 << 63) {
			n += 1 << 64
		}
		if t == I32 {
			return NewI32(int64(n))
		}
		return NewI64(int64(n))
	case F32:
		return NewF32(float32(x))
	case F64:
		return NewF64(x)
	default:
		panic(fmt.Sprintf("values: CreateValue: unsupported type %s", t))
	}
}
