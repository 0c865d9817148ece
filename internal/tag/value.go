// internal/tag/value.go
package tag

import (
	"math"
	"strconv"
	"time"
)

// ValueKind discriminates the decoded representations.
type ValueKind uint8

const (
	ValueInvalid ValueKind = iota
	ValueBool
	ValueInt
	ValueFloat
)

// Value is one decoded signal value.
// Exactly one of the payload fields is used depending on Kind.
type Value struct {
	Kind  ValueKind
	Bool  bool
	Int   int64
	Float float64
}

func BoolValue(b bool) Value     { return Value{Kind: ValueBool, Bool: b} }
func IntValue(n int64) Value     { return Value{Kind: ValueInt, Int: n} }
func FloatValue(f float64) Value { return Value{Kind: ValueFloat, Float: f} }

// Float64 converts the value for charting. Bools map to 0/1.
// ok is false for invalid values.
func (v Value) Float64() (float64, bool) {
	switch v.Kind {
	case ValueBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	case ValueInt:
		return float64(v.Int), true
	case ValueFloat:
		return v.Float, true
	}
	return 0, false
}

// MarshalJSON encodes the value as a bare scalar.
// Invalid values, NaN and Inf encode as null: JSON has no spelling for them.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueBool:
		return strconv.AppendBool(nil, v.Bool), nil
	case ValueInt:
		return strconv.AppendInt(nil, v.Int, 10), nil
	case ValueFloat:
		if math.IsNaN(v.Float) || math.IsInf(v.Float, 0) {
			return []byte("null"), nil
		}
		return strconv.AppendFloat(nil, v.Float, 'g', -1, 64), nil
	}
	return []byte("null"), nil
}

// Sample is one decoded reading at one point in time.
type Sample struct {
	At    time.Time
	Value Value
}

// Valid reports whether the sample carries a decoded value.
func (s Sample) Valid() bool { return s.Value.Kind != ValueInvalid }
