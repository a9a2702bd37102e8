package types

import (
	"math"
	"math/big"
)

// Largest integers float32 and float64 hold without rounding.
const (
	maxExactF32 = 1 << 24
	maxExactF64 = 1 << 53
)

// Number is the normalised form of a numeric host value: either an integer
// (kept in big only when it does not fit int64) or a float.
type Number struct {
	isFloat bool
	i       int64
	big     *big.Int
	f       float64
}

// NumberOf normalises a host value of CategoryNumber.
// It returns false for anything else.
func NumberOf(data any) (Number, bool) {

	switch v := data.(type) {
	case int:
		return Number{i: int64(v)}, true
	case int8:
		return Number{i: int64(v)}, true
	case int16:
		return Number{i: int64(v)}, true
	case int32:
		return Number{i: int64(v)}, true
	case int64:
		return Number{i: v}, true
	case uint:
		return fromUint64(uint64(v)), true
	case uint8:
		return Number{i: int64(v)}, true
	case uint16:
		return Number{i: int64(v)}, true
	case uint32:
		return Number{i: int64(v)}, true
	case uint64:
		return fromUint64(v), true
	case float32:
		return Number{isFloat: true, f: float64(v)}, true
	case float64:
		return Number{isFloat: true, f: v}, true
	case *big.Int:
		if v == nil {
			return Number{}, false
		}
		if v.IsInt64() {
			return Number{i: v.Int64()}, true
		}
		return Number{big: new(big.Int).Set(v)}, true
	default:
		return Number{}, false
	}
}

func fromUint64(v uint64) Number {
	if v > math.MaxInt64 {
		return Number{big: new(big.Int).SetUint64(v)}
	}
	return Number{i: int64(v)}
}

// Int32 returns the number if it is an integer that fits int32 exactly.
func (n Number) Int32() (int32, bool) {
	if n.isFloat || n.big != nil {
		return 0, false
	}
	if n.i < math.MinInt32 || n.i > math.MaxInt32 {
		return 0, false
	}
	return int32(n.i), true
}

// Int64 returns the number if it is an integer that fits int64 exactly.
func (n Number) Int64() (int64, bool) {
	if n.isFloat || n.big != nil {
		return 0, false
	}
	return n.i, true
}

// Float32 returns the number as a float32. Floats must lie within the
// float32 range (NaN and infinities pass through); integers must be exactly
// representable.
func (n Number) Float32() (float32, bool) {
	if n.isFloat {
		if math.IsNaN(n.f) || math.IsInf(n.f, 0) {
			return float32(n.f), true
		}
		if math.Abs(n.f) > math.MaxFloat32 {
			return 0, false
		}
		return float32(n.f), true
	}
	if n.big != nil || n.i < -maxExactF32 || n.i > maxExactF32 {
		return 0, false
	}
	return float32(n.i), true
}

// Float64 returns the number as a float64. Integers must be exactly
// representable.
func (n Number) Float64() (float64, bool) {
	if n.isFloat {
		return n.f, true
	}
	if n.big != nil || n.i < -maxExactF64 || n.i > maxExactF64 {
		return 0, false
	}
	return float64(n.i), true
}
