package wasify

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wasify-io/wasify-bridge/internal/types"
)

// toVM converts the host value given at 1-based position into a value of the
// expected WebAssembly type.
//
// Dispatch is on the pair (expected type, category of given). Only numbers
// convert, and only when they fit the declared type exactly, so the same host
// number always resolves against the signature and never against its own Go
// type.
func toVM(expected ValueType, given any, position int) (TypedValue, *ConversionError) {

	category := types.Classify(given)

	incompatible := &ConversionError{
		Position: position,
		Expected: expected,
		Observed: category,
		Reason:   ReasonIncompatible,
	}

	if category != types.CategoryNumber {
		return TypedValue{}, incompatible
	}

	notRepresentable := &ConversionError{
		Position: position,
		Expected: expected,
		Observed: category,
		Reason:   ReasonNotRepresentable,
	}

	n, ok := types.NumberOf(given)
	if !ok {
		return TypedValue{}, notRepresentable
	}

	switch expected {
	case ValueTypeI32:
		if v, ok := n.Int32(); ok {
			return I32(v), nil
		}
	case ValueTypeI64:
		if v, ok := n.Int64(); ok {
			return I64(v), nil
		}
	case ValueTypeF32:
		if v, ok := n.Float32(); ok {
			return F32(v), nil
		}
	case ValueTypeF64:
		if v, ok := n.Float64(); ok {
			return F64(v), nil
		}
	default:
		// v128 and reference parameters have no host representation.
		return TypedValue{}, incompatible
	}

	return TypedValue{}, notRepresentable
}

// fromVM widens a scalar result into a host Value. Callers must intercept
// V128 results before getting here.
func fromVM(tv TypedValue) Value {
	switch tv.Type {
	case ValueTypeI32:
		return Value{typ: ValueTypeI32, i: int64(api.DecodeI32(tv.Lo))}
	case ValueTypeI64:
		return Value{typ: ValueTypeI64, i: int64(tv.Lo)}
	case ValueTypeF32:
		return Value{typ: ValueTypeF32, f: float64(api.DecodeF32(tv.Lo))}
	case ValueTypeF64:
		return Value{typ: ValueTypeF64, f: api.DecodeF64(tv.Lo)}
	default:
		return Nil
	}
}
