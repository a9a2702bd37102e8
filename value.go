package wasify

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/wasify-io/wasify-bridge/internal/types"
)

// ValueType represents a WebAssembly value type in a guest function signature.
type ValueType = types.ValueType

// supported value types in params and results
const (
	ValueTypeI32     = types.ValueTypeI32
	ValueTypeI64     = types.ValueTypeI64
	ValueTypeF32     = types.ValueTypeF32
	ValueTypeF64     = types.ValueTypeF64
	ValueTypeV128    = types.ValueTypeV128
	ValueTypeUnknown = types.ValueTypeUnknown
)

// Category is the marshaling category of a host value.
// See types.Classify for which Go types fall into which category.
type Category = types.Category

const (
	CategoryUnknown = types.CategoryUnknown
	CategoryNumber  = types.CategoryNumber
	CategoryBinary  = types.CategoryBinary
	CategoryAtom    = types.CategoryAtom
	CategoryList    = types.CategoryList
	CategoryMap     = types.CategoryMap
	CategoryTuple   = types.CategoryTuple
)

// Atom is a symbolic host value.
type Atom = types.Atom

// Tuple is a fixed-size host value sequence.
type Tuple = types.Tuple

// wazero's api package does not name the vector type yet.
const apiValueTypeV128 api.ValueType = 0x7b

// valueTypeOf maps an engine value type onto ValueType.
func valueTypeOf(t api.ValueType) ValueType {
	switch t {
	case api.ValueTypeI32:
		return ValueTypeI32
	case api.ValueTypeI64:
		return ValueTypeI64
	case api.ValueTypeF32:
		return ValueTypeF32
	case api.ValueTypeF64:
		return ValueTypeF64
	case apiValueTypeV128:
		return ValueTypeV128
	default:
		return ValueTypeUnknown
	}
}

func valueTypesOf(ts []api.ValueType) []ValueType {
	vts := make([]ValueType, len(ts))
	for i, t := range ts {
		vts[i] = valueTypeOf(t)
	}
	return vts
}

// TypedValue is a value in the WebAssembly value domain, encoded the way the
// engine keeps it on the call stack. V128 values use both Lo and Hi.
type TypedValue struct {
	Type ValueType
	Lo   uint64
	Hi   uint64
}

func I32(v int32) TypedValue   { return TypedValue{Type: ValueTypeI32, Lo: api.EncodeI32(v)} }
func I64(v int64) TypedValue   { return TypedValue{Type: ValueTypeI64, Lo: api.EncodeI64(v)} }
func F32(v float32) TypedValue { return TypedValue{Type: ValueTypeF32, Lo: api.EncodeF32(v)} }
func F64(v float64) TypedValue { return TypedValue{Type: ValueTypeF64, Lo: api.EncodeF64(v)} }

func V128(lo, hi uint64) TypedValue {
	return TypedValue{Type: ValueTypeV128, Lo: lo, Hi: hi}
}

// slots is the number of uint64 stack slots a value of type t occupies.
func slots(t ValueType) int {
	if t == ValueTypeV128 {
		return 2
	}
	return 1
}

// Value is what a successful call hands back to the host: either Nil, for
// functions without results, or a number widened from the result type.
type Value struct {
	typ ValueType
	i   int64
	f   float64
}

// Nil is returned by calls to functions that declare no results.
var Nil = Value{}

// IsNil reports whether v is the Nil marker.
func (v Value) IsNil() bool {
	return v.typ == 0
}

// Type returns the WebAssembly type the value was produced from.
// It is zero for Nil.
func (v Value) Type() ValueType {
	return v.typ
}

// Int returns the value of an i32 or i64 result.
func (v Value) Int() (int64, bool) {
	if v.typ != ValueTypeI32 && v.typ != ValueTypeI64 {
		return 0, false
	}
	return v.i, true
}

// Float returns the value of an f32 or f64 result.
func (v Value) Float() (float64, bool) {
	if v.typ != ValueTypeF32 && v.typ != ValueTypeF64 {
		return 0, false
	}
	return v.f, true
}

// Interface returns nil, an int64 or a float64.
func (v Value) Interface() any {
	switch v.typ {
	case ValueTypeI32, ValueTypeI64:
		return v.i
	case ValueTypeF32, ValueTypeF64:
		return v.f
	default:
		return nil
	}
}

func (v Value) String() string {
	if v.IsNil() {
		return "nil"
	}
	return fmt.Sprint(v.Interface())
}
