package types

import (
	"math/big"
)

// ValueType is an enumeration of the WebAssembly value types a guest
// function signature can carry.
type ValueType uint8

// These constants represent the possible types of function parameters and results.
const (
	ValueTypeI32 ValueType = iota + 1
	ValueTypeI64
	ValueTypeF32
	ValueTypeF64
	ValueTypeV128
	// ValueTypeUnknown covers anything the engine reports that is not listed above,
	// e.g. reference types.
	ValueTypeUnknown
)

func (vt ValueType) String() string {
	switch vt {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeV128:
		return "v128"
	default:
		return "unknown"
	}
}

// Category is the marshaling category of a host value.
type Category uint8

const (
	CategoryUnknown Category = iota
	CategoryNumber
	CategoryBinary
	CategoryAtom
	CategoryList
	CategoryMap
	CategoryTuple
)

func (c Category) String() string {
	switch c {
	case CategoryNumber:
		return "Number"
	case CategoryBinary:
		return "Binary"
	case CategoryAtom:
		return "Atom"
	case CategoryList:
		return "List"
	case CategoryMap:
		return "Map"
	case CategoryTuple:
		return "Tuple"
	default:
		return "Unknown"
	}
}

// Atom is a symbolic host value.
type Atom string

// Tuple is a fixed-size host value sequence, as opposed to a list.
type Tuple []any

// Classify determines the marshaling category of a host value.
//
// The set of Go types recognised here is closed; everything else is
// CategoryUnknown.
func Classify(data any) Category {

	switch data.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, *big.Int:
		return CategoryNumber
	case []byte, string:
		return CategoryBinary
	case Atom, bool, nil:
		return CategoryAtom
	case []any:
		return CategoryList
	case map[string]any, map[any]any:
		return CategoryMap
	case Tuple:
		return CategoryTuple
	default:
		return CategoryUnknown
	}
}
