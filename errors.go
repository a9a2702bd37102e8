package wasify

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind tags every failure the bridge reports.
type ErrorKind uint8

const (
	KindInstantiation ErrorKind = iota + 1
	KindNotFound
	KindArityMismatch
	KindConversion
	KindRuntimeTrap
	KindUnsupportedReturnType
	KindClosed
	KindUnknownHandle
)

func (k ErrorKind) String() string {
	switch k {
	case KindInstantiation:
		return "instantiation_error"
	case KindNotFound:
		return "not_found"
	case KindArityMismatch:
		return "arity_mismatch"
	case KindConversion:
		return "conversion_error"
	case KindRuntimeTrap:
		return "runtime_trap"
	case KindUnsupportedReturnType:
		return "unsupported_return_type"
	case KindClosed:
		return "closed"
	case KindUnknownHandle:
		return "unknown_handle"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against the structured errors below.
var (
	ErrInstantiation         = errors.New("could not instantiate module")
	ErrNotFound              = errors.New("function not found")
	ErrArityMismatch         = errors.New("number of params does not match")
	ErrConversion            = errors.New("cannot convert argument")
	ErrRuntimeTrap           = errors.New("runtime error")
	ErrUnsupportedReturnType = errors.New("unsupported return type")
	ErrClosed                = errors.New("instance is closed")
	ErrUnknownHandle         = errors.New("unknown instance handle")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInstantiation:
		return ErrInstantiation
	case KindNotFound:
		return ErrNotFound
	case KindArityMismatch:
		return ErrArityMismatch
	case KindConversion:
		return ErrConversion
	case KindRuntimeTrap:
		return ErrRuntimeTrap
	case KindUnsupportedReturnType:
		return ErrUnsupportedReturnType
	case KindClosed:
		return ErrClosed
	case KindUnknownHandle:
		return ErrUnknownHandle
	default:
		return nil
	}
}

// InstantiationStage says how far instantiation got before failing.
type InstantiationStage string

const (
	StageSource      InstantiationStage = "source"
	StageHash        InstantiationStage = "hash"
	StageCompile     InstantiationStage = "compile"
	StageInstantiate InstantiationStage = "instantiate"
)

// InstantiationError is returned when module bytes could not be turned into
// a live instance. It is fatal to that attempt only.
type InstantiationError struct {
	Stage InstantiationStage
	Cause error
}

func (e *InstantiationError) Error() string {
	msg := fmt.Sprintf("could not instantiate module at %s stage", e.Stage)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *InstantiationError) Unwrap() error {
	return e.Cause
}

func (e *InstantiationError) Is(target error) bool {
	return target == ErrInstantiation
}

// ConversionReason distinguishes a number that does not fit the declared
// parameter type from a value that cannot be a WebAssembly value at all.
type ConversionReason uint8

const (
	ReasonNotRepresentable ConversionReason = iota + 1
	ReasonIncompatible
)

// ConversionError describes a single argument that failed to convert.
// Position is 1-based.
type ConversionError struct {
	Position int
	Expected ValueType
	Observed Category
	Reason   ConversionReason
}

func (e *ConversionError) Error() string {
	if e.Reason == ReasonNotRepresentable {
		return fmt.Sprintf("cannot convert argument #%d to a WebAssembly %s value", e.Position, e.Expected)
	}
	return fmt.Sprintf("cannot convert argument #%d to a WebAssembly value, given %s", e.Position, e.Observed)
}

func (e *ConversionError) Is(target error) bool {
	return target == ErrConversion
}

// CallError is returned by Instance.Call for every failed call. Only the
// fields relevant to Kind are set.
type CallError struct {
	Kind     ErrorKind
	Function string

	// KindArityMismatch
	Expected int
	Given    int

	// KindConversion
	Conversion *ConversionError

	// KindRuntimeTrap
	Diagnostic string

	// KindUnsupportedReturnType
	ResultType ValueType
}

func (e *CallError) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("function %q not found", e.Function)
	case KindArityMismatch:
		return fmt.Sprintf("number of params does not match: function %q expects %d, given %d", e.Function, e.Expected, e.Given)
	case KindConversion:
		if e.Conversion != nil {
			return e.Conversion.Error()
		}
		return ErrConversion.Error()
	case KindRuntimeTrap:
		return fmt.Sprintf("runtime error: %s", e.Diagnostic)
	case KindUnsupportedReturnType:
		return fmt.Sprintf("unable to return %s type from function %q", e.ResultType, e.Function)
	case KindClosed:
		return ErrClosed.Error()
	default:
		return fmt.Sprintf("call to %q failed (%s)", e.Function, e.Kind)
	}
}

// Unwrap exposes the ConversionError, so errors.As reaches it.
func (e *CallError) Unwrap() error {
	if e.Conversion != nil {
		return e.Conversion
	}
	return nil
}

func (e *CallError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Report is the rendering of a bridge error handed to a host: a stable kind
// tag plus a human-readable message.
type Report struct {
	Kind    ErrorKind
	Message string
}

// Describe renders err for a host. A nil error yields the zero Report.
// Errors not produced by the bridge keep their own message with a zero Kind.
func Describe(err error) Report {
	if err == nil {
		return Report{}
	}

	var (
		callErr *CallError
		convErr *ConversionError
		instErr *InstantiationError
	)

	switch {
	case errors.As(err, &callErr):
		return Report{Kind: callErr.Kind, Message: callErr.Error()}
	case errors.As(err, &convErr):
		return Report{Kind: KindConversion, Message: convErr.Error()}
	case errors.As(err, &instErr):
		return Report{Kind: KindInstantiation, Message: instErr.Error()}
	case errors.Is(err, ErrUnknownHandle):
		return Report{Kind: KindUnknownHandle, Message: err.Error()}
	case errors.Is(err, ErrClosed):
		return Report{Kind: KindClosed, Message: err.Error()}
	default:
		return Report{Message: err.Error()}
	}
}

// trapDiagnostic keeps the first line of an engine error; wazero appends a
// wasm stack trace after it.
func trapDiagnostic(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}

