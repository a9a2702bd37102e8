package wasify

import (
	"context"
	"fmt"
)

// Call invokes the exported function name with host values as arguments.
//
// The call runs through a fixed sequence and stops at the first failure:
//
//	resolve -> arity check -> convert args -> invoke -> encode result
//
// Every failure is returned as a *CallError; nothing panics. A function
// without results yields Nil. Only the first of several results is returned,
// and a v128 first result is refused with KindUnsupportedReturnType.
//
// There is no cancellation: once invocation begins the call runs to
// completion regardless of ctx.
func (i *Instance) Call(ctx context.Context, name string, args ...any) (Value, error) {

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed || i.mod.IsClosed() {
		return Nil, &CallError{Kind: KindClosed, Function: name}
	}

	gf, err := i.GuestFunction(name)
	if err != nil {
		i.log.Warn("exported function does not exist", "function", name, "module", i.name, "instance", i.ID)
		return Nil, err
	}

	if len(args) != len(gf.Params) {
		return Nil, &CallError{
			Kind:     KindArityMismatch,
			Function: name,
			Expected: len(gf.Params),
			Given:    len(args),
		}
	}

	stack, convErr := gf.stack(args)
	if convErr != nil {
		i.log.Debug(convErr.Error(), "function", name, "module", i.name, "instance", i.ID)
		return Nil, &CallError{Kind: KindConversion, Function: name, Conversion: convErr}
	}

	i.log.Debug("calling guest function", "function", name, "module", i.name, "instance", i.ID, "params", args)

	err = gf.invoke(ctx, stack)
	if err != nil {
		diagnostic := trapDiagnostic(err)
		i.log.Error(diagnostic, "function", name, "module", i.name, "instance", i.ID)
		return Nil, &CallError{Kind: KindRuntimeTrap, Function: name, Diagnostic: diagnostic}
	}

	if len(gf.Results) == 0 {
		return Nil, nil
	}

	switch rt := gf.Results[0]; rt {
	case ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64:
		return fromVM(TypedValue{Type: rt, Lo: stack[0]}), nil
	default:
		return Nil, &CallError{Kind: KindUnsupportedReturnType, Function: name, ResultType: rt}
	}
}

// stack converts args left to right into a call stack for CallWithStack.
// Conversion is pure, so failing half way leaves nothing to undo.
func (gf *GuestFunction) stack(args []any) ([]uint64, *ConversionError) {

	stack := make([]uint64, gf.stackSize())

	// Only scalars convert, so every param takes exactly one slot.
	for n, expected := range gf.Params {
		tv, err := toVM(expected, args[n], n+1)
		if err != nil {
			return nil, err
		}
		stack[n] = tv.Lo
	}

	return stack, nil
}

// invoke runs the function on the engine. Engine traps come back as errors;
// a panic escaping the engine is turned into one too.
func (gf *GuestFunction) invoke(ctx context.Context, stack []uint64) (err error) {

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during call: %v", r)
		}
	}()

	return gf.fn.CallWithStack(ctx, stack)
}
