package wasify

import (
	"context"
	"strings"

	"github.com/tetratelabs/wazero/api"
)

// GuestFunction is a function exported by an instance, with its signature.
// It is resolved once at instantiation and never changes afterwards.
type GuestFunction struct {
	Name    string
	Params  []ValueType
	Results []ValueType

	fn       api.Function
	instance *Instance
}

func newGuestFunction(inst *Instance, name string, def api.FunctionDefinition, fn api.Function) *GuestFunction {
	return &GuestFunction{
		Name:     name,
		Params:   valueTypesOf(def.ParamTypes()),
		Results:  valueTypesOf(def.ResultTypes()),
		fn:       fn,
		instance: inst,
	}
}

// Invoke calls the function on its instance. It is shorthand for
// instance.Call(ctx, gf.Name, args...).
//
// Example usage:
//
//	add, err := instance.GuestFunction("add")
//	if err != nil {
//		return err
//	}
//	sum, err := add.Invoke(ctx, 2, 3)
func (gf *GuestFunction) Invoke(ctx context.Context, args ...any) (Value, error) {
	return gf.instance.Call(ctx, gf.Name, args...)
}

// String renders the signature, e.g. "add(i32, i32) -> i32".
func (gf *GuestFunction) String() string {
	var b strings.Builder

	b.WriteString(gf.Name)
	b.WriteByte('(')
	for i, p := range gf.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteByte(')')

	switch len(gf.Results) {
	case 0:
	case 1:
		b.WriteString(" -> ")
		b.WriteString(gf.Results[0].String())
	default:
		b.WriteString(" -> (")
		for i, r := range gf.Results {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(r.String())
		}
		b.WriteByte(')')
	}

	return b.String()
}

// stackSize is the number of uint64 slots CallWithStack needs: room for
// the params going in and the results coming out.
func (gf *GuestFunction) stackSize() int {
	var in, out int
	for _, p := range gf.Params {
		in += slots(p)
	}
	for _, r := range gf.Results {
		out += slots(r)
	}
	return max(in, out)
}
