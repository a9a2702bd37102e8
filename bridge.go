package wasify

import (
	"context"
	"errors"
	"fmt"

	"github.com/wasify-io/wasify-bridge/internal/handle"
)

// Handle is a host-visible reference to an instance owned by a Bridge.
type Handle uint64

// Bridge exposes instances to a host through integer handles.
//
// A handle starts with one holder. Retain adds holders and Release drops
// them; the instance is closed when the last holder releases it. A call in
// flight counts as a holder, so releasing a handle never closes an instance
// under a running call.
type Bridge struct {
	runtime   Runtime
	instances *handle.Table[*Instance]
}

func NewBridge(runtime Runtime) *Bridge {
	return &Bridge{
		runtime:   runtime,
		instances: handle.NewTable[*Instance](),
	}
}

// Instantiate compiles and instantiates raw module bytes.
func (b *Bridge) Instantiate(ctx context.Context, binary []byte) (Handle, error) {
	return b.InstantiateWithConfig(ctx, &ModuleConfig{Wasm: Wasm{Binary: binary}})
}

// InstantiateWithConfig is Instantiate with full module configuration.
func (b *Bridge) InstantiateWithConfig(ctx context.Context, moduleConfig *ModuleConfig) (Handle, error) {
	inst, err := b.runtime.NewInstance(ctx, moduleConfig)
	if err != nil {
		return 0, err
	}
	return Handle(b.instances.Insert(inst)), nil
}

// FunctionExists reports whether the instance behind h exports name.
// Unknown handles export nothing.
func (b *Bridge) FunctionExists(h Handle, name string) bool {
	inst, ok := b.instances.Load(uint64(h))
	if !ok {
		return false
	}
	return inst.FunctionExists(name)
}

// Instance returns the instance behind h.
func (b *Bridge) Instance(h Handle) (*Instance, error) {
	inst, ok := b.instances.Load(uint64(h))
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return inst, nil
}

// CallFunction calls name on the instance behind h. See Instance.Call.
//
// The call holds the instance for its whole duration. If it turns out to be
// the last holder, the instance is closed afterwards; a failure to close is
// logged by Instance.Close and does not change the call's outcome.
func (b *Bridge) CallFunction(ctx context.Context, h Handle, name string, args []any) (Value, error) {
	ref, ok := b.instances.Acquire(uint64(h))
	if !ok {
		return Nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}

	inst := ref.Value()
	res, err := inst.Call(ctx, name, args...)

	if ref.Release() {
		_ = inst.Close(ctx)
	}

	return res, err
}

// Retain adds a holder to h. It returns false once h has been released
// by its last holder.
func (b *Bridge) Retain(h Handle) bool {
	_, ok := b.instances.Retain(uint64(h))
	return ok
}

// Release drops a holder from h and closes the instance if it was the last.
func (b *Bridge) Release(ctx context.Context, h Handle) error {
	inst, last, ok := b.instances.Release(uint64(h))
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	if last {
		return inst.Close(ctx)
	}
	return nil
}

// Len returns the number of live handles.
func (b *Bridge) Len() int {
	return b.instances.Len()
}

// Close closes every instance still held by the bridge. The runtime is left
// open; it belongs to the caller.
func (b *Bridge) Close(ctx context.Context) error {
	var errs []error
	for _, inst := range b.instances.Drain() {
		errs = append(errs, inst.Close(ctx))
	}
	return errors.Join(errs...)
}
