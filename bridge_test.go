package wasify_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/wasify-io/wasify-bridge"
)

func TestBridge(t *testing.T) {

	ctx := context.Background()
	bridge := wasify.NewBridge(newRuntime(t))

	h, err := bridge.Instantiate(ctx, calcBinary(t))
	require.NoError(t, err)
	assert.NotZero(t, h)
	assert.Equal(t, 1, bridge.Len())

	t.Run("function exists", func(t *testing.T) {
		assert.True(t, bridge.FunctionExists(h, "add"))
		assert.False(t, bridge.FunctionExists(h, "missing_fn"))
		assert.False(t, bridge.FunctionExists(h+100, "add"))
	})

	t.Run("call", func(t *testing.T) {
		res, err := bridge.CallFunction(ctx, h, "add", []any{2, 3})
		require.NoError(t, err)
		assert.Equal(t, int64(5), res.Interface())
	})

	t.Run("call reports host errors", func(t *testing.T) {
		_, err := bridge.CallFunction(ctx, h, "add", []any{"x", 3})
		r := wasify.Describe(err)
		assert.Equal(t, wasify.KindConversion, r.Kind)
		assert.Equal(t, "cannot convert argument #1 to a WebAssembly value, given Binary", r.Message)

		_, err = bridge.CallFunction(ctx, h, "add", []any{2})
		assert.Equal(t, wasify.KindArityMismatch, wasify.Describe(err).Kind)

		_, err = bridge.CallFunction(ctx, h, "missing_fn", nil)
		assert.Equal(t, wasify.KindNotFound, wasify.Describe(err).Kind)
	})

	t.Run("calls do not consume the handle", func(t *testing.T) {
		for range 3 {
			_, err := bridge.CallFunction(ctx, h, "noop", nil)
			require.NoError(t, err)
		}
		assert.Equal(t, 1, bridge.Len())
	})

	t.Run("unknown handle", func(t *testing.T) {
		_, err := bridge.CallFunction(ctx, h+100, "add", []any{2, 3})
		assert.ErrorIs(t, err, wasify.ErrUnknownHandle)
		assert.Equal(t, wasify.KindUnknownHandle, wasify.Describe(err).Kind)

		_, err = bridge.Instance(h + 100)
		assert.ErrorIs(t, err, wasify.ErrUnknownHandle)

		assert.False(t, bridge.Retain(h+100))
		assert.ErrorIs(t, bridge.Release(ctx, h+100), wasify.ErrUnknownHandle)
	})

	t.Run("release", func(t *testing.T) {
		inst, err := bridge.Instance(h)
		require.NoError(t, err)

		require.True(t, bridge.Retain(h))
		require.NoError(t, bridge.Release(ctx, h))

		_, err = inst.Call(ctx, "noop")
		require.NoError(t, err, "instance still has a holder")

		require.NoError(t, bridge.Release(ctx, h))
		assert.Equal(t, 0, bridge.Len())
		assert.False(t, bridge.FunctionExists(h, "add"))

		_, err = inst.Call(ctx, "noop")
		assert.ErrorIs(t, err, wasify.ErrClosed)

		_, err = bridge.CallFunction(ctx, h, "noop", nil)
		assert.ErrorIs(t, err, wasify.ErrUnknownHandle)
	})
}

func TestBridgeInstantiateFailure(t *testing.T) {

	ctx := context.Background()
	bridge := wasify.NewBridge(newRuntime(t))

	h, err := bridge.Instantiate(ctx, []byte{0x00, 0x61, 0x73, 0x6d})
	assert.Zero(t, h)
	assert.ErrorIs(t, err, wasify.ErrInstantiation)
	assert.Equal(t, wasify.KindInstantiation, wasify.Describe(err).Kind)
	assert.Equal(t, 0, bridge.Len())

	h, err = bridge.InstantiateWithConfig(ctx, &wasify.ModuleConfig{
		Name: "imports",
		Wasm: wasify.Wasm{Text: importsWat},
	})
	assert.Zero(t, h)

	var instErr *wasify.InstantiationError
	require.ErrorAs(t, err, &instErr)
	assert.Equal(t, wasify.StageInstantiate, instErr.Stage)
}

func TestBridgeClose(t *testing.T) {

	ctx := context.Background()
	bridge := wasify.NewBridge(newRuntime(t))

	var handles []wasify.Handle
	for range 3 {
		h, err := bridge.Instantiate(ctx, calcBinary(t))
		require.NoError(t, err)
		handles = append(handles, h)
	}

	inst, err := bridge.Instance(handles[0])
	require.NoError(t, err)

	require.NoError(t, bridge.Close(ctx))
	assert.Equal(t, 0, bridge.Len())

	_, err = inst.Call(ctx, "noop")
	assert.ErrorIs(t, err, wasify.ErrClosed)

	for _, h := range handles {
		assert.False(t, bridge.FunctionExists(h, "add"))
	}
}

// Many callers hammer a few instances through the bridge. Each result must
// match its own arguments, which would not hold if calls on one instance
// interleaved.
func TestBridgeConcurrentCalls(t *testing.T) {

	ctx := context.Background()
	bridge := wasify.NewBridge(newRuntime(t))

	const instances = 4
	const callers = 8
	const calls = 100

	handles := make([]wasify.Handle, instances)
	for i := range handles {
		h, err := bridge.InstantiateWithConfig(ctx, &wasify.ModuleConfig{
			Name: fmt.Sprintf("calc-%d", i),
			Wasm: wasify.Wasm{Text: calcWat},
		})
		require.NoError(t, err)
		handles[i] = h
	}

	var g errgroup.Group
	for c := range callers {
		for _, h := range handles {
			g.Go(func() error {
				for n := range calls {
					res, err := bridge.CallFunction(ctx, h, "add64", []any{c, n})
					if err != nil {
						return err
					}
					if got := res.Interface(); got != int64(c+n) {
						return fmt.Errorf("add64(%d, %d) = %v", c, n, got)
					}

					if n%25 != 0 {
						continue
					}
					if _, err := bridge.CallFunction(ctx, h, "trap", nil); err == nil {
						return fmt.Errorf("trap did not fail")
					}
				}
				return nil
			})
		}
	}

	require.NoError(t, g.Wait())
	assert.Equal(t, instances, bridge.Len())
	require.NoError(t, bridge.Close(ctx))
}

// Releasing a handle while calls are in flight must not close the instance
// under them.
func TestBridgeReleaseDuringCalls(t *testing.T) {

	ctx := context.Background()
	bridge := wasify.NewBridge(newRuntime(t))

	h, err := bridge.Instantiate(ctx, calcBinary(t))
	require.NoError(t, err)

	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			for n := range 50 {
				_, err := bridge.CallFunction(ctx, h, "add", []any{n, 1})
				switch {
				case err == nil:
				case wasify.Describe(err).Kind == wasify.KindUnknownHandle:
					return nil
				default:
					return err
				}
			}
			return nil
		})
	}

	require.NoError(t, bridge.Release(ctx, h))
	require.NoError(t, g.Wait())
	assert.Equal(t, 0, bridge.Len())
}
