package wasify_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasify-io/wasify-bridge"
	"github.com/wasify-io/wasify-bridge/internal/utils"
)

func TestNewInstance(t *testing.T) {

	ctx := context.Background()
	runtime := newRuntime(t)

	t.Run("from text", func(t *testing.T) {
		instance, err := runtime.NewInstance(ctx, &wasify.ModuleConfig{
			Name: "calc",
			Wasm: wasify.Wasm{Text: calcWat},
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, instance.ID)
		assert.NoError(t, instance.Close(ctx))
	})

	t.Run("from binary with hash", func(t *testing.T) {
		bin := calcBinary(t)

		hash, err := utils.CalculateHash(bin)
		require.NoError(t, err)

		instance, err := runtime.NewInstance(ctx, &wasify.ModuleConfig{
			Name: "calc",
			Wasm: wasify.Wasm{Binary: bin, Hash: hash},
		})
		require.NoError(t, err)
		assert.True(t, instance.FunctionExists("add"))
		assert.NoError(t, instance.Close(ctx))
	})

	t.Run("instances do not share state", func(t *testing.T) {
		a := newCalcInstance(t, runtime)
		b := newCalcInstance(t, runtime)
		assert.NotEqual(t, a.ID, b.ID)

		require.NoError(t, a.Close(ctx))

		res, err := b.Call(ctx, "add", 1, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Interface())
	})
}

func TestNewInstanceFailures(t *testing.T) {

	ctx := context.Background()
	runtime := newRuntime(t)

	tests := []struct {
		name  string
		wasm  wasify.Wasm
		stage wasify.InstantiationStage
	}{
		{
			name:  "no source",
			wasm:  wasify.Wasm{},
			stage: wasify.StageSource,
		},
		{
			name:  "malformed text",
			wasm:  wasify.Wasm{Text: "(module (func"},
			stage: wasify.StageSource,
		},
		{
			name:  "hash mismatch",
			wasm:  wasify.Wasm{Text: calcWat, Hash: "00"},
			stage: wasify.StageHash,
		},
		{
			name:  "not a module",
			wasm:  wasify.Wasm{Binary: []byte("definitely not wasm")},
			stage: wasify.StageCompile,
		},
		{
			name:  "truncated module",
			wasm:  wasify.Wasm{Binary: calcBinary(t)[:20]},
			stage: wasify.StageCompile,
		},
		{
			name:  "unsatisfied import",
			wasm:  wasify.Wasm{Text: importsWat},
			stage: wasify.StageInstantiate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instance, err := runtime.NewInstance(ctx, &wasify.ModuleConfig{
				Name: tt.name,
				Wasm: tt.wasm,
			})
			assert.Nil(t, instance)
			assert.ErrorIs(t, err, wasify.ErrInstantiation)

			var instErr *wasify.InstantiationError
			require.ErrorAs(t, err, &instErr)
			assert.Equal(t, tt.stage, instErr.Stage)
			assert.Error(t, instErr.Cause)
		})
	}

	t.Run("runtime stays usable", func(t *testing.T) {
		instance := newCalcInstance(t, runtime)
		assert.True(t, instance.FunctionExists("add"))
	})
}

func TestFunctionExists(t *testing.T) {

	instance := newCalcInstance(t, newRuntime(t))

	assert.True(t, instance.FunctionExists("add"))
	assert.True(t, instance.FunctionExists("noop"))
	assert.False(t, instance.FunctionExists("missing_fn"))
	assert.False(t, instance.FunctionExists(""))
	assert.False(t, instance.FunctionExists("ADD"))

	t.Run("unchanged after close", func(t *testing.T) {
		require.NoError(t, instance.Close(context.Background()))
		assert.True(t, instance.FunctionExists("add"))
	})
}

func TestGuestFunctions(t *testing.T) {

	instance := newCalcInstance(t, newRuntime(t))

	var sigs []string
	for _, gf := range instance.GuestFunctions() {
		sigs = append(sigs, gf.String())
	}

	assert.Equal(t, []string{
		"add(i32, i32) -> i32",
		"add64(i64, i64) -> i64",
		"addf32(f32, f32) -> f32",
		"div(i32, i32) -> i32",
		"mulf64(f64, f64) -> f64",
		"neg(i32) -> i32",
		"noop()",
		"pair(i32) -> (i32, i64)",
		"spin(i32) -> i32",
		"trap()",
	}, sigs)
}

func TestInstanceClose(t *testing.T) {

	ctx := context.Background()
	instance := newCalcInstance(t, newRuntime(t))

	require.NoError(t, instance.Close(ctx))
	assert.NoError(t, instance.Close(ctx), "closing twice is a no-op")

	res, err := instance.Call(ctx, "add", 2, 3)
	assert.True(t, res.IsNil())
	assert.ErrorIs(t, err, wasify.ErrClosed)
}

func TestInstanceCloseRuntime(t *testing.T) {

	ctx := context.Background()

	runtime, err := wasify.NewRuntime(ctx, &wasify.RuntimeConfig{
		Runtime:     wasify.RuntimeWazero,
		LogSeverity: wasify.LogError,
	})
	require.NoError(t, err)

	instance := newCalcInstance(t, runtime)
	require.NoError(t, runtime.Close(ctx))

	_, err = instance.Call(ctx, "add", 2, 3)
	assert.ErrorIs(t, err, wasify.ErrClosed)
}

func TestInstanceConcurrentCalls(t *testing.T) {

	ctx := context.Background()
	instance := newCalcInstance(t, newRuntime(t))

	const workers = 16
	const calls = 200

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range calls {
				res, err := instance.Call(ctx, "add", w, n)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, int64(w+n), res.Interface())
			}
		}()
	}
	wg.Wait()
}
