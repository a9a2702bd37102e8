package wasify_test

import (
	"context"
	_ "embed"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wippyai/wasm-runtime/wasm"
	"github.com/wippyai/wasm-runtime/wat"

	"github.com/wasify-io/wasify-bridge"
)

//go:embed testdata/calc.wat
var calcWat string

//go:embed testdata/imports.wat
var importsWat string

func newRuntime(t *testing.T) wasify.Runtime {
	t.Helper()

	ctx := context.Background()

	runtime, err := wasify.NewRuntime(ctx, &wasify.RuntimeConfig{
		Runtime:     wasify.RuntimeWazero,
		LogSeverity: wasify.LogError,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, runtime.Close(ctx))
	})

	return runtime
}

func newCalcInstance(t *testing.T, runtime wasify.Runtime) *wasify.Instance {
	t.Helper()

	instance, err := runtime.NewInstance(context.Background(), &wasify.ModuleConfig{
		Name: "calc",
		Wasm: wasify.Wasm{Text: calcWat},
	})
	require.NoError(t, err)

	return instance
}

func calcBinary(t *testing.T) []byte {
	t.Helper()

	bin, err := wat.Compile(calcWat)
	require.NoError(t, err)

	return bin
}

// vectorBinary builds a module with v128 in its signatures. The text
// compiler has no SIMD support, so it is assembled directly.
//
//	vec      () -> v128
//	vecparam (v128) -> ()
func vectorBinary() []byte {
	body := []byte{wasm.OpPrefixSIMD, byte(wasm.SimdV128Const)}
	for i := range 16 {
		body = append(body, byte(i))
	}
	body = append(body, wasm.OpEnd)

	m := wasm.Module{
		Types: []wasm.FuncType{
			{Results: []wasm.ValType{wasm.ValV128}},
			{Params: []wasm.ValType{wasm.ValV128}},
		},
		Funcs: []uint32{0, 1},
		Exports: []wasm.Export{
			{Name: "vec", Kind: wasm.KindFunc, Idx: 0},
			{Name: "vecparam", Kind: wasm.KindFunc, Idx: 1},
		},
		Code: []wasm.FuncBody{
			{Code: body},
			{Code: []byte{wasm.OpEnd}},
		},
	}

	return m.Encode()
}
