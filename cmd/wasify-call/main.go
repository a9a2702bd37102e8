package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	wasify "github.com/wasify-io/wasify-bridge"
)

func main() {
	var (
		wasmFile = flag.String("wasm", "", "Path to a .wasm or .wat module")
		funcName = flag.String("func", "", "Exported function to call")
		hash     = flag.String("hash", "", "Expected SHA-256 of the module binary (hex)")
		list     = flag.Bool("list", false, "List exported functions and exit")
		logLevel = flag.String("log", "warn", "Log level: debug, info, warn, error")
		cacheDir = flag.String("cache", "", "Directory for the compilation cache")
		memLimit uint32
	)
	flag.Func("memory-limit", fmt.Sprintf("Memory limit per instance in 64KiB pages, at most %d (default: engine limit)", wasify.MaxMemoryLimitPages), func(s string) (err error) {
		memLimit, err = parsePages(s)
		return err
	})
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wasify-call -wasm <module.wasm|module.wat> -func <name> [arg ...]")
		fmt.Fprintln(os.Stderr, "       wasify-call -wasm <module.wasm|module.wat> -list")
		fmt.Fprintln(os.Stderr, "\nEach arg is a JSON value; anything that is not valid JSON is passed as a string.")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *wasmFile == "" || (*funcName == "" && !*list) {
		flag.Usage()
		os.Exit(2)
	}

	cfg := options{
		wasmFile: *wasmFile,
		funcName: *funcName,
		hash:     *hash,
		list:     *list,
		severity: parseSeverity(*logLevel),
		memLimit: memLimit,
		cacheDir: *cacheDir,
		args:     flag.Args(),
	}

	if err := run(context.Background(), cfg, os.Stdout); err != nil {
		os.Exit(1)
	}
}

type options struct {
	wasmFile string
	funcName string
	hash     string
	list     bool
	severity wasify.LogSeverity
	memLimit uint32
	cacheDir string
	args     []string
}

// resultOutput is printed for a successful call. Result is null for
// functions without results.
type resultOutput struct {
	Result any    `json:"result"`
	Type   string `json:"type,omitempty"`
}

// errorOutput is printed for any failure.
type errorOutput struct {
	Error errorReport `json:"error"`
}

type errorReport struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func run(ctx context.Context, opts options, w io.Writer) error {

	wasm, err := readModule(opts.wasmFile)
	if err != nil {
		return report(w, err)
	}
	wasm.Hash = opts.hash

	runtime, err := wasify.NewRuntime(ctx, &wasify.RuntimeConfig{
		Runtime:             wasify.RuntimeWazero,
		LogSeverity:         opts.severity,
		MemoryLimitPages:    opts.memLimit,
		CompilationCacheDir: opts.cacheDir,
	})
	if err != nil {
		return report(w, err)
	}
	defer runtime.Close(ctx)

	instance, err := runtime.NewInstance(ctx, &wasify.ModuleConfig{
		Name: filepath.Base(opts.wasmFile),
		Wasm: wasm,
	})
	if err != nil {
		return report(w, err)
	}
	defer instance.Close(ctx)

	if opts.list {
		for _, gf := range instance.GuestFunctions() {
			fmt.Fprintln(w, gf.String())
		}
		return nil
	}

	args := make([]any, len(opts.args))
	for i, raw := range opts.args {
		args[i] = parseArg(raw)
	}

	res, err := instance.Call(ctx, opts.funcName, args...)
	if err != nil {
		return report(w, err)
	}

	out := resultOutput{Result: res.Interface()}
	if !res.IsNil() {
		out.Type = res.Type().String()
	}

	return json.NewEncoder(w).Encode(out)
}

// readModule picks the source form by file extension.
func readModule(path string) (wasify.Wasm, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return wasify.Wasm{}, err
	}

	if strings.EqualFold(filepath.Ext(path), ".wat") {
		return wasify.Wasm{Text: string(data)}, nil
	}
	return wasify.Wasm{Binary: data}, nil
}

// report prints err as JSON and hands it back so the caller can set the exit code.
func report(w io.Writer, err error) error {
	r := wasify.Describe(err)

	kind := "error"
	if r.Kind != 0 {
		kind = r.Kind.String()
	}

	if encErr := json.NewEncoder(w).Encode(errorOutput{Error: errorReport{Kind: kind, Message: r.Message}}); encErr != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	return err
}

func parseSeverity(s string) wasify.LogSeverity {
	switch strings.ToLower(s) {
	case "debug":
		return wasify.LogDebug
	case "info":
		return wasify.LogInfo
	case "error":
		return wasify.LogError
	default:
		return wasify.LogWarning
	}
}
