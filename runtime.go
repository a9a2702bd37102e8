package wasify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wasify-io/wasify-bridge/internal/utils"
)

type LogSeverity utils.LogSeverity

// The log level is initially set to "Info" for runtimes and "zero" (0) for modules.
// However, modules will adopt the log level from their parent runtime.
// If you want only "Error" level for a runtime but need to debug specific module(s),
// you can set those modules to "Debug". This will replace the inherited log level,
// allowing the module to display debug information.
const (
	LogDebug   LogSeverity = LogSeverity(utils.LogDebug)
	LogInfo    LogSeverity = LogSeverity(utils.LogInfo)
	LogWarning LogSeverity = LogSeverity(utils.LogWarning)
	LogError   LogSeverity = LogSeverity(utils.LogError)
)

type Runtime interface {
	// NewInstance compiles and instantiates a module with an empty import set.
	// Every failure is reported as an *InstantiationError.
	NewInstance(context.Context, *ModuleConfig) (*Instance, error)
	// ClearCompiled closes and forgets every compiled module the runtime has
	// cached. Live instances are unaffected; the next instantiation of the
	// same bytes compiles them again.
	ClearCompiled(ctx context.Context) error
	Close(ctx context.Context) error
}

// MaxMemoryLimitPages is the largest accepted RuntimeConfig.MemoryLimitPages:
// 65536 pages of 64KiB, the whole 32-bit address space.
const MaxMemoryLimitPages = 65536

// RuntimeType defines a type of WebAssembly (wasm) runtime.
//
// Currently, the only supported wasm runtime is Wazero.
type RuntimeType uint8

const (
	RuntimeWazero RuntimeType = iota
)

func (rt RuntimeType) String() (runtimeName string) {

	switch rt {
	case RuntimeWazero:
		runtimeName = "Wazero"
	}

	return
}

// The RuntimeConfig struct holds configuration settings for a runtime.
type RuntimeConfig struct {
	// Specifies the type of runtime being used.
	Runtime RuntimeType
	// Determines the severity level of logging.
	LogSeverity LogSeverity
	// Caps the linear memory of every instance, in 64KiB pages.
	// Zero keeps the engine default; values above MaxMemoryLimitPages are rejected.
	MemoryLimitPages uint32
	// Directory for the engine's on-disk compilation cache.
	// Empty keeps compiled code in memory only.
	CompilationCacheDir string
	// Pointer to a logger for recording runtime information.
	log *slog.Logger
}

// NewRuntime creates and initializes a new runtime based on the provided configuration.
// It returns the initialized runtime and any error that might occur during the process.
func NewRuntime(ctx context.Context, c *RuntimeConfig) (runtime Runtime, err error) {

	c.log = utils.NewLogger(utils.LogSeverity(c.LogSeverity))

	// Retrieve the appropriate runtime implementation based on the configured type.
	runtime, err = c.getRuntime(ctx)
	if err != nil {
		c.log.Error(err.Error(), "runtime", c.Runtime)
		return nil, err
	}

	c.log.Info("runtime has been initialized successfully", "runtime", c.Runtime)

	return runtime, nil
}

// getRuntime returns an instance of the appropriate runtime implementation
// based on the configured runtime type in the RuntimeConfig.
func (c *RuntimeConfig) getRuntime(ctx context.Context) (Runtime, error) {
	switch c.Runtime {
	case RuntimeWazero:
		return getWazeroRuntime(ctx, c)
	default:
		return nil, errors.New("unsupported runtime")
	}
}
