// This file provides the wazero implementation of Runtime: engine setup,
// compilation with a per-runtime cache, and instantiation against an empty
// import set.
package wasify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/puzpuzpuz/xsync/v2"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"golang.org/x/sync/singleflight"

	"github.com/wasify-io/wasify-bridge/internal/utils"
)

// getWazeroRuntime creates and returns a wazero runtime instance using the provided context and
// RuntimeConfig. It configures the runtime with specific settings and features.
func getWazeroRuntime(ctx context.Context, c *RuntimeConfig) (*wazeroRuntime, error) {

	cfg := wazero.NewRuntimeConfig().
		WithCoreFeatures(api.CoreFeaturesV2).
		WithCustomSections(false).
		// Calls are never cancelled once invocation begins.
		WithCloseOnContextDone(false).
		// Enable runtime debug if user sets LogSeverity to debug level in runtime configuration
		WithDebugInfoEnabled(c.LogSeverity == LogDebug)

	if c.MemoryLimitPages > MaxMemoryLimitPages {
		return nil, fmt.Errorf("memory limit of %d pages exceeds the maximum of %d", c.MemoryLimitPages, MaxMemoryLimitPages)
	}
	if c.MemoryLimitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(c.MemoryLimitPages)
	}

	var cache wazero.CompilationCache
	if c.CompilationCacheDir != "" {
		var err error
		cache, err = wazero.NewCompilationCacheWithDir(c.CompilationCacheDir)
		if err != nil {
			return nil, errors.Join(errors.New("can't open compilation cache"), err)
		}
		cfg = cfg.WithCompilationCache(cache)
	}

	// No host modules are instantiated: guests link against an empty import set.
	runtime := wazero.NewRuntimeWithConfig(ctx, cfg)

	return &wazeroRuntime{
		runtime:       runtime,
		cache:         cache,
		compiled:      xsync.NewIntegerMapOf[uint64, wazero.CompiledModule](),
		RuntimeConfig: c,
	}, nil
}

// The wazeroRuntime struct combines a wazero runtime instance with runtime configuration.
type wazeroRuntime struct {
	runtime wazero.Runtime
	cache   wazero.CompilationCache

	// compiled holds compiled modules keyed by utils.ModuleKey of their bytes.
	// Entries live until ClearCompiled or Close.
	compiled *xsync.MapOf[uint64, wazero.CompiledModule]
	group    singleflight.Group
	// clearMu is held shared from compile through instantiate, so
	// ClearCompiled never closes a module that is about to be instantiated.
	clearMu sync.RWMutex

	*RuntimeConfig
}

// NewInstance compiles and instantiates the module described by moduleConfig.
// Any failure is returned as an *InstantiationError naming the stage it
// happened in.
func (r *wazeroRuntime) NewInstance(ctx context.Context, moduleConfig *ModuleConfig) (*Instance, error) {

	// Module will adopt the log level from their parent runtime,
	// unless it sets its own.
	moduleConfig.log = r.log
	if moduleConfig.LogSeverity != 0 {
		moduleConfig.log = utils.NewLogger(utils.LogSeverity(moduleConfig.LogSeverity))
	}

	fail := func(stage InstantiationStage, err error) (*Instance, error) {
		moduleConfig.log.Error(err.Error(), "module", moduleConfig.Name, "stage", stage)
		return nil, &InstantiationError{Stage: stage, Cause: err}
	}

	bin, err := moduleConfig.Wasm.bytes()
	if err != nil {
		return fail(StageSource, err)
	}

	if err = moduleConfig.Wasm.verify(bin); err != nil {
		return fail(StageHash, err)
	}

	r.clearMu.RLock()
	defer r.clearMu.RUnlock()

	compiled, err := r.compile(ctx, bin)
	if err != nil {
		return fail(StageCompile, errors.Join(errors.New("can't compile module"), err))
	}

	// The instance is anonymous so that no other module can import from it,
	// and no start functions beyond the module's own start section run.
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions()

	mod, err := r.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return fail(StageInstantiate, errors.Join(errors.New("can't instantiate module"), err))
	}

	inst := newInstance(mod, moduleConfig)

	moduleConfig.log.Info("module has been instantiated successfully", "module", moduleConfig.Name, "instance", inst.ID, "exports", len(inst.exports))

	return inst, nil
}

// compile returns the compiled form of bin, compiling it at most once per
// runtime even when several goroutines ask for the same bytes together.
func (r *wazeroRuntime) compile(ctx context.Context, bin []byte) (wazero.CompiledModule, error) {

	key := utils.ModuleKey(bin)
	if compiled, ok := r.compiled.Load(key); ok {
		return compiled, nil
	}

	v, err, _ := r.group.Do(strconv.FormatUint(key, 16), func() (any, error) {
		if compiled, ok := r.compiled.Load(key); ok {
			return compiled, nil
		}

		compiled, err := r.runtime.CompileModule(ctx, bin)
		if err != nil {
			return nil, err
		}

		r.compiled.Store(key, compiled)
		r.log.Debug("module has been compiled", "runtime", r.Runtime, "key", key)

		return compiled, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(wazero.CompiledModule), nil
}

// ClearCompiled closes every cached compiled module and empties the cache.
// Instances created from them keep working.
func (r *wazeroRuntime) ClearCompiled(ctx context.Context) error {

	r.clearMu.Lock()
	defer r.clearMu.Unlock()

	var errs []error
	r.compiled.Range(func(key uint64, compiled wazero.CompiledModule) bool {
		r.compiled.Delete(key)
		errs = append(errs, compiled.Close(ctx))
		return true
	})

	if err := errors.Join(errs...); err != nil {
		err = errors.Join(errors.New("can't close compiled modules"), err)
		r.log.Error(err.Error(), "runtime", r.Runtime)
		return err
	}

	r.log.Debug("compiled modules have been cleared", "runtime", r.Runtime)

	return nil
}

// Close closes the runtime together with every instance and compiled module
// it created.
//
// Note: The context parameter is used for value lookup, such as for
// logging. A canceled or otherwise done context will not prevent Close
// from succeeding.
func (r *wazeroRuntime) Close(ctx context.Context) error {

	err := r.runtime.Close(ctx)
	if r.cache != nil {
		err = errors.Join(err, r.cache.Close(ctx))
	}

	if err != nil {
		err = errors.Join(errors.New("can't close runtime"), err)
		r.log.Error(err.Error(), "runtime", r.Runtime)
		return err
	}

	return nil
}
