package wasify

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero/api"
)

// Instance is a live, instantiated module.
//
// At most one call executes against an instance at any time: Call holds the
// instance lock from function resolution until the result is encoded, and
// releases it on every exit path. Different instances never contend.
type Instance struct {
	// ID identifies the instance in logs.
	ID uuid.UUID

	mu     sync.Mutex
	mod    api.Module
	closed bool

	// exports is written once in newInstance and only read afterwards,
	// so lookups do not need mu.
	exports map[string]*GuestFunction

	name string
	log  *slog.Logger
}

func newInstance(mod api.Module, moduleConfig *ModuleConfig) *Instance {
	inst := &Instance{
		ID:   uuid.New(),
		mod:  mod,
		name: moduleConfig.Name,
		log:  moduleConfig.log,
	}

	defs := mod.ExportedFunctionDefinitions()
	inst.exports = make(map[string]*GuestFunction, len(defs))
	for name, def := range defs {
		inst.exports[name] = newGuestFunction(inst, name, def, mod.ExportedFunction(name))
	}

	return inst
}

// FunctionExists reports whether name is in the instance's export table.
// It never fails and never blocks.
func (i *Instance) FunctionExists(name string) bool {
	_, ok := i.exports[name]
	return ok
}

// GuestFunction resolves an exported function by exact name.
// A miss is a *CallError of KindNotFound.
func (i *Instance) GuestFunction(name string) (*GuestFunction, error) {
	gf, ok := i.exports[name]
	if !ok {
		return nil, &CallError{Kind: KindNotFound, Function: name}
	}
	return gf, nil
}

// GuestFunctions lists every exported function, sorted by name.
func (i *Instance) GuestFunctions() []*GuestFunction {
	fns := make([]*GuestFunction, 0, len(i.exports))
	for _, gf := range i.exports {
		fns = append(fns, gf)
	}
	slices.SortFunc(fns, func(a, b *GuestFunction) int {
		return strings.Compare(a.Name, b.Name)
	})
	return fns
}

// Close closes the instance. It waits for a running call to finish.
// Closing an already closed instance is a no-op.
//
// Note: The context parameter is used for value lookup, such as for
// logging. A canceled or otherwise done context will not prevent Close
// from succeeding.
func (i *Instance) Close(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil
	}
	i.closed = true

	err := i.mod.Close(ctx)
	if err != nil {
		err = errors.Join(errors.New("can't close instance"), err)
		i.log.Error(err.Error(), "module", i.name, "instance", i.ID)
		return err
	}

	i.log.Debug("instance has been closed", "module", i.name, "instance", i.ID)

	return nil
}
