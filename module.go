package wasify

import (
	"errors"
	"log/slog"

	"github.com/wippyai/wasm-runtime/wat"

	"github.com/wasify-io/wasify-bridge/internal/utils"
)

type ModuleConfig struct {
	// Module name, used in logs only. The instance itself is anonymous,
	// so other modules can never import from it.
	Name string

	// WASM configuration. Required.
	Wasm Wasm

	// Set the severity level for a particular module's logs.
	// Note: If LogSeverity isn't specified, the severity is inherited from the parent, like the runtime log severity.
	LogSeverity LogSeverity

	// Struct members for internal use.
	log *slog.Logger
}

// Wasm configures a new wasm module.
// One of Binary or Text is required; Binary wins when both are set.
// Hash is optional and is checked against the binary form.
type Wasm struct {
	// Module in the WebAssembly binary format.
	Binary []byte
	// Module in the WebAssembly text format.
	Text string
	// Hex-encoded SHA-256 of the binary form.
	Hash string
}

// bytes returns the binary form of the module, compiling Text if needed.
func (w *Wasm) bytes() ([]byte, error) {
	if len(w.Binary) > 0 {
		return w.Binary, nil
	}

	if w.Text == "" {
		return nil, errors.New("module has neither binary nor text source")
	}

	bin, err := wat.Compile(w.Text)
	if err != nil {
		return nil, errors.Join(errors.New("can't compile text module"), err)
	}

	return bin, nil
}

// verify checks bin against the configured hash, if any.
func (w *Wasm) verify(bin []byte) error {
	if w.Hash == "" {
		return nil
	}

	actualHash, err := utils.CalculateHash(bin)
	if err != nil {
		return errors.Join(errors.New("can't calculate the hash"), err)
	}

	return utils.CompareHashes(w.Hash, actualHash)
}
