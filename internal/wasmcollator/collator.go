// Package wasmcollator is a Collator implementation backed by a WASM guest
// module: the parachain's block-production logic ships as a wasm blob and
// runs inside wazero. The guest exports a `collate` function and exchanges
// data through `env` host functions:
//
//	input_len() -> u32            length of the encoded input
//	read_input(ptr)               copy the input into guest memory
//	write_output(ptr, len)       hand the encoded collation back
//
// Input and output layouts are defined in codec.go. Writing no output
// means there is nothing to build, which is a normal outcome.
package wasmcollator

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/selendra/indracore/internal/primitives"
)

// Collator runs a compiled guest module to produce collations. Executions
// are serialized: one collation at a time.
type Collator struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	mu       sync.Mutex
}

// New compiles the guest module and keeps it hot for instantiation.
func New(ctx context.Context, wasmBytes []byte) (*Collator, error) {
	runtime := wazero.NewRuntime(ctx)

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, fmt.Errorf("compile collator module: %w", err)
	}

	return &Collator{runtime: runtime, compiled: compiled}, nil
}

// execState holds one invocation's exchange buffers.
type execState struct {
	input  []byte     // input is the encoded (relay parent, validation data)
	output []byte     // output is the encoded collation, empty for none
	memory api.Memory // memory is the guest's linear memory
}

// ProduceCollation implements primitives.Collator by running the guest's
// collate export. An empty guest output yields (nil, nil).
func (c *Collator) ProduceCollation(ctx context.Context, relayParent primitives.Hash, data *primitives.ValidationData) (*primitives.Collation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	exec := &execState{input: encodeInput(relayParent, data)}

	host, err := c.buildHostModule(ctx, exec)
	if err != nil {
		return nil, fmt.Errorf("build host module: %w", err)
	}
	defer host.Close(ctx)

	instance, err := c.runtime.InstantiateModule(ctx, c.compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, fmt.Errorf("instantiate collator module: %w", err)
	}
	defer instance.Close(ctx)

	exec.memory = instance.Memory()

	collateFn := instance.ExportedFunction("collate")
	if collateFn == nil {
		return nil, fmt.Errorf("collator module does not export collate")
	}

	if _, err := collateFn.Call(ctx); err != nil {
		return nil, fmt.Errorf("collate: %w", err)
	}

	if len(exec.output) == 0 {
		return nil, nil
	}

	return decodeOutput(exec.output)
}

// buildHostModule creates the per-invocation "env" module.
func (c *Collator) buildHostModule(ctx context.Context, exec *execState) (api.Module, error) {
	return c.runtime.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithFunc(func(context.Context) uint32 {
			return uint32(len(exec.input))
		}).
		Export("input_len").
		NewFunctionBuilder().
		WithFunc(func(_ context.Context, ptr uint32) {
			if exec.memory != nil && len(exec.input) > 0 {
				exec.memory.Write(ptr, exec.input)
			}
		}).
		Export("read_input").
		NewFunctionBuilder().
		WithFunc(func(_ context.Context, ptr, length uint32) {
			if exec.memory == nil || length == 0 {
				return
			}

			data, ok := exec.memory.Read(ptr, length)
			if !ok {
				return
			}

			exec.output = make([]byte, length)
			copy(exec.output, data)
		}).
		Export("write_output").
		Instantiate(ctx)
}

// Close releases the runtime and the compiled module.
func (c *Collator) Close(ctx context.Context) error {
	return c.runtime.Close(ctx)
}
