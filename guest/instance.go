package guest

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
	"go.uber.org/zap/zapio"

	"github.com/wippyai/render-worker/errors"
)

const wasiModule = wasi_snapshot_preview1.ModuleName

// Instance is a graphics module running on wazero.
type Instance struct {
	runtime wazero.Runtime
	module  api.Module
	stdout  *zapio.Writer
	stderr  *zapio.Writer
	closed  bool
}

// Load compiles wasmBytes, checks it against the graphics ABI and
// instantiates it with env.render_frame bound to host. A nil host ignores
// render requests.
func Load(ctx context.Context, wasmBytes []byte, host Host, cfg Config) (*Instance, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	inst, err := instantiate(ctx, r, wasmBytes, host, cfg)
	if err != nil {
		_ = r.Close(ctx)
		return nil, err
	}
	return inst, nil
}

func instantiate(ctx context.Context, r wazero.Runtime, wasmBytes []byte, host Host, cfg Config) (*Instance, error) {
	compiled, err := r.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.ModuleLoad("compile module", err)
	}

	if err := Graphics().Check(compiled.ExportedFunctions(), FuncInitLibs); err != nil {
		return nil, err
	}

	needsWASI := false
	for _, def := range compiled.ImportedFunctions() {
		if mod, _, _ := def.Import(); mod == wasiModule {
			needsWASI = true
			break
		}
	}
	if needsWASI {
		if !cfg.EnableWASI {
			return nil, errors.ModuleLoad("module imports "+wasiModule+" but WASI is disabled", nil)
		}
		builder := r.NewHostModuleBuilder(wasiModule)
		wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)
		if _, err := builder.Instantiate(ctx); err != nil {
			return nil, errors.Instantiation(err)
		}
	}

	_, err = r.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			if host != nil {
				host.RenderFrame(api.DecodeF32(stack[0]))
			}
		}), []api.ValueType{api.ValueTypeF32}, nil).
		WithParameterNames("rotation").
		Export(HostRenderFrame).
		Instantiate(ctx)
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	log := Logger().With(zap.String("module", cfg.Name))
	stdout := &zapio.Writer{Log: log, Level: cfg.StdoutLevel}
	stderr := &zapio.Writer{Log: log, Level: cfg.StderrLevel}

	modCfg := wazero.NewModuleConfig().
		WithName(cfg.Name).
		WithStdout(stdout).
		WithStderr(stderr).
		WithStartFunctions("_initialize")

	mod, err := r.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	Logger().Debug("graphics module loaded",
		zap.String("module", cfg.Name),
		zap.Int("exports", len(compiled.ExportedFunctions())),
		zap.Bool("wasi", needsWASI))

	return &Instance{
		runtime: r,
		module:  mod,
		stdout:  stdout,
		stderr:  stderr,
	}, nil
}

// Exported reports whether the module exports the named function.
func (i *Instance) Exported(name string) bool {
	if i.closed {
		return false
	}
	return i.module.ExportedFunction(name) != nil
}

// Global reads an exported global's raw value.
func (i *Instance) Global(name string) (uint64, error) {
	if i.closed {
		return 0, errors.NotInitialized(errors.PhaseRuntime, "module")
	}
	g := i.module.ExportedGlobal(name)
	if g == nil {
		return 0, errors.NotFound(errors.PhaseRuntime, "global", name)
	}
	return g.Get(), nil
}

func (i *Instance) call(ctx context.Context, name string, params ...uint64) error {
	if i.closed {
		return errors.NotInitialized(errors.PhaseRuntime, "module")
	}
	fn := i.module.ExportedFunction(name)
	if fn == nil {
		return errors.FunctionNotFound(name)
	}
	if _, err := fn.Call(ctx, params...); err != nil {
		return errors.ModuleRuntime(name, err)
	}
	return nil
}

func (i *Instance) InitGraphics(ctx context.Context, width, height int) error {
	return i.call(ctx, FuncInitLibs, api.EncodeI32(int32(width)), api.EncodeI32(int32(height)))
}

func (i *Instance) AdvanceFrame(ctx context.Context, dt float64) error {
	return i.call(ctx, FuncFrame, api.EncodeF32(float32(dt)))
}

func (i *Instance) StartRendering(ctx context.Context) error {
	return i.call(ctx, FuncStartRendering)
}

func (i *Instance) StopRendering(ctx context.Context) error {
	return i.call(ctx, FuncStopRendering)
}

func (i *Instance) HandleResize(ctx context.Context, width, height int) error {
	return i.call(ctx, FuncHandleResize, api.EncodeI32(int32(width)), api.EncodeI32(int32(height)))
}

func (i *Instance) HandleMouseMove(ctx context.Context, x, y float64) error {
	return i.call(ctx, FuncHandleMouseMove, api.EncodeF64(x), api.EncodeF64(y))
}

func (i *Instance) HandleMouseButton(ctx context.Context, button, action int) error {
	return i.call(ctx, FuncHandleMouseButton, api.EncodeI32(int32(button)), api.EncodeI32(int32(action)))
}

func (i *Instance) Cleanup(ctx context.Context) error {
	return i.call(ctx, FuncCleanup)
}

// Close releases the runtime and flushes buffered guest output. It is
// safe to call more than once.
func (i *Instance) Close(ctx context.Context) error {
	if i.closed {
		return nil
	}
	i.closed = true
	_ = i.stdout.Close()
	_ = i.stderr.Close()
	return i.runtime.Close(ctx)
}

var _ Handle = (*Instance)(nil)
