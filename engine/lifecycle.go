package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/render-worker/errors"
	"github.com/wippyai/render-worker/guest"
	"github.com/wippyai/render-worker/loader"
	"github.com/wippyai/render-worker/protocol"
)

// loadResult is posted by the load goroutine when Resolve returns.
type loadResult struct {
	handle guest.Handle
	err    error
	gen    uint64
}

// frameHost is the Host handed to one load generation. Draw requests are
// honored only while the engine is inside a call on that generation's
// handle.
type frameHost struct {
	e   *Engine
	gen uint64
}

func (h frameHost) RenderFrame(rotation float32) {
	if h.e.callGen.Load() != h.gen {
		h.e.log.Debug("render_frame outside a module call", zap.Uint64("generation", h.gen))
		return
	}
	h.e.paint(float64(rotation))
}

func (e *Engine) onInit(c protocol.Init) {
	if e.inert {
		e.log.Debug("init ignored: no graphics context")
		return
	}
	retry := e.loadFailed && (e.state == ModuleLoading || e.state == SurfaceReady)
	if e.state != Uninitialized && !retry {
		e.log.Debug("init ignored", zap.Stringer("state", e.state))
		return
	}
	if retry {
		e.log.Info("retrying after failed load")
		e.releaseSurface()
		e.loadFailed = false
		e.reloads = 0
	}

	s, err := e.acquire(c.Surface)
	if err != nil {
		e.inert = true
		e.state = Uninitialized
		e.log.Error("graphics context unavailable", zap.Error(err))
		e.emitError("graphics context unavailable: " + err.Error())
		return
	}
	e.surface = s
	e.surfaceLost = false
	e.state = SurfaceReady
	e.emitStatus(fmt.Sprintf("surface ready (%dx%d)", s.Width(), s.Height()))
	e.beginLoad()
}

// beginLoad starts resolving the module source on its own goroutine.
// Results from superseded generations are disposed of on arrival. Every
// load after the first goes through loader.Reload.
func (e *Engine) beginLoad() {
	e.gen++
	gen := e.gen
	ctx, cancel := context.WithCancel(e.runCtx)
	e.cancelLoad = cancel
	e.state = ModuleLoading
	e.log.Debug("loading module", zap.Uint64("generation", gen))

	src := e.source
	var srcErr error
	if e.resolved {
		src, srcErr = loader.Reload(e.source)
	}
	e.resolved = true

	host := frameHost{e: e, gen: gen}
	go func() {
		if srcErr != nil {
			e.mb.put(loadResult{err: srcErr, gen: gen})
			return
		}
		h, err := loader.Resolve(ctx, src, host)
		if !e.mb.put(loadResult{handle: h, err: err, gen: gen}) && h != nil {
			_ = h.Close(context.WithoutCancel(ctx))
		}
	}()
}

func (e *Engine) onLoaded(r loadResult) {
	if r.gen != e.gen || e.state != ModuleLoading {
		e.log.Debug("discarding stale module", zap.Uint64("generation", r.gen))
		if r.handle != nil {
			_ = r.handle.Close(e.callCtx)
		}
		return
	}
	if e.cancelLoad != nil {
		e.cancelLoad()
		e.cancelLoad = nil
	}

	if r.err != nil {
		e.loadFailed = true
		e.resume = false
		e.log.Error("module load failed", zap.Error(r.err))
		e.emitError("module load failed: " + r.err.Error())
		return
	}

	e.handle = r.handle
	e.handleGen = r.gen
	e.faultReported = false

	w, h := e.surface.Width(), e.surface.Height()
	err := e.invoke(func(ctx context.Context, m guest.Handle) error {
		return m.InitGraphics(ctx, w, h)
	})
	if err != nil {
		e.log.Error("graphics init failed", zap.Error(err))
		e.emitError("graphics init failed: " + err.Error())
		e.disposeHandle()
		e.state = SurfaceReady
		e.loadFailed = true
		e.resume = false
		return
	}

	e.state = ModuleReady
	e.log.Info("module ready", zap.Uint64("generation", r.gen))
	e.drain()
	if !e.state.Ready() {
		return
	}
	e.emit(protocol.Initialized{})

	autoplay := (!e.everReady || e.resume) && e.state == ModuleReady
	e.everReady = true
	e.resume = false
	if autoplay {
		e.start(true)
	}
}

// invoke runs fn against the current handle with draw requests enabled
// for its generation. A draw failure during the call is handled as
// context loss once the call returns.
func (e *Engine) invoke(fn func(ctx context.Context, h guest.Handle) error) error {
	if e.handle == nil {
		return errors.NotInitialized(errors.PhaseRuntime, "module")
	}
	e.callGen.Store(e.handleGen)
	err := fn(e.callCtx, e.handle)
	e.callGen.Store(0)
	e.flushDrawErr()
	return err
}

// call invokes a module entry point and routes any failure through fault.
// It reports whether the call succeeded.
func (e *Engine) call(name string, fn func(ctx context.Context, h guest.Handle) error) bool {
	if err := e.invoke(fn); err != nil {
		e.fault(name, err)
		return false
	}
	return true
}

// fault handles a failed module call. A missing entry point discards the
// handle and reloads; anything else is logged and reported once per
// handle as a status line.
func (e *Engine) fault(name string, err error) {
	if errors.IsMissingFunction(err) {
		e.reload(name, err)
		return
	}
	e.log.Warn("module call failed", zap.String("function", name), zap.Error(err))
	if !e.faultReported {
		e.faultReported = true
		e.emitStatus(fmt.Sprintf("module error in %s: %v", name, err))
	}
}

func (e *Engine) reload(name string, cause error) {
	running := e.state == Running
	e.stopTicking()
	e.disposeHandle()
	e.state = ModuleLoading

	if e.reloads >= e.cfg.MaxReloads {
		e.loadFailed = true
		e.resume = false
		e.log.Error("module reload limit reached",
			zap.String("function", name),
			zap.Int("reloads", e.reloads),
			zap.Error(cause))
		e.emitError(fmt.Sprintf("module lost %s after %d reloads", name, e.reloads))
		return
	}

	e.reloads++
	switch name {
	case guest.FuncStartRendering:
		e.resume = true
	case guest.FuncStopRendering:
		e.resume = false
	default:
		e.resume = running
	}
	e.log.Warn("module function missing, reloading",
		zap.String("function", name),
		zap.Int("attempt", e.reloads))
	e.emitStatus(fmt.Sprintf("module function %s missing, reloading", name))
	e.beginLoad()
}

// terminate releases everything exactly once.
func (e *Engine) terminate() {
	if e.state == Terminated {
		e.log.Debug("terminate ignored: already terminated")
		return
	}
	if e.state.Ready() {
		if err := e.invoke(func(ctx context.Context, h guest.Handle) error {
			return h.Cleanup(ctx)
		}); err != nil {
			e.log.Warn("module cleanup failed", zap.Error(err))
		}
	}
	e.stopTicking()
	if e.cancelLoad != nil {
		e.cancelLoad()
		e.cancelLoad = nil
	}
	e.disposeHandle()
	e.releaseSurface()
	e.pending.reset()
	e.state = Terminated
	e.log.Info("worker terminating")
	e.emitStatus("worker terminating")
}

// contextLost stops the loop for good. The surface stays allocated until
// terminate or a retry init.
func (e *Engine) contextLost(err error) {
	if e.surfaceLost {
		return
	}
	e.surfaceLost = true
	e.stopTicking()
	if e.state.Ready() {
		e.state = Stopped
	}
	e.log.Error("graphics context lost", zap.Error(err))
	e.emitError("graphics context lost: " + err.Error())
}

func (e *Engine) disposeHandle() {
	if e.handle == nil {
		return
	}
	if err := e.handle.Close(e.callCtx); err != nil {
		e.log.Warn("module dispose failed", zap.Error(err))
	}
	e.handle = nil
	e.handleGen = 0
}

func (e *Engine) releaseSurface() {
	if e.surface == nil {
		return
	}
	if err := e.surface.Release(); err != nil {
		e.log.Warn("surface release failed", zap.Error(err))
	}
	e.surface = nil
}
