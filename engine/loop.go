package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/render-worker/errors"
	"github.com/wippyai/render-worker/guest"
	"github.com/wippyai/render-worker/protocol"
)

// tick is posted by the scheduler callback. seq identifies the request so
// a tick that raced with stop is ignored.
type tick struct {
	now time.Time
	seq uint64
}

// start enters Running: module start hook, one forced frame, first tick.
// autoplay only changes the status line.
func (e *Engine) start(autoplay bool) {
	if e.state == Running {
		e.log.Debug("start ignored: already running")
		return
	}
	if e.surfaceLost {
		e.log.Warn("start ignored: graphics context lost")
		return
	}

	e.call(guest.FuncStartRendering, func(ctx context.Context, h guest.Handle) error {
		return h.StartRendering(ctx)
	})
	if !e.state.Ready() || e.surfaceLost {
		return
	}

	e.state = Running
	e.lastFrame = e.clock.Now()
	e.advance(e.cfg.ForcedStep)
	if e.state != Running {
		return
	}
	e.schedule()

	if autoplay {
		e.emitStatus("render loop started")
	} else {
		e.emitStatus("rendering started")
	}
}

func (e *Engine) stop() {
	e.call(guest.FuncStopRendering, func(ctx context.Context, h guest.Handle) error {
		return h.StopRendering(ctx)
	})
	if !e.state.Ready() {
		return
	}
	e.stopTicking()
	e.state = Stopped
	e.emitStatus("rendering stopped")
}

func (e *Engine) resize(width, height int) {
	if width <= 0 || height <= 0 {
		e.emitError(fmt.Sprintf("invalid surface size %dx%d", width, height))
		return
	}
	if err := e.surface.Resize(width, height); err != nil {
		if errors.Is(err, errors.ErrContextLost) {
			e.contextLost(err)
		} else {
			e.emitError("resize failed: " + err.Error())
		}
		return
	}
	e.call(guest.FuncHandleResize, func(ctx context.Context, h guest.Handle) error {
		return h.HandleResize(ctx, width, height)
	})
	e.emitStatus(fmt.Sprintf("canvas resized to %dx%d", width, height))
}

func (e *Engine) schedule() {
	e.tickSeq++
	seq := e.tickSeq
	e.tickID = e.sched.Request(func(now time.Time) {
		e.mb.put(tick{now: now, seq: seq})
	})
}

// stopTicking cancels the scheduled tick and invalidates one already
// sitting in the mailbox.
func (e *Engine) stopTicking() {
	if e.tickID != 0 {
		e.sched.Cancel(e.tickID)
		e.tickID = 0
	}
	e.tickSeq++
}

func (e *Engine) onTick(t tick) {
	if t.seq != e.tickSeq || e.state != Running {
		e.log.Debug("stale tick ignored", zap.Uint64("seq", t.seq))
		return
	}
	e.tickID = 0

	step := clamp(t.now.Sub(e.lastFrame).Seconds(), 0, e.cfg.MaxStep)
	e.lastFrame = t.now
	e.frame(step)

	if e.state == Running {
		e.schedule()
	}
}

// frame moves the marker, draws the local triangle, advances the module
// and reports the frame rate.
func (e *Engine) frame(step float64) {
	e.input.Step(step, e.speed, e.cfg.PositionBound)

	e.paint(step * 100)
	if e.flushDrawErr() {
		return
	}
	e.advance(step)
	if e.surfaceLost {
		return
	}

	e.frames++
	e.lastStep = step
	e.fps = fpsFor(step)
	e.emit(protocol.FPS{FPS: e.fps})
}

// advance calls the module frame entry point. A clean frame resets the
// reload budget.
func (e *Engine) advance(step float64) {
	if e.call(guest.FuncFrame, func(ctx context.Context, h guest.Handle) error {
		return h.AdvanceFrame(ctx, step)
	}) {
		e.reloads = 0
	}
}

// paint draws the marker at the tracked position. Failures are held until
// flushDrawErr so a module call is never interrupted mid-way.
func (e *Engine) paint(rotation float64) {
	if e.surface == nil || e.surfaceLost {
		return
	}
	pos := e.input.Position
	if err := e.surface.DrawTriangle(pos.X, pos.Y, rotation); err != nil && e.drawErr == nil {
		e.drawErr = err
	}
}

func (e *Engine) flushDrawErr() bool {
	if e.drawErr == nil {
		return false
	}
	err := e.drawErr
	e.drawErr = nil
	e.contextLost(err)
	return true
}

func fpsFor(step float64) int {
	if step <= 0 {
		return 0
	}
	return int(math.Round(1 / step))
}
