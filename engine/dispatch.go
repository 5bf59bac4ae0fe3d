package engine

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/render-worker/guest"
	"github.com/wippyai/render-worker/protocol"
)

// dispatch handles one control message. It is the only entry point for
// commands and never re-enters itself except through pending replay.
func (e *Engine) dispatch(cmd protocol.Command) {
	if e.state == Terminated {
		e.log.Debug("message rejected after terminate", zap.String("type", cmd.Type()))
		return
	}

	if protocol.Queueable(cmd) {
		e.control(cmd)
		return
	}

	switch c := cmd.(type) {
	case protocol.Init:
		e.onInit(c)
	case protocol.KeyEvent:
		if !e.input.Apply(c.Key, c.Action) {
			e.log.Debug("key ignored", zap.String("key", string(c.Key)))
		}
	case protocol.MouseMove:
		e.input.Cursor = Vec2{X: c.X, Y: c.Y}
		if !e.state.Ready() {
			e.log.Debug("mouse move dropped", zap.Stringer("state", e.state))
			return
		}
		e.call(guest.FuncHandleMouseMove, func(ctx context.Context, h guest.Handle) error {
			return h.HandleMouseMove(ctx, c.X, c.Y)
		})
	case protocol.MouseButton:
		e.input.Cursor = Vec2{X: c.X, Y: c.Y}
		if !e.state.Ready() {
			e.log.Debug("mouse button dropped", zap.Stringer("state", e.state))
			return
		}
		e.call(guest.FuncHandleMouseButton, func(ctx context.Context, h guest.Handle) error {
			return h.HandleMouseButton(ctx, c.Button, c.Action)
		})
	case protocol.SetSpeed:
		e.setSpeed(c.Speed)
	case protocol.Terminate:
		e.terminate()
	default:
		e.log.Warn("unhandled command", zap.String("type", cmd.Type()))
	}
}

// control runs a queueable message against a ready module, or queues it
// until the module becomes ready.
func (e *Engine) control(cmd protocol.Command) {
	if !e.state.Ready() {
		if e.inert {
			e.log.Debug("message dropped: no graphics context", zap.String("type", cmd.Type()))
			return
		}
		e.pending.push(cmd)
		e.log.Debug("message queued",
			zap.String("type", cmd.Type()),
			zap.Stringer("state", e.state),
			zap.Int("pending", e.pending.len()))
		return
	}

	switch c := cmd.(type) {
	case protocol.Start:
		e.start(false)
	case protocol.Stop:
		e.stop()
	case protocol.Resize:
		e.resize(c.Width, c.Height)
	}
}

// drain replays queued control messages in arrival order. If a reload
// starts mid-replay, the remaining messages are queued again in order.
func (e *Engine) drain() {
	items := e.pending.take()
	if len(items) > 0 {
		e.log.Debug("replaying queued messages", zap.Int("count", len(items)))
	}
	for _, cmd := range items {
		if e.state == Terminated {
			return
		}
		e.control(cmd)
	}
}

func (e *Engine) setSpeed(speed float64) {
	if math.IsNaN(speed) || math.IsInf(speed, 0) {
		e.log.Warn("speed ignored", zap.Float64("speed", speed))
		return
	}
	e.speed = speed
	e.emitStatus("speed set to " + formatSpeed(speed))
}

func formatSpeed(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v == math.Trunc(v) {
		s = fmt.Sprintf("%.1f", v)
	}
	return s
}
