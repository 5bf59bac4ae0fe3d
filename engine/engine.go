package engine

import (
	"context"
	"image"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/render-worker/errors"
	"github.com/wippyai/render-worker/guest"
	"github.com/wippyai/render-worker/loader"
	"github.com/wippyai/render-worker/protocol"
	"github.com/wippyai/render-worker/scheduler"
	"github.com/wippyai/render-worker/surface"
)

// Sink receives events emitted by the engine. Emit is called from the
// engine goroutine, in emission order, and should not block for long.
type Sink interface {
	Emit(ev protocol.Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev protocol.Event)

func (f SinkFunc) Emit(ev protocol.Event) { f(ev) }

// Surface is the drawable target the engine owns after init.
// *surface.Surface implements it.
type Surface interface {
	Width() int
	Height() int
	Resize(width, height int) error
	DrawTriangle(x, y, rotation float64) error
	Preview(width, height int) *image.RGBA
	Release() error
}

// SurfaceFactory binds a surface for the descriptor carried by init.
type SurfaceFactory func(desc protocol.SurfaceDescriptor) (Surface, error)

// AcquireSurface returns a SurfaceFactory backed by surface.Acquire with
// the given API levels.
func AcquireSurface(levels ...surface.Level) SurfaceFactory {
	return func(desc protocol.SurfaceDescriptor) (Surface, error) {
		s, err := surface.Acquire(desc.Width, desc.Height, levels...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets engine tunables. Zero fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg.withDefaults() }
}

// WithScheduler sets the frame scheduler. The default is a Ticker at
// Config.FrameInterval.
func WithScheduler(s scheduler.Scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

// WithClock sets the clock used to stamp the start of rendering.
func WithClock(c scheduler.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithSurfaceFactory replaces surface.Acquire.
func WithSurfaceFactory(f SurfaceFactory) Option {
	return func(e *Engine) { e.acquire = f }
}

// Snapshot is a copy of the engine's observable state.
type Snapshot struct {
	Input         InputState
	Pending       []protocol.Command
	State         State
	Speed         float64
	LastStep      float64
	Frames        uint64
	Generation    uint64
	FPS           int
	Reloads       int
	SurfaceWidth  int
	SurfaceHeight int
	ModuleLoaded  bool
	LoadFailed    bool
	SurfaceLost   bool
	Inert         bool
}

// Engine owns the surface and the module handle and serializes every
// control message, load completion and frame tick onto the goroutine
// running Run.
type Engine struct {
	source  loader.Source
	sink    Sink
	sched   scheduler.Scheduler
	clock   scheduler.Clock
	acquire SurfaceFactory
	log     *zap.Logger
	mb      *mailbox
	done    chan struct{}
	ticker  *scheduler.Ticker
	final   Snapshot
	cfg     Config
	started atomic.Bool
	callGen atomic.Uint64

	// Everything below is owned by the Run goroutine.
	runCtx     context.Context
	callCtx    context.Context
	surface    Surface
	handle     guest.Handle
	cancelLoad context.CancelFunc
	drawErr    error
	lastFrame  time.Time
	pending    pendingQueue
	input      InputState
	speed      float64
	lastStep   float64
	frames     uint64
	gen        uint64
	handleGen  uint64
	tickSeq    uint64
	tickID     scheduler.ID
	fps        int
	reloads    int
	state      State

	everReady     bool
	resolved      bool
	resume        bool
	loadFailed    bool
	inert         bool
	surfaceLost   bool
	faultReported bool
}

// New creates an engine that loads its module from src and reports to
// sink. Nothing happens until Run is called.
func New(src loader.Source, sink Sink, opts ...Option) *Engine {
	e := &Engine{
		source:  src,
		sink:    sink,
		cfg:     DefaultConfig(),
		acquire: AcquireSurface(),
		log:     Logger(),
		mb:      newMailbox(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sink == nil {
		e.sink = SinkFunc(func(protocol.Event) {})
	}
	if e.clock == nil {
		e.clock = scheduler.SystemClock{}
	}
	if e.sched == nil {
		e.ticker = scheduler.NewTicker(e.cfg.FrameInterval, e.clock)
		e.sched = e.ticker
	}
	e.speed = e.cfg.DefaultSpeed
	return e
}

// Post queues cmd for the engine without blocking. It reports false when
// the engine has already shut down.
func (e *Engine) Post(cmd protocol.Command) bool {
	if cmd == nil {
		return false
	}
	return e.mb.put(cmd)
}

// Done is closed when Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

type inspectQuery struct {
	reply chan Snapshot
}

type captureQuery struct {
	reply  chan captureReply
	width  int
	height int
}

type captureReply struct {
	img *image.RGBA
	err error
}

// Inspect returns a snapshot taken on the engine goroutine between two
// messages. After Run has returned it yields the final state.
func (e *Engine) Inspect(ctx context.Context) (Snapshot, error) {
	q := inspectQuery{reply: make(chan Snapshot, 1)}
	if !e.mb.put(q) {
		<-e.done
		return e.final, nil
	}
	select {
	case s := <-q.reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Capture returns the surface pixels scaled to width x height. A
// non-positive dimension means the surface's own size.
func (e *Engine) Capture(ctx context.Context, width, height int) (*image.RGBA, error) {
	q := captureQuery{reply: make(chan captureReply, 1), width: width, height: height}
	if !e.mb.put(q) {
		return nil, errors.ContextLost("engine has shut down")
	}
	select {
	case r := <-q.reply:
		return r.img, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run processes the mailbox until terminate (plus the grace delay) or
// until ctx is canceled, which terminates the engine first. Run may be
// called once.
func (e *Engine) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return errors.New(errors.PhaseDispatch, errors.KindUnsupported).
			Detail("engine already running").
			Build()
	}
	e.runCtx = ctx
	e.callCtx = context.WithoutCancel(ctx)
	defer e.finish()

	e.log.Info("worker started")
	e.emit(protocol.Status{Status: "worker started"})

	var grace <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			e.terminate()
			return ctx.Err()
		case <-grace:
			return nil
		case <-e.mb.ready:
		}

		for {
			item, ok := e.mb.pop()
			if !ok {
				break
			}
			e.handleItem(item)
			if e.state == Terminated && grace == nil {
				if e.cfg.TerminateGrace <= 0 {
					return nil
				}
				timer := time.NewTimer(e.cfg.TerminateGrace)
				defer timer.Stop()
				grace = timer.C
			}
		}
	}
}

func (e *Engine) handleItem(item any) {
	switch it := item.(type) {
	case protocol.Command:
		e.dispatch(it)
	case loadResult:
		e.onLoaded(it)
	case tick:
		e.onTick(it)
	case inspectQuery:
		it.reply <- e.snapshot()
	case captureQuery:
		img, err := e.capture(it.width, it.height)
		it.reply <- captureReply{img: img, err: err}
	default:
		e.log.Warn("unexpected mailbox item", zap.Any("item", item))
	}
}

// finish runs on the way out of Run. Anything still queued is answered
// or disposed of.
func (e *Engine) finish() {
	e.stopTicking()
	if e.ticker != nil {
		e.ticker.Stop()
	}
	e.final = e.snapshot()

	for _, item := range e.mb.close() {
		switch it := item.(type) {
		case inspectQuery:
			it.reply <- e.final
		case captureQuery:
			it.reply <- captureReply{err: errors.ContextLost("engine has shut down")}
		case loadResult:
			if it.handle != nil {
				_ = it.handle.Close(e.callCtx)
			}
		case protocol.Command:
			e.log.Debug("message rejected after shutdown", zap.String("type", it.Type()))
		}
	}
	e.log.Info("worker stopped", zap.Stringer("state", e.state))
	close(e.done)
}

func (e *Engine) snapshot() Snapshot {
	s := Snapshot{
		State:        e.state,
		Input:        e.input,
		Speed:        e.speed,
		Pending:      e.pending.snapshot(),
		LastStep:     e.lastStep,
		Frames:       e.frames,
		Generation:   e.gen,
		FPS:          e.fps,
		Reloads:      e.reloads,
		ModuleLoaded: e.handle != nil,
		LoadFailed:   e.loadFailed,
		SurfaceLost:  e.surfaceLost,
		Inert:        e.inert,
	}
	if e.surface != nil {
		s.SurfaceWidth = e.surface.Width()
		s.SurfaceHeight = e.surface.Height()
	}
	return s
}

func (e *Engine) capture(width, height int) (*image.RGBA, error) {
	if e.surface == nil {
		return nil, errors.NotInitialized(errors.PhaseSurface, "surface")
	}
	if e.surfaceLost {
		return nil, errors.ContextLost("surface lost")
	}
	if width <= 0 || height <= 0 {
		width, height = e.surface.Width(), e.surface.Height()
	}
	return e.surface.Preview(width, height), nil
}

func (e *Engine) emit(ev protocol.Event) {
	e.sink.Emit(ev)
}

func (e *Engine) emitStatus(status string) {
	e.log.Debug("status", zap.String("status", status))
	e.emit(protocol.Status{Status: status})
}

func (e *Engine) emitError(msg string) {
	e.emit(protocol.Error{Message: msg})
}
