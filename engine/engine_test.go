package engine

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	werrors "github.com/wippyai/render-worker/errors"
	"github.com/wippyai/render-worker/guest"
	"github.com/wippyai/render-worker/guest/guesttest"
	"github.com/wippyai/render-worker/loader"
	"github.com/wippyai/render-worker/protocol"
	"github.com/wippyai/render-worker/scheduler"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type recorder struct {
	events []protocol.Event
	mu     sync.Mutex
}

func (r *recorder) Emit(ev protocol.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) all() []protocol.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]protocol.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) statuses() []string {
	var out []string
	for _, ev := range r.all() {
		if s, ok := ev.(protocol.Status); ok {
			out = append(out, s.Status)
		}
	}
	return out
}

func (r *recorder) errorMessages() []string {
	var out []string
	for _, ev := range r.all() {
		if e, ok := ev.(protocol.Error); ok {
			out = append(out, e.Message)
		}
	}
	return out
}

func (r *recorder) count(typ string) int {
	n := 0
	for _, ev := range r.all() {
		if ev.Type() == typ {
			n++
		}
	}
	return n
}

func (r *recorder) countStatus(prefix string) int {
	n := 0
	for _, s := range r.statuses() {
		if strings.HasPrefix(s, prefix) {
			n++
		}
	}
	return n
}

type drawCall struct {
	x, y, rotation float64
}

type fakeSurface struct {
	draws    []drawCall
	w, h     int
	released int
	mu       sync.Mutex
	lost     bool
}

func (s *fakeSurface) Width() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w
}

func (s *fakeSurface) Height() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h
}

func (s *fakeSurface) Resize(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lost {
		return werrors.ContextLost("fake context lost")
	}
	s.w, s.h = width, height
	return nil
}

func (s *fakeSurface) DrawTriangle(x, y, rotation float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lost {
		return werrors.ContextLost("fake context lost")
	}
	s.draws = append(s.draws, drawCall{x: x, y: y, rotation: rotation})
	return nil
}

func (s *fakeSurface) Preview(width, height int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

func (s *fakeSurface) Release() error {
	s.mu.Lock()
	s.released++
	s.mu.Unlock()
	return nil
}

func (s *fakeSurface) lose() {
	s.mu.Lock()
	s.lost = true
	s.mu.Unlock()
}

func (s *fakeSurface) drawn() []drawCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]drawCall, len(s.draws))
	copy(out, s.draws)
	return out
}

func (s *fakeSurface) releases() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// fakes hands out a fresh guesttest.Fake per load.
type fakes struct {
	setup func(i int, f *guesttest.Fake)
	list  []*guesttest.Fake
	mu    sync.Mutex
}

func (fs *fakes) source() loader.Factory {
	return func(_ context.Context, host guest.Host) (guest.Handle, error) {
		f := guesttest.NewFake()
		f.BindHost(host)
		fs.mu.Lock()
		i := len(fs.list)
		fs.list = append(fs.list, f)
		setup := fs.setup
		fs.mu.Unlock()
		if setup != nil {
			setup(i, f)
		}
		return f, nil
	}
}

func (fs *fakes) get(t *testing.T, i int) *guesttest.Fake {
	t.Helper()
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if i >= len(fs.list) {
		t.Fatalf("fake %d not loaded (have %d)", i, len(fs.list))
	}
	return fs.list[i]
}

func (fs *fakes) count() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.list)
}

type harness struct {
	e        *Engine
	sched    *scheduler.Manual
	sink     *recorder
	runErr   chan error
	surfaces []*fakeSurface
	mu       sync.Mutex
}

func newHarness(t *testing.T, src loader.Source, opts ...Option) *harness {
	t.Helper()
	clock := scheduler.NewFakeClock(testStart)
	h := &harness{
		sched:  scheduler.NewManual(clock),
		sink:   &recorder{},
		runErr: make(chan error, 1),
	}
	base := []Option{
		WithConfig(Config{TerminateGrace: -1}),
		WithScheduler(h.sched),
		WithClock(clock),
		WithSurfaceFactory(func(d protocol.SurfaceDescriptor) (Surface, error) {
			s := &fakeSurface{w: d.Width, h: d.Height}
			h.mu.Lock()
			h.surfaces = append(h.surfaces, s)
			h.mu.Unlock()
			return s, nil
		}),
	}
	h.e = New(src, h.sink, append(base, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { h.runErr <- h.e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.e.Done()
	})
	return h
}

func (h *harness) surface(t *testing.T) *fakeSurface {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.surfaces) == 0 {
		t.Fatal("no surface acquired")
	}
	return h.surfaces[len(h.surfaces)-1]
}

func (h *harness) post(cmds ...protocol.Command) {
	for _, c := range cmds {
		h.e.Post(c)
	}
}

func (h *harness) init(w, hgt int) {
	h.post(protocol.Init{Surface: protocol.SurfaceDescriptor{Width: w, Height: hgt}})
}

// inspect doubles as a barrier: every message posted before it has been
// handled when it returns.
func (h *harness) inspect(t *testing.T) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := h.e.Inspect(ctx)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	return s
}

func (h *harness) waitFor(t *testing.T, what string, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s := h.inspect(t)
		if cond(s) {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s (state %v, generation %d)", what, s.State, s.Generation)
		}
		time.Sleep(time.Millisecond)
	}
}

func (h *harness) waitState(t *testing.T, want State) Snapshot {
	t.Helper()
	return h.waitFor(t, want.String(), func(s Snapshot) bool { return s.State == want })
}

// step advances the fake clock and waits until the resulting tick is handled.
func (h *harness) step(t *testing.T, d time.Duration) Snapshot {
	t.Helper()
	h.sched.Step(d)
	return h.inspect(t)
}

func TestStateReady(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{Uninitialized, false},
		{SurfaceReady, false},
		{ModuleLoading, false},
		{ModuleReady, true},
		{Running, true},
		{Stopped, true},
		{Terminated, false},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := tt.state.Ready(); got != tt.want {
				t.Errorf("Ready() = %v, want %v", got, tt.want)
			}
		})
	}
	if State(42).String() != "unknown" {
		t.Errorf("out of range state = %q", State(42).String())
	}
}

func TestAutoplay(t *testing.T) {
	fs := &fakes{}
	h := newHarness(t, fs.source())

	h.init(640, 480)
	s := h.waitState(t, Running)

	if s.SurfaceWidth != 640 || s.SurfaceHeight != 480 {
		t.Errorf("surface = %dx%d", s.SurfaceWidth, s.SurfaceHeight)
	}
	if !s.ModuleLoaded || s.Generation != 1 {
		t.Errorf("module loaded = %v, generation = %d", s.ModuleLoaded, s.Generation)
	}

	f := fs.get(t, 0)
	want := []string{guest.FuncInitLibs, guest.FuncStartRendering, guest.FuncFrame}
	got := f.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", got, want)
	}
	calls := f.Calls()
	if calls[0].Args[0] != 640 || calls[0].Args[1] != 480 {
		t.Errorf("init_libs args = %v", calls[0].Args)
	}
	if calls[2].Args[0] != 0.016 {
		t.Errorf("forced frame dt = %v", calls[2].Args[0])
	}

	events := h.sink.all()
	wantTypes := []string{protocol.TypeStatus, protocol.TypeStatus, protocol.TypeInitialized, protocol.TypeStatus}
	if len(events) != len(wantTypes) {
		t.Fatalf("events = %v", events)
	}
	for i, ev := range events {
		if ev.Type() != wantTypes[i] {
			t.Errorf("event %d = %s, want %s", i, ev.Type(), wantTypes[i])
		}
	}
	statuses := h.sink.statuses()
	wantStatus := []string{"worker started", "surface ready (640x480)", "render loop started"}
	if strings.Join(statuses, "|") != strings.Join(wantStatus, "|") {
		t.Errorf("statuses = %q, want %q", statuses, wantStatus)
	}
	if h.sched.Pending() != 1 {
		t.Errorf("pending ticks = %d, want 1", h.sched.Pending())
	}
}

// gatedSource completes each load only when the test resolves it.
type gatedSource struct {
	loads chan *loader.Deferred[guest.Handle]
	hosts chan guest.Host
}

func newGatedSource() *gatedSource {
	return &gatedSource{
		loads: make(chan *loader.Deferred[guest.Handle], 4),
		hosts: make(chan guest.Host, 4),
	}
}

func (g *gatedSource) source() loader.AsyncFactory {
	return func(_ context.Context, host guest.Host) *loader.Deferred[guest.Handle] {
		d := loader.NewDeferred[guest.Handle]()
		g.hosts <- host
		g.loads <- d
		return d
	}
}

func (g *gatedSource) next(t *testing.T) (*loader.Deferred[guest.Handle], guest.Host) {
	t.Helper()
	select {
	case d := <-g.loads:
		return d, <-g.hosts
	case <-time.After(2 * time.Second):
		t.Fatal("no load started")
	}
	return nil, nil
}

func TestQueuedControlMessages(t *testing.T) {
	tests := []struct {
		name       string
		queued     []protocol.Command
		wantState  State
		wantCalls  []string
		wantStatus []string
	}{
		{
			name:       "start runs once",
			queued:     []protocol.Command{protocol.Start{}},
			wantState:  Running,
			wantCalls:  []string{guest.FuncInitLibs, guest.FuncStartRendering, guest.FuncFrame},
			wantStatus: []string{"rendering started"},
		},
		{
			name:       "stop suppresses autoplay",
			queued:     []protocol.Command{protocol.Stop{}},
			wantState:  Stopped,
			wantCalls:  []string{guest.FuncInitLibs, guest.FuncStopRendering},
			wantStatus: []string{"rendering stopped"},
		},
		{
			name:      "start then stop",
			queued:    []protocol.Command{protocol.Start{}, protocol.Stop{}},
			wantState: Stopped,
			wantCalls: []string{
				guest.FuncInitLibs, guest.FuncStartRendering, guest.FuncFrame, guest.FuncStopRendering,
			},
			wantStatus: []string{"rendering started", "rendering stopped"},
		},
		{
			name:   "resizes replay in order",
			queued: []protocol.Command{protocol.Resize{Width: 800, Height: 600}, protocol.Resize{Width: 1024, Height: 768}},
			// autoplay still applies after a replay that did not start or stop
			wantState: Running,
			wantCalls: []string{
				guest.FuncInitLibs, guest.FuncHandleResize, guest.FuncHandleResize,
				guest.FuncStartRendering, guest.FuncFrame,
			},
			wantStatus: []string{"canvas resized to 800x600", "canvas resized to 1024x768", "render loop started"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := newGatedSource()
			h := newHarness(t, gs.source())

			h.init(320, 240)
			d, host := gs.next(t)
			h.post(tt.queued...)

			s := h.inspect(t)
			if s.State != ModuleLoading {
				t.Fatalf("state = %v, want module_loading", s.State)
			}
			if len(s.Pending) != len(tt.queued) {
				t.Fatalf("pending = %v", s.Pending)
			}

			f := guesttest.NewFake()
			f.BindHost(host)
			d.Resolve(f)

			s = h.waitFor(t, "replay", func(s Snapshot) bool { return s.State.Ready() })
			if s.State != tt.wantState {
				t.Errorf("state = %v, want %v", s.State, tt.wantState)
			}
			if len(s.Pending) != 0 {
				t.Errorf("pending after replay = %v", s.Pending)
			}
			if got := f.Names(); strings.Join(got, ",") != strings.Join(tt.wantCalls, ",") {
				t.Errorf("calls = %v, want %v", got, tt.wantCalls)
			}

			statuses := h.sink.statuses()
			// worker started, surface ready, then the replay
			if got := statuses[2:]; strings.Join(got, "|") != strings.Join(tt.wantStatus, "|") {
				t.Errorf("statuses = %q, want %q", got, tt.wantStatus)
			}
			if h.sink.count(protocol.TypeInitialized) != 1 {
				t.Errorf("initialized emitted %d times", h.sink.count(protocol.TypeInitialized))
			}
		})
	}
}

func TestResizeReplayArgs(t *testing.T) {
	gs := newGatedSource()
	h := newHarness(t, gs.source())

	h.init(320, 240)
	d, _ := gs.next(t)
	h.post(protocol.Resize{Width: 800, Height: 600}, protocol.Resize{Width: 1024, Height: 768})

	f := guesttest.NewFake()
	d.Resolve(f)
	h.waitState(t, Running)

	var sizes [][]any
	for _, c := range f.Calls() {
		if c.Name == guest.FuncHandleResize {
			sizes = append(sizes, c.Args)
		}
	}
	if len(sizes) != 2 {
		t.Fatalf("resize calls = %v", sizes)
	}
	if sizes[0][0] != 800 || sizes[0][1] != 600 || sizes[1][0] != 1024 || sizes[1][1] != 768 {
		t.Errorf("resize args = %v", sizes)
	}
	// init_libs sees the size at load time, not the queued sizes
	if args := f.Calls()[0].Args; args[0] != 320 || args[1] != 240 {
		t.Errorf("init_libs args = %v", args)
	}
	surf := h.surface(t)
	if surf.Width() != 1024 || surf.Height() != 768 {
		t.Errorf("surface = %dx%d", surf.Width(), surf.Height())
	}
}

func TestPointerInputBeforeReady(t *testing.T) {
	gs := newGatedSource()
	h := newHarness(t, gs.source())

	// Before init as well as during load.
	h.post(protocol.MouseMove{X: 1, Y: 2})
	h.init(320, 240)
	d, _ := gs.next(t)
	h.post(
		protocol.MouseMove{X: 10, Y: 20},
		protocol.MouseButton{Button: 0, Action: 1, X: 10, Y: 20},
	)

	s := h.inspect(t)
	if len(s.Pending) != 0 {
		t.Errorf("pointer input was queued: %v", s.Pending)
	}
	if s.Input.Cursor != (Vec2{X: 10, Y: 20}) {
		t.Errorf("cursor = %+v", s.Input.Cursor)
	}

	f := guesttest.NewFake()
	d.Resolve(f)
	h.waitState(t, Running)
	if n := f.Count(guest.FuncHandleMouseMove) + f.Count(guest.FuncHandleMouseButton); n != 0 {
		t.Errorf("pointer input replayed %d times", n)
	}

	h.post(
		protocol.MouseMove{X: 30, Y: 40},
		protocol.MouseButton{Button: 2, Action: 1, X: 30, Y: 40},
	)
	h.inspect(t)
	calls := f.Calls()
	var got []guesttest.Call
	for _, c := range calls {
		if c.Name == guest.FuncHandleMouseMove || c.Name == guest.FuncHandleMouseButton {
			got = append(got, c)
		}
	}
	if len(got) != 2 {
		t.Fatalf("pointer calls = %v", got)
	}
	if got[0].Args[0] != 30.0 || got[0].Args[1] != 40.0 {
		t.Errorf("mouse move args = %v", got[0].Args)
	}
	if got[1].Args[0] != 2 || got[1].Args[1] != 1 {
		t.Errorf("mouse button args = %v", got[1].Args)
	}
}

func TestOnlyQueueableMessagesPending(t *testing.T) {
	gs := newGatedSource()
	h := newHarness(t, gs.source())
	h.init(320, 240)
	gs.next(t)

	h.post(
		protocol.Start{},
		protocol.KeyEvent{Key: protocol.KeyArrowUp, Action: protocol.KeyDown},
		protocol.Resize{Width: 640, Height: 480},
		protocol.MouseMove{X: 5, Y: 5},
		protocol.SetSpeed{Speed: 2},
		protocol.Stop{},
	)

	s := h.inspect(t)
	want := []string{protocol.TypeStart, protocol.TypeResize, protocol.TypeStop}
	if len(s.Pending) != len(want) {
		t.Fatalf("pending = %v, want types %v", s.Pending, want)
	}
	for i, cmd := range s.Pending {
		if !protocol.Queueable(cmd) {
			t.Errorf("pending[%d] %s is not queueable", i, cmd.Type())
		}
		if cmd.Type() != want[i] {
			t.Errorf("pending[%d] = %s, want %s", i, cmd.Type(), want[i])
		}
	}
}

func TestInitIgnoredOutsideUninitialized(t *testing.T) {
	fs := &fakes{}
	h := newHarness(t, fs.source())

	h.init(100, 100)
	h.waitState(t, Running)
	h.init(200, 200)
	s := h.inspect(t)

	if s.SurfaceWidth != 100 || s.Generation != 1 {
		t.Errorf("second init took effect: %dx%d gen %d", s.SurfaceWidth, s.SurfaceHeight, s.Generation)
	}
	if fs.count() != 1 {
		t.Errorf("loads = %d", fs.count())
	}
}

func TestTerminate(t *testing.T) {
	fs := &fakes{}
	h := newHarness(t, fs.source())

	h.init(100, 100)
	h.waitState(t, Running)
	h.post(protocol.Terminate{}, protocol.Terminate{}, protocol.Start{})

	select {
	case err := <-h.runErr:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after terminate")
	}

	f := fs.get(t, 0)
	if f.Count(guest.FuncCleanup) != 1 {
		t.Errorf("cleanup called %d times", f.Count(guest.FuncCleanup))
	}
	if f.Count(guesttest.FuncClose) != 1 {
		t.Errorf("close called %d times", f.Count(guesttest.FuncClose))
	}
	if f.Count(guest.FuncStartRendering) != 1 {
		t.Errorf("start after terminate reached the module")
	}
	if n := h.surface(t).releases(); n != 1 {
		t.Errorf("surface released %d times", n)
	}
	if n := h.sink.countStatus("worker terminating"); n != 1 {
		t.Errorf("terminating status emitted %d times", n)
	}
	if h.sched.Pending() != 0 {
		t.Errorf("ticks still scheduled: %d", h.sched.Pending())
	}

	if h.e.Post(protocol.Start{}) {
		t.Error("Post accepted a message after shutdown")
	}
	s := h.inspect(t)
	if s.State != Terminated || s.ModuleLoaded {
		t.Errorf("final snapshot = %+v", s)
	}
	if _, err := h.e.Capture(context.Background(), 10, 10); err == nil {
		t.Error("Capture after shutdown should fail")
	}
}

func TestTerminateGrace(t *testing.T) {
	fs := &fakes{}
	h := newHarness(t, fs.source(), WithConfig(Config{TerminateGrace: 50 * time.Millisecond}))

	h.init(100, 100)
	h.waitState(t, Running)
	h.post(protocol.Terminate{})

	// Still answering during the grace period, but rejecting commands.
	h.post(protocol.SetSpeed{Speed: 3})
	s := h.inspect(t)
	if s.State != Terminated {
		t.Fatalf("state = %v", s.State)
	}
	if s.Speed == 3 {
		t.Error("set_speed applied after terminate")
	}

	select {
	case <-h.e.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the grace period")
	}
}

func TestTerminateDuringLoad(t *testing.T) {
	gs := newGatedSource()
	h := newHarness(t, gs.source())

	h.init(100, 100)
	d, _ := gs.next(t)
	h.post(protocol.Start{}, protocol.Terminate{})

	<-h.e.Done()
	// The load was canceled before the module arrived; it must never be
	// initialized or started.
	f := guesttest.NewFake()
	d.Resolve(f)
	time.Sleep(20 * time.Millisecond)

	if f.Count(guest.FuncInitLibs) != 0 || f.Count(guest.FuncStartRendering) != 0 {
		t.Errorf("late handle used: %v", f.Names())
	}
	if n := h.surface(t).releases(); n != 1 {
		t.Errorf("surface released %d times", n)
	}
}

func TestRunCanceled(t *testing.T) {
	fs := &fakes{}
	clock := scheduler.NewFakeClock(testStart)
	sink := &recorder{}
	e := New(fs.source(), sink,
		WithScheduler(scheduler.NewManual(clock)),
		WithClock(clock),
		WithSurfaceFactory(func(d protocol.SurfaceDescriptor) (Surface, error) {
			return &fakeSurface{w: d.Width, h: d.Height}, nil
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- e.Run(ctx) }()

	e.Post(protocol.Init{Surface: protocol.SurfaceDescriptor{Width: 10, Height: 10}})
	deadline := time.Now().Add(2 * time.Second)
	for {
		s, err := e.Inspect(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if s.State == Running {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("engine never started running")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
	if fs.get(t, 0).Count(guest.FuncCleanup) != 1 {
		t.Error("cleanup not called on cancel")
	}
	if err := e.Run(context.Background()); err == nil {
		t.Error("second Run should fail")
	}
}

func TestLoadFailure(t *testing.T) {
	var mu sync.Mutex
	fail := true
	loads := 0
	src := loader.Factory(func(_ context.Context, host guest.Host) (guest.Handle, error) {
		mu.Lock()
		defer mu.Unlock()
		loads++
		if fail {
			return nil, errors.New("network down")
		}
		f := guesttest.NewFake()
		f.BindHost(host)
		return f, nil
	})
	h := newHarness(t, src)

	h.init(100, 100)
	h.post(protocol.Start{})
	s := h.waitFor(t, "load failure", func(s Snapshot) bool { return s.LoadFailed })

	if s.State != ModuleLoading {
		t.Errorf("state = %v, want module_loading", s.State)
	}
	errs := h.sink.errorMessages()
	if len(errs) != 1 || !strings.Contains(errs[0], "module load failed") || !strings.Contains(errs[0], "network down") {
		t.Errorf("errors = %q", errs)
	}
	if len(s.Pending) != 1 {
		t.Errorf("pending = %v, want the queued start kept", s.Pending)
	}

	// No automatic retry.
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	if loads != 1 {
		t.Errorf("loads = %d, want 1", loads)
	}
	fail = false
	mu.Unlock()

	h.init(200, 150)
	s = h.waitState(t, Running)
	if s.SurfaceWidth != 200 || s.LoadFailed {
		t.Errorf("retry snapshot = %+v", s)
	}
	h.mu.Lock()
	first := h.surfaces[0]
	h.mu.Unlock()
	if first.releases() != 1 {
		t.Errorf("old surface released %d times", first.releases())
	}
	if n := h.sink.countStatus("rendering started"); n != 1 {
		t.Errorf("queued start replayed %d times", n)
	}
}

func TestInitGraphicsFailure(t *testing.T) {
	fs := &fakes{setup: func(_ int, f *guesttest.Fake) {
		f.FailWith(guest.FuncInitLibs, errors.New("no shaders"))
	}}
	h := newHarness(t, fs.source())

	h.init(100, 100)
	s := h.waitFor(t, "init failure", func(s Snapshot) bool { return s.LoadFailed })

	if s.State != SurfaceReady || s.ModuleLoaded {
		t.Errorf("snapshot = %+v", s)
	}
	if !fs.get(t, 0).Closed() {
		t.Error("failed handle not disposed")
	}
	errs := h.sink.errorMessages()
	if len(errs) != 1 || !strings.Contains(errs[0], "graphics init failed") {
		t.Errorf("errors = %q", errs)
	}
	if h.sink.count(protocol.TypeInitialized) != 0 {
		t.Error("initialized emitted after init failure")
	}
}

func TestContextUnavailable(t *testing.T) {
	acquires := 0
	h := newHarness(t, (&fakes{}).source(), WithSurfaceFactory(func(protocol.SurfaceDescriptor) (Surface, error) {
		acquires++
		return nil, werrors.ContextUnavailable("no graphics", nil)
	}))

	h.init(100, 100)
	h.post(protocol.Start{}, protocol.Resize{Width: 5, Height: 5})
	h.init(100, 100)
	s := h.inspect(t)

	if s.State != Uninitialized || !s.Inert {
		t.Errorf("snapshot = %+v", s)
	}
	if len(s.Pending) != 0 {
		t.Errorf("inert engine queued %v", s.Pending)
	}
	if acquires != 1 {
		t.Errorf("acquire attempts = %d", acquires)
	}
	errs := h.sink.errorMessages()
	if len(errs) != 1 || !strings.Contains(errs[0], "graphics context unavailable") {
		t.Errorf("errors = %q", errs)
	}
}

func TestCapture(t *testing.T) {
	fs := &fakes{}
	h := newHarness(t, fs.source())

	if _, err := h.e.Capture(context.Background(), 10, 10); err == nil {
		t.Error("Capture before init should fail")
	}

	h.init(64, 48)
	h.waitState(t, Running)

	img, err := h.e.Capture(context.Background(), 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("full capture = %v", img.Bounds())
	}
	img, err = h.e.Capture(context.Background(), 16, 12)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 12 {
		t.Errorf("scaled capture = %v", img.Bounds())
	}
}
