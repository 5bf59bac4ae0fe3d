// Package guesttest provides a scriptable guest.Handle for tests.
package guesttest

import (
	"context"
	"sync"

	"github.com/wippyai/render-worker/errors"
	"github.com/wippyai/render-worker/guest"
)

// FuncClose is the name Close is recorded under.
const FuncClose = "close"

// Call is one recorded invocation.
type Call struct {
	Name string
	Args []any
}

// Fake records every call and can be told to fail or to lack entry
// points. It is safe for use from the engine goroutine and the test
// goroutine at once.
type Fake struct {
	host    guest.Host
	missing map[string]bool
	errs    map[string]error
	calls   []Call
	mu      sync.Mutex

	// RenderOnFrame makes AdvanceFrame call the bound host with the frame
	// delta scaled to degrees.
	RenderOnFrame bool
}

func NewFake() *Fake {
	return &Fake{
		missing: make(map[string]bool),
		errs:    make(map[string]error),
	}
}

// BindHost sets the host the fake renders through.
func (f *Fake) BindHost(h guest.Host) {
	f.mu.Lock()
	f.host = h
	f.mu.Unlock()
}

// SetMissing makes the named entry point fail with errors.FunctionNotFound.
func (f *Fake) SetMissing(name string, missing bool) {
	f.mu.Lock()
	f.missing[name] = missing
	f.mu.Unlock()
}

// FailWith makes the named entry point return err. A nil err clears it.
func (f *Fake) FailWith(name string, err error) {
	f.mu.Lock()
	if err == nil {
		delete(f.errs, name)
	} else {
		f.errs[name] = err
	}
	f.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Names returns the recorded call names in order.
func (f *Fake) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.calls))
	for i, c := range f.calls {
		names[i] = c.Name
	}
	return names
}

// Count returns how many times name was called.
func (f *Fake) Count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	return f.Count(FuncClose) > 0
}

func (f *Fake) record(name string, args ...any) error {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Name: name, Args: args})
	missing := f.missing[name]
	err := f.errs[name]
	f.mu.Unlock()

	if missing {
		return errors.FunctionNotFound(name)
	}
	return err
}

func (f *Fake) InitGraphics(_ context.Context, width, height int) error {
	return f.record(guest.FuncInitLibs, width, height)
}

func (f *Fake) AdvanceFrame(_ context.Context, dt float64) error {
	if err := f.record(guest.FuncFrame, dt); err != nil {
		return err
	}
	f.mu.Lock()
	h, render := f.host, f.RenderOnFrame
	f.mu.Unlock()
	if render && h != nil {
		h.RenderFrame(float32(dt * 100))
	}
	return nil
}

func (f *Fake) StartRendering(context.Context) error {
	return f.record(guest.FuncStartRendering)
}

func (f *Fake) StopRendering(context.Context) error {
	return f.record(guest.FuncStopRendering)
}

func (f *Fake) HandleResize(_ context.Context, width, height int) error {
	return f.record(guest.FuncHandleResize, width, height)
}

func (f *Fake) HandleMouseMove(_ context.Context, x, y float64) error {
	return f.record(guest.FuncHandleMouseMove, x, y)
}

func (f *Fake) HandleMouseButton(_ context.Context, button, action int) error {
	return f.record(guest.FuncHandleMouseButton, button, action)
}

func (f *Fake) Cleanup(context.Context) error {
	return f.record(guest.FuncCleanup)
}

func (f *Fake) Close(context.Context) error {
	return f.record(FuncClose)
}

var _ guest.Handle = (*Fake)(nil)
