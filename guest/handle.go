package guest

import "context"

// Handle is a loaded graphics module. All calls are synchronous and are
// made from a single goroutine. Close disposes the module; no call may
// follow it.
type Handle interface {
	InitGraphics(ctx context.Context, width, height int) error
	AdvanceFrame(ctx context.Context, dt float64) error
	StartRendering(ctx context.Context) error
	StopRendering(ctx context.Context) error
	HandleResize(ctx context.Context, width, height int) error
	HandleMouseMove(ctx context.Context, x, y float64) error
	HandleMouseButton(ctx context.Context, button, action int) error
	Cleanup(ctx context.Context) error
	Close(ctx context.Context) error
}

// Host is the engine side of the module boundary. RenderFrame is invoked
// by the module from inside one of the Handle calls, on the caller's
// goroutine.
type Host interface {
	RenderFrame(rotation float32)
}

// HostFunc adapts a function to Host.
type HostFunc func(rotation float32)

func (f HostFunc) RenderFrame(rotation float32) { f(rotation) }
