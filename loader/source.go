package loader

import (
	"context"

	"github.com/wippyai/render-worker/errors"
	"github.com/wippyai/render-worker/guest"
)

// Source is a way of providing a graphics module. The set is closed:
// Object, Factory and AsyncFactory.
type Source interface {
	isSource()
}

// Object is a handle that is already constructed. The handle is handed
// out once; loads after the first go through Rebuild, and fail when it
// is nil.
type Object struct {
	Handle  guest.Handle
	Rebuild Factory
}

// Factory constructs a handle synchronously.
type Factory func(ctx context.Context, host guest.Host) (guest.Handle, error)

// AsyncFactory starts constructing a handle and returns its completion.
type AsyncFactory func(ctx context.Context, host guest.Host) *Deferred[guest.Handle]

func (Object) isSource()       {}
func (Factory) isSource()      {}
func (AsyncFactory) isSource() {}

// Readier is implemented by handles that finish initializing after
// construction. Resolve waits for the signal before reporting the handle.
type Readier interface {
	Ready() *Deferred[struct{}]
}

// HostBinder is implemented by pre-constructed handles that accept the
// engine's host after the fact.
type HostBinder interface {
	BindHost(host guest.Host)
}

// Reload returns the source for a load that follows an earlier one from
// src. Factories build a fresh handle each time and are returned as is.
// An Object's handle has already been used, so its Rebuild factory takes
// over, and an Object without one cannot be reloaded.
func Reload(src Source) (Source, error) {
	o, ok := src.(Object)
	if !ok {
		return src, nil
	}
	if o.Rebuild == nil {
		return nil, errors.ModuleLoad("object source cannot be reloaded", nil)
	}
	return o.Rebuild, nil
}

// Wasm returns a Factory that loads wasmBytes with guest.Load.
func Wasm(wasmBytes []byte, cfg guest.Config) Factory {
	return func(ctx context.Context, host guest.Host) (guest.Handle, error) {
		return guest.Load(ctx, wasmBytes, host, cfg)
	}
}

// Demo returns a Factory for the built-in demo module.
func Demo(cfg guest.Config) Factory {
	return Wasm(guest.DemoModule(), cfg)
}
