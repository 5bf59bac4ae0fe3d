package loader

import (
	"context"
	"fmt"

	"github.com/wippyai/render-worker/errors"
	"github.com/wippyai/render-worker/guest"
)

// Resolve produces a ready handle from src. Every failure is a
// module_load_failure, except cancellation which is reported as canceled.
// A handle obtained before a failure or cancellation is closed.
func Resolve(ctx context.Context, src Source, host guest.Host) (h guest.Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			h, err = nil, errors.ModuleLoad(fmt.Sprintf("module provider panicked: %v", r), nil)
		}
	}()

	switch s := src.(type) {
	case Object:
		h = s.Handle
		if h == nil {
			return nil, errors.ModuleLoad("object source has no handle", nil)
		}
		if b, ok := h.(HostBinder); ok {
			b.BindHost(host)
		}
	case Factory:
		if s == nil {
			return nil, errors.ModuleLoad("nil factory", nil)
		}
		h, err = s(ctx, host)
		if err != nil {
			return nil, loadErr(ctx, "factory", err)
		}
		if h == nil {
			return nil, errors.ModuleLoad("factory returned no handle", nil)
		}
	case AsyncFactory:
		if s == nil {
			return nil, errors.ModuleLoad("nil factory", nil)
		}
		d := s(ctx, host)
		if d == nil {
			return nil, errors.ModuleLoad("factory returned no deferred", nil)
		}
		h, err = d.Wait(ctx)
		if err != nil {
			return nil, loadErr(ctx, "deferred", err)
		}
		if h == nil {
			return nil, errors.ModuleLoad("deferred resolved without a handle", nil)
		}
	default:
		return nil, errors.ModuleLoad(fmt.Sprintf("unsupported source %T", src), nil)
	}

	if r, ok := h.(Readier); ok {
		if sig := r.Ready(); sig != nil {
			if _, err := sig.Wait(ctx); err != nil {
				_ = h.Close(context.WithoutCancel(ctx))
				return nil, loadErr(ctx, "ready signal", err)
			}
		}
	}

	if ctx.Err() != nil {
		_ = h.Close(context.WithoutCancel(ctx))
		return nil, canceled(ctx)
	}
	return h, nil
}

func loadErr(ctx context.Context, stage string, cause error) error {
	if ctx.Err() != nil {
		return canceled(ctx)
	}
	return errors.ModuleLoad(stage+" rejected", cause)
}

func canceled(ctx context.Context) error {
	return errors.Wrap(errors.PhaseLoad, errors.KindCanceled, ctx.Err(), "load canceled")
}
