package engine

import (
	"time"

	"github.com/wippyai/render-worker/scheduler"
)

// Config holds tunables for an Engine. Zero fields take the defaults.
type Config struct {
	// MaxStep caps the per-frame delta in seconds. Longer gaps (a
	// backgrounded controller, a debugger pause) advance the simulation by
	// at most this much.
	MaxStep float64

	// ForcedStep is the delta of the single frame run synchronously when
	// rendering starts.
	ForcedStep float64

	// DefaultSpeed is the initial movement speed in normalized units per
	// second.
	DefaultSpeed float64

	// PositionBound clamps both position components to [-bound, bound].
	PositionBound float64

	// TerminateGrace is how long Run keeps draining after terminate before
	// returning. Negative means return immediately.
	TerminateGrace time.Duration

	// MaxReloads bounds consecutive reloads triggered by a module that
	// lost an entry point. Negative disables reloading.
	MaxReloads int

	// FrameInterval is the period of the default ticker scheduler.
	FrameInterval time.Duration
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MaxStep:        0.1,
		ForcedStep:     0.016,
		DefaultSpeed:   0.5,
		PositionBound:  0.9,
		TerminateGrace: 100 * time.Millisecond,
		MaxReloads:     3,
		FrameInterval:  scheduler.DefaultInterval,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxStep <= 0 {
		c.MaxStep = d.MaxStep
	}
	if c.ForcedStep <= 0 {
		c.ForcedStep = d.ForcedStep
	}
	if c.DefaultSpeed == 0 {
		c.DefaultSpeed = d.DefaultSpeed
	}
	if c.PositionBound <= 0 {
		c.PositionBound = d.PositionBound
	}
	switch {
	case c.TerminateGrace == 0:
		c.TerminateGrace = d.TerminateGrace
	case c.TerminateGrace < 0:
		c.TerminateGrace = 0
	}
	switch {
	case c.MaxReloads == 0:
		c.MaxReloads = d.MaxReloads
	case c.MaxReloads < 0:
		c.MaxReloads = 0
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = d.FrameInterval
	}
	return c
}
