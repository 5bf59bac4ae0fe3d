package engine

import "github.com/wippyai/render-worker/protocol"

// Vec2 is a point in normalized device coordinates or surface pixels.
type Vec2 struct {
	X, Y float64
}

// InputState is the keyboard, cursor and marker position the engine
// tracks between frames.
type InputState struct {
	Position Vec2
	Cursor   Vec2

	Up, Down, Left, Right bool

	// Space is a one-shot: the next frame recenters the marker and clears it.
	Space bool
}

// Apply records a key transition. Unrecognized keys are ignored and
// reported as false.
func (s *InputState) Apply(key protocol.Key, action protocol.KeyAction) bool {
	down := action == protocol.KeyDown
	switch key {
	case protocol.KeyArrowUp:
		s.Up = down
	case protocol.KeyArrowDown:
		s.Down = down
	case protocol.KeyArrowLeft:
		s.Left = down
	case protocol.KeyArrowRight:
		s.Right = down
	case protocol.KeySpace:
		s.Space = down
	default:
		return false
	}
	return true
}

// Pressed reports whether key is currently held.
func (s InputState) Pressed(key protocol.Key) bool {
	switch key {
	case protocol.KeyArrowUp:
		return s.Up
	case protocol.KeyArrowDown:
		return s.Down
	case protocol.KeyArrowLeft:
		return s.Left
	case protocol.KeyArrowRight:
		return s.Right
	case protocol.KeySpace:
		return s.Space
	}
	return false
}

// Step advances the position by speed*dt along every held arrow and
// clamps it to [-bound, bound]. A pending Space resets the position.
func (s *InputState) Step(dt, speed, bound float64) {
	d := speed * dt
	if s.Up {
		s.Position.Y += d
	}
	if s.Down {
		s.Position.Y -= d
	}
	if s.Left {
		s.Position.X -= d
	}
	if s.Right {
		s.Position.X += d
	}
	s.Position.X = clamp(s.Position.X, -bound, bound)
	s.Position.Y = clamp(s.Position.Y, -bound, bound)

	if s.Space {
		s.Position = Vec2{}
		s.Space = false
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
