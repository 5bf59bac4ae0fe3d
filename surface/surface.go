package surface

import (
	"fmt"
	"image"
	"math"

	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/wippyai/render-worker/errors"
)

// Level is a graphics API level a surface can be bound to.
type Level string

const (
	// LevelAccelerated draws through the registered gg GPU accelerator.
	LevelAccelerated Level = "accelerated"
	// LevelSoftware draws with gg's CPU rasterizer.
	LevelSoftware Level = "software"
)

// DefaultLevels is the acquisition order used when none is given.
var DefaultLevels = []Level{LevelAccelerated, LevelSoftware}

// DefaultRotation is used when a frame asks for a zero or non-finite angle.
const DefaultRotation = 45.0

var (
	clearColor    = gg.RGB(0.1, 0.1, 0.1)
	triangleColor = gg.RGB(0.95, 0.35, 0.2)
)

// Triangle vertices in normalized device coordinates before offset and
// rotation.
var triangle = [3][2]float64{
	{0.0, 0.5},
	{-0.5, -0.5},
	{0.5, -0.5},
}

func (l Level) available() bool {
	switch l {
	case LevelAccelerated:
		return gg.Accelerator() != nil
	case LevelSoftware:
		return true
	}
	return false
}

// Surface is a gg context bound to one API level.
type Surface struct {
	ctx      *gg.Context
	level    Level
	viewport image.Rectangle
	released bool
}

// Acquire binds a width x height surface to the first available level.
// It fails with a context_unavailable error when the dimensions are not
// positive or no level can be bound.
func Acquire(width, height int, levels ...Level) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.ContextUnavailable(fmt.Sprintf("invalid surface %dx%d", width, height), nil)
	}
	if len(levels) == 0 {
		levels = DefaultLevels
	}

	for _, l := range levels {
		if !l.available() {
			continue
		}
		s := &Surface{
			ctx:   gg.NewContext(width, height),
			level: l,
		}
		s.viewport = image.Rect(0, 0, width, height)
		if err := s.Clear(); err != nil {
			return nil, err
		}
		return s, nil
	}

	return nil, errors.ContextUnavailable(fmt.Sprintf("no graphics context for levels %v", levels), nil)
}

// Level returns the API level the surface is bound to.
func (s *Surface) Level() Level {
	return s.level
}

func (s *Surface) Width() int {
	return s.ctx.Width()
}

func (s *Surface) Height() int {
	return s.ctx.Height()
}

// Viewport returns the drawing rectangle. It always covers the surface.
func (s *Surface) Viewport() image.Rectangle {
	return s.viewport
}

// Released reports whether Release has been called.
func (s *Surface) Released() bool {
	return s.released
}

// Resize changes the surface dimensions in place and updates the viewport.
func (s *Surface) Resize(width, height int) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := s.ctx.Resize(width, height); err != nil {
		return errors.InvalidInput(errors.PhaseSurface, err.Error())
	}
	s.viewport = image.Rect(0, 0, width, height)
	return s.Clear()
}

// Clear fills the surface with the clear color.
func (s *Surface) Clear() error {
	if err := s.check(); err != nil {
		return err
	}
	s.ctx.ClearWithColor(clearColor)
	return nil
}

// DrawTriangle clears the surface and draws the marker triangle offset by
// (x, y) in normalized device coordinates, then rotated clockwise about
// the origin by rotation degrees.
func (s *Surface) DrawTriangle(x, y, rotation float64) error {
	if err := s.check(); err != nil {
		return err
	}
	if rotation == 0 || math.IsNaN(rotation) || math.IsInf(rotation, 0) {
		rotation = DefaultRotation
	}

	rad := rotation * math.Pi / 180
	sin, cos := math.Sincos(rad)
	w, h := float64(s.viewport.Dx()), float64(s.viewport.Dy())

	s.ctx.ClearWithColor(clearColor)
	s.ctx.SetColor(triangleColor.Color())
	for i, v := range triangle {
		vx, vy := v[0]+x, v[1]+y
		rx := cos*vx + sin*vy
		ry := -sin*vx + cos*vy
		px := (rx + 1) / 2 * w
		py := (1 - ry) / 2 * h
		if i == 0 {
			s.ctx.MoveTo(px, py)
		} else {
			s.ctx.LineTo(px, py)
		}
	}
	s.ctx.ClosePath()
	if err := s.ctx.Fill(); err != nil {
		return errors.Wrap(errors.PhaseSurface, errors.KindContextLost, err, "fill triangle")
	}
	return nil
}

// Image returns the current pixels.
func (s *Surface) Image() image.Image {
	return s.ctx.Image()
}

// SavePNG writes the current pixels to path.
func (s *Surface) SavePNG(path string) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.ctx.SavePNG(path)
}

// Preview returns the current pixels scaled to width x height.
func (s *Surface) Preview(width, height int) *image.RGBA {
	if width <= 0 || height <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	src := s.ctx.Image()
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// Release frees the context. Later calls are no-ops.
func (s *Surface) Release() error {
	if s.released {
		return nil
	}
	s.released = true
	return s.ctx.Close()
}

// check reports context loss: a released surface, or an accelerated
// surface whose accelerator has been unregistered.
func (s *Surface) check() error {
	if s.released {
		return errors.ContextLost("surface released")
	}
	if s.level == LevelAccelerated && gg.Accelerator() == nil {
		return errors.ContextLost("gpu accelerator no longer available")
	}
	return nil
}
