// Package surface owns the drawable target handed to the render engine.
//
// Acquire walks a list of API levels from most to least capable and binds
// the first one the host can provide. The resulting Surface is drawn with
// github.com/gogpu/gg: the accelerated level requires a registered gg GPU
// accelerator, the software level always works. A surface is resized in
// place and released exactly once.
package surface
