// Package scheduler provides the frame scheduling port used by the render
// engine: request a callback for the next display refresh, or cancel one
// that has not fired yet.
//
// Ticker is the real implementation, driven by a timer at the configured
// refresh interval. Manual and FakeClock let tests decide exactly when a
// frame happens and what time it observes.
package scheduler
