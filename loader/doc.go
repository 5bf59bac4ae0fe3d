// Package loader turns the ways a graphics module can be provided into a
// single guest.Handle.
//
// A Source is one of three shapes: an Object that is already constructed,
// a Factory that constructs the handle synchronously, or an AsyncFactory
// that returns a Deferred completed later. Resolve normalizes all three.
// A handle that also implements Readier is not considered loaded until its
// readiness signal resolves.
package loader
