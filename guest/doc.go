// Package guest runs graphics modules and exposes them to the render engine
// as a Handle.
//
// A graphics module is a core WebAssembly module whose exports follow the
// ABI in GraphicsABI. The engine drives it through eight synchronous entry
// points (init_libs, frame, start_rendering, stop_rendering, handle_resize,
// handle_mouse_move, handle_mouse_button, cleanup) and the module calls
// back through the env.render_frame import, which reaches the engine's
// Host. Modules built against WASI preview1 get their stdout and stderr
// routed to the package logger.
//
// Only init_libs is required at load time. The other entry points are
// resolved per call, and a missing one fails with errors.FunctionNotFound
// so the engine can tell a vanished entry point from an ordinary trap.
package guest
