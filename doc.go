// Package renderworker runs a graphics module behind a message-driven
// render loop.
//
// A controller owns a drawable surface and hands it to a worker, then
// steers the worker purely through messages: start and stop the loop,
// resize, keyboard and pointer input, playback speed, terminate. The
// worker loads a WebAssembly graphics module, drives its frame entry
// point once per display refresh and reports status, frame rate and
// errors back as messages.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	renderworker/        Root package (documentation only)
//	├── engine/          Worker state machine, frame loop, mailbox
//	├── protocol/        Command and event messages, JSON envelope codec
//	├── loader/          Module source shapes and their normalization
//	├── guest/           Graphics ABI, wazero-backed module handle, demo module
//	├── surface/         gg-backed drawing surface with API level fallback
//	├── scheduler/       Frame callback scheduling and clocks
//	├── wasm/            Core WASM binary encoding for in-process modules
//	├── errors/          Structured error types for debugging
//	└── cmd/render/      Terminal, headless and stdio controllers
//
// # Quick Start
//
// Run the demo module and feed it messages:
//
//	src := loader.Wasm(guest.DemoModule(), guest.DefaultConfig())
//	e := engine.New(src, engine.SinkFunc(func(ev protocol.Event) {
//	    fmt.Println(ev.Type())
//	}))
//	go e.Run(ctx)
//
//	e.Post(protocol.Init{Surface: protocol.SurfaceDescriptor{Width: 640, Height: 480}})
//	e.Post(protocol.KeyEvent{Key: protocol.KeyArrowLeft, Action: protocol.KeyDown})
//	...
//	e.Post(protocol.Terminate{})
//	<-e.Done()
//
// # Graphics Modules
//
// A module is a core WebAssembly module exporting the entry points of
// guest.GraphicsABI (init_libs, frame, start_rendering and so on) and
// optionally importing env.render_frame to ask the host to draw. Only
// init_libs is required at load time. A module that loses an entry point
// at run time is reloaded a bounded number of times.
//
// # Thread Safety
//
// Engine.Post, Inspect and Capture are safe for concurrent use. Everything
// else runs on the goroutine that called Engine.Run; module handles and
// surfaces are never touched from any other goroutine.
package renderworker
