// Package engine implements the render worker: a state machine that owns
// a drawing surface and a graphics module and drives a frame loop from
// control messages.
//
// # Threading
//
// Everything the engine mutates lives on the goroutine running Run.
// Controllers talk to it only through Post, which appends to an
// unbounded FIFO mailbox and never blocks. Module load completions and
// scheduler ticks arrive through the same mailbox, so message handling,
// load completion and frames never overlap.
//
// # Lifecycle
//
//	Uninitialized --init--> SurfaceReady --> ModuleLoading --loaded--> ModuleReady
//	ModuleReady --start/autoplay--> Running --stop--> Stopped --start--> Running
//	any --terminate--> Terminated
//
// start, stop and resize received before the module is ready are queued
// and replayed in order once it is. Pointer input is dropped until then.
// Key events and set_speed apply immediately in every state.
//
// When the module becomes ready the engine calls InitGraphics once,
// replays the queue, emits initialized, and starts rendering unless a
// replayed message already started or stopped it.
//
// # Faults
//
// A module call that fails because an entry point is missing discards
// the handle and loads a fresh one, resuming the loop if it was running.
// Consecutive reloads are bounded by Config.MaxReloads. Other module
// errors are logged and do not stop the loop. A failed load or a failed
// InitGraphics is reported once; a new init retries. If no graphics
// context can be bound at init the engine reports it and goes inert. A
// draw failure after that stops the loop for good.
//
// # Example
//
//	e := engine.New(loader.Demo(guest.DefaultConfig()), engine.SinkFunc(func(ev protocol.Event) {
//		fmt.Println(ev.Type())
//	}))
//	go e.Run(ctx)
//	e.Post(protocol.Init{Surface: protocol.SurfaceDescriptor{Width: 640, Height: 480}})
package engine
