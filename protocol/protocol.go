package protocol

// Command is a Controller -> Engine message. The set is closed: only types
// declared in this package implement it.
type Command interface {
	Type() string
	isCommand()
}

// Event is an Engine -> Controller message. The set is closed.
type Event interface {
	Type() string
	isEvent()
}

// Message type tags used on the wire.
const (
	TypeInit        = "init"
	TypeStart       = "start"
	TypeStop        = "stop"
	TypeResize      = "resize"
	TypeKeyEvent    = "key_event"
	TypeMouseMove   = "mouse_move"
	TypeMouseButton = "mouse_button"
	TypeSetSpeed    = "set_speed"
	TypeTerminate   = "terminate"

	TypeStatus      = "status"
	TypeInitialized = "initialized"
	TypeFPS         = "fps"
	TypeError       = "error"
)

// SurfaceDescriptor describes the drawable target handed to the engine at
// init. Ownership moves to the engine with the message.
type SurfaceDescriptor struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Init transfers the surface and begins module loading.
type Init struct {
	Surface SurfaceDescriptor `json:"surface"`
}

// Start begins (or resumes) the frame loop.
type Start struct{}

// Stop halts the frame loop.
type Stop struct{}

// Resize changes the surface dimensions.
type Resize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// KeyEvent reports a key transition.
type KeyEvent struct {
	Key    Key       `json:"key"`
	Action KeyAction `json:"action"`
}

// MouseMove reports a cursor position in surface pixels.
type MouseMove struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MouseButton reports a button transition. Action is 1 for press, 0 for release.
type MouseButton struct {
	Button int     `json:"button"`
	Action int     `json:"action"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// SetSpeed sets the movement speed in normalized units per second.
type SetSpeed struct {
	Speed float64 `json:"speed"`
}

// Terminate ends the worker.
type Terminate struct{}

func (Init) Type() string        { return TypeInit }
func (Start) Type() string       { return TypeStart }
func (Stop) Type() string        { return TypeStop }
func (Resize) Type() string      { return TypeResize }
func (KeyEvent) Type() string    { return TypeKeyEvent }
func (MouseMove) Type() string   { return TypeMouseMove }
func (MouseButton) Type() string { return TypeMouseButton }
func (SetSpeed) Type() string    { return TypeSetSpeed }
func (Terminate) Type() string   { return TypeTerminate }

func (Init) isCommand()        {}
func (Start) isCommand()       {}
func (Stop) isCommand()        {}
func (Resize) isCommand()      {}
func (KeyEvent) isCommand()    {}
func (MouseMove) isCommand()   {}
func (MouseButton) isCommand() {}
func (SetSpeed) isCommand()    {}
func (Terminate) isCommand()   {}

// Status carries a human-readable engine status line.
type Status struct {
	Status string `json:"status"`
}

// Initialized is emitted once the module is ready and graphics are set up.
type Initialized struct{}

// FPS carries the instantaneous frame rate of the last tick.
type FPS struct {
	FPS int `json:"fps"`
}

// Error reports a fatal or reportable condition.
type Error struct {
	Message string `json:"message"`
}

func (Status) Type() string      { return TypeStatus }
func (Initialized) Type() string { return TypeInitialized }
func (FPS) Type() string         { return TypeFPS }
func (Error) Type() string       { return TypeError }

func (Status) isEvent()      {}
func (Initialized) isEvent() {}
func (FPS) isEvent()         {}
func (Error) isEvent()       {}

// Queueable reports whether cmd must be replayed when it arrives before
// the module is ready. Structural control messages are queued; transient
// input is not.
func Queueable(cmd Command) bool {
	switch cmd.(type) {
	case Start, Stop, Resize:
		return true
	default:
		return false
	}
}
