package engine

// State is the engine lifecycle state.
type State int

const (
	Uninitialized State = iota
	SurfaceReady
	ModuleLoading
	ModuleReady
	Running
	Stopped
	Terminated
)

var stateNames = [...]string{
	Uninitialized: "uninitialized",
	SurfaceReady:  "surface_ready",
	ModuleLoading: "module_loading",
	ModuleReady:   "module_ready",
	Running:       "running",
	Stopped:       "stopped",
	Terminated:    "terminated",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Ready reports whether a module handle is loaded and its graphics are
// initialized. Messages that reach the module are only delivered in these
// states.
func (s State) Ready() bool {
	return s == ModuleReady || s == Running || s == Stopped
}
