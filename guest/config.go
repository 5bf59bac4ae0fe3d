package guest

import "go.uber.org/zap/zapcore"

// Config controls how a graphics module is compiled and instantiated.
type Config struct {
	// Name is the module instance name. Empty means anonymous.
	Name string

	// MemoryLimitPages caps guest memory in 64 KiB pages. 0 means the
	// runtime default.
	MemoryLimitPages uint32

	// EnableWASI provides wasi_snapshot_preview1 to modules that import it.
	// Modules importing WASI fail to load when it is off.
	EnableWASI bool

	// StdoutLevel and StderrLevel are the log levels guest output is
	// written at.
	StdoutLevel zapcore.Level
	StderrLevel zapcore.Level
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		EnableWASI:  true,
		StdoutLevel: zapcore.InfoLevel,
		StderrLevel: zapcore.WarnLevel,
	}
}
