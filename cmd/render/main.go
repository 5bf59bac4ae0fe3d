package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/render-worker/engine"
	"github.com/wippyai/render-worker/guest"
	"github.com/wippyai/render-worker/loader"
)

type options struct {
	wasmFile string
	snapshot string
	logLevel string
	logFile  string
	width    int
	height   int
	fps      int
	speed    float64
	duration time.Duration
	headless bool
	stdio    bool
	list     bool
	logJSON  bool
}

func main() {
	var o options
	flag.StringVar(&o.wasmFile, "wasm", "", "Path to graphics module wasm file (default: built-in demo)")
	flag.IntVar(&o.width, "width", 640, "Surface width in pixels")
	flag.IntVar(&o.height, "height", 480, "Surface height in pixels")
	flag.Float64Var(&o.speed, "speed", 0, "Initial movement speed (default 0.5)")
	flag.IntVar(&o.fps, "fps", 60, "Frame rate of the render loop")
	flag.BoolVar(&o.headless, "headless", false, "Render without a terminal UI")
	flag.DurationVar(&o.duration, "duration", 2*time.Second, "How long to render in headless mode")
	flag.StringVar(&o.snapshot, "snapshot", "", "Write the final frame to this PNG file (headless)")
	flag.BoolVar(&o.stdio, "stdio", false, "Read JSON commands from stdin, write JSON events to stdout")
	flag.BoolVar(&o.list, "list", false, "List the module's graphics exports and exit")
	flag.StringVar(&o.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&o.logJSON, "log-json", false, "Log JSON instead of console output")
	flag.StringVar(&o.logFile, "log-file", "", "Log file (default stderr; interactive mode logs nowhere without it)")
	flag.Parse()

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(o options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	wasmBytes, err := readModule(o.wasmFile)
	if err != nil {
		return err
	}
	if o.list {
		return listExports(ctx, os.Stdout, wasmBytes)
	}

	interactive := !o.stdio && !o.headless && term.IsTerminal(int(os.Stdout.Fd()))

	log, err := buildLogger(o, interactive)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	engine.SetLogger(log.Named("engine"))
	guest.SetLogger(log.Named("guest"))

	gcfg := guest.DefaultConfig()
	gcfg.Name = "graphics"
	src := loader.Wasm(wasmBytes, gcfg)

	cfg := engine.Config{DefaultSpeed: o.speed}
	if o.fps > 0 {
		cfg.FrameInterval = time.Second / time.Duration(o.fps)
	}

	switch {
	case o.stdio:
		return runStdio(ctx, src, cfg, os.Stdin, os.Stdout)
	case interactive:
		return runInteractive(ctx, src, cfg, o)
	default:
		return runHeadless(ctx, src, cfg, o, log)
	}
}

func readModule(path string) ([]byte, error) {
	if path == "" {
		return guest.DemoModule(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module: %w", err)
	}
	return data, nil
}

// buildLogger follows the zap presets: development (console) by default,
// production (JSON) with -log-json.
func buildLogger(o options, interactive bool) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(o.logLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if interactive && o.logFile == "" {
		return zap.NewNop(), nil
	}

	var cfg zap.Config
	if o.logJSON {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if o.logFile != "" {
		cfg.OutputPaths = []string{o.logFile}
	}
	return cfg.Build()
}

func newEngine(src loader.Source, cfg engine.Config, sink engine.Sink) *engine.Engine {
	return engine.New(src, sink, engine.WithConfig(cfg))
}
