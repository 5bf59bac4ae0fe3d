package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/render-worker/engine"
	"github.com/wippyai/render-worker/errors"
	"github.com/wippyai/render-worker/loader"
	"github.com/wippyai/render-worker/protocol"
)

// headlessStats is written by the engine goroutine and read after Run
// returns.
type headlessStats struct {
	frames  int
	lastFPS int
	errors  int
}

func runHeadless(ctx context.Context, src loader.Source, cfg engine.Config, o options, log *zap.Logger) error {
	var stats headlessStats
	sink := engine.SinkFunc(func(ev protocol.Event) {
		switch ev := ev.(type) {
		case protocol.Status:
			log.Info("status", zap.String("status", ev.Status))
		case protocol.Initialized:
			log.Info("module initialized")
		case protocol.FPS:
			stats.frames++
			stats.lastFPS = ev.FPS
		case protocol.Error:
			stats.errors++
			log.Error("engine error", zap.String("message", ev.Message))
		}
	})

	e := newEngine(src, cfg, sink)
	runErr := make(chan error, 1)
	go func() { runErr <- e.Run(ctx) }()

	e.Post(protocol.Init{Surface: protocol.SurfaceDescriptor{Width: o.width, Height: o.height}})

	select {
	case <-time.After(o.duration):
	case <-ctx.Done():
	case <-e.Done():
	}

	if o.snapshot != "" {
		captureCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		img, err := e.Capture(captureCtx, 0, 0)
		cancel()
		if err != nil {
			log.Warn("snapshot skipped", zap.Error(err))
		} else if err := writePNG(o.snapshot, img); err != nil {
			log.Warn("snapshot failed", zap.Error(err))
		} else {
			log.Info("snapshot written", zap.String("path", o.snapshot))
		}
	}

	e.Post(protocol.Terminate{})
	err := <-runErr
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	fmt.Printf("rendered %d frames, last fps %d, %d error(s)\n", stats.frames, stats.lastFPS, stats.errors)
	return err
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
