package main

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/wippyai/render-worker/engine"
	"github.com/wippyai/render-worker/errors"
	"github.com/wippyai/render-worker/loader"
	"github.com/wippyai/render-worker/protocol"
)

// lineWriter writes one JSON envelope per line. It is shared by the
// engine goroutine and the stdin reader.
type lineWriter struct {
	w  io.Writer
	mu sync.Mutex
}

func (lw *lineWriter) Emit(ev protocol.Event) {
	data, err := protocol.Encode(ev)
	if err != nil {
		return
	}
	lw.mu.Lock()
	defer lw.mu.Unlock()
	_, _ = lw.w.Write(append(data, '\n'))
}

// runStdio connects the engine to newline-delimited JSON: commands on in,
// events on out. EOF on in terminates the engine.
func runStdio(ctx context.Context, src loader.Source, cfg engine.Config, in io.Reader, out io.Writer) error {
	lw := &lineWriter{w: out}
	e := newEngine(src, cfg, lw)

	runErr := make(chan error, 1)
	go func() { runErr <- e.Run(ctx) }()

	go func() {
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			cmd, err := protocol.DecodeCommand(line)
			if err != nil {
				lw.Emit(protocol.Error{Message: err.Error()})
				continue
			}
			if !e.Post(cmd) {
				return
			}
		}
		e.Post(protocol.Terminate{})
	}()

	err := <-runErr
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
