package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptHandler cancels a run on SIGINT/SIGTERM and tells the operator
// what was finished before the stop.
type InterruptHandler struct {
	writer      io.Writer
	summary     func() string
	interrupted bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a handler writing to writer, or stdout when nil.
func NewInterruptHandler(writer io.Writer) *InterruptHandler {
	if writer == nil {
		writer = os.Stdout
	}
	return &InterruptHandler{writer: writer}
}

// HandleInterrupts returns a context canceled on the first interrupt.
// summary, if set, is rendered into the interrupt message.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context, summary func() string) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	h.summary = summary

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			h.interrupt()
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx
}

func (h *InterruptHandler) interrupt() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.interrupted {
		return
	}
	h.interrupted = true

	msg := "\n" + FormatWarning("Moderation interrupted, flushing queued names...")
	if h.summary != nil {
		msg += "\n" + FormatInfo(h.summary())
	}
	if _, err := fmt.Fprintln(h.writer, msg); err != nil {
		slog.Warn("Failed to write interrupt message", "error", err)
	}
}

// WasInterrupted returns true if the process was interrupted.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}
