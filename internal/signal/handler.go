// Package signal cancels the CLI context on SIGINT or SIGTERM so a held lock
// or a long clock sampling run unwinds through its deferred cleanup.
//
// Import rules:
//   - CAN import: std lib only
//   - MUST NOT import: internal packages (to avoid circular dependencies)
package signal

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// Handler wraps a context and cancels it when SIGINT or SIGTERM arrives.
type Handler struct {
	ctx         context.Context //nolint:containedctx // intentional: handler manages context lifecycle
	cancel      context.CancelFunc
	interrupted chan struct{}
	done        chan struct{}
	once        sync.Once
	stopOnce    sync.Once
	sigChan     chan os.Signal
	received    atomic.Value // syscall.Signal
}

// NewHandler starts listening for SIGINT and SIGTERM.
//
// Usage:
//
//	h := signal.NewHandler(ctx)
//	defer h.Stop()
//	err := run(h.Context())
//	if code, ok := h.ExitCode(); ok {
//	    os.Exit(code)
//	}
func NewHandler(parent context.Context) *Handler {
	ctx, cancel := context.WithCancel(parent)
	h := &Handler{
		ctx:         ctx,
		cancel:      cancel,
		interrupted: make(chan struct{}),
		done:        make(chan struct{}),
		// Buffer of 1 so signal.Notify never drops the first signal.
		sigChan: make(chan os.Signal, 1),
	}

	signal.Notify(h.sigChan, syscall.SIGINT, syscall.SIGTERM)
	go h.listen()

	return h
}

// Context returns the context cancelled by the first signal.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Interrupted returns a channel that closes when the first signal arrives.
func (h *Handler) Interrupted() <-chan struct{} {
	return h.interrupted
}

// ExitCode returns 128 plus the signal number once a signal has arrived,
// the status a shell reports for a process killed by that signal.
func (h *Handler) ExitCode() (int, bool) {
	sig, ok := h.received.Load().(syscall.Signal)
	if !ok {
		return 0, false
	}
	return 128 + int(sig), true
}

// Stop stops listening and cancels the context. Safe to call more than once.
func (h *Handler) Stop() {
	h.stopOnce.Do(func() {
		signal.Stop(h.sigChan)
		close(h.done)
		h.cancel()
	})
}

// handleSignal records sig and cancels the context. Only the first call has
// an effect.
func (h *Handler) handleSignal(sig os.Signal) {
	h.once.Do(func() {
		if s, ok := sig.(syscall.Signal); ok {
			h.received.Store(s)
		}
		h.cancel()
		close(h.interrupted)
	})
}

// listen handles signals until Stop is called or the context ends.
// Later signals are drained and ignored.
func (h *Handler) listen() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.done:
			return
		case sig := <-h.sigChan:
			h.handleSignal(sig)
		}
	}
}
