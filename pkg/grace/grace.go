// Package grace implements process-level graceful shutdown: trap
// SIGTERM/SIGINT, stop every registered component with a bounded deadline,
// and stop waiting once the deadline passes even if draining has not
// finished; exiting the process is left to the caller. Adapted from the teacher's
// cmd/revad/grace.Watcher, trimmed to the one signal path this single-binary
// service needs — no hot-reload fork, no inherited listener fds, no pidfile.
package grace

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// Component is anything the watcher can stop in an orderly way: the HTTP
// server, the sync dispatcher's worker pools, the NAS health scheduler.
type Component interface {
	// Name identifies the component in shutdown log lines.
	Name() string
	// Shutdown stops the component, returning once it has drained or ctx
	// expires, whichever comes first.
	Shutdown(ctx context.Context) error
}

// Watcher traps SIGTERM/SIGINT and shuts every registered Component down
// within Deadline; when the deadline passes first, Wait returns without
// waiting for the remaining components.
type Watcher struct {
	log      zerolog.Logger
	deadline time.Duration

	mu         sync.Mutex
	components []Component
}

// Option configures a Watcher.
type Option func(w *Watcher)

// WithLogger sets the logger used for shutdown progress lines.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Watcher) { w.log = l }
}

// WithDeadline overrides the default 10s drain deadline.
func WithDeadline(d time.Duration) Option {
	return func(w *Watcher) { w.deadline = d }
}

// NewWatcher returns a Watcher with no components registered yet.
func NewWatcher(opts ...Option) *Watcher {
	w := &Watcher{log: zerolog.Nop(), deadline: 10 * time.Second}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Register adds a component to be shut down when a signal arrives. Order of
// registration is the order of shutdown.
func (w *Watcher) Register(c Component) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.components = append(w.components, c)
}

// Wait blocks until SIGTERM or SIGINT arrives, then shuts every registered
// component down (in registration order) within the configured deadline and
// returns. The caller is expected to exit the process afterwards.
func (w *Watcher) Wait() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	s := <-sigCh
	w.log.Info().Str("signal", s.String()).Msg("grace: signal received, draining")

	ctx, cancel := context.WithTimeout(context.Background(), w.deadline)
	defer cancel()

	w.mu.Lock()
	components := append([]Component(nil), w.components...)
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, c := range components {
			if err := c.Shutdown(ctx); err != nil {
				w.log.Error().Err(err).Str("component", c.Name()).Msg("grace: error during shutdown")
				continue
			}
			w.log.Info().Str("component", c.Name()).Msg("grace: component drained")
		}
	}()

	select {
	case <-done:
		w.log.Info().Msg("grace: clean shutdown complete")
	case <-ctx.Done():
		w.log.Warn().Msg("grace: deadline reached before all components drained, exiting anyway")
	}
}
