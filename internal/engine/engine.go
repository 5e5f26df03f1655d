// Copyright 2026 Patrick J. Scruggs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package engine is the default logging runtime behind slogscope.
//
// An Engine compiles a configuration document (formatters, handlers, loggers,
// and root) into slog handlers and routes every record emitted through a
// scope's handler to the sinks configured for that scope and its ancestors.
// Applying a new document swaps the compiled routes atomically, so handlers
// returned by Handler before the swap pick up new levels and destinations on
// their next record.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pjscruggs/slogscope/internal/level"
	"github.com/pjscruggs/slogscope/tree"
)

// Errors reported by Apply. They are wrapped with the offending handler,
// formatter, or logger name.
var (
	ErrInvalidConfig    = errors.New("engine: invalid configuration")
	ErrUnknownHandler   = errors.New("engine: unknown handler")
	ErrUnknownFormatter = errors.New("engine: unknown formatter")
	ErrUnknownClass     = errors.New("engine: unknown handler class")
	ErrInvalidLevel     = errors.New("engine: invalid level")
	ErrClosed           = errors.New("engine: closed")
)

// Options configures an Engine.
type Options struct {
	// Stdout and Stderr back stream handlers. They default to os.Stdout and
	// os.Stderr.
	Stdout io.Writer
	Stderr io.Writer

	// InternalLogger receives diagnostics such as sink close failures and
	// async handler errors. Defaults to a discarding logger.
	InternalLogger *slog.Logger

	// ProjectID is used by gcp formatters that do not set project_id.
	// When empty the project is detected from the environment and, on
	// Google Cloud, from the metadata server.
	ProjectID string

	// DryRun compiles documents without opening files. File sinks write to
	// io.Discard.
	DryRun bool

	// Registerer receives the engine's Prometheus collectors. Nil disables
	// metrics.
	Registerer prometheus.Registerer
}

// Engine is a logging runtime driven by configuration documents. It is safe
// for concurrent use.
type Engine struct {
	opts    Options
	stdout  *switchableWriter
	stderr  *switchableWriter
	metrics *metrics

	mu       sync.Mutex
	state    atomic.Pointer[state]
	closed   atomic.Bool
	handlers sync.Map

	lastResort *sink

	projectOnce sync.Once
	project     string
}

// New constructs an Engine with an empty configuration. Until a document is
// applied every scope logs WARN and above to Stderr.
func New(opts Options) *Engine {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.InternalLogger == nil {
		opts.InternalLogger = slog.New(slog.DiscardHandler)
	}

	e := &Engine{
		opts:    opts,
		stdout:  newSwitchableWriter(opts.Stdout),
		stderr:  newSwitchableWriter(opts.Stderr),
		metrics: newMetrics(opts.Registerer),
	}
	e.lastResort = newLastResortSink(e.stderr)
	e.state.Store(newState())
	return e
}

// Apply compiles doc and makes it the live configuration. On error the
// previous configuration stays in effect and any sink opened while compiling
// is closed again.
func (e *Engine) Apply(doc *tree.Node) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return ErrClosed
	}

	prev := e.state.Load()
	next, created, err := e.compile(doc, prev)
	if err != nil {
		e.closeSinks(created)
		e.metrics.applied(false)
		return err
	}

	e.state.Store(next)
	var stale []*sink
	for name, s := range prev.sinks {
		if kept, ok := next.sinks[name]; !ok || kept != s {
			stale = append(stale, s)
		}
	}
	e.closeSinks(stale)
	e.metrics.applied(true)
	return nil
}

// Handler returns the handler for scope. The same handler is returned for
// every call with the same scope.
func (e *Engine) Handler(scope string) slog.Handler {
	if h, ok := e.handlers.Load(scope); ok {
		return h.(*scopeHandler)
	}
	h, _ := e.handlers.LoadOrStore(scope, &scopeHandler{engine: e, scope: scope})
	return h.(*scopeHandler)
}

// Reopen reopens every file sink, for use after external log rotation.
// Rotating file sinks rotate instead.
func (e *Engine) Reopen() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for name, s := range e.state.Load().sinks {
		if s.reopen == nil {
			continue
		}
		if err := s.reopen(); err != nil {
			errs = append(errs, fmt.Errorf("reopen handler %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close flushes and closes every sink. Records emitted afterwards are
// discarded and Apply returns ErrClosed.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Swap(true) {
		return nil
	}
	st := e.state.Swap(newState())

	var errs []error
	for name, s := range st.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close handler %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// closeSinks closes sinks that are no longer referenced, reporting failures
// to the internal logger.
func (e *Engine) closeSinks(sinks []*sink) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			e.opts.InternalLogger.Warn("close handler",
				slog.String("handler", s.name),
				slog.Any("error", err),
			)
		}
	}
}

// newLastResortSink builds the sink used when a scope reaches no handler.
func newLastResortSink(w io.Writer) *sink {
	f := formatter{format: formatText, time: true}
	return &sink{
		name:      "lastResort",
		handler:   f.newHandler(w),
		threshold: level.Warn,
	}
}
