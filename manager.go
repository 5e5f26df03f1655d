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

package slogscope

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pjscruggs/slogscope/internal/engine"
	"github.com/pjscruggs/slogscope/tree"
)

// Runtime executes configuration documents. Apply makes a full merged
// document the live configuration; Handler returns the runtime-owned
// handler for a dotted scope name, which must keep following later Apply
// calls.
//
// A Runtime may also implement Reopen() error and io.Closer.
type Runtime interface {
	Apply(doc *tree.Node) error
	Handler(scope string) slog.Handler
}

const (
	keyDisableExistingLoggers = "disable_existing_loggers"
	keyLoggers                = "loggers"
	keyRoot                   = "root"
	keyLevel                  = "level"

	// maxSourceDepth bounds files that name further sources, so a file
	// that names itself fails instead of recursing forever.
	maxSourceDepth = 32
)

// Manager holds the authoritative configuration document and the filter
// registry, merges fragments into the document, and pushes every merged
// result to its Runtime. It is safe for concurrent use; merges and applies
// are serialized.
type Manager struct {
	mu      sync.Mutex
	doc     *tree.Node
	filters atomic.Pointer[[]Filter]

	runtime        Runtime
	ownsRuntime    bool
	resources      fs.FS
	internalLogger *slog.Logger
	closed         atomic.Bool

	watchMu  sync.Mutex
	watchers []context.CancelFunc
	watchWG  sync.WaitGroup
}

// NewManager constructs a Manager. Unless [WithRuntime] is given, the
// built-in runtime is used; until configured it writes WARN and above to
// stderr. Sources from [WithSources] and, with [WithEnv], from the
// environment are merged before NewManager returns.
func NewManager(opts ...Option) (*Manager, error) {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	internalLogger := o.internalLogger
	if internalLogger == nil {
		internalLogger = slog.New(slog.DiscardHandler)
	}

	m := &Manager{
		doc:            tree.NewMapping(),
		runtime:        o.runtime,
		resources:      o.resources,
		internalLogger: internalLogger,
	}
	m.filters.Store(&[]Filter{})
	if m.runtime == nil {
		m.runtime = engine.New(engine.Options{
			Stdout:         o.stdout,
			Stderr:         o.stderr,
			InternalLogger: internalLogger,
			ProjectID:      o.projectID,
			DryRun:         o.dryRun,
			Registerer:     o.registerer,
		})
		m.ownsRuntime = true
	}

	var env EnvConfig
	if o.env {
		var err error
		if env, err = LoadEnvConfig(internalLogger); err != nil {
			_ = m.Close()
			return nil, err
		}
		if len(env.Fields) > 0 {
			m.AddFilter(NewFieldFilter(nil, env.Fields))
		}
	}

	sources := slices.Clone(o.sources)
	for _, p := range env.Sources {
		sources = append(sources, Path(p))
	}
	for _, src := range sources {
		if err := m.AddConfiguration(src); err != nil {
			_ = m.Close()
			return nil, err
		}
	}

	if env.Level != nil {
		if err := m.SetLevel("", *env.Level); err != nil {
			_ = m.Close()
			return nil, err
		}
	}
	if env.Watch && len(env.Sources) > 0 {
		if err := m.Watch(context.Background(), env.Sources...); err != nil {
			logDiagnostic(internalLogger, slog.LevelWarn, "watch configuration files", slog.Any("error", err))
		}
	}
	return m, nil
}

// Current returns a copy of the authoritative document.
func (m *Manager) Current() *tree.Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.Clone()
}

// Filters returns the registered filters in registration order.
func (m *Manager) Filters() []Filter {
	return slices.Clone(*m.filters.Load())
}

// Runtime returns the runtime the Manager applies documents to.
func (m *Manager) Runtime() Runtime {
	return m.runtime
}

// AddConfiguration merges src into the document and applies the result.
// Mappings merge key by key: nested mappings recurse, every other value
// replaces the stored one. Lists apply their elements in order, so earlier
// elements stay applied when a later one fails. A fragment that fails to
// resolve, parse, or apply leaves the document unchanged.
func (m *Manager) AddConfiguration(src Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(src, 0)
}

// AddValue converts v with [FromValue] and merges the result.
func (m *Manager) AddValue(v any) error {
	src, err := FromValue(v)
	if err != nil {
		return err
	}
	return m.AddConfiguration(src)
}

// Replace discards the document and the registered filters, then merges src
// as the first fragment. Loggers resolved earlier keep their filters. On
// failure the previous document and filters are restored.
func (m *Manager) Replace(src Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prevDoc, prevFilters := m.doc, m.filters.Load()
	m.doc = tree.NewMapping()
	m.filters.Store(&[]Filter{})

	err := m.addLocked(src, 0)
	if err == nil && m.doc.Len() == 0 {
		err = m.applyLocked(m.doc, "replace")
	}
	if err != nil {
		m.doc = prevDoc
		m.filters.Store(prevFilters)
		if rerr := m.runtime.Apply(prevDoc.Clone()); rerr != nil {
			logDiagnostic(m.internalLogger, slog.LevelWarn, "restore configuration", slog.Any("error", rerr))
		}
		return err
	}
	return nil
}

// SetLevel sets the level of scope through the merge path, leaving the
// scope's other settings and every other scope untouched. An empty scope,
// or "root", addresses the root logger.
func (m *Manager) SetLevel(scope string, l Level) error {
	frag := tree.NewMapping()
	settings := tree.NewMapping()
	settings.Set(keyLevel, tree.Scalar(l.String()))
	if scope == "" || scope == keyRoot {
		frag.Set(keyRoot, settings)
	} else {
		loggers := tree.NewMapping()
		loggers.Set(scope, settings)
		frag.Set(keyLoggers, loggers)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mergeLocked(frag, fmt.Sprintf("set level %q", scope))
}

// SetAllLevels sets l on every scope present in the loggers section. Scopes
// not yet configured are not added; with no loggers it does nothing.
func (m *Manager) SetAllLevels(l Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	configured, ok := m.doc.Get(keyLoggers)
	if !ok || configured.Kind() != tree.KindMapping || configured.Len() == 0 {
		return nil
	}
	loggers := tree.NewMapping()
	for _, scope := range configured.Keys() {
		settings := tree.NewMapping()
		settings.Set(keyLevel, tree.Scalar(l.String()))
		loggers.Set(scope, settings)
	}
	frag := tree.NewMapping()
	frag.Set(keyLoggers, loggers)
	return m.mergeLocked(frag, "set all levels "+l.String())
}

// AddFilter registers f. It is attached to loggers resolved afterwards, not
// to loggers already resolved.
func (m *Manager) AddFilter(f Filter) {
	if f == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	next := append(slices.Clone(*m.filters.Load()), f)
	m.filters.Store(&next)
}

// SetLoggingFields registers a [FieldFilter] built from locals and
// constants and returns it.
func (m *Manager) SetLoggingFields(locals map[string]string, constants map[string]any) *FieldFilter {
	f := NewFieldFilter(locals, constants)
	m.AddFilter(f)
	return f
}

// Logger resolves the logger for scope: the runtime's handler for the scope
// wrapped with every filter registered now.
func (m *Manager) Logger(scope string) *Logger {
	h := newFilterHandler(m.runtime.Handler(scope), scope, *m.filters.Load())
	return &Logger{Logger: slog.New(h), scope: scope, manager: m}
}

// Scoped returns a lazily resolved logger for scope bound to m.
func (m *Manager) Scoped(scope string) *ScopedLogger {
	return NewScopedLogger(scope, m)
}

// Reopen asks the runtime to reopen its log files, for use after external
// rotation.
func (m *Manager) Reopen() error {
	if r, ok := m.runtime.(interface{ Reopen() error }); ok {
		return r.Reopen()
	}
	return nil
}

// Close stops file watchers and, for the built-in runtime, flushes and
// closes every handler.
func (m *Manager) Close() error {
	if m.closed.Swap(true) {
		return nil
	}

	m.watchMu.Lock()
	for _, cancel := range m.watchers {
		cancel()
	}
	m.watchers = nil
	m.watchMu.Unlock()
	m.watchWG.Wait()

	if c, ok := m.runtime.(io.Closer); ok && m.ownsRuntime {
		return c.Close()
	}
	return nil
}

func (m *Manager) addLocked(src Source, depth int) error {
	if depth > maxSourceDepth {
		return fmt.Errorf("%w: sources nested deeper than %d", ErrUnsupportedSource, maxSourceDepth)
	}

	switch s := src.(type) {
	case nil:
		return nil
	case Document:
		return m.mergeLocked(s.Node, "document")
	case Path:
		data, err := m.readPath(string(s))
		if err != nil {
			return err
		}
		return m.addContentLocked(string(s), data, depth)
	case Resource:
		data, err := m.readResource(string(s))
		if err != nil {
			return err
		}
		return m.addContentLocked(string(s), data, depth)
	case YAML:
		name := s.Name
		if name == "" {
			name = "yaml"
		}
		return m.addContentLocked(name, s.Data, depth)
	case List:
		for i, item := range s {
			if err := m.addLocked(item, depth+1); err != nil {
				return fmt.Errorf("list item %d: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedSource, src)
	}
}

// addContentLocked parses data in full before anything is merged.
func (m *Manager) addContentLocked(name string, data []byte, depth int) error {
	n, err := tree.Parse(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrParse, name, err)
	}
	src, err := sourceFromNode(n)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if doc, ok := src.(Document); ok {
		return m.mergeLocked(doc.Node, name)
	}
	return m.addLocked(src, depth+1)
}

// mergeLocked merges frag into a copy of the document, applies the copy,
// and commits it only when the runtime accepts it.
func (m *Manager) mergeLocked(frag *tree.Node, name string) error {
	if frag.IsEmpty() {
		return nil
	}
	if frag.Kind() != tree.KindMapping {
		return fmt.Errorf("%w: %s is a %s", ErrUnsupportedSource, name, frag.Kind())
	}

	merged := tree.Merge(m.doc, frag)
	if err := m.applyLocked(merged, name); err != nil {
		return err
	}
	m.doc = merged
	return nil
}

func (m *Manager) applyLocked(doc *tree.Node, name string) error {
	if m.closed.Load() {
		return ErrClosed
	}
	doc.Set(keyDisableExistingLoggers, tree.Scalar(false))
	if err := m.runtime.Apply(doc.Clone()); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRuntimeApply, name, err)
	}
	return nil
}

// readPath reads p from disk, falling back to the bundled resources. Read
// failures other than a missing file are reported to the internal logger
// and treated as the source being unavailable.
func (m *Manager) readPath(p string) ([]byte, error) {
	data, err := os.ReadFile(p)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		logDiagnostic(m.internalLogger, slog.LevelWarn, "read configuration file",
			slog.String("path", p),
			slog.Any("error", err),
		)
	}
	return m.readResource(p)
}

func (m *Manager) readResource(name string) ([]byte, error) {
	if m.resources != nil {
		resource := strings.TrimPrefix(filepath.ToSlash(name), "./")
		if fs.ValidPath(resource) {
			data, err := fs.ReadFile(m.resources, resource)
			if err == nil {
				return data, nil
			}
			if !errors.Is(err, fs.ErrNotExist) {
				logDiagnostic(m.internalLogger, slog.LevelWarn, "read configuration resource",
					slog.String("resource", resource),
					slog.Any("error", err),
				)
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrConfigurationNotFound, name)
}

// logDiagnostic emits internal diagnostic messages, guarding against nil
// loggers in tests.
func logDiagnostic(logger *slog.Logger, level slog.Level, msg string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	logger.LogAttrs(context.Background(), level, msg, attrs...)
}
