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

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pjscruggs/slogscope/internal/level"
)

// rootScope is accepted as an alias for the empty scope.
const rootScope = "root"

// state is one compiled configuration. It is immutable once published except
// for the route cache.
type state struct {
	rootLevel slog.Level
	root      []*sink
	loggers   map[string]*loggerConfig
	sinks     map[string]*sink

	routes sync.Map
}

type loggerConfig struct {
	level     slog.Level
	hasLevel  bool
	sinks     []*sink
	propagate bool
}

// route is the resolved configuration for one scope.
type route struct {
	level slog.Level
	sinks []*sink
	floor slog.Level
}

func newState() *state {
	return &state{
		rootLevel: level.Info,
		loggers:   make(map[string]*loggerConfig),
		sinks:     make(map[string]*sink),
	}
}

// route returns the cached route for scope, resolving it on first use.
func (st *state) route(scope string, fallback *sink) *route {
	if rt, ok := st.routes.Load(scope); ok {
		return rt.(*route)
	}
	rt, _ := st.routes.LoadOrStore(scope, st.resolve(scope, fallback))
	return rt.(*route)
}

// resolve walks the dotted hierarchy from scope to the root. The first
// configured level wins. Sinks are collected from every logger until one sets
// propagate to false, then from the root.
func (st *state) resolve(scope string, fallback *sink) *route {
	if scope == rootScope {
		scope = ""
	}

	rt := &route{level: st.rootLevel}
	levelSet := false
	collect := true
	seen := make(map[*sink]bool)
	add := func(sinks []*sink) {
		for _, s := range sinks {
			if !seen[s] {
				seen[s] = true
				rt.sinks = append(rt.sinks, s)
			}
		}
	}

	for name := scope; name != ""; name = parentScope(name) {
		lc, ok := st.loggers[name]
		if !ok {
			continue
		}
		if !levelSet && lc.hasLevel {
			rt.level = lc.level
			levelSet = true
		}
		if collect {
			add(lc.sinks)
			collect = lc.propagate
		}
	}
	if collect {
		add(st.root)
	}
	if len(rt.sinks) == 0 {
		rt.sinks = []*sink{fallback}
	}

	rt.floor = rt.sinks[0].threshold
	for _, s := range rt.sinks[1:] {
		rt.floor = min(rt.floor, s.threshold)
	}
	return rt
}

func parentScope(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return ""
	}
	return name[:idx]
}

// scopeHandler is the runtime-owned handler for one scope. It holds no sinks
// itself; every call consults the engine's current state.
type scopeHandler struct {
	engine  *Engine
	scope   string
	ops     []handlerOp
	grouped bool
	cache   atomic.Pointer[derivedCache]
}

// handlerOp records a WithAttrs or WithGroup call so it can be replayed on
// whichever sinks the scope routes to.
type handlerOp struct {
	group string
	attrs []slog.Attr
}

type derivedCache struct {
	state    *state
	mu       sync.Mutex
	handlers map[*sink]slog.Handler
}

// Enabled reports whether a record at l would reach at least one sink.
func (h *scopeHandler) Enabled(_ context.Context, l slog.Level) bool {
	if h.engine.closed.Load() {
		return false
	}
	rt := h.engine.state.Load().route(h.scope, h.engine.lastResort)
	return l >= rt.level && l >= rt.floor
}

// Handle dispatches r to every sink routed for the scope whose threshold it
// meets.
func (h *scopeHandler) Handle(ctx context.Context, r slog.Record) error {
	e := h.engine
	if e.closed.Load() {
		return nil
	}
	st := e.state.Load()
	rt := st.route(h.scope, e.lastResort)
	if r.Level < rt.level {
		return nil
	}

	var errs []error
	for _, s := range rt.sinks {
		if !s.accepts(r.Level) {
			continue
		}
		target, rec := h.derived(st, s), r
		if s.decorate != nil {
			if extra := s.decorate(ctx, r); len(extra) > 0 {
				if h.grouped {
					target = applyOps(s.handler.WithAttrs(extra), h.ops)
				} else {
					rec = r.Clone()
					rec.AddAttrs(extra...)
				}
			}
		}
		if err := target.Handle(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("handler %q: %w", s.name, err))
		}
		e.metrics.record(s.name, r.Level)
	}
	return errors.Join(errs...)
}

// WithAttrs returns a handler for the same scope carrying attrs.
func (h *scopeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return &scopeHandler{
		engine:  h.engine,
		scope:   h.scope,
		ops:     append(slices.Clip(h.ops), handlerOp{attrs: slices.Clone(attrs)}),
		grouped: h.grouped,
	}
}

// WithGroup returns a handler for the same scope that nests later attributes
// under name.
func (h *scopeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &scopeHandler{
		engine:  h.engine,
		scope:   h.scope,
		ops:     append(slices.Clip(h.ops), handlerOp{group: name}),
		grouped: true,
	}
}

// derived returns s's handler with this handler's attrs and groups applied,
// caching the result until the engine state changes.
func (h *scopeHandler) derived(st *state, s *sink) slog.Handler {
	if len(h.ops) == 0 {
		return s.handler
	}

	c := h.cache.Load()
	if c == nil || c.state != st {
		fresh := &derivedCache{state: st, handlers: make(map[*sink]slog.Handler)}
		if h.cache.CompareAndSwap(c, fresh) {
			c = fresh
		} else {
			c = h.cache.Load()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.handlers[s]; ok {
		return d
	}
	d := applyOps(s.handler, h.ops)
	c.handlers[s] = d
	return d
}

func applyOps(h slog.Handler, ops []handlerOp) slog.Handler {
	for _, op := range ops {
		if op.group != "" {
			h = h.WithGroup(op.group)
			continue
		}
		h = h.WithAttrs(op.attrs)
	}
	return h
}
