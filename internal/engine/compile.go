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
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pjscruggs/slogscope/internal/level"
	"github.com/pjscruggs/slogscope/tree"
)

// Top-level sections read by the engine. Other keys, including
// disable_existing_loggers and filters, are accepted and ignored.
const (
	sectionVersion    = "version"
	sectionFormatters = "formatters"
	sectionHandlers   = "handlers"
	sectionLoggers    = "loggers"
	sectionRoot       = "root"
)

type compiledFormatter struct {
	formatter formatter
	def       *tree.Node
}

// compile turns doc into a new state. Sinks whose handler and formatter
// definitions are unchanged from prev are reused; sinks opened here are
// returned so the caller can close them if compilation fails.
func (e *Engine) compile(doc *tree.Node, prev *state) (*state, []*sink, error) {
	next := newState()
	if doc.IsNull() {
		return next, nil, nil
	}
	if doc.Kind() != tree.KindMapping {
		return nil, nil, fmt.Errorf("%w: document is a %s", ErrInvalidConfig, doc.Kind())
	}
	if v, ok := doc.Get(sectionVersion); ok && !v.IsNull() {
		if n, ok := v.Value().(int64); !ok || n != 1 {
			return nil, nil, fmt.Errorf("%w: unsupported version %v", ErrInvalidConfig, v.Value())
		}
	}

	formatters, err := compileFormatters(doc)
	if err != nil {
		return nil, nil, err
	}

	var created []*sink
	handlers, err := section(doc, sectionHandlers)
	if err != nil {
		return nil, nil, err
	}
	for _, name := range handlers.Keys() {
		def, _ := handlers.Get(name)
		if def.Kind() != tree.KindMapping {
			return nil, created, fmt.Errorf("%w: handler %q is a %s", ErrInvalidConfig, name, def.Kind())
		}

		f, formatDef := defaultFormatter, (*tree.Node)(nil)
		fmtName, err := stringField(def, "formatter", "")
		if err != nil {
			return nil, created, fmt.Errorf("handler %q: %w", name, err)
		}
		if fmtName != "" {
			cf, ok := formatters[fmtName]
			if !ok {
				return nil, created, fmt.Errorf("handler %q: %w: %q", name, ErrUnknownFormatter, fmtName)
			}
			f, formatDef = cf.formatter, cf.def
		}

		if old, ok := prev.sinks[name]; ok && old.def.Equal(def) && old.formatDef.Equal(formatDef) {
			next.sinks[name] = old
			continue
		}
		s, err := e.openSink(name, def, f, formatDef)
		if err != nil {
			return nil, created, fmt.Errorf("handler %q: %w", name, err)
		}
		created = append(created, s)
		next.sinks[name] = s
	}

	loggers, err := section(doc, sectionLoggers)
	if err != nil {
		return nil, created, err
	}
	for _, name := range loggers.Keys() {
		def, _ := loggers.Get(name)
		lc, err := compileLogger(def, next.sinks)
		if err != nil {
			return nil, created, fmt.Errorf("logger %q: %w", name, err)
		}
		next.loggers[name] = lc
	}

	if root, ok := doc.Get(sectionRoot); ok && !root.IsNull() {
		lc, err := compileLogger(root, next.sinks)
		if err != nil {
			return nil, created, fmt.Errorf("root logger: %w", err)
		}
		if lc.hasLevel {
			next.rootLevel = lc.level
		} else if lv, ok := root.Get("level"); ok && !lv.IsNull() {
			next.rootLevel = level.All
		}
		next.root = lc.sinks
	}
	return next, created, nil
}

func compileFormatters(doc *tree.Node) (map[string]compiledFormatter, error) {
	formatters, err := section(doc, sectionFormatters)
	if err != nil {
		return nil, err
	}
	out := make(map[string]compiledFormatter, formatters.Len())
	for _, name := range formatters.Keys() {
		def, _ := formatters.Get(name)
		f, err := compileFormatter(def)
		if err != nil {
			return nil, fmt.Errorf("formatter %q: %w", name, err)
		}
		out[name] = compiledFormatter{formatter: f, def: def}
	}
	return out, nil
}

func compileLogger(def *tree.Node, sinks map[string]*sink) (*loggerConfig, error) {
	lc := &loggerConfig{propagate: true}
	if def.IsNull() {
		return lc, nil
	}
	if def.Kind() != tree.KindMapping {
		return nil, fmt.Errorf("%w: expected a mapping, got a %s", ErrInvalidConfig, def.Kind())
	}

	if lv, ok := def.Get("level"); ok {
		l, set, err := parseLevelNode(lv)
		if err != nil {
			return nil, err
		}
		lc.level, lc.hasLevel = l, set
	}

	propagate, err := boolField(def, "propagate", true)
	if err != nil {
		return nil, err
	}
	lc.propagate = propagate

	names, err := handlerNames(def)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		s, ok := sinks[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownHandler, name)
		}
		lc.sinks = append(lc.sinks, s)
	}
	return lc, nil
}

// handlerNames reads the handlers key as a sequence of names or a single
// name.
func handlerNames(def *tree.Node) ([]string, error) {
	hn, ok := def.Get("handlers")
	if !ok || hn.IsNull() {
		return nil, nil
	}
	if name, ok := hn.Text(); ok {
		return []string{name}, nil
	}
	if hn.Kind() != tree.KindSequence {
		return nil, fmt.Errorf("%w: handlers must be a list of names", ErrInvalidConfig)
	}
	names := make([]string, 0, hn.Len())
	for _, item := range hn.Items() {
		name, ok := item.Text()
		if !ok {
			return nil, fmt.Errorf("%w: handler name %v is not a string", ErrInvalidConfig, item.Value())
		}
		names = append(names, name)
	}
	return names, nil
}

// parseLevelNode parses a level value. NOTSET and null report set == false.
func parseLevelNode(n *tree.Node) (l slog.Level, set bool, err error) {
	if n.IsNull() {
		return 0, false, nil
	}
	if s, ok := n.Text(); ok && strings.EqualFold(strings.TrimSpace(s), level.NotSet) {
		return 0, false, nil
	}
	l, err = level.FromValue(n.Value())
	if err != nil {
		return 0, false, fmt.Errorf("%w: %w", ErrInvalidLevel, err)
	}
	return l, true, nil
}

// section returns the named top-level mapping, or an empty mapping when
// absent.
func section(doc *tree.Node, name string) (*tree.Node, error) {
	n, ok := doc.Get(name)
	if !ok || n.IsNull() {
		return tree.NewMapping(), nil
	}
	if n.Kind() != tree.KindMapping {
		return nil, fmt.Errorf("%w: %s is a %s", ErrInvalidConfig, name, n.Kind())
	}
	return n, nil
}

func stringField(def *tree.Node, key, fallback string) (string, error) {
	n, ok := def.Get(key)
	if !ok || n.IsNull() {
		return fallback, nil
	}
	s, ok := n.Text()
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidConfig, key)
	}
	return s, nil
}

func requiredString(def *tree.Node, key string) (string, error) {
	s, err := stringField(def, key, "")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidConfig, key)
	}
	return s, nil
}

func intField(def *tree.Node, key string, fallback int) (int, error) {
	n, ok := def.Get(key)
	if !ok || n.IsNull() {
		return fallback, nil
	}
	v, ok := n.Value().(int64)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidConfig, key)
	}
	return int(v), nil
}

func boolField(def *tree.Node, key string, fallback bool) (bool, error) {
	n, ok := def.Get(key)
	if !ok || n.IsNull() {
		return fallback, nil
	}
	v, ok := n.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a boolean", ErrInvalidConfig, key)
	}
	return v, nil
}

// durationField accepts Go duration strings or a number of seconds.
func durationField(def *tree.Node, key string) (time.Duration, error) {
	n, ok := def.Get(key)
	if !ok || n.IsNull() {
		return 0, nil
	}
	switch v := n.Value().(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
		}
		return d, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("%w: %s must be a duration", ErrInvalidConfig, key)
	}
}
