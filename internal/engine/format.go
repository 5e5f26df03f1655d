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
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pjscruggs/slogscope/internal/level"
	"github.com/pjscruggs/slogscope/tree"
)

// Output formats.
const (
	formatJSON = "json"
	formatText = "text"
	formatGCP  = "gcp"
)

const (
	stackTraceKey     = "stack_trace"
	gcpSeverityKey    = "severity"
	gcpMessageKey     = "message"
	gcpTimestampKey   = "timestamp"
	gcpSourceLocation = "logging.googleapis.com/sourceLocation"
)

// formatter is a compiled formatter definition.
type formatter struct {
	format     string
	time       bool
	source     bool
	stack      bool
	stackLevel slog.Level
	projectID  string
}

var defaultFormatter = formatter{format: formatJSON, time: true, stackLevel: level.Error}

func compileFormatter(def *tree.Node) (formatter, error) {
	f := defaultFormatter
	if def.IsNull() {
		return f, nil
	}
	if def.Kind() != tree.KindMapping {
		return f, fmt.Errorf("%w: expected a mapping, got a %s", ErrInvalidConfig, def.Kind())
	}

	format, err := stringField(def, "format", formatJSON)
	if err != nil {
		return f, err
	}
	switch normalized := strings.ToLower(strings.TrimSpace(format)); {
	case normalized == formatJSON, normalized == formatText, normalized == formatGCP:
		f.format = normalized
	case strings.Contains(format, "%("):
		// printf-style patterns from Python configurations render as text.
		f.format = formatText
	default:
		return f, fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, format)
	}

	if f.time, err = boolField(def, "time", true); err != nil {
		return f, err
	}
	if f.source, err = boolField(def, "source", false); err != nil {
		return f, err
	}
	if f.stack, err = boolField(def, "stack_trace", false); err != nil {
		return f, err
	}
	if lv, ok := def.Get("stack_trace_level"); ok {
		l, set, err := parseLevelNode(lv)
		if err != nil {
			return f, err
		}
		if set {
			f.stackLevel = l
		}
	}
	if f.projectID, err = stringField(def, "project_id", ""); err != nil {
		return f, err
	}
	f.projectID = normalizeProjectID(f.projectID)
	return f, nil
}

// newHandler builds the slog handler writing to w. Level filtering happens
// in the router, so the handler accepts every level.
func (f formatter) newHandler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		AddSource:   f.source,
		Level:       level.All,
		ReplaceAttr: f.replaceAttr,
	}
	switch f.format {
	case formatText:
		return slog.NewTextHandler(w, opts)
	case formatGCP:
		opts.ReplaceAttr = f.replaceGCPAttr
		return slog.NewJSONHandler(w, opts)
	default:
		return slog.NewJSONHandler(w, opts)
	}
}

// decorator returns the per-record attribute source for formats that depend
// on the call context, or nil when the format adds nothing.
func (f formatter) decorator(e *Engine) func(context.Context, slog.Record) []slog.Attr {
	if f.format != formatGCP && !f.stack {
		return nil
	}
	return func(ctx context.Context, r slog.Record) []slog.Attr {
		var attrs []slog.Attr
		if f.format == formatGCP {
			project := f.projectID
			if project == "" {
				project = e.projectID()
			}
			attrs = append(attrs, traceAttributes(ctx, project)...)
		}
		if f.stack && r.Level >= f.stackLevel {
			if stack := captureStack(); stack != "" {
				attrs = append(attrs, slog.String(stackTraceKey, stack))
			}
		}
		return attrs
	}
}

// replaceAttr renders levels by name and drops the timestamp when disabled.
func (f formatter) replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.LevelKey:
		if l, ok := a.Value.Any().(slog.Level); ok {
			return slog.String(slog.LevelKey, level.Name(l))
		}
	case slog.TimeKey:
		if !f.time {
			return slog.Attr{}
		}
	}
	return a
}

// replaceGCPAttr maps the built-in keys onto the Cloud Logging structured
// payload fields.
func (f formatter) replaceGCPAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.LevelKey:
		if l, ok := a.Value.Any().(slog.Level); ok {
			return slog.String(gcpSeverityKey, severityName(l))
		}
	case slog.MessageKey:
		return slog.Attr{Key: gcpMessageKey, Value: a.Value}
	case slog.TimeKey:
		if !f.time {
			return slog.Attr{}
		}
		return slog.Attr{Key: gcpTimestampKey, Value: a.Value}
	case slog.SourceKey:
		if src, ok := a.Value.Any().(*slog.Source); ok && src != nil {
			return slog.Group(gcpSourceLocation,
				slog.String("file", src.File),
				slog.String("line", strconv.Itoa(src.Line)),
				slog.String("function", src.Function),
			)
		}
	}
	return a
}
