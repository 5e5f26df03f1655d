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

// Package level names and parses the severity levels shared by slogscope and
// its runtime.
package level

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// Severity levels on the slog.Level integer scale. Trace sits one step below
// Debug; the levels above Info mirror the Cloud Logging severities.
const (
	Trace     slog.Level = -8
	Debug     slog.Level = slog.LevelDebug
	Info      slog.Level = slog.LevelInfo
	Notice    slog.Level = 2
	Warn      slog.Level = slog.LevelWarn
	Error     slog.Level = slog.LevelError
	Critical  slog.Level = 12
	Alert     slog.Level = 16
	Emergency slog.Level = 20
)

// All is a threshold that lets every record through.
const All slog.Level = math.MinInt

// NotSet is the name that clears a configured level so the scope inherits
// from its ancestors.
const NotSet = "NOTSET"

// ErrInvalid reports a level value that cannot be parsed.
var ErrInvalid = errors.New("invalid level")

var named = []struct {
	name  string
	level slog.Level
}{
	{"TRACE", Trace},
	{"DEBUG", Debug},
	{"INFO", Info},
	{"NOTICE", Notice},
	{"WARN", Warn},
	{"ERROR", Error},
	{"CRITICAL", Critical},
	{"ALERT", Alert},
	{"EMERGENCY", Emergency},
}

var aliases = map[string]slog.Level{
	"WARNING": Warn,
	"FATAL":   Critical,
}

// Name returns the canonical name of l. Levels between named levels are
// rendered as the nearest lower name plus an offset, such as "INFO+1".
func Name(l slog.Level) string {
	if l == All {
		return "ALL"
	}
	if l < Trace {
		return fmt.Sprintf("TRACE%+d", int(l-Trace))
	}
	base := named[0]
	for _, n := range named {
		if n.level > l {
			break
		}
		base = n
	}
	if l == base.level {
		return base.name
	}
	return fmt.Sprintf("%s%+d", base.name, int(l-base.level))
}

// Parse converts s into a level. It accepts the names produced by Name in any
// case, the aliases WARNING and FATAL, "NAME+N" and "NAME-N" offsets, and
// plain integers on the slog scale.
func Parse(s string) (slog.Level, error) {
	raw := strings.ToUpper(strings.TrimSpace(s))
	if raw == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalid)
	}
	if raw == "ALL" {
		return All, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return slog.Level(n), nil
	}

	name, offset := raw, 0
	if idx := strings.IndexAny(raw[1:], "+-"); idx >= 0 {
		name = raw[:idx+1]
		n, err := strconv.Atoi(raw[idx+1:])
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
		}
		offset = n
	}

	base, ok := lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return base + slog.Level(offset), nil
}

// FromValue parses a level from a configuration scalar: a name or an
// integer.
func FromValue(v any) (slog.Level, error) {
	switch val := v.(type) {
	case string:
		return Parse(val)
	case int64:
		return slog.Level(val), nil
	case int:
		return slog.Level(val), nil
	case float64:
		if val != math.Trunc(val) {
			return 0, fmt.Errorf("%w: %v", ErrInvalid, val)
		}
		return slog.Level(int(val)), nil
	default:
		return 0, fmt.Errorf("%w: %v (%T)", ErrInvalid, v, v)
	}
}

func lookup(name string) (slog.Level, bool) {
	for _, n := range named {
		if n.name == name {
			return n.level, true
		}
	}
	l, ok := aliases[name]
	return l, ok
}
