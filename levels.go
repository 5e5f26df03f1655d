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
	"fmt"
	"log/slog"

	"github.com/pjscruggs/slogscope/internal/level"
)

// Level is a record severity on the slog.Level integer scale, extended with
// TRACE below DEBUG and the Cloud Logging severities above INFO.
type Level slog.Level

// Severity levels. Trace records are dispatched exactly like debug records,
// only at a lower threshold.
const (
	LevelTrace     Level = Level(level.Trace)     // -8
	LevelDebug     Level = Level(level.Debug)     // -4
	LevelInfo      Level = Level(level.Info)      // 0
	LevelNotice    Level = Level(level.Notice)    // 2
	LevelWarn      Level = Level(level.Warn)      // 4
	LevelError     Level = Level(level.Error)     // 8
	LevelCritical  Level = Level(level.Critical)  // 12
	LevelAlert     Level = Level(level.Alert)     // 16
	LevelEmergency Level = Level(level.Emergency) // 20
)

// String returns the level name used in configuration documents and output,
// such as "TRACE", "NOTICE", or "INFO+1" for levels between names.
func (l Level) String() string {
	return level.Name(slog.Level(l))
}

// Level returns the underlying slog.Level, so Level satisfies slog.Leveler.
func (l Level) Level() slog.Level {
	return slog.Level(l)
}

// ParseLevel parses a level name case-insensitively. WARNING and FATAL are
// accepted as aliases, as are "NAME+N" offsets and plain integers.
func ParseLevel(s string) (Level, error) {
	l, err := level.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidLevel, err)
	}
	return Level(l), nil
}
