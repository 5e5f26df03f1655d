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
	"log/slog"
	"sync"
)

// ScopedLogger is a logger for a declared scope that resolves itself on
// first use. It is meant to be declared once per package:
//
//	var log = slogscope.Scoped("myapp.storage")
//
// The first call resolves the concrete [Logger] from the Manager (the
// process default when none was given) with the filters registered at that
// moment; every later call goes straight to that Logger. Concurrent first
// calls resolve exactly once and never observe a partially built Logger.
//
// Copies of a ScopedLogger value do not share resolution; pass pointers.
type ScopedLogger struct {
	scope   string
	manager *Manager

	once   sync.Once
	logger *Logger
}

// NewScopedLogger returns a lazily resolved logger for scope. A nil manager
// selects [Default] at first use.
func NewScopedLogger(scope string, m *Manager) *ScopedLogger {
	return &ScopedLogger{scope: scope, manager: m}
}

// Scoped returns a lazily resolved logger for scope bound to the default
// Manager.
func Scoped(scope string) *ScopedLogger {
	return NewScopedLogger(scope, nil)
}

// Logger resolves the scope if needed and returns the concrete Logger.
func (s *ScopedLogger) Logger() *Logger {
	s.once.Do(func() {
		m := s.manager
		if m == nil {
			m = Default()
		}
		s.logger = m.Logger(s.scope)
	})
	return s.logger
}

// Scope returns the declared scope name.
func (s *ScopedLogger) Scope() string {
	return s.scope
}

// Handler returns the resolved logger's handler.
func (s *ScopedLogger) Handler() slog.Handler {
	return s.Logger().Handler()
}

// Enabled reports whether a record at level would be emitted.
func (s *ScopedLogger) Enabled(ctx context.Context, level slog.Level) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.Logger().Enabled(ctx, level)
}

// SetLevel sets the scope's level through its Manager.
func (s *ScopedLogger) SetLevel(level Level) error {
	return s.Logger().SetLevel(level)
}

// With returns a Logger derived from the resolved logger.
func (s *ScopedLogger) With(args ...any) *Logger {
	return s.Logger().With(args...)
}

// WithGroup returns a Logger derived from the resolved logger.
func (s *ScopedLogger) WithGroup(name string) *Logger {
	return s.Logger().WithGroup(name)
}

// Log emits a record at level.
func (s *ScopedLogger) Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	s.Logger().log(ctx, level, msg, args...)
}

// LogAttrs emits a record at level with pre-built attributes.
func (s *ScopedLogger) LogAttrs(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	s.Logger().logAttrs(ctx, level, msg, attrs...)
}

// Trace logs at [LevelTrace].
func (s *ScopedLogger) Trace(msg string, args ...any) {
	s.Logger().log(context.Background(), slog.Level(LevelTrace), msg, args...)
}

// TraceContext logs at [LevelTrace] with ctx.
func (s *ScopedLogger) TraceContext(ctx context.Context, msg string, args ...any) {
	s.Logger().log(ctx, slog.Level(LevelTrace), msg, args...)
}

// Debug logs at [LevelDebug].
func (s *ScopedLogger) Debug(msg string, args ...any) {
	s.Logger().log(context.Background(), slog.LevelDebug, msg, args...)
}

// DebugContext logs at [LevelDebug] with ctx.
func (s *ScopedLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	s.Logger().log(ctx, slog.LevelDebug, msg, args...)
}

// Info logs at [LevelInfo].
func (s *ScopedLogger) Info(msg string, args ...any) {
	s.Logger().log(context.Background(), slog.LevelInfo, msg, args...)
}

// InfoContext logs at [LevelInfo] with ctx.
func (s *ScopedLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	s.Logger().log(ctx, slog.LevelInfo, msg, args...)
}

// Notice logs at [LevelNotice].
func (s *ScopedLogger) Notice(msg string, args ...any) {
	s.Logger().log(context.Background(), slog.Level(LevelNotice), msg, args...)
}

// NoticeContext logs at [LevelNotice] with ctx.
func (s *ScopedLogger) NoticeContext(ctx context.Context, msg string, args ...any) {
	s.Logger().log(ctx, slog.Level(LevelNotice), msg, args...)
}

// Warn logs at [LevelWarn].
func (s *ScopedLogger) Warn(msg string, args ...any) {
	s.Logger().log(context.Background(), slog.LevelWarn, msg, args...)
}

// WarnContext logs at [LevelWarn] with ctx.
func (s *ScopedLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	s.Logger().log(ctx, slog.LevelWarn, msg, args...)
}

// Error logs at [LevelError].
func (s *ScopedLogger) Error(msg string, args ...any) {
	s.Logger().log(context.Background(), slog.LevelError, msg, args...)
}

// ErrorContext logs at [LevelError] with ctx.
func (s *ScopedLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	s.Logger().log(ctx, slog.LevelError, msg, args...)
}

// Critical logs at [LevelCritical].
func (s *ScopedLogger) Critical(msg string, args ...any) {
	s.Logger().log(context.Background(), slog.Level(LevelCritical), msg, args...)
}

// CriticalContext logs at [LevelCritical] with ctx.
func (s *ScopedLogger) CriticalContext(ctx context.Context, msg string, args ...any) {
	s.Logger().log(ctx, slog.Level(LevelCritical), msg, args...)
}

// Alert logs at [LevelAlert].
func (s *ScopedLogger) Alert(msg string, args ...any) {
	s.Logger().log(context.Background(), slog.Level(LevelAlert), msg, args...)
}

// AlertContext logs at [LevelAlert] with ctx.
func (s *ScopedLogger) AlertContext(ctx context.Context, msg string, args ...any) {
	s.Logger().log(ctx, slog.Level(LevelAlert), msg, args...)
}

// Emergency logs at [LevelEmergency].
func (s *ScopedLogger) Emergency(msg string, args ...any) {
	s.Logger().log(context.Background(), slog.Level(LevelEmergency), msg, args...)
}

// EmergencyContext logs at [LevelEmergency] with ctx.
func (s *ScopedLogger) EmergencyContext(ctx context.Context, msg string, args ...any) {
	s.Logger().log(ctx, slog.Level(LevelEmergency), msg, args...)
}
