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
	"runtime"
	"time"
)

// Logger is the concrete logger for one scope. It embeds *slog.Logger, so
// Debug, Info, Warn, Error, Log, and LogAttrs work as usual, and adds the
// extended severities.
//
// Level and handler changes applied through the Manager take effect on the
// next record. Filters are fixed when the Logger is resolved.
type Logger struct {
	*slog.Logger
	scope   string
	manager *Manager
}

// Scope returns the dotted scope name the logger was resolved for.
func (l *Logger) Scope() string {
	return l.scope
}

// SetLevel sets this scope's level through the Manager.
func (l *Logger) SetLevel(level Level) error {
	return l.manager.SetLevel(l.scope, level)
}

// With returns a Logger that includes args in every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), scope: l.scope, manager: l.manager}
}

// WithGroup returns a Logger that nests later attributes under name.
func (l *Logger) WithGroup(name string) *Logger {
	return &Logger{Logger: l.Logger.WithGroup(name), scope: l.scope, manager: l.manager}
}

// Trace logs at [LevelTrace].
func (l *Logger) Trace(msg string, args ...any) {
	l.log(context.Background(), slog.Level(LevelTrace), msg, args...)
}

// TraceContext logs at [LevelTrace] with ctx.
func (l *Logger) TraceContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.Level(LevelTrace), msg, args...)
}

// Notice logs at [LevelNotice].
func (l *Logger) Notice(msg string, args ...any) {
	l.log(context.Background(), slog.Level(LevelNotice), msg, args...)
}

// NoticeContext logs at [LevelNotice] with ctx.
func (l *Logger) NoticeContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.Level(LevelNotice), msg, args...)
}

// Critical logs at [LevelCritical].
func (l *Logger) Critical(msg string, args ...any) {
	l.log(context.Background(), slog.Level(LevelCritical), msg, args...)
}

// CriticalContext logs at [LevelCritical] with ctx.
func (l *Logger) CriticalContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.Level(LevelCritical), msg, args...)
}

// Alert logs at [LevelAlert].
func (l *Logger) Alert(msg string, args ...any) {
	l.log(context.Background(), slog.Level(LevelAlert), msg, args...)
}

// AlertContext logs at [LevelAlert] with ctx.
func (l *Logger) AlertContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.Level(LevelAlert), msg, args...)
}

// Emergency logs at [LevelEmergency].
func (l *Logger) Emergency(msg string, args ...any) {
	l.log(context.Background(), slog.Level(LevelEmergency), msg, args...)
}

// EmergencyContext logs at [LevelEmergency] with ctx.
func (l *Logger) EmergencyContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.Level(LevelEmergency), msg, args...)
}

// log is the shared emit path. It must be called directly from an exported
// method so the recorded source location is that method's caller.
func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:]) // skip [Callers, log, exported method]
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.Handler().Handle(ctx, r)
}

// logAttrs is log for pre-built attributes, with the same call constraint.
func (l *Logger) logAttrs(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.AddAttrs(attrs...)
	_ = l.Handler().Handle(ctx, r)
}
