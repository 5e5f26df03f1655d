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
	"maps"
)

type contextKey int

const (
	loggerContextKey contextKey = iota
	localsContextKey
)

// ContextWithLogger returns a child context that stores logger so handlers can
// retrieve a request-scoped logger later in the call chain.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerContextKey, logger)
}

// LoggerFromContext retrieves a logger stored in ctx via ContextWithLogger.
// If no logger is found, slog.Default() is returned.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// WithLocal returns a child context carrying the call-local field name.
// Call-local fields are what [FieldFilter] copies into records.
func WithLocal(ctx context.Context, name string, value any) context.Context {
	return WithLocals(ctx, map[string]any{name: value})
}

// WithLocals returns a child context carrying fields in addition to the
// call-local fields already present in ctx. Fields replace existing values
// with the same name. The maps stored in contexts are never modified.
func WithLocals(ctx context.Context, fields map[string]any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(fields) == 0 {
		return ctx
	}
	parent, _ := ctx.Value(localsContextKey).(map[string]any)
	merged := make(map[string]any, len(parent)+len(fields))
	maps.Copy(merged, parent)
	maps.Copy(merged, fields)
	return context.WithValue(ctx, localsContextKey, merged)
}

// Local returns the call-local field name from ctx.
func Local(ctx context.Context, name string) (any, bool) {
	if ctx == nil {
		return nil, false
	}
	locals, _ := ctx.Value(localsContextKey).(map[string]any)
	v, ok := locals[name]
	return v, ok
}

// Locals returns a copy of every call-local field in ctx.
func Locals(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	locals, _ := ctx.Value(localsContextKey).(map[string]any)
	return maps.Clone(locals)
}
