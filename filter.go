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
	"slices"
	"time"
)

// Filter inspects and may modify every record emitted through a logger it is
// attached to. Returning false drops the record.
//
// Filters are attached when a logger is resolved, in registration order, so
// a later filter sees and may overwrite the fields set by earlier ones.
type Filter interface {
	Filter(ctx context.Context, r *Record) bool
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc func(ctx context.Context, r *Record) bool

// Filter calls f.
func (f FilterFunc) Filter(ctx context.Context, r *Record) bool {
	return f(ctx, r)
}

// Record is the mutable view of a log record passed to filters. Its fields
// are the record's top-level attributes, including those added with
// Logger.With before any group; attributes nested under a Logger.WithGroup
// group are passed through untouched and are not visible here. Fields keep
// the order in which they were first set.
type Record struct {
	Time    time.Time
	Level   slog.Level
	Message string
	// Scope is the scope of the logger the record was emitted through.
	Scope string

	fields []slog.Attr
}

// Set stores value under key, replacing an existing field in place.
func (r *Record) Set(key string, value any) {
	attr := slog.Any(key, value)
	for i := range r.fields {
		if r.fields[i].Key == key {
			r.fields[i] = attr
			return
		}
	}
	r.fields = append(r.fields, attr)
}

// Lookup returns the field stored under key.
func (r *Record) Lookup(key string) (slog.Value, bool) {
	for _, a := range r.fields {
		if a.Key == key {
			return a.Value, true
		}
	}
	return slog.Value{}, false
}

// add appends a from the incoming record. Inlined groups are kept as is.
func (r *Record) add(a slog.Attr) {
	if a.Key == "" {
		r.fields = append(r.fields, a)
		return
	}
	r.Set(a.Key, a.Value)
}

// Delete removes the field stored under key.
func (r *Record) Delete(key string) {
	r.fields = slices.DeleteFunc(r.fields, func(a slog.Attr) bool { return a.Key == key })
}

// Fields returns a copy of the record's fields.
func (r *Record) Fields() []slog.Attr {
	return slices.Clone(r.fields)
}

// filterHandler runs a fixed filter chain before passing records on. The
// chain is the snapshot taken when the logger was resolved.
//
// Attributes added with WithAttrs before any group are kept back and handed
// to the filters as record fields, so filters can overwrite them. Fields the
// filters produce always land at the top level: once the handler is grouped,
// they are attached to base and the recorded ops are replayed on top.
type filterHandler struct {
	base    slog.Handler
	scope   string
	filters []Filter

	prefix  []slog.Attr
	ops     []handlerOp
	grouped bool
}

// handlerOp is one WithAttrs or WithGroup call made after the first group.
type handlerOp struct {
	attrs []slog.Attr
	group string
}

func applyOps(h slog.Handler, ops []handlerOp) slog.Handler {
	for _, op := range ops {
		if op.group != "" {
			h = h.WithGroup(op.group)
		} else {
			h = h.WithAttrs(op.attrs)
		}
	}
	return h
}

func newFilterHandler(next slog.Handler, scope string, filters []Filter) slog.Handler {
	if len(filters) == 0 {
		return next
	}
	return &filterHandler{base: next, scope: scope, filters: filters}
}

func (h *filterHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.base.Enabled(ctx, l)
}

func (h *filterHandler) Handle(ctx context.Context, r slog.Record) error {
	rec := &Record{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Scope:   h.scope,
		fields:  make([]slog.Attr, 0, len(h.prefix)+r.NumAttrs()+2),
	}
	for _, a := range h.prefix {
		rec.add(a)
	}
	if !h.grouped {
		r.Attrs(func(a slog.Attr) bool {
			rec.add(a)
			return true
		})
	}

	for _, f := range h.filters {
		if !f.Filter(ctx, rec) {
			return nil
		}
	}

	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, r.PC)
	if !h.grouped {
		out.AddAttrs(rec.fields...)
		return h.base.Handle(ctx, out)
	}

	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(a)
		return true
	})
	target := h.base
	if len(rec.fields) > 0 {
		target = target.WithAttrs(rec.fields)
	}
	return applyOps(target, h.ops).Handle(ctx, out)
}

func (h *filterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	if h.grouped {
		h2.ops = append(slices.Clip(h.ops), handlerOp{attrs: slices.Clone(attrs)})
	} else {
		h2.prefix = append(slices.Clip(h.prefix), attrs...)
	}
	return &h2
}

func (h *filterHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.ops = append(slices.Clip(h.ops), handlerOp{group: name})
	h2.grouped = true
	return &h2
}

// FieldFilter copies call-local fields into records and sets constant
// fields on every record. It never drops records.
type FieldFilter struct {
	locals    []fieldMapping
	constants []slog.Attr
}

type fieldMapping struct {
	local  string
	output string
}

// NewFieldFilter builds a FieldFilter. locals maps call-local field names
// (see [WithLocal]) to record field names; constants maps record field
// names to fixed values. Constants are applied after locals.
func NewFieldFilter(locals map[string]string, constants map[string]any) *FieldFilter {
	f := &FieldFilter{}
	for _, name := range slices.Sorted(maps.Keys(locals)) {
		f.locals = append(f.locals, fieldMapping{local: name, output: locals[name]})
	}
	for _, name := range slices.Sorted(maps.Keys(constants)) {
		f.constants = append(f.constants, slog.Any(name, constants[name]))
	}
	return f
}

// Filter implements [Filter]. It always returns true.
func (f *FieldFilter) Filter(ctx context.Context, r *Record) bool {
	for _, m := range f.locals {
		if v, ok := Local(ctx, m.local); ok {
			r.Set(m.output, v)
		}
	}
	for _, c := range f.constants {
		r.Set(c.Key, c.Value)
	}
	return true
}

// Locals returns the call-local to record field mapping.
func (f *FieldFilter) Locals() map[string]string {
	out := make(map[string]string, len(f.locals))
	for _, m := range f.locals {
		out[m.local] = m.output
	}
	return out
}

// Constants returns the constant fields.
func (f *FieldFilter) Constants() map[string]any {
	out := make(map[string]any, len(f.constants))
	for _, c := range f.constants {
		out[c.Key] = c.Value.Any()
	}
	return out
}
