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

package slogscope_test

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pjscruggs/slogscope"
	"github.com/pjscruggs/slogscope/tree"
)

// recordingRuntime is a Runtime double that records applied documents,
// counts handler resolutions, and captures every record.
type recordingRuntime struct {
	mu      sync.Mutex
	applied []*tree.Node
	reject  error

	resolutions atomic.Int64
	capture     *captureHandler
}

func newRecordingRuntime() *recordingRuntime {
	return &recordingRuntime{capture: &captureHandler{store: &captureStore{}}}
}

func (r *recordingRuntime) Apply(doc *tree.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reject != nil {
		return r.reject
	}
	r.applied = append(r.applied, doc)
	return nil
}

func (r *recordingRuntime) Handler(string) slog.Handler {
	r.resolutions.Add(1)
	return r.capture
}

func (r *recordingRuntime) applies() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.applied)
}

func (r *recordingRuntime) last() *tree.Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.applied) == 0 {
		return nil
	}
	return r.applied[len(r.applied)-1]
}

func (r *recordingRuntime) setReject(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reject = err
}

type captureStore struct {
	mu      sync.Mutex
	records []slog.Record
}

// captureHandler keeps every record; attrs from WithAttrs are prepended.
type captureHandler struct {
	store *captureStore
	attrs []slog.Attr
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	rec := r.Clone()
	if len(h.attrs) > 0 {
		rec = slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
		rec.AddAttrs(h.attrs...)
		r.Attrs(func(a slog.Attr) bool {
			rec.AddAttrs(a)
			return true
		})
	}
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.records = append(h.store.records, rec)
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &captureHandler{store: h.store, attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...)}
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func (h *captureHandler) records() []slog.Record {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return append([]slog.Record(nil), h.store.records...)
}

// recordAttrs flattens the top-level attributes of r.
func recordAttrs(r slog.Record) map[string]any {
	out := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})
	return out
}

func newRecordingManager(t *testing.T, opts ...slogscope.Option) (*slogscope.Manager, *recordingRuntime) {
	t.Helper()
	rt := newRecordingRuntime()
	m, err := slogscope.NewManager(append([]slogscope.Option{slogscope.WithRuntime(rt)}, opts...)...)
	if err != nil {
		t.Fatalf("NewManager() returned %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m, rt
}

func yamlSource(name, data string) slogscope.YAML {
	return slogscope.YAML{Name: name, Data: []byte(data)}
}

func mustAdd(t *testing.T, m *slogscope.Manager, src slogscope.Source) {
	t.Helper()
	if err := m.AddConfiguration(src); err != nil {
		t.Fatalf("AddConfiguration() returned %v", err)
	}
}

func lookupValue(t *testing.T, doc *tree.Node, path ...string) any {
	t.Helper()
	n, ok := doc.Lookup(path...)
	if !ok {
		t.Fatalf("Lookup(%v) not found in\n%s", path, doc)
	}
	return n.Value()
}
