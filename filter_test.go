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
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRecordSetReplacesInPlace(t *testing.T) {
	t.Parallel()

	r := &Record{}
	r.Set("a", 1)
	r.Set("b", 2)
	r.Set("a", "one")

	var keys []string
	for _, a := range r.Fields() {
		keys = append(keys, a.Key)
	}
	if diff := cmp.Diff([]string{"a", "b"}, keys); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}
	if v, _ := r.Lookup("a"); v.String() != "one" {
		t.Fatalf("Lookup(a) = %v, want one", v)
	}

	r.Delete("a")
	if _, ok := r.Lookup("a"); ok {
		t.Fatalf("Lookup(a) found a deleted field")
	}
}

func TestNewFilterHandlerWithoutFilters(t *testing.T) {
	t.Parallel()

	next := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	if got := newFilterHandler(next, "svc", nil); got != next {
		t.Fatalf("newFilterHandler(no filters) = %T, want the wrapped handler", got)
	}
}

// TestFilterHandlerKeepsGroups passes inlined and named groups through
// unchanged while filter fields stay at the top level.
func TestFilterHandlerKeepsGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	next := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})
	h := newFilterHandler(next, "svc", []Filter{NewFieldFilter(nil, map[string]any{"env": "prod"})})
	logger := slog.New(h).With("component", "db").WithGroup("req")

	logger.Info("done", slog.Group("", slog.Int("inline", 1)), slog.Group("http", slog.Int("status", 200)))

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("json.Unmarshal() returned %v", err)
	}
	want := map[string]any{
		"level":     "INFO",
		"msg":       "done",
		"component": "db",
		"env":       "prod",
		"req": map[string]any{
			"inline": float64(1),
			"http":   map[string]any{"status": float64(200)},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

// TestFilterOverwritesLoggerAttrs lets constants replace fields added with
// With instead of emitting the key twice.
func TestFilterOverwritesLoggerAttrs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		log  func(*slog.Logger)
		want map[string]any
	}{
		{
			name: "ungrouped",
			log: func(l *slog.Logger) {
				l.With("env", "dev", "component", "db").Info("done", "k", 1)
			},
			want: map[string]any{"msg": "done", "env": "prod", "component": "db", "k": float64(1)},
		},
		{
			name: "grouped",
			log: func(l *slog.Logger) {
				l.With("env", "dev").WithGroup("req").With("id", "r1").Info("done", "k", 1)
			},
			want: map[string]any{
				"msg": "done",
				"env": "prod",
				"req": map[string]any{"id": "r1", "k": float64(1)},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			next := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
				ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
					if len(groups) == 0 && (a.Key == slog.TimeKey || a.Key == slog.LevelKey) {
						return slog.Attr{}
					}
					return a
				},
			})
			h := newFilterHandler(next, "svc", []Filter{NewFieldFilter(nil, map[string]any{"env": "prod"})})
			tt.log(slog.New(h))

			if n := bytes.Count(buf.Bytes(), []byte(`"env"`)); n != 1 {
				t.Fatalf("env keys = %d, want 1 in %s", n, buf.Bytes())
			}
			var got map[string]any
			if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
				t.Fatalf("json.Unmarshal() returned %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFieldFilterAlwaysKeeps(t *testing.T) {
	t.Parallel()

	f := NewFieldFilter(map[string]string{"missing": "out"}, nil)
	r := &Record{}
	if !f.Filter(context.Background(), r) {
		t.Fatalf("Filter() = false, want true")
	}
	if got := len(r.Fields()); got != 0 {
		t.Fatalf("fields = %d, want 0 when the local is absent", got)
	}
}
