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

package tree

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestMergeRules covers recursion into mappings and wholesale replacement of
// everything else.
func TestMergeRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		dst  map[string]any
		src  map[string]any
		want map[string]any
	}{
		{
			name: "scalar replaced sibling kept",
			dst:  map[string]any{"loggers": map[string]any{"x": map[string]any{"level": "INFO", "handlers": []any{"h1"}}}},
			src:  map[string]any{"loggers": map[string]any{"x": map[string]any{"level": "ERROR"}}},
			want: map[string]any{"loggers": map[string]any{"x": map[string]any{"level": "ERROR", "handlers": []any{"h1"}}}},
		},
		{
			name: "sequences replaced not concatenated",
			dst:  map[string]any{"root": map[string]any{"handlers": []any{"a", "b"}}},
			src:  map[string]any{"root": map[string]any{"handlers": []any{"c"}}},
			want: map[string]any{"root": map[string]any{"handlers": []any{"c"}}},
		},
		{
			name: "mapping replaces scalar",
			dst:  map[string]any{"x": "plain"},
			src:  map[string]any{"x": map[string]any{"nested": true}},
			want: map[string]any{"x": map[string]any{"nested": true}},
		},
		{
			name: "scalar replaces mapping",
			dst:  map[string]any{"x": map[string]any{"nested": true}},
			src:  map[string]any{"x": 3},
			want: map[string]any{"x": int64(3)},
		},
		{
			name: "disjoint keys union",
			dst:  map[string]any{"a": 1},
			src:  map[string]any{"b": 2},
			want: map[string]any{"a": int64(1), "b": int64(2)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Merge(MustFromValue(tt.dst), MustFromValue(tt.src))
			if diff := cmp.Diff(tt.want, got.Interface()); diff != "" {
				t.Fatalf("Merge() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestMergeDoesNotMutateInputs ensures Merge is pure.
func TestMergeDoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	dst := MustFromValue(map[string]any{"loggers": map[string]any{"a": map[string]any{"level": "INFO"}}})
	src := MustFromValue(map[string]any{"loggers": map[string]any{"a": map[string]any{"level": "DEBUG"}}})
	dstBefore, srcBefore := dst.Clone(), src.Clone()

	out := Merge(dst, src)
	out.Set("extra", Scalar(true))

	if !dst.Equal(dstBefore) {
		t.Fatalf("dst mutated: %v", dst)
	}
	if !src.Equal(srcBefore) {
		t.Fatalf("src mutated: %v", src)
	}
}

// TestMergeIdempotent applies the same fragment twice.
func TestMergeIdempotent(t *testing.T) {
	t.Parallel()

	base := MustFromValue(map[string]any{"version": 1, "loggers": map[string]any{"a": map[string]any{"level": "INFO"}}})
	frag := MustFromValue(map[string]any{
		"loggers":    map[string]any{"a": map[string]any{"propagate": false}, "b": map[string]any{"level": "WARN"}},
		"formatters": map[string]any{"plain": map[string]any{"format": "text"}},
	})

	once := Merge(base, frag)
	twice := Merge(once, frag)
	if !once.Equal(twice) {
		t.Fatalf("Merge not idempotent:\nonce  %v\ntwice %v", once, twice)
	}
}

// TestMergeKeyOrder checks existing keys stay in place and new keys append.
func TestMergeKeyOrder(t *testing.T) {
	t.Parallel()

	dst := NewMapping()
	dst.Set("version", Scalar(1))
	dst.Set("loggers", NewMapping())
	src := NewMapping()
	src.Set("root", NewMapping())
	src.Set("version", Scalar(1))

	got := Merge(dst, src).Keys()
	want := []string{"version", "loggers", "root"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Keys() mismatch (-want +got):\n%s", diff)
	}
}

// TestMergeNilSource returns a copy of the destination.
func TestMergeNilSource(t *testing.T) {
	t.Parallel()

	dst := MustFromValue(map[string]any{"a": 1})
	got := Merge(dst, nil)
	if !got.Equal(dst) {
		t.Fatalf("Merge(dst, nil) = %v, want %v", got, dst)
	}
	got.Set("b", Scalar(2))
	if _, ok := dst.Get("b"); ok {
		t.Fatalf("Merge(dst, nil) shares storage with dst")
	}
}
