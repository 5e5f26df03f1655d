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

package level

import (
	"errors"
	"log/slog"
	"testing"
)

// TestName covers exact names and offsets.
func TestName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level slog.Level
		want  string
	}{
		{Trace, "TRACE"},
		{Trace - 2, "TRACE-2"},
		{Trace + 1, "TRACE+1"},
		{Debug, "DEBUG"},
		{Info, "INFO"},
		{Info + 1, "INFO+1"},
		{Notice, "NOTICE"},
		{Warn, "WARN"},
		{Error + 2, "ERROR+2"},
		{Critical, "CRITICAL"},
		{Alert, "ALERT"},
		{Emergency, "EMERGENCY"},
		{Emergency + 5, "EMERGENCY+5"},
		{All, "ALL"},
	}
	for _, tt := range tests {
		if got := Name(tt.level); got != tt.want {
			t.Errorf("Name(%d) = %q, want %q", int(tt.level), got, tt.want)
		}
	}
}

// TestParse covers names, aliases, offsets, and integers.
func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", Trace},
		{"DEBUG", Debug},
		{" info ", Info},
		{"Warning", Warn},
		{"WARN", Warn},
		{"fatal", Critical},
		{"INFO+1", Info + 1},
		{"DEBUG-2", Debug - 2},
		{"-4", Debug},
		{"12", Critical},
		{"all", All},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q) returned %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %d, want %d", tt.in, int(got), int(tt.want))
		}
	}
}

// TestParseRoundTripsName ensures Parse inverts Name.
func TestParseRoundTripsName(t *testing.T) {
	t.Parallel()

	for l := Trace - 3; l <= Emergency+3; l++ {
		got, err := Parse(Name(l))
		if err != nil {
			t.Fatalf("Parse(Name(%d)) returned %v", int(l), err)
		}
		if got != l {
			t.Fatalf("Parse(Name(%d)) = %d", int(l), int(got))
		}
	}
}

// TestParseInvalid rejects unknown names.
func TestParseInvalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "LOUD", "INFO+x", "+"} {
		if _, err := Parse(in); !errors.Is(err, ErrInvalid) {
			t.Errorf("Parse(%q) error = %v, want ErrInvalid", in, err)
		}
	}
}

// TestFromValue accepts integers and names from configuration scalars.
func TestFromValue(t *testing.T) {
	t.Parallel()

	if got, err := FromValue(int64(8)); err != nil || got != Error {
		t.Fatalf("FromValue(8) = %d, %v", int(got), err)
	}
	if got, err := FromValue("notice"); err != nil || got != Notice {
		t.Fatalf("FromValue(notice) = %d, %v", int(got), err)
	}
	if _, err := FromValue(true); !errors.Is(err, ErrInvalid) {
		t.Fatalf("FromValue(true) error = %v, want ErrInvalid", err)
	}
	if _, err := FromValue(1.5); !errors.Is(err, ErrInvalid) {
		t.Fatalf("FromValue(1.5) error = %v, want ErrInvalid", err)
	}
}
