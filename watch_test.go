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
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pjscruggs/slogscope"
)

func TestWatchReloadsChangedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "logging.yml", "root: {level: INFO}\n")

	m, _ := newRecordingManager(t)
	mustAdd(t, m, slogscope.Path(path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Watch(ctx, path); err != nil {
		t.Fatalf("Watch() returned %v", err)
	}

	// Save through a rename, as editors do.
	tmp := filepath.Join(dir, "logging.yml.tmp")
	if err := os.WriteFile(tmp, []byte("root: {level: ERROR}\nloggers: {svc: {level: DEBUG}}\n"), 0o644); err != nil {
		t.Fatalf("os.WriteFile() returned %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("os.Rename() returned %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		doc := m.Current()
		if n, ok := doc.Lookup("root", "level"); ok && n.Value() == "ERROR" {
			if got := lookupValue(t, doc, "loggers", "svc", "level"); got != "DEBUG" {
				t.Fatalf("loggers.svc.level = %v, want DEBUG", got)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("root.level not reloaded within deadline: %v", doc)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWatchAfterClose(t *testing.T) {
	t.Parallel()

	m, _ := newRecordingManager(t)
	if err := m.Close(); err != nil {
		t.Fatalf("Close() returned %v", err)
	}
	if err := m.Watch(context.Background(), "logging.yml"); !errors.Is(err, slogscope.ErrClosed) {
		t.Fatalf("Watch() after Close error = %v, want ErrClosed", err)
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	t.Parallel()

	m, _ := newRecordingManager(t)
	if err := m.Watch(context.Background(), filepath.Join(t.TempDir(), "absent", "logging.yml")); err == nil {
		t.Fatalf("Watch() on a missing directory returned nil error")
	}
}
