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
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// Watch re-merges the configuration files at paths whenever they are written
// or replaced, until ctx is done or the Manager is closed. Parent
// directories are watched so editors that save by renaming are followed.
// Reload failures are reported to the internal logger.
func (m *Manager) Watch(ctx context.Context, paths ...string) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if len(paths) == 0 {
		return nil
	}

	targets := make(map[string]string, len(paths))
	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", p, err)
		}
		abs = filepath.Clean(abs)
		targets[abs] = p
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	m.watchMu.Lock()
	if m.closed.Load() {
		m.watchMu.Unlock()
		cancel()
		_ = w.Close()
		return ErrClosed
	}
	m.watchers = append(m.watchers, cancel)
	m.watchWG.Add(1)
	m.watchMu.Unlock()

	go m.watchLoop(ctx, w, targets)
	return nil
}

// watchLoop collects events for the watched files and reloads them once
// they have been quiet for watchDebounce.
func (m *Manager) watchLoop(ctx context.Context, w *fsnotify.Watcher, targets map[string]string) {
	defer m.watchWG.Done()
	defer w.Close()

	debounce := time.NewTimer(0)
	<-debounce.C
	defer debounce.Stop()

	pending := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			p, ok := targets[filepath.Clean(event.Name)]
			if !ok {
				continue
			}
			pending[p] = struct{}{}
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			for _, p := range slices.Sorted(maps.Keys(pending)) {
				if err := m.AddConfiguration(Path(p)); err != nil {
					logDiagnostic(m.internalLogger, slog.LevelWarn, "reload configuration",
						slog.String("path", p),
						slog.Any("error", err),
					)
				}
			}
			clear(pending)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logDiagnostic(m.internalLogger, slog.LevelWarn, "configuration watcher error", slog.Any("error", err))
		}
	}
}
