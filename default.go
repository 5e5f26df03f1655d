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
	"log/slog"
	"sync"
	"sync/atomic"
)

var (
	defaultManager atomic.Pointer[Manager]
	defaultInit    sync.Mutex
)

// Default returns the process-wide Manager used by [Scoped]. Unless
// replaced with [SetDefault], it is built on first use from the SLOGSCOPE_*
// environment variables. When the environment configuration fails, the
// error is logged at WARN through the unconfigured Manager, which writes it
// to stderr.
func Default() *Manager {
	if m := defaultManager.Load(); m != nil {
		return m
	}

	defaultInit.Lock()
	defer defaultInit.Unlock()
	if m := defaultManager.Load(); m != nil {
		return m
	}

	m, err := NewManager(WithEnv())
	if err != nil {
		m, _ = NewManager()
		m.Logger("slogscope").Warn("configure default manager from environment", slog.Any("error", err))
	}
	defaultManager.Store(m)
	return m
}

// SetDefault makes m the Manager returned by Default. Scoped loggers that
// already resolved keep their loggers. It does not close the previous
// Manager.
func SetDefault(m *Manager) {
	if m == nil {
		return
	}
	defaultManager.Store(m)
}
