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

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pjscruggs/slogscope/tree"
)

const defaultQueueSize = 1024

// dropMode controls what an async sink does when its queue is full.
type dropMode int

const (
	dropBlock dropMode = iota
	dropNewest
	dropOldest
)

// ErrFlushTimeout reports that an async sink closed before its queue drained.
var ErrFlushTimeout = errors.New("engine: async flush timeout")

type asyncConfig struct {
	queueSize    int
	workers      int
	batchSize    int
	dropMode     dropMode
	flushTimeout time.Duration
}

type asyncHooks struct {
	onDrop  func()
	onError func(error)
}

// asyncField reads a handler's async key, which is either a boolean or a
// mapping of queue settings.
func asyncField(def *tree.Node) (asyncConfig, bool, error) {
	cfg := asyncConfig{queueSize: defaultQueueSize, workers: 1, batchSize: 1}

	n, ok := def.Get("async")
	if !ok || n.IsNull() {
		return cfg, false, nil
	}
	if enabled, ok := n.Value().(bool); ok && n.Kind() == tree.KindScalar {
		return cfg, enabled, nil
	}
	if n.Kind() != tree.KindMapping {
		return cfg, false, fmt.Errorf("%w: async must be a boolean or a mapping", ErrInvalidConfig)
	}

	var err error
	if cfg.queueSize, err = intField(n, "queue_size", defaultQueueSize); err != nil {
		return cfg, false, err
	}
	if cfg.workers, err = intField(n, "workers", 1); err != nil {
		return cfg, false, err
	}
	if cfg.batchSize, err = intField(n, "batch_size", 1); err != nil {
		return cfg, false, err
	}
	if cfg.flushTimeout, err = durationField(n, "flush_timeout"); err != nil {
		return cfg, false, err
	}
	mode, err := stringField(n, "drop_mode", "block")
	if err != nil {
		return cfg, false, err
	}
	switch strings.ToLower(strings.ReplaceAll(mode, "-", "_")) {
	case "block":
		cfg.dropMode = dropBlock
	case "drop_newest":
		cfg.dropMode = dropNewest
	case "drop_oldest":
		cfg.dropMode = dropOldest
	default:
		return cfg, false, fmt.Errorf("%w: unknown drop_mode %q", ErrInvalidConfig, mode)
	}

	if cfg.queueSize < 0 {
		cfg.queueSize = defaultQueueSize
	}
	cfg.workers = max(cfg.workers, 1)
	cfg.batchSize = max(cfg.batchSize, 1)
	return cfg, true, nil
}

// asyncHandler hands records to worker goroutines. Handlers derived through
// WithAttrs and WithGroup share the queue.
type asyncHandler struct {
	inner slog.Handler
	state *asyncState
}

type asyncState struct {
	queue        chan queuedRecord
	mode         dropMode
	hooks        asyncHooks
	flushTimeout time.Duration
	wg           sync.WaitGroup
	closed       atomic.Bool
	closeOnce    sync.Once
	closeErr     error
}

type queuedRecord struct {
	ctx     context.Context
	rec     slog.Record
	handler slog.Handler
}

func newAsyncHandler(inner slog.Handler, cfg asyncConfig, hooks asyncHooks) *asyncHandler {
	st := &asyncState{
		queue:        make(chan queuedRecord, cfg.queueSize),
		mode:         cfg.dropMode,
		hooks:        hooks,
		flushTimeout: cfg.flushTimeout,
	}

	st.wg.Add(cfg.workers)
	for range cfg.workers {
		go st.work(cfg.batchSize)
	}
	return &asyncHandler{inner: inner, state: st}
}

// work drains up to batch records per wake-up until the queue closes.
func (st *asyncState) work(batch int) {
	defer st.wg.Done()
	for item := range st.queue {
		st.handle(item)
		for n := 1; n < batch; n++ {
			select {
			case next, ok := <-st.queue:
				if !ok {
					return
				}
				st.handle(next)
			default:
				n = batch
			}
		}
	}
}

func (st *asyncState) handle(item queuedRecord) {
	defer func() {
		if r := recover(); r != nil {
			st.reportError(fmt.Errorf("recovered panic from handler: %v", r))
		}
	}()
	if err := item.handler.Handle(item.ctx, item.rec); err != nil {
		st.reportError(err)
	}
}

func (st *asyncState) reportError(err error) {
	if st.hooks.onError != nil {
		st.hooks.onError(err)
	}
}

func (st *asyncState) dropped() {
	if st.hooks.onDrop != nil {
		st.hooks.onDrop()
	}
}

// Enabled defers to the inner handler.
func (h *asyncHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.inner.Enabled(ctx, l)
}

// Handle enqueues a copy of r according to the drop mode.
func (h *asyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.state.closed.Load() {
		h.state.dropped()
		return nil
	}
	h.enqueue(queuedRecord{ctx: context.WithoutCancel(ctx), rec: r.Clone(), handler: h.inner})
	return nil
}

// WithAttrs returns a handler sharing the queue.
func (h *asyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &asyncHandler{inner: h.inner.WithAttrs(attrs), state: h.state}
}

// WithGroup returns a handler sharing the queue.
func (h *asyncHandler) WithGroup(name string) slog.Handler {
	return &asyncHandler{inner: h.inner.WithGroup(name), state: h.state}
}

// enqueue applies the drop mode. Sends racing Close hit a closed channel;
// the panic is recovered and the record counted as dropped.
func (h *asyncHandler) enqueue(item queuedRecord) {
	st := h.state
	defer func() {
		if recover() != nil {
			st.dropped()
		}
	}()

	switch st.mode {
	case dropNewest:
		select {
		case st.queue <- item:
		default:
			st.dropped()
		}
	case dropOldest:
		select {
		case st.queue <- item:
			return
		default:
		}
		select {
		case <-st.queue:
			st.dropped()
		default:
		}
		select {
		case st.queue <- item:
		default:
			st.dropped()
		}
	default:
		st.queue <- item
	}
}

// Close stops accepting records and waits for the workers to drain the
// queue, up to the flush timeout when one is set.
func (h *asyncHandler) Close() error {
	st := h.state
	st.closeOnce.Do(func() {
		if st.closed.CompareAndSwap(false, true) {
			close(st.queue)
		}

		done := make(chan struct{})
		go func() {
			st.wg.Wait()
			close(done)
		}()

		if st.flushTimeout <= 0 {
			<-done
			return
		}
		timer := time.NewTimer(st.flushTimeout)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			st.closeErr = ErrFlushTimeout
		}
	})
	return st.closeErr
}
