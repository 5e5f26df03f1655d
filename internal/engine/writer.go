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
	"fmt"
	"io"
	"sync"
)

// switchableWriter serializes writes to an underlying writer that can be
// swapped while records are in flight. File sinks use it so Reopen can move
// to a fresh descriptor, and so writes racing a configuration swap land in
// io.Discard once the sink is closed instead of reopening the file.
type switchableWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newSwitchableWriter(w io.Writer) *switchableWriter {
	if w == nil {
		w = io.Discard
	}
	return &switchableWriter{w: w}
}

// Write forwards p to the current writer.
func (sw *switchableWriter) Write(p []byte) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	n, err := sw.w.Write(p)
	if err != nil {
		return n, fmt.Errorf("write log output: %w", err)
	}
	return n, nil
}

// swap installs w and returns the previous writer without closing it.
func (sw *switchableWriter) swap(w io.Writer) io.Writer {
	if w == nil {
		w = io.Discard
	}
	sw.mu.Lock()
	defer sw.mu.Unlock()
	prev := sw.w
	sw.w = w
	return prev
}

// Close closes the current writer when it is an io.Closer and routes later
// writes to io.Discard. It is idempotent.
func (sw *switchableWriter) Close() error {
	prev := sw.swap(io.Discard)
	if c, ok := prev.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close log output: %w", err)
		}
	}
	return nil
}
