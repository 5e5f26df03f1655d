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
	"runtime"
	"strconv"
	"strings"
	"sync"
)

const maxStackFrames = 64

var stackPCPool = sync.Pool{
	New: func() any {
		buf := make([]uintptr, maxStackFrames)
		return &buf
	},
}

// internalPackages prefix the frames trimmed from the top of captured
// stacks.
var internalPackages = []string{
	"runtime.",
	"log/slog.",
	"github.com/pjscruggs/slogscope.",
	"github.com/pjscruggs/slogscope/internal/",
}

// captureStack formats the calling goroutine's stack in the layout printed
// by panics, starting at the first frame outside slog and slogscope.
func captureStack() string {
	bufPtr := stackPCPool.Get().(*[]uintptr)
	defer stackPCPool.Put(bufPtr)

	pcs := (*bufPtr)[:cap(*bufPtr)]
	n := runtime.Callers(1, pcs)
	if n == 0 {
		return ""
	}
	pcs = trimInternalFrames(pcs[:n])
	return formatStack(pcs)
}

// trimInternalFrames drops leading frames that belong to the logging path.
func trimInternalFrames(pcs []uintptr) []uintptr {
	frames := runtime.CallersFrames(pcs)
	skip := 0
	for {
		frame, more := frames.Next()
		if !isInternalFrame(frame.Function) {
			break
		}
		skip++
		if !more {
			return pcs
		}
	}
	return pcs[skip:]
}

func isInternalFrame(fn string) bool {
	for _, prefix := range internalPackages {
		if strings.HasPrefix(fn, prefix) {
			return true
		}
	}
	return false
}

func formatStack(pcs []uintptr) string {
	if len(pcs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(pcs) * 64)
	sb.WriteString(goroutineHeader())
	sb.WriteByte('\n')

	var intBuf [20]byte
	frames := runtime.CallersFrames(pcs)
	for count := 0; count < maxStackFrames; count++ {
		frame, more := frames.Next()
		if frame.Function != "" && frame.Function != "runtime.goexit" {
			sb.WriteString(frame.Function)
			sb.WriteString("\n\t")
			sb.WriteString(frame.File)
			sb.WriteByte(':')
			sb.Write(strconv.AppendInt(intBuf[:0], int64(frame.Line), 10))
			if frame.Entry != 0 && frame.PC > frame.Entry {
				sb.WriteString(" +0x")
				sb.Write(strconv.AppendUint(intBuf[:0], uint64(frame.PC-frame.Entry), 16))
			}
			sb.WriteByte('\n')
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// goroutineHeader returns the first line runtime.Stack prints for the
// current goroutine.
func goroutineHeader() string {
	const fallback = "goroutine 0 [running]:"

	var buf [128]byte
	n := runtime.Stack(buf[:], false)
	header, _, _ := strings.Cut(string(buf[:n]), "\n")
	if header = strings.TrimSpace(header); header == "" {
		return fallback
	}
	return header
}
