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

package slogscopehttp

import (
	"crypto/rand"
	"encoding/binary"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// XCloudTraceContextHeader is the Google Cloud legacy trace propagation header.
const XCloudTraceContextHeader = "X-Cloud-Trace-Context"

var randRead = rand.Read

// parseXCloudTrace decodes "TRACE_ID/SPAN_ID;o=OPTIONS" into a remote span
// context. A missing or zero span id is replaced with a random one.
func parseXCloudTrace(header string) (trace.SpanContext, bool) {
	idPart, options, _ := strings.Cut(strings.TrimSpace(header), ";")
	traceHex, spanDecimal, _ := strings.Cut(strings.TrimSpace(idPart), "/")

	traceID, err := trace.TraceIDFromHex(strings.TrimSpace(traceHex))
	if err != nil || !traceID.IsValid() {
		return trace.SpanContext{}, false
	}

	var spanID trace.SpanID
	if v, err := strconv.ParseUint(strings.TrimSpace(spanDecimal), 10, 64); err == nil {
		binary.BigEndian.PutUint64(spanID[:], v)
	}
	if !spanID.IsValid() {
		if _, err := randRead(spanID[:]); err != nil {
			return trace.SpanContext{}, false
		}
	}

	var flags trace.TraceFlags
	if strings.Contains(options, "o=1") {
		flags = trace.FlagsSampled
	}
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: flags,
		Remote:     true,
	})
	return sc, sc.IsValid()
}

// formatXCloudTrace renders sc as an X-Cloud-Trace-Context value.
func formatXCloudTrace(sc trace.SpanContext) string {
	sampled := "0"
	if sc.IsSampled() {
		sampled = "1"
	}
	spanID := sc.SpanID()
	return sc.TraceID().String() + "/" + strconv.FormatUint(binary.BigEndian.Uint64(spanID[:]), 10) + ";o=" + sampled
}
