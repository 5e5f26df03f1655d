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

package slogscopegrpc

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/metadata"
)

type metadataCarrier struct {
	metadata.MD
}

// Get returns the first value for key.
func (mc metadataCarrier) Get(key string) string {
	return first(mc.MD, key)
}

// Set stores value under key.
func (mc metadataCarrier) Set(key string, value string) {
	mc.MD.Set(key, value)
}

// Keys reports all metadata keys present in the carrier.
func (mc metadataCarrier) Keys() []string {
	keys := make([]string, 0, len(mc.MD))
	for k := range mc.MD {
		keys = append(keys, k)
	}
	return keys
}

func (cfg *config) propagator() propagation.TextMapPropagator {
	if cfg.propagatorsSet {
		return cfg.propagators
	}
	return otel.GetTextMapPropagator()
}

// ensureServerSpanContext extracts a remote span context from md when ctx
// has none, falling back to a bare traceparent entry.
func ensureServerSpanContext(ctx context.Context, md metadata.MD, cfg *config) context.Context {
	if !cfg.propagateTrace || trace.SpanContextFromContext(ctx).IsValid() {
		return ctx
	}
	if p := cfg.propagator(); p != nil {
		if extracted := p.Extract(ctx, metadataCarrier{md}); trace.SpanContextFromContext(extracted).IsValid() {
			return extracted
		}
	}
	if first(md, "traceparent") != "" {
		return propagation.TraceContext{}.Extract(ctx, metadataCarrier{md})
	}
	return ctx
}

// injectClientTrace injects trace metadata for outbound RPCs.
func injectClientTrace(ctx context.Context, md metadata.MD, cfg *config) {
	if !cfg.propagateTrace {
		return
	}
	if p := cfg.propagator(); p != nil {
		p.Inject(ctx, metadataCarrier{md})
	}
}

func addTraceLocals(ctx context.Context, locals map[string]any) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return
	}
	locals[LocalTraceID] = sc.TraceID().String()
	locals[LocalSpanID] = sc.SpanID().String()
	locals[LocalSampled] = sc.IsSampled()
}

// first returns the first value stored under key.
func first(md metadata.MD, key string) string {
	if md == nil {
		return ""
	}
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}

type noopPropagator struct{}

func (noopPropagator) Inject(context.Context, propagation.TextMapCarrier) {}

func (noopPropagator) Extract(ctx context.Context, _ propagation.TextMapCarrier) context.Context {
	return ctx
}

func (noopPropagator) Fields() []string { return nil }
