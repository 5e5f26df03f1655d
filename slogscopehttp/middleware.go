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
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/pjscruggs/slogscope"
)

const instrumentationName = "github.com/pjscruggs/slogscope/slogscopehttp"

// Middleware returns an http.Handler middleware that stores request
// call-local fields on the request context and attaches the scope's logger.
// Application logging is left to handlers.
func Middleware(opts ...Option) func(http.Handler) http.Handler {
	cfg := applyOptions(opts)

	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}

		handlerChain := wrapWithOTel(cfg, localsHandler(cfg, next))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if newCtx := ensureSpanContext(ctx, r, cfg); newCtx != ctx {
				r = r.WithContext(newCtx)
			}
			handlerChain.ServeHTTP(w, r)
		})
	}
}

// localsHandler runs inside otelhttp so the span it starts is visible.
func localsHandler(cfg *config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locals := requestLocals(cfg, r)
		if id, ok := locals[LocalRequestID].(string); ok {
			w.Header().Set(cfg.requestIDHeader, id)
		}

		ctx := slogscope.WithLocals(r.Context(), locals)
		ctx = slogscope.ContextWithLogger(ctx, cfg.logger.Logger().Logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLocals collects the call-local fields describing r.
func requestLocals(cfg *config, r *http.Request) map[string]any {
	locals := map[string]any{
		LocalMethod: r.Method,
	}
	if r.URL != nil {
		locals[LocalPath] = r.URL.Path
	}
	if cfg.requestIDHeader != "" {
		id := strings.TrimSpace(r.Header.Get(cfg.requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		locals[LocalRequestID] = id
	}
	if cfg.routeGetter != nil {
		if route := cfg.routeGetter(r); route != "" {
			locals[LocalRoute] = route
		}
	} else if r.Pattern != "" {
		locals[LocalRoute] = r.Pattern
	}
	if cfg.includeClientIP {
		if ip := extractIP(r.RemoteAddr); ip != "" {
			locals[LocalClientIP] = ip
		}
	}
	for header, local := range cfg.headerLocals {
		if v := r.Header.Get(header); v != "" {
			locals[local] = v
		}
	}
	addTraceLocals(locals, trace.SpanContextFromContext(r.Context()))
	return locals
}

func addTraceLocals(locals map[string]any, sc trace.SpanContext) {
	if !sc.IsValid() {
		return
	}
	locals[LocalTraceID] = sc.TraceID().String()
	locals[LocalSpanID] = sc.SpanID().String()
	locals[LocalSampled] = sc.IsSampled()
}

// wrapWithOTel wraps handler with otelhttp middleware when enabled.
func wrapWithOTel(cfg *config, handler http.Handler) http.Handler {
	if !cfg.enableOTel {
		return handler
	}
	return otelhttp.NewHandler(handler, instrumentationName, otelOptions(cfg)...)
}

// otelOptions builds OpenTelemetry options from configuration.
func otelOptions(cfg *config) []otelhttp.Option {
	var otelOpts []otelhttp.Option
	if cfg.tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(cfg.tracerProvider))
	}
	if cfg.propagateTrace {
		if cfg.propagatorsSet && cfg.propagators != nil {
			otelOpts = append(otelOpts, otelhttp.WithPropagators(cfg.propagators))
		}
	} else {
		otelOpts = append(otelOpts, otelhttp.WithPropagators(noopPropagator{}))
	}
	if cfg.publicEndpoint {
		otelOpts = append(otelOpts, otelhttp.WithPublicEndpointFn(func(*http.Request) bool {
			return true
		}))
	}
	if cfg.spanNameFormatter != nil {
		otelOpts = append(otelOpts, otelhttp.WithSpanNameFormatter(cfg.spanNameFormatter))
	}
	for _, filter := range cfg.filters {
		otelOpts = append(otelOpts, otelhttp.WithFilter(filter))
	}
	return otelOpts
}

type noopPropagator struct{}

func (noopPropagator) Inject(context.Context, propagation.TextMapCarrier) {}

func (noopPropagator) Extract(ctx context.Context, _ propagation.TextMapCarrier) context.Context {
	return ctx
}

func (noopPropagator) Fields() []string { return nil }

// ensureSpanContext extracts a remote span context from the request headers
// when ctx has none, falling back to X-Cloud-Trace-Context.
func ensureSpanContext(ctx context.Context, r *http.Request, cfg *config) context.Context {
	if !cfg.propagateTrace || trace.SpanContextFromContext(ctx).IsValid() {
		return ctx
	}

	propagator := cfg.propagators
	if propagator == nil && !cfg.propagatorsSet {
		propagator = otel.GetTextMapPropagator()
	}
	if propagator != nil {
		extracted := propagator.Extract(ctx, propagation.HeaderCarrier(r.Header))
		if trace.SpanContextFromContext(extracted).IsValid() {
			return extracted
		}
	}

	if header := r.Header.Get(XCloudTraceContextHeader); header != "" {
		if sc, ok := parseXCloudTrace(header); ok {
			return trace.ContextWithRemoteSpanContext(ctx, sc)
		}
	}
	return ctx
}

// extractIP strips the port from a host:port string.
func extractIP(addr string) string {
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
