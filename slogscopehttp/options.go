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
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/pjscruggs/slogscope"
)

// Call-local field names set by Middleware.
const (
	LocalRequestID = "request_id"
	LocalMethod    = "http_method"
	LocalPath      = "http_path"
	LocalRoute     = "http_route"
	LocalClientIP  = "client_ip"
	LocalTraceID   = "trace_id"
	LocalSpanID    = "span_id"
	LocalSampled   = "trace_sampled"
)

// DefaultRequestIDHeader carries request ids in and out.
const DefaultRequestIDHeader = "X-Request-Id"

// DefaultScope is the logger scope attached to request contexts.
const DefaultScope = "http"

// Option configures Middleware and Transport.
type Option func(*config)

type config struct {
	manager           *slogscope.Manager
	scope             string
	logger            *slogscope.ScopedLogger
	enableOTel        bool
	tracerProvider    trace.TracerProvider
	propagators       propagation.TextMapPropagator
	propagatorsSet    bool
	propagateTrace    bool
	publicEndpoint    bool
	spanNameFormatter func(string, *http.Request) string
	filters           []otelhttp.Filter
	requestIDHeader   string
	headerLocals      map[string]string
	outboundLocals    map[string]string
	routeGetter       func(*http.Request) string
	includeClientIP   bool
	injectLegacyXCTC  bool
}

func defaultConfig() *config {
	return &config{
		scope:           DefaultScope,
		enableOTel:      true,
		propagateTrace:  true,
		includeClientIP: true,
		requestIDHeader: DefaultRequestIDHeader,
		headerLocals:    make(map[string]string),
		outboundLocals:  make(map[string]string),
	}
}

func applyOptions(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	cfg.logger = slogscope.NewScopedLogger(cfg.scope, cfg.manager)
	if cfg.requestIDHeader != "" {
		if _, ok := cfg.outboundLocals[LocalRequestID]; !ok {
			cfg.outboundLocals[LocalRequestID] = cfg.requestIDHeader
		}
	}
	return cfg
}

// WithManager selects the Manager whose logger is attached to request
// contexts. The default Manager is used when unset.
func WithManager(m *slogscope.Manager) Option {
	return func(cfg *config) {
		cfg.manager = m
	}
}

// WithScope sets the scope of the logger attached to request contexts.
func WithScope(scope string) Option {
	return func(cfg *config) {
		if scope = strings.TrimSpace(scope); scope != "" {
			cfg.scope = scope
		}
	}
}

// WithPropagators supplies a TextMapPropagator used for extracting (server) or
// injecting (client) trace context. When omitted, otel.GetTextMapPropagator()
// is used.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(cfg *config) {
		cfg.propagators = p
		cfg.propagatorsSet = true
	}
}

// WithTracerProvider installs the tracer provider used by otelhttp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.tracerProvider = tp
	}
}

// WithTracePropagation toggles extraction and injection of trace context.
// Enabled by default.
func WithTracePropagation(enabled bool) Option {
	return func(cfg *config) {
		cfg.propagateTrace = enabled
	}
}

// WithPublicEndpoint toggles the otelhttp public endpoint hint.
func WithPublicEndpoint(enabled bool) Option {
	return func(cfg *config) {
		cfg.publicEndpoint = enabled
	}
}

// WithOTel enables or disables otelhttp instrumentation. Enabled by default.
func WithOTel(enabled bool) Option {
	return func(cfg *config) {
		cfg.enableOTel = enabled
	}
}

// WithSpanNameFormatter customizes otelhttp span naming.
func WithSpanNameFormatter(formatter func(string, *http.Request) string) Option {
	return func(cfg *config) {
		cfg.spanNameFormatter = formatter
	}
}

// WithFilter appends an otelhttp filter applied before span creation.
func WithFilter(filter otelhttp.Filter) Option {
	return func(cfg *config) {
		if filter != nil {
			cfg.filters = append(cfg.filters, filter)
		}
	}
}

// WithRequestIDHeader changes the header read for, and echoed with, the
// request id. An empty name disables request ids.
func WithRequestIDHeader(header string) Option {
	return func(cfg *config) {
		cfg.requestIDHeader = http.CanonicalHeaderKey(strings.TrimSpace(header))
	}
}

// WithHeaderLocal copies the inbound header into the call-local field
// local.
func WithHeaderLocal(header, local string) Option {
	return func(cfg *config) {
		header = http.CanonicalHeaderKey(strings.TrimSpace(header))
		if header != "" && local != "" {
			cfg.headerLocals[header] = local
		}
	}
}

// WithPropagatedLocal makes Transport copy the call-local field local into
// the outbound header.
func WithPropagatedLocal(local, header string) Option {
	return func(cfg *config) {
		header = http.CanonicalHeaderKey(strings.TrimSpace(header))
		if header != "" && local != "" {
			cfg.outboundLocals[local] = header
		}
	}
}

// WithRouteGetter resolves the route template stored in [LocalRoute].
func WithRouteGetter(fn func(*http.Request) string) Option {
	return func(cfg *config) {
		cfg.routeGetter = fn
	}
}

// WithClientIP toggles the [LocalClientIP] field. Enabled by default.
func WithClientIP(enabled bool) Option {
	return func(cfg *config) {
		cfg.includeClientIP = enabled
	}
}

// WithLegacyXCloudInjection toggles synthesis of the legacy
// X-Cloud-Trace-Context header on outbound requests.
func WithLegacyXCloudInjection(enabled bool) Option {
	return func(cfg *config) {
		cfg.injectLegacyXCTC = enabled
	}
}
