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
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/pjscruggs/slogscope"
)

// Call-local field names set by the server interceptors.
const (
	LocalRequestID = "request_id"
	LocalService   = "rpc_service"
	LocalMethod    = "rpc_method"
	LocalPeer      = "peer"
	LocalTraceID   = "trace_id"
	LocalSpanID    = "span_id"
	LocalSampled   = "trace_sampled"
)

// DefaultRequestIDKey is the metadata key carrying request ids.
const DefaultRequestIDKey = "x-request-id"

// DefaultScope is the logger scope attached to RPC contexts.
const DefaultScope = "grpc"

// Option configures interceptors and helper functions.
type Option func(*config)

type config struct {
	manager        *slogscope.Manager
	scope          string
	logger         *slogscope.ScopedLogger
	enableOTel     bool
	tracerProvider trace.TracerProvider
	propagators    propagation.TextMapPropagator
	propagatorsSet bool
	propagateTrace bool
	filters        []otelgrpc.Filter
	requestIDKey   string
	metadataLocals map[string]string
	outboundLocals map[string]string
	includePeer    bool
}

func defaultConfig() *config {
	return &config{
		scope:          DefaultScope,
		enableOTel:     true,
		propagateTrace: true,
		includePeer:    true,
		requestIDKey:   DefaultRequestIDKey,
		metadataLocals: make(map[string]string),
		outboundLocals: make(map[string]string),
	}
}

// applyOptions applies the provided Option list, starting from defaultConfig.
func applyOptions(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	cfg.logger = slogscope.NewScopedLogger(cfg.scope, cfg.manager)
	if cfg.requestIDKey != "" {
		if _, ok := cfg.outboundLocals[LocalRequestID]; !ok {
			cfg.outboundLocals[LocalRequestID] = cfg.requestIDKey
		}
	}
	return cfg
}

// WithManager selects the Manager whose logger is attached to RPC contexts.
// The default Manager is used when unset.
func WithManager(m *slogscope.Manager) Option {
	return func(cfg *config) {
		cfg.manager = m
	}
}

// WithScope sets the scope of the logger attached to RPC contexts.
func WithScope(scope string) Option {
	return func(cfg *config) {
		if scope = strings.TrimSpace(scope); scope != "" {
			cfg.scope = scope
		}
	}
}

// WithPropagators sets the propagator used for extracting (server) or
// injecting (client) metadata. When omitted, the global propagator is used.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(cfg *config) {
		cfg.propagators = p
		cfg.propagatorsSet = true
	}
}

// WithTracerProvider configures the tracer provider used by otelgrpc.
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

// WithOTel enables or disables otelgrpc stats handlers. Enabled by default.
func WithOTel(enabled bool) Option {
	return func(cfg *config) {
		cfg.enableOTel = enabled
	}
}

// WithFilter appends an otelgrpc filter applied before spans are created.
func WithFilter(filter otelgrpc.Filter) Option {
	return func(cfg *config) {
		if filter != nil {
			cfg.filters = append(cfg.filters, filter)
		}
	}
}

// WithRequestIDKey changes the metadata key read for and sent with request
// ids. An empty key disables request ids.
func WithRequestIDKey(key string) Option {
	return func(cfg *config) {
		cfg.requestIDKey = strings.ToLower(strings.TrimSpace(key))
	}
}

// WithMetadataLocal copies the incoming metadata value under key into the
// call-local field local.
func WithMetadataLocal(key, local string) Option {
	return func(cfg *config) {
		key = strings.ToLower(strings.TrimSpace(key))
		if key != "" && local != "" {
			cfg.metadataLocals[key] = local
		}
	}
}

// WithPropagatedLocal makes client interceptors copy the call-local field
// local into outgoing metadata under key.
func WithPropagatedLocal(local, key string) Option {
	return func(cfg *config) {
		key = strings.ToLower(strings.TrimSpace(key))
		if key != "" && local != "" {
			cfg.outboundLocals[local] = key
		}
	}
}

// WithPeerInfo toggles the [LocalPeer] field. Enabled by default.
func WithPeerInfo(enabled bool) Option {
	return func(cfg *config) {
		cfg.includePeer = enabled
	}
}
