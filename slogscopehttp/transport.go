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
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/pjscruggs/slogscope"
)

// Transport returns an http.RoundTripper that copies configured call-local
// fields from the request context into headers and injects trace context.
// Headers already present on the request are left alone.
func Transport(base http.RoundTripper, opts ...Option) http.RoundTripper {
	cfg := applyOptions(opts)
	if base == nil {
		base = http.DefaultTransport
	}
	var rt http.RoundTripper = roundTripper{base: base, cfg: cfg}
	if cfg.enableOTel {
		var otelOpts []otelhttp.Option
		if cfg.tracerProvider != nil {
			otelOpts = append(otelOpts, otelhttp.WithTracerProvider(cfg.tracerProvider))
		}
		// Injection happens in roundTripper so it honours WithTracePropagation.
		otelOpts = append(otelOpts, otelhttp.WithPropagators(noopPropagator{}))
		rt = otelhttp.NewTransport(rt, otelOpts...)
	}
	return rt
}

type roundTripper struct {
	base http.RoundTripper
	cfg  *config
}

// RoundTrip clones req, adds the headers, and forwards it to the base
// transport.
func (t roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("round trip: nil request")
	}

	ctx := req.Context()
	req = req.Clone(ctx)
	for local, header := range t.cfg.outboundLocals {
		if req.Header.Get(header) != "" {
			continue
		}
		if v, ok := slogscope.Local(ctx, local); ok {
			req.Header.Set(header, fmt.Sprint(v))
		}
	}
	t.injectTrace(req)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return resp, fmt.Errorf("round trip request: %w", err)
	}
	return resp, nil
}

// injectTrace injects OpenTelemetry and optional legacy trace headers.
func (t roundTripper) injectTrace(req *http.Request) {
	if !t.cfg.propagateTrace {
		return
	}
	ctx := req.Context()

	propagator := t.cfg.propagators
	if propagator == nil && !t.cfg.propagatorsSet {
		propagator = otel.GetTextMapPropagator()
	}
	if propagator != nil {
		propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))
	}

	if !t.cfg.injectLegacyXCTC || req.Header.Get(XCloudTraceContextHeader) != "" {
		return
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		req.Header.Set(XCloudTraceContextHeader, formatXCloudTrace(sc))
	}
}
