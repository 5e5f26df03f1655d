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
	"os"
	"sync"

	gcppropagator "github.com/GoogleCloudPlatform/opentelemetry-operations-go/propagator"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

var installPropagatorOnce sync.Once

// init installs the propagator when the package is imported, before any
// middleware extracts trace context.
func init() {
	EnsurePropagation()
}

// EnsurePropagation installs a composite OpenTelemetry propagator so the
// HTTP and gRPC middleware can read trace context from W3C traceparent
// headers and from Google Cloud's X-Cloud-Trace-Context header. It runs once
// per process and is skipped when SLOGSCOPE_DISABLE_PROPAGATOR_AUTOSET is
// true. Applications may still call otel.SetTextMapPropagator afterwards.
func EnsurePropagation() {
	installPropagatorOnce.Do(func() {
		if disableAutoSet() {
			return
		}

		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			gcppropagator.CloudTraceOneWayPropagator{},
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	})
}

func disableAutoSet() bool {
	return parseBoolEnv(os.Getenv(envPrefix+"DISABLE_PROPAGATOR_AUTOSET"), false, nil)
}
