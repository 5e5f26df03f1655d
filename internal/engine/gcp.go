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
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/compute/metadata"
	"go.opentelemetry.io/otel/trace"

	"github.com/pjscruggs/slogscope/internal/level"
)

// Cloud Logging keys that correlate entries with Cloud Trace.
const (
	TraceKey   = "logging.googleapis.com/trace"
	SpanKey    = "logging.googleapis.com/spanId"
	SampledKey = "logging.googleapis.com/trace_sampled"
)

// projectEnvVars are consulted in order when no project is configured.
var projectEnvVars = []string{
	"SLOGSCOPE_PROJECT_ID",
	"GOOGLE_CLOUD_PROJECT",
	"GCLOUD_PROJECT",
	"GCP_PROJECT",
}

const metadataTimeout = 2 * time.Second

// Replaced in tests so detection never reaches the network.
var (
	metadataOnGCE     = metadata.OnGCE
	metadataProjectID = metadata.ProjectIDWithContext
)

// severityName converts l to a Cloud Logging severity. Levels below DEBUG
// map to DEFAULT; levels between severities carry an offset.
func severityName(l slog.Level) string {
	withOffset := func(name string, base slog.Level) string {
		if l == base {
			return name
		}
		return fmt.Sprintf("%s%+d", name, int(l-base))
	}

	switch {
	case l < level.Debug:
		return "DEFAULT"
	case l < level.Info:
		return withOffset("DEBUG", level.Debug)
	case l < level.Notice:
		return withOffset("INFO", level.Info)
	case l < level.Warn:
		return withOffset("NOTICE", level.Notice)
	case l < level.Error:
		return withOffset("WARNING", level.Warn)
	case l < level.Critical:
		return withOffset("ERROR", level.Error)
	case l < level.Alert:
		return withOffset("CRITICAL", level.Critical)
	case l < level.Emergency:
		return withOffset("ALERT", level.Alert)
	default:
		return withOffset("EMERGENCY", level.Emergency)
	}
}

// traceAttributes returns the trace correlation fields for the span in ctx.
// With a project the Cloud Logging keys are used, otherwise OpenTelemetry
// style keys. The span ID is only reported for spans started locally.
func traceAttributes(ctx context.Context, projectID string) []slog.Attr {
	if ctx == nil {
		return nil
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}

	traceID, spanID := sc.TraceID().String(), sc.SpanID().String()
	ownsSpan := !sc.IsRemote()

	if projectID != "" {
		attrs := []slog.Attr{
			slog.String(TraceKey, fmt.Sprintf("projects/%s/traces/%s", projectID, traceID)),
			slog.Bool(SampledKey, sc.IsSampled()),
		}
		if ownsSpan {
			attrs = append(attrs, slog.String(SpanKey, spanID))
		}
		return attrs
	}

	attrs := []slog.Attr{slog.String("otel.trace_id", traceID)}
	if ownsSpan {
		attrs = append(attrs, slog.String("otel.span_id", spanID))
	}
	return append(attrs, slog.Bool("otel.trace_sampled", sc.IsSampled()))
}

// projectID returns the project used by gcp formatters without an explicit
// project_id, detecting it at most once per engine.
func (e *Engine) projectID() string {
	e.projectOnce.Do(func() {
		e.project = detectProjectID(e.opts.ProjectID)
	})
	return e.project
}

func detectProjectID(configured string) string {
	if id := normalizeProjectID(configured); id != "" {
		return id
	}
	for _, name := range projectEnvVars {
		if id := normalizeProjectID(os.Getenv(name)); id != "" {
			return id
		}
	}
	if !metadataOnGCE() {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), metadataTimeout)
	defer cancel()
	id, err := metadataProjectID(ctx)
	if err != nil {
		return ""
	}
	return normalizeProjectID(id)
}

// normalizeProjectID strips a "projects/" prefix and surrounding space.
func normalizeProjectID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) >= len("projects/") && strings.EqualFold(id[:len("projects/")], "projects/") {
		id = id[len("projects/"):]
	}
	return strings.TrimSpace(id)
}
