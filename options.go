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
	"io"
	"io/fs"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager during construction.
type Option func(*options)

// options holds the settings collected from Option values.
type options struct {
	runtime        Runtime
	resources      fs.FS
	internalLogger *slog.Logger
	stdout         io.Writer
	stderr         io.Writer
	projectID      string
	registerer     prometheus.Registerer
	dryRun         bool
	sources        []Source
	env            bool
}

// WithRuntime replaces the default logging runtime. The Manager does not
// close a runtime supplied this way.
func WithRuntime(rt Runtime) Option {
	return func(o *options) {
		o.runtime = rt
	}
}

// WithResources sets the bundled resources consulted for [Path] sources
// that do not exist on disk and for [Resource] sources. Embedded file
// systems (embed.FS) are the usual choice.
func WithResources(fsys fs.FS) Option {
	return func(o *options) {
		o.resources = fsys
	}
}

// WithInternalLogger injects a logger for the Manager's own diagnostics,
// such as unreadable configuration files and watcher errors. Diagnostics
// are discarded by default.
func WithInternalLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.internalLogger = logger
	}
}

// WithStdout redirects stdout stream handlers of the default runtime.
func WithStdout(w io.Writer) Option {
	return func(o *options) {
		o.stdout = w
	}
}

// WithStderr redirects stderr stream handlers, and the last-resort output,
// of the default runtime.
func WithStderr(w io.Writer) Option {
	return func(o *options) {
		o.stderr = w
	}
}

// WithTraceProjectID sets the Google Cloud project used by gcp formatters
// that do not configure project_id.
func WithTraceProjectID(id string) Option {
	return func(o *options) {
		o.projectID = id
	}
}

// WithMetrics registers the default runtime's Prometheus counters with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithDryRun makes the default runtime validate documents without opening
// log files.
func WithDryRun(enabled bool) Option {
	return func(o *options) {
		o.dryRun = enabled
	}
}

// WithSources merges sources, in order, during construction.
func WithSources(sources ...Source) Option {
	return func(o *options) {
		o.sources = append(o.sources, sources...)
	}
}

// WithEnv reads SLOGSCOPE_* environment variables during construction. See
// [LoadEnvConfig].
func WithEnv() Option {
	return func(o *options) {
		o.env = true
	}
}
