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

// Package slogscope gives every package of a program a named [log/slog]
// logger without per-call-site setup, while one [Manager] loads, merges,
// and hot-applies the logging configuration at any point in the process
// lifetime.
//
// # Configuration
//
// A Manager holds one authoritative configuration document (see
// [github.com/pjscruggs/slogscope/tree]). Fragments are merged into it with
// [Manager.AddConfiguration]: nested mappings merge key by key and every
// other value replaces the stored one. Each merged result is pushed to the
// logging [Runtime]. The built-in runtime understands the dictConfig-style
// layout of formatters, handlers, loggers, and root:
//
//	version: 1
//	formatters:
//	  cloud: {format: gcp}
//	handlers:
//	  console: {class: stream, stream: ext://sys.stdout, formatter: cloud}
//	  audit: {class: rotating_file, filename: /var/log/app/audit.log, max_size: 50}
//	loggers:
//	  myapp.storage: {level: DEBUG}
//	  myapp.audit: {handlers: [audit], propagate: false}
//	root: {level: INFO, handlers: [console]}
//
// Scopes are dotted names. A scope inherits the nearest configured level of
// its ancestors and collects handlers up the hierarchy until a logger sets
// propagate to false.
//
// # Scoped loggers
//
// Declare one [ScopedLogger] per package and log through it:
//
//	var log = slogscope.Scoped("myapp.storage")
//
//	func Open() {
//	    log.Info("opening store")
//	}
//
// The scope resolves on first use. Configuration applied later still
// changes its levels and handlers.
//
// # Enrichment
//
// Filters registered with [Manager.AddFilter] or
// [Manager.SetLoggingFields] are attached to loggers resolved afterwards.
// A [FieldFilter] copies call-local fields stored with [WithLocal] into
// records and sets constant fields. The subpackages slogscopehttp and
// slogscopegrpc populate call-local fields from incoming requests.
//
// # Environment
//
// [Default] and [WithEnv] read SLOGSCOPE_CONFIG, SLOGSCOPE_LEVEL,
// SLOGSCOPE_WATCH, and SLOGSCOPE_FIELD_<NAME>; see [LoadEnvConfig].
package slogscope
