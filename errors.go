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
	"errors"

	"github.com/pjscruggs/slogscope/internal/engine"
)

// Errors returned by [Manager] operations. They are wrapped with the name of
// the offending source; test for them with errors.Is.
var (
	// ErrConfigurationNotFound reports a Path or Resource that resolves to
	// neither a file nor a bundled resource.
	ErrConfigurationNotFound = errors.New("slogscope: configuration not found")

	// ErrUnsupportedSource reports a fragment of an unsupported shape.
	ErrUnsupportedSource = errors.New("slogscope: unsupported configuration source")

	// ErrParse reports fragment content that is not valid YAML.
	ErrParse = errors.New("slogscope: parse configuration")

	// ErrRuntimeApply reports a merged document rejected by the runtime.
	// The stored configuration is left unchanged.
	ErrRuntimeApply = errors.New("slogscope: apply configuration")

	// ErrClosed is returned by operations on a closed Manager.
	ErrClosed = errors.New("slogscope: manager closed")
)

// Causes reported by the default runtime, wrapped by ErrRuntimeApply.
var (
	ErrInvalidConfig    = engine.ErrInvalidConfig
	ErrUnknownHandler   = engine.ErrUnknownHandler
	ErrUnknownFormatter = engine.ErrUnknownFormatter
	ErrUnknownClass     = engine.ErrUnknownClass
	ErrInvalidLevel     = engine.ErrInvalidLevel
)
