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
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix      = "SLOGSCOPE_"
	envFieldPrefix = "field_"
)

// EnvConfig is the configuration read from SLOGSCOPE_* environment
// variables.
type EnvConfig struct {
	// Sources lists the paths or resource names from SLOGSCOPE_CONFIG, a
	// comma separated list merged in order.
	Sources []string

	// Level is the root level from SLOGSCOPE_LEVEL, applied after Sources.
	Level *Level

	// Watch, from SLOGSCOPE_WATCH, re-merges Sources when they change on
	// disk.
	Watch bool

	// Fields holds constant record fields from SLOGSCOPE_FIELD_<NAME>
	// variables, keyed by the lower-cased name.
	Fields map[string]any
}

// LoadEnvConfig reads SLOGSCOPE_* environment variables. Invalid booleans
// are reported to logger and ignored; an invalid level is an error wrapping
// [ErrRuntimeApply] and [ErrInvalidLevel].
func LoadEnvConfig(logger *slog.Logger) (EnvConfig, error) {
	var cfg EnvConfig

	k := koanf.New(".")
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// SLOGSCOPE_FIELD_REGION -> field_region
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return cfg, fmt.Errorf("load environment variables: %w", err)
	}

	for _, p := range strings.Split(k.String("config"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			cfg.Sources = append(cfg.Sources, p)
		}
	}

	if raw := strings.TrimSpace(k.String("level")); raw != "" {
		l, err := ParseLevel(raw)
		if err != nil {
			return cfg, fmt.Errorf("%w: %sLEVEL: %w", ErrRuntimeApply, envPrefix, err)
		}
		cfg.Level = &l
	}

	cfg.Watch = parseBoolEnv(k.String("watch"), false, logger)

	for _, key := range k.Keys() {
		name, ok := strings.CutPrefix(key, envFieldPrefix)
		if !ok || name == "" {
			continue
		}
		if cfg.Fields == nil {
			cfg.Fields = make(map[string]any)
		}
		cfg.Fields[name] = k.String(key)
	}
	return cfg, nil
}

// parseBoolEnv interprets truthy environment variable values with validation
// diagnostics.
func parseBoolEnv(value string, current bool, logger *slog.Logger) bool {
	if strings.TrimSpace(value) == "" {
		return current
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		logDiagnostic(logger, slog.LevelWarn, "invalid boolean environment variable", slog.String("value", value), slog.Any("error", err))
		return current
	}
	return b
}
