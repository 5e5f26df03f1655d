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
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pjscruggs/slogscope/internal/level"
)

const metricsNamespace = "slogscope"

// metrics holds the engine's Prometheus counters. A nil *metrics records
// nothing.
type metrics struct {
	records *prometheus.CounterVec
	dropped *prometheus.CounterVec
	applies *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	return &metrics{
		records: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_total",
			Help:      "Records written, by handler and level.",
		}, []string{"handler", "level"})),
		dropped: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_dropped_total",
			Help:      "Records dropped by async handlers.",
		}, []string{"handler"})),
		applies: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "config_applies_total",
			Help:      "Configuration documents applied, by result.",
		}, []string{"result"})),
	}
}

// register adds c to reg, reusing an identical collector that is already
// registered so several engines can share one registry.
func register(reg prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return c
}

func (m *metrics) record(handler string, l slog.Level) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(handler, level.Name(l)).Inc()
}

func (m *metrics) drop(handler string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(handler).Inc()
}

func (m *metrics) applied(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.applies.WithLabelValues(result).Inc()
}
