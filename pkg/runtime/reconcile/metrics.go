// Copyright 2025 The Groundwork Authors.
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

package reconcile

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "groundwork"
	subsystem = "reconcile"
)

// Metrics provides access to reconciliation metrics.
var Metrics = newReconcileMetrics()

// ReconcileMetrics holds prometheus metrics for graph runs.
type ReconcileMetrics struct {
	nodeDuration *prometheus.HistogramVec
	nodesTotal   *prometheus.CounterVec
}

func newReconcileMetrics() *ReconcileMetrics {
	m := &ReconcileMetrics{
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "node_duration_seconds",
				Help:      "Time spent resolving and reconciling one node.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
			},
			[]string{"type", "result"}, // "success" or "error"
		),
		nodesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "nodes_total",
				Help:      "Node outcomes per run, by status.",
			},
			[]string{"status"},
		),
	}

	return m
}

// ObserveNode records the duration of one node's reconciliation attempt.
func (m *ReconcileMetrics) ObserveNode(typeTag string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.nodeDuration.WithLabelValues(typeTag, result).Observe(duration.Seconds())
}

// CountNode increments the outcome counter for one node.
func (m *ReconcileMetrics) CountNode(status string) {
	m.nodesTotal.WithLabelValues(status).Inc()
}

// MustRegister registers the metrics with the given Prometheus registry.
func (m *ReconcileMetrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(m.nodeDuration)
	registry.MustRegister(m.nodesTotal)
}

func init() {
	Metrics.MustRegister(prometheus.DefaultRegisterer)
}
