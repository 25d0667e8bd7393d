// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are registered on a per-server registry so tests can build many
// servers in one process.
type metrics struct {
	requests        *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	blocked         prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kryptonite",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		upstreamLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kryptonite",
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of Gemini GenerateContent calls.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}, []string{"outcome"}),
		blocked: f.NewCounter(prometheus.CounterOpts{
			Namespace: "kryptonite",
			Name:      "blocked_prompts_total",
			Help:      "Replies where Gemini blocked the prompt.",
		}),
	}
}

// route collapses unknown paths so scanners can't blow up label cardinality.
func route(path string) string {
	switch path {
	case "/", "/api/chat", "/metrics":
		return path
	}
	return "other"
}

func (m *metrics) observeRequest(path string, status int) {
	m.requests.WithLabelValues(route(path), strconv.Itoa(status)).Inc()
}

func (m *metrics) observeUpstream(outcome string, d time.Duration) {
	m.upstreamLatency.WithLabelValues(outcome).Observe(d.Seconds())
}
