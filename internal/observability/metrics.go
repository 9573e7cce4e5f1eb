// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Flow result label for a successful flow. Failures use the error code.
const ResultOK = "ok"

// Metrics holds the credgate counters.
type Metrics struct {
	FlowResults   *prometheus.CounterVec
	HTTPRequests  *prometheus.CounterVec
	Notifications *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FlowResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credgate_flow_results_total",
				Help: "Authentication flow outcomes by flow and result code",
			},
			[]string{"flow", "result"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credgate_http_requests_total",
				Help: "HTTP API requests by site, route and status",
			},
			[]string{"site", "route", "status"},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credgate_notifications_total",
				Help: "Outbound notifications by template and status",
			},
			[]string{"template", "status"},
		),
	}

	reg.MustRegister(m.FlowResults, m.HTTPRequests, m.Notifications)
	return m
}

// RecordFlow counts one flow outcome. result is ResultOK or an error code.
func (m *Metrics) RecordFlow(flow, result string) {
	if m == nil {
		return
	}
	m.FlowResults.WithLabelValues(flow, result).Inc()
}

// RecordHTTPRequest counts one API request.
func (m *Metrics) RecordHTTPRequest(site, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(site, route, strconv.Itoa(status)).Inc()
}

// RecordNotification counts one send attempt.
func (m *Metrics) RecordNotification(template, status string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(template, status).Inc()
}
