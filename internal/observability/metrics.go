// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package observability

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lexiclass/lexiclass/internal/store"
)

// Login results recorded by RecordLogin.
const (
	LoginSucceeded   = "success"
	LoginRejected    = "rejected"
	LoginUnavailable = "unavailable"
)

// Metrics holds the LexiClass collectors.
type Metrics struct {
	LoginAttemptsTotal   *prometheus.CounterVec
	StoreOperationsTotal *prometheus.CounterVec
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
}

var _ store.OperationObserver = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexiclass_login_attempts_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		StoreOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexiclass_store_operations_total",
				Help: "Store operations by component, operation and status",
			},
			[]string{"component", "operation", "status"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexiclass_http_requests_total",
				Help: "API requests by method, route and status code",
			},
			[]string{"method", "route", "code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lexiclass_http_request_duration_seconds",
				Help:    "API request latency by method and route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(m.LoginAttemptsTotal, m.StoreOperationsTotal, m.HTTPRequestsTotal, m.HTTPRequestDuration)
	return m
}

// RecordLogin counts one login attempt.
func (m *Metrics) RecordLogin(result string) {
	m.LoginAttemptsTotal.WithLabelValues(result).Inc()
}

// ObserveOperation implements store.OperationObserver.
func (m *Metrics) ObserveOperation(component, operation string, err error) {
	m.StoreOperationsTotal.WithLabelValues(component, operation, operationStatus(err)).Inc()
}

// ObserveRequest records a finished API request.
func (m *Metrics) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func operationStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case store.IsRetryable(err):
		return "connection_failure"
	case errors.Is(err, store.ErrConstraintViolation):
		return "constraint_violation"
	default:
		return "error"
	}
}
