// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package metrics defines the Prometheus instruments recorded by the service.
//
// All recording methods are safe on a nil *Metrics, so components built in
// tests without a registry need no special casing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every custom Waitgate instrument.
type Metrics struct {
	registry *prometheus.Registry

	RateLimitDecisions *prometheus.CounterVec
	AuthEvents         *prometheus.CounterVec
	HashDuration       *prometheus.HistogramVec
	Notifications      *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
}

// New creates a private registry with the Go and process collectors plus the
// custom instruments.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		RateLimitDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waitgate_rate_limit_decisions_total",
			Help: "Rate limiter decisions by policy and outcome",
		}, []string{"policy", "outcome"}),
		AuthEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waitgate_auth_events_total",
			Help: "Authentication events by kind and outcome",
		}, []string{"event", "outcome"}),
		HashDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "waitgate_credential_hash_duration_seconds",
			Help:    "Wall time of credential hash and verify operations",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waitgate_notifications_total",
			Help: "Verification notifications by kind and outcome",
		}, []string{"kind", "outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waitgate_http_requests_total",
			Help: "HTTP requests by method and status code",
		}, []string{"method", "status"}),
	}

	registry.MustRegister(m.RateLimitDecisions, m.AuthEvents, m.HashDuration, m.Notifications, m.HTTPRequests)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRateLimit implements ratelimit.Observer.
func (m *Metrics) ObserveRateLimit(policy string, allowed bool) {
	if m == nil {
		return
	}
	m.RateLimitDecisions.WithLabelValues(policy, outcome(allowed, "allowed", "denied")).Inc()
}

// ObserveHash implements sec.HashObserver.
func (m *Metrics) ObserveHash(operation string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HashDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveAuth records an authentication event such as "login" or "register".
func (m *Metrics) ObserveAuth(event string, succeeded bool) {
	if m == nil {
		return
	}
	m.AuthEvents.WithLabelValues(event, outcome(succeeded, "success", "failure")).Inc()
}

// ObserveNotification implements notify.Observer.
func (m *Metrics) ObserveNotification(kind string, delivered bool) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(kind, outcome(delivered, "delivered", "failed")).Inc()
}

// ObserveHTTP records a finished request.
func (m *Metrics) ObserveHTTP(method string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func outcome(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
