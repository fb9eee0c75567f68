// Package metrics exposes Prometheus collectors for admission control,
// authorization and HTTP traffic. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Admission outcomes.
const (
	OutcomeAllowed  = "allowed"
	OutcomeLimited  = "limited"
	OutcomeFailOpen = "fail_open"
)

// Relationship lookup outcomes.
const (
	LookupFound       = "found"
	LookupNotFound    = "not_found"
	LookupUnavailable = "unavailable"
	LookupError       = "error"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	AdmissionDecisionsTotal *prometheus.CounterVec
	AdmissionStoreErrors    *prometheus.CounterVec

	AuthzDecisionsTotal      *prometheus.CounterVec
	RelationshipLookupsTotal *prometheus.CounterVec
}

// New creates the collectors and registers them, along with the Go runtime
// and process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aac_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aac_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AdmissionDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aac_admission_decisions_total",
				Help: "Rate limiter decisions by rule and outcome",
			},
			[]string{"rule", "outcome"},
		),
		AdmissionStoreErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aac_admission_store_errors_total",
				Help: "Rate limiter event log errors by operation",
			},
			[]string{"op"},
		),
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aac_authz_decisions_total",
				Help: "Authorization decisions by resource type and result",
			},
			[]string{"resource", "allowed"},
		),
		RelationshipLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aac_relationship_lookups_total",
				Help: "Relationship edge lookups by edge and outcome",
			},
			[]string{"edge", "outcome"},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AdmissionDecisionsTotal,
		m.AdmissionStoreErrors,
		m.AuthzDecisionsTotal,
		m.RelationshipLookupsTotal,
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveAdmission(rule, outcome string) {
	if m == nil {
		return
	}
	m.AdmissionDecisionsTotal.WithLabelValues(rule, outcome).Inc()
}

func (m *Metrics) ObserveStoreError(op string) {
	if m == nil {
		return
	}
	m.AdmissionStoreErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveAuthz(resource string, allowed bool) {
	if m == nil {
		return
	}
	m.AuthzDecisionsTotal.WithLabelValues(resource, strconv.FormatBool(allowed)).Inc()
}

func (m *Metrics) ObserveRelationship(edge, outcome string) {
	if m == nil {
		return
	}
	m.RelationshipLookupsTotal.WithLabelValues(edge, outcome).Inc()
}
