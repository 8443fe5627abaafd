// Package metrics holds the Prometheus collectors for the auth core and the
// listing cache. Collectors register on the default registry, which
// promhttp.Handler serves at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login outcomes
const (
	LoginSuccess     = "success"
	LoginInvalid     = "invalid_credentials"
	LoginValidation  = "validation_error"
	LoginRateLimited = "rate_limited"
	LoginError       = "error"
)

var (
	// LoginAttempts counts login calls by outcome.
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "researchportal",
		Subsystem: "auth",
		Name:      "login_attempts_total",
		Help:      "Login attempts by outcome.",
	}, []string{"outcome"})

	// Registrations counts completed registrations by role.
	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "researchportal",
		Subsystem: "auth",
		Name:      "registrations_total",
		Help:      "Completed registrations by role.",
	}, []string{"role"})

	// GateDecisions counts session gate outcomes.
	GateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "researchportal",
		Subsystem: "session",
		Name:      "gate_decisions_total",
		Help:      "Session gate decisions by outcome.",
	}, []string{"decision"})

	// ActivityWriteFailures counts login activity rows that could not be written.
	ActivityWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "researchportal",
		Subsystem: "auth",
		Name:      "activity_write_failures_total",
		Help:      "Login activity inserts that failed.",
	})

	// CacheRequests counts listing cache lookups by result (hit, miss, error).
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "researchportal",
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Listing cache lookups by result.",
	}, []string{"backend", "result"})
)
