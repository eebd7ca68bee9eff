// Package metrics collects and exposes Prometheus metrics for the identity
// gateway.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"auth-be/pkg/errors"
)

// Collector records gateway-level metrics. A nil *Collector is a no-op so
// callers never have to guard.
type Collector struct {
	registry *prometheus.Registry

	loginSuccess       prometheus.Counter
	loginFailure       prometheus.Counter
	operations         *prometheus.CounterVec
	partialConsistency prometheus.Counter
}

// NewCollector creates a collector with its own registry
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	c := &Collector{
		registry: registry,
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authbe_login_success_total",
			Help: "Total successful credential verifications",
		}),
		loginFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authbe_login_failure_total",
			Help: "Total rejected credential verifications",
		}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authbe_gateway_operations_total",
			Help: "Gateway operations by name and outcome",
		}, []string{"operation", "outcome"}),
		partialConsistency: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authbe_partial_consistency_total",
			Help: "Operations that left the provider and profile store out of sync",
		}),
	}

	registry.MustRegister(c.loginSuccess, c.loginFailure, c.operations, c.partialConsistency)
	return c
}

// RecordLogin records the outcome of a credential verification
func (c *Collector) RecordLogin(ok bool) {
	if c == nil {
		return
	}
	if ok {
		c.loginSuccess.Inc()
	} else {
		c.loginFailure.Inc()
	}
}

// RecordOperation records a gateway operation and its outcome; the outcome
// label is the gateway error type, or "ok"
func (c *Collector) RecordOperation(operation string, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(errors.TypeOf(err))
	}
	c.operations.WithLabelValues(operation, outcome).Inc()
}

// RecordPartialConsistency records a write pair that was left half-applied
func (c *Collector) RecordPartialConsistency() {
	if c == nil {
		return
	}
	c.partialConsistency.Inc()
}

// Handler exposes the collector's registry for scraping
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
