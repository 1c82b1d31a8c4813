// Package metrics exposes Prometheus collectors for the auth flow and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements auth.Recorder and the HTTP instrumentation hooks.
type Collector struct {
	logins        *prometheus.CounterVec
	registrations *prometheus.CounterVec
	verifications *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	rateLimited   prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewCollector creates the collectors and registers them on reg.
func NewCollector(reg *prometheus.Registry) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskql_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskql_registrations_total",
			Help: "Registration attempts by outcome.",
		}, []string{"outcome"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskql_token_verifications_total",
			Help: "Bearer token verifications by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskql_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskql_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskql_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		c.logins,
		c.registrations,
		c.verifications,
		c.httpRequests,
		c.httpLatency,
		c.rateLimited,
	)
	return c
}

func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordRegistration(outcome string) {
	c.registrations.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordTokenVerification(outcome string) {
	c.verifications.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordHTTPRequest(method string, statusCode int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method).Observe(d.Seconds())
}

func (c *Collector) RecordRateLimited() {
	c.rateLimited.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
