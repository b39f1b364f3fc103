// Package metrics exposes Prometheus counters for sign-in outcomes and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/layer-3/nocode/ports"
)

// Collector is the Prometheus implementation of ports.AuthMetrics.
type Collector struct {
	noncesIssued     prometheus.Counter
	verifications    *prometheus.CounterVec
	sessionsRejected *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

var _ ports.AuthMetrics = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		noncesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nocode_siwe_nonces_issued_total",
			Help: "Sign-in nonces handed out.",
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nocode_siwe_verifications_total",
			Help: "Sign-in verifications by outcome.",
		}, []string{"outcome"}),
		sessionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nocode_sessions_rejected_total",
			Help: "Session credentials refused by reason.",
		}, []string{"reason"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nocode_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nocode_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.noncesIssued,
		c.verifications,
		c.sessionsRejected,
		c.httpRequests,
		c.httpDuration,
	)

	return c
}

func (c *Collector) RecordNonceIssued() {
	c.noncesIssued.Inc()
}

func (c *Collector) RecordVerify(outcome string) {
	c.verifications.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordSessionRejected(reason string) {
	c.sessionsRejected.WithLabelValues(reason).Inc()
}

// RecordHTTPRequest records one served request. route is the matched
// route pattern, not the raw path.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
