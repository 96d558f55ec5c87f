// Package metrics holds the Prometheus collectors of the directory service.
package metrics

import (
	"strconv"
	"strings"
	"time"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/fallback"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "directory"

// Metrics holds all Prometheus metric collectors.
type Metrics struct {
	Operations *prometheus.CounterVec // terminal operation outcomes by answering tier
	Fallbacks  *prometheus.CounterVec // primary to secondary transitions

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	RateLimitHits *prometheus.CounterVec
	LiveStoreUp   prometheus.Gauge
}

// NewMetrics registers every collector on reg, or on the default
// registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Completed directory operations by entity, operation, answering source and outcome",
			},
			[]string{"entity", "operation", "source", "outcome"},
		),
		Fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallbacks_total",
				Help:      "Operations retried against the mock tier after a live failure",
			},
			[]string{"entity", "operation"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"scope"},
		),
		LiveStoreUp: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "live_store_up",
				Help:      "1 when the live datastore was reachable at startup",
			},
		),
	}
}

// split turns "company.get" into ("company", "get").
func split(op string) (string, string) {
	entity, operation, ok := strings.Cut(op, ".")
	if !ok {
		return op, ""
	}
	return entity, operation
}

// FallbackOptions returns the policy options that feed the operation and
// fallback counters.
func (m *Metrics) FallbackOptions() []fallback.Option {
	return []fallback.Option{
		fallback.WithObserver(m.RecordOperation),
		fallback.WithFallbackObserver(m.RecordFallback),
	}
}

// RecordOperation counts a terminal operation state.
func (m *Metrics) RecordOperation(op string, src fallback.Source, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(e.Classify(err))
	}
	entity, operation := split(op)
	m.Operations.WithLabelValues(entity, operation, string(src), outcome).Inc()
}

func (m *Metrics) RecordFallback(op string, _ error) {
	entity, operation := split(op)
	m.Fallbacks.WithLabelValues(entity, operation).Inc()
}

// RecordHTTPRequest records count and latency of one request. route is the
// matched pattern, never the raw path.
func (m *Metrics) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) RecordRateLimitHit(scope string) {
	m.RateLimitHits.WithLabelValues(scope).Inc()
}

func (m *Metrics) SetLiveStoreUp(up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.LiveStoreUp.Set(v)
}
