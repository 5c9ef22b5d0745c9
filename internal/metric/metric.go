// Package metric holds the Prometheus collectors shared by the client components.
// A nil *Metrics is valid and records nothing, so components never need to check.
package metric

// metric.go creates and registers the collectors

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "linearql"

// Metrics groups the collectors used by the cache, unwrap and transport packages
type Metrics struct {
	CacheHits      *prometheus.CounterVec // label: cache
	CacheMisses    *prometheus.CounterVec // label: cache
	CacheEvictions *prometheus.CounterVec // label: cache

	Pages          prometheus.Counter     // follow-up pages merged into connections
	UnwrapProblems *prometheus.CounterVec // label: kind (see unwrap.DiagnosticKind)

	Requests        *prometheus.CounterVec // labels: transport, outcome
	RequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. If reg is nil the collectors are
// still created (so they can be inspected in tests) but not registered anywhere.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits",
		}, []string{"cache"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses",
		}, []string{"cache"}),
		CacheEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Total number of expired cache entries removed",
		}, []string{"cache"}),
		Pages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "unwrap",
			Name:      "pages_total",
			Help:      "Total number of follow-up pages merged into connections",
		}),
		UnwrapProblems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "unwrap",
			Name:      "problems_total",
			Help:      "Connections that could not be fully unwrapped, by reason",
		}, []string{"kind"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "requests_total",
			Help:      "GraphQL requests sent, by transport and outcome",
		}, []string{"transport", "outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "request_duration_seconds",
			Help:      "Duration of GraphQL requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transport"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.CacheHits, m.CacheMisses, m.CacheEvictions, m.Pages, m.UnwrapProblems, m.Requests, m.RequestDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// CacheHit records a hit in the named cache
func (m *Metrics) CacheHit(cache string) {
	if m != nil {
		m.CacheHits.WithLabelValues(cache).Inc()
	}
}

// CacheMiss records a miss in the named cache
func (m *Metrics) CacheMiss(cache string) {
	if m != nil {
		m.CacheMisses.WithLabelValues(cache).Inc()
	}
}

// CacheEviction records removal of an expired entry
func (m *Metrics) CacheEviction(cache string) {
	if m != nil {
		m.CacheEvictions.WithLabelValues(cache).Inc()
	}
}

// Page records one merged follow-up page
func (m *Metrics) Page() {
	if m != nil {
		m.Pages.Inc()
	}
}

// UnwrapProblem records a connection that stopped early
func (m *Metrics) UnwrapProblem(kind string) {
	if m != nil {
		m.UnwrapProblems.WithLabelValues(kind).Inc()
	}
}

// Request records one request and how long it took
func (m *Metrics) Request(transport, outcome string, took time.Duration) {
	if m != nil {
		m.Requests.WithLabelValues(transport, outcome).Inc()
		m.RequestDuration.WithLabelValues(transport).Observe(took.Seconds())
	}
}
