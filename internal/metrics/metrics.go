package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every shortbox collector. A nil *Metrics is valid and
// records nothing, so components can be built without instrumentation.
type Metrics struct {
	allocationAttempts *prometheus.CounterVec
	resolutions        *prometheus.CounterVec
	cacheLookups       *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	eventsPublished    *prometheus.CounterVec
	purgedRows         prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// binaries and prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		allocationAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shortbox_allocation_attempts_total",
			Help: "Short-code insert attempts by entity kind and result",
		}, []string{"kind", "result"}),

		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shortbox_resolutions_total",
			Help: "Resolved request paths by outcome",
		}, []string{"outcome"}),

		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shortbox_cache_lookups_total",
			Help: "Lookup cache hits and misses by tier",
		}, []string{"tier", "result"}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shortbox_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shortbox_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		eventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shortbox_events_published_total",
			Help: "Resolution events written to the stream",
		}, []string{"result"}),

		purgedRows: factory.NewCounter(prometheus.CounterOpts{
			Name: "shortbox_purged_rows_total",
			Help: "Expired rows physically removed by the cleanup worker",
		}),
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}

	return m
}

// AllocationAttempt records one insert attempt. result is one of success,
// collision, error or exhausted.
func (m *Metrics) AllocationAttempt(kind, result string) {
	if m == nil {
		return
	}
	m.allocationAttempts.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Resolution(outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CacheLookup(tier string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(tier, result).Inc()
}

func (m *Metrics) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) EventPublished(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.eventsPublished.WithLabelValues(result).Inc()
}

func (m *Metrics) Purged(rows int64) {
	if m == nil {
		return
	}
	m.purgedRows.Add(float64(rows))
}

// Handler serves the registry the collectors were registered on.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
