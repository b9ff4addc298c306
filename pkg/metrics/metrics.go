package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Recorder is what the cache and event layers report to.
type Recorder interface {
	CacheHit(namespace string)
	CacheMiss(namespace string)
	CacheError(op string)
	KeysInvalidated(namespace string, count int)
	EventPublished(topic string, err error)
	EventConsumed(topic string, err error)
	ObserveHTTP(method, route string, status int, duration time.Duration)
}

// Collector holds the Prometheus metrics of one service process.
// Each collector owns its registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	cacheErrors     *prometheus.CounterVec
	invalidatedKeys *prometheus.CounterVec
	eventsPublished *prometheus.CounterVec
	eventsConsumed  *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of read-through cache hits",
		}, []string{"cache"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of read-through cache misses",
		}, []string{"cache"}),
		cacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Total number of failed cache backend operations",
		}, []string{"op"}),
		invalidatedKeys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidated_keys_total",
			Help:      "Total number of cache keys purged by invalidation",
		}, []string{"cache"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of domain events handed to the bus",
		}, []string{"topic", "status"}),
		eventsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_consumed_total",
			Help:      "Total number of domain events processed by subscribers",
		}, []string{"topic", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		c.cacheHits,
		c.cacheMisses,
		c.cacheErrors,
		c.invalidatedKeys,
		c.eventsPublished,
		c.eventsConsumed,
		c.httpRequests,
		c.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) CacheHit(namespace string) {
	c.cacheHits.WithLabelValues(namespace).Inc()
}

func (c *Collector) CacheMiss(namespace string) {
	c.cacheMisses.WithLabelValues(namespace).Inc()
}

func (c *Collector) CacheError(op string) {
	c.cacheErrors.WithLabelValues(op).Inc()
}

func (c *Collector) KeysInvalidated(namespace string, count int) {
	c.invalidatedKeys.WithLabelValues(namespace).Add(float64(count))
}

func (c *Collector) EventPublished(topic string, err error) {
	c.eventsPublished.WithLabelValues(topic, status(err)).Inc()
}

func (c *Collector) EventConsumed(topic string, err error) {
	c.eventsConsumed.WithLabelValues(topic, status(err)).Inc()
}

func (c *Collector) ObserveHTTP(method, route string, code int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

// Nop discards everything.
type Nop struct{}

func (Nop) CacheHit(string)                                {}
func (Nop) CacheMiss(string)                               {}
func (Nop) CacheError(string)                              {}
func (Nop) KeysInvalidated(string, int)                    {}
func (Nop) EventPublished(string, error)                   {}
func (Nop) EventConsumed(string, error)                    {}
func (Nop) ObserveHTTP(string, string, int, time.Duration) {}
