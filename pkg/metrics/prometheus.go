// Package metrics provides Prometheus metrics for the karaoke session server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Catalog cache
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheFallbacks prometheus.Counter
	catalogSize    prometheus.Gauge

	// Queue
	queueLength    prometheus.Gauge
	queueMutations *prometheus.CounterVec

	// Ranking and scoring
	rankingCommits prometheus.Counter
	rankingOrphans prometheus.Counter
	scoreValues    prometheus.Histogram

	// Media streaming
	videoBytesStreamed prometheus.Counter
	mediaRequests      *prometheus.CounterVec

	// Sessions
	sessionsScored     prometheus.Counter
	sessionsIncomplete prometheus.Counter
}

// Global manager on a custom registry so default Go collectors stay out.
var globalManager *Manager                    //nolint:gochecknoglobals // singleton metrics manager
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "palco",
		subsystem:        "karaoke",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint, method and status",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_cache_hits_total",
		Help:      "Catalog reads served from the in-memory snapshot",
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_cache_misses_total",
		Help:      "Catalog reads that refetched from the store",
	})

	m.cacheFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_cache_stale_fallbacks_total",
		Help:      "Catalog reads served from a stale snapshot after a store failure",
	})

	m.catalogSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_songs",
		Help:      "Number of songs in the cached catalog snapshot",
	})

	m.queueLength = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_length",
		Help:      "Current number of entries in the singer queue",
	})

	m.queueMutations = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "queue_mutations_total",
			Help:      "Queue structural changes by operation",
		},
		[]string{"operation"},
	)

	m.rankingCommits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranking_commits_total",
		Help:      "Ranking entries committed",
	})

	m.rankingOrphans = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranking_orphan_rows_total",
		Help:      "Ranking rows whose song reference no longer resolves",
	})

	m.scoreValues = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_values",
		Help:      "Distribution of generated performance scores",
		Buckets:   []float64{65, 70, 75, 80, 85, 90, 95, 100},
	})

	m.videoBytesStreamed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "video_bytes_streamed_total",
		Help:      "Total video bytes written to clients",
	})

	m.mediaRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "media_requests_total",
			Help:      "Media requests by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	m.sessionsScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_scored_total",
		Help:      "Performances that reached scoring",
	})

	m.sessionsIncomplete = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_incomplete_total",
		Help:      "Performances ended before the minimum duration",
	})
}

// GetRegistry returns the gatherer backing the custom registry.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers delegating to the global manager.

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

func RecordCacheHit()           { globalManager.cacheHits.Inc() }
func RecordCacheMiss()          { globalManager.cacheMisses.Inc() }
func RecordCacheStaleFallback() { globalManager.cacheFallbacks.Inc() }

func UpdateCatalogSize(n int) { globalManager.catalogSize.Set(float64(n)) }

func UpdateQueueLength(n int) { globalManager.queueLength.Set(float64(n)) }

func RecordQueueMutation(operation string) {
	globalManager.queueMutations.WithLabelValues(operation).Inc()
}

func RecordRankingCommit()  { globalManager.rankingCommits.Inc() }
func RecordRankingOrphan()  { globalManager.rankingOrphans.Inc() }
func RecordScore(score int) { globalManager.scoreValues.Observe(float64(score)) }

func RecordVideoBytes(n int64) {
	globalManager.videoBytesStreamed.Add(float64(n))
}

func RecordMediaRequest(kind, outcome string) {
	globalManager.mediaRequests.WithLabelValues(kind, outcome).Inc()
}

func RecordSessionScored()     { globalManager.sessionsScored.Inc() }
func RecordSessionIncomplete() { globalManager.sessionsIncomplete.Inc() }
