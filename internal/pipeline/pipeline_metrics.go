package pipeline

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the alert pipeline.
type Metrics struct {
	RunsTotal      *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	EntitiesTotal  *prometheus.CounterVec
	PublishedTotal prometheus.Counter
	FeedFetchTotal *prometheus.CounterVec
	DedupFailures  *prometheus.CounterVec
	PrunedTotal    prometheus.Counter
}

// NewMetrics registers and returns pipeline metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertbot_runs_total",
			Help: "Total pipeline cycles by outcome.",
		}, []string{"result"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "alertbot_run_duration_seconds",
			Help:    "Duration of pipeline cycles in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s .. ~51s
		}, []string{"result"}),
		EntitiesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertbot_entities_total",
			Help: "Feed entities processed, by per-entity outcome.",
		}, []string{"outcome"}),
		PublishedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertbot_published_total",
			Help: "Alerts successfully posted.",
		}),
		FeedFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertbot_feed_fetch_total",
			Help: "Feed fetch attempts by result.",
		}, []string{"result"}),
		DedupFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertbot_dedup_check_failures_total",
			Help: "Duplicate-check storage lookup failures by check.",
		}, []string{"check"}),
		PrunedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertbot_pruned_records_total",
			Help: "History records deleted by retention pruning.",
		}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.EntitiesTotal,
		m.PublishedTotal,
		m.FeedFetchTotal,
		m.DedupFailures,
		m.PrunedTotal,
	)

	return m
}

// Per-entity outcome labels for EntitiesTotal.
const (
	outcomeNotEnglish    = "not_english"
	outcomeInadmissible  = "inadmissible"
	outcomeDuplicateID   = "duplicate_id"
	outcomeDuplicateText = "duplicate_text"
	outcomePublishError  = "publish_error"
	outcomePublished     = "published"
)
