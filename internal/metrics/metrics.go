package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	MessagesStored = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "dino_messages_stored_total", Help: "Messages appended to the log"},
	)
	BatchRewriteRows = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "dino_batch_rewrite_rows_total", Help: "Rows rewritten by batch jobs"},
	)
	BatchRewriteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dino_batch_rewrite_duration_seconds",
			Help:    "Wall time of one batch rewrite job",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dino_events_published_total", Help: "Domain events handed to the transport"},
		[]string{"event_type"},
	)
	EventPublishErrors = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "dino_event_publish_errors_total", Help: "Dropped event publishes"},
	)
	UnreadCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "dino_unread_cache_misses_total", Help: "Unread reads recomputed from the message log"},
	)
)

func Init() {
	prometheus.MustRegister(MessagesStored)
	prometheus.MustRegister(BatchRewriteRows)
	prometheus.MustRegister(BatchRewriteDuration)
	prometheus.MustRegister(EventsPublished)
	prometheus.MustRegister(EventPublishErrors)
	prometheus.MustRegister(UnreadCacheMisses)
}
