// Package metrics exposes Prometheus collectors for tombola matches.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	draws = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tombola",
			Subsystem: "match",
			Name:      "draws_total",
			Help:      "Total number of balls drawn.",
		},
		[]string{"kind"},
	)

	drawDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tombola",
			Subsystem: "match",
			Name:      "draw_duration_seconds",
			Help:      "Duration of a draw including announcement dispatch.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
	)

	prizes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tombola",
			Subsystem: "match",
			Name:      "prizes_total",
			Help:      "Total number of prizes awarded.",
		},
		[]string{"prize"},
	)

	matchesEnded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tombola",
			Subsystem: "match",
			Name:      "ended_total",
			Help:      "Total number of matches ended, by reason.",
		},
		[]string{"reason"},
	)

	activeMatches = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tombola",
			Subsystem: "match",
			Name:      "active",
			Help:      "Number of matches currently accepting draws.",
		},
	)

	flushFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tombola",
			Subsystem: "scores",
			Name:      "flush_failures_total",
			Help:      "Total number of failed score flushes.",
		},
	)

	notificationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tombola",
			Subsystem: "telegram",
			Name:      "notification_failures_total",
			Help:      "Total number of messages that could not be delivered.",
		},
		[]string{"kind"},
	)
)

func init() {
	Registry.MustRegister(
		draws,
		drawDuration,
		prizes,
		matchesEnded,
		activeMatches,
		flushFailures,
		notificationFailures,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordDraw counts a drawn ball. kind is "number" or "special".
func RecordDraw(kind string, duration time.Duration) {
	draws.WithLabelValues(kind).Inc()
	drawDuration.Observe(duration.Seconds())
}

// RecordPrize counts an awarded prize.
func RecordPrize(prize string) {
	prizes.WithLabelValues(prize).Inc()
}

// RecordMatchEnd counts an ended match.
func RecordMatchEnd(reason string) {
	matchesEnded.WithLabelValues(reason).Inc()
}

// SetActiveMatches sets the number of matches accepting draws.
func SetActiveMatches(n int) {
	activeMatches.Set(float64(n))
}

// RecordFlushFailure counts a score flush that left deltas pending.
func RecordFlushFailure() {
	flushFailures.Inc()
}

// RecordNotificationFailure counts an undelivered message.
func RecordNotificationFailure(kind string) {
	notificationFailures.WithLabelValues(kind).Inc()
}
