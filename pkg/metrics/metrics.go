// Package metrics exposes Prometheus instrumentation for the refresh loop
// and the upstream fetches.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gridpulse"

var (
	fetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sources",
		Name:      "fetch_attempts_total",
		Help:      "Number of upstream fetches attempted, per category.",
	}, []string{"category"})

	fetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sources",
		Name:      "fetch_failures_total",
		Help:      "Number of upstream fetches that failed, per category.",
	}, []string{"category"})

	fallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sources",
		Name:      "fallbacks_total",
		Help:      "Number of times a category fell back to its previous value.",
	}, []string{"category"})

	passDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "coordinator",
		Name:      "pass_duration_seconds",
		Help:      "Duration of a full refresh pass.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	lastPass = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "coordinator",
		Name:      "last_pass_timestamp_seconds",
		Help:      "Unix time of the last completed refresh pass.",
	})

	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "coordinator",
		Name:      "snapshot_age_seconds",
		Help:      "Seconds since the last completed refresh pass.",
	}, func() float64 {
		ts := lastPassUnix.Load()
		if ts == 0 {
			return 0
		}
		return time.Since(time.Unix(ts, 0)).Seconds()
	})

	lastPassUnix atomic.Int64
)

// FetchAttempt records an upstream fetch for the category.
func FetchAttempt(category string) {
	fetchAttempts.WithLabelValues(category).Inc()
}

// FetchFailure records a failed upstream fetch for the category.
func FetchFailure(category string) {
	fetchFailures.WithLabelValues(category).Inc()
}

// Fallback records a category carrying over its previous value.
func Fallback(category string) {
	fallbacks.WithLabelValues(category).Inc()
}

// PassCompleted records the duration and completion time of a refresh pass.
func PassCompleted(started time.Time) {
	passDuration.Observe(time.Since(started).Seconds())
	lastPass.SetToCurrentTime()
	lastPassUnix.Store(time.Now().Unix())
}

// Handler returns the /metrics scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
