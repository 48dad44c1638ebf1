// Package metrics exposes Prometheus collectors for the scanner service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scansTotal          *prometheus.CounterVec
	scanDurationSeconds *prometheus.HistogramVec
	issuesFoundTotal    *prometheus.CounterVec
	cacheRequestsTotal  *prometheus.CounterVec

	once     sync.Once
	poolOnce sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scansTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "a11y_scans_total",
				Help: "Total number of scan operations, labeled by operation and status.",
			},
			[]string{"operation", "status"},
		)

		scanDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "a11y_scan_duration_seconds",
				Help:    "Histogram of end-to-end scan latencies, labeled by operation.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"operation"},
		)

		issuesFoundTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "a11y_issues_found_total",
				Help: "Total accessibility findings reported, labeled by severity.",
			},
			[]string{"severity"},
		)

		cacheRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "a11y_cache_requests_total",
				Help: "Scan cache lookups, labeled by result.",
			},
			[]string{"result"},
		)
	})
}

// RegisterPool exposes live browser pool gauges driven by the given
// snapshot function. Call it once after the pool is constructed.
func RegisterPool(stats func() (total, inUse, max int)) {
	poolOnce.Do(func() {
		promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "a11y_browser_workers",
			Help: "Number of browser processes currently owned by the pool.",
		}, func() float64 {
			t, _, _ := stats()
			return float64(t)
		})

		promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "a11y_browser_workers_in_use",
			Help: "Number of browser processes checked out to a request.",
		}, func() float64 {
			_, u, _ := stats()
			return float64(u)
		})

		promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "a11y_browser_workers_max",
			Help: "Configured browser pool capacity.",
		}, func() float64 {
			_, _, m := stats()
			return float64(m)
		})
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveScan records one completed operation ("scan" or "screenshot")
// with its outcome and duration.
func ObserveScan(operation, status string, duration time.Duration) {
	scansTotal.WithLabelValues(operation, status).Inc()
	scanDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveIssues records the findings of one scan by severity.
func ObserveIssues(critical, serious, moderate, minor int) {
	issuesFoundTotal.WithLabelValues("critical").Add(float64(critical))
	issuesFoundTotal.WithLabelValues("serious").Add(float64(serious))
	issuesFoundTotal.WithLabelValues("moderate").Add(float64(moderate))
	issuesFoundTotal.WithLabelValues("minor").Add(float64(minor))
}

// ObserveCache records one cache lookup ("hit" or "miss").
func ObserveCache(result string) {
	cacheRequestsTotal.WithLabelValues(result).Inc()
}
