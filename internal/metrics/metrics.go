// Package metrics holds the Prometheus instruments shared across the worker.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LinksCollected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "carscraper_links_collected_total",
			Help: "Total number of detail-page links harvested from search results.",
		},
	)
	RecordsScraped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "carscraper_records_scraped_total",
			Help: "Total number of listings extracted successfully.",
		},
	)
	TasksFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carscraper_tasks_failed_total",
			Help: "Total number of per-listing tasks excluded from output, labeled by reason.",
		},
		[]string{"reason"},
	)
	TaskDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "carscraper_task_duration_seconds",
			Help:    "Duration of per-listing extraction tasks in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
	LeasedSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "carscraper_leased_sessions",
			Help: "Number of rendering sessions currently leased from the pool.",
		},
	)
	StorePushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carscraper_store_pushes_total",
			Help: "Total number of batch pushes to the persistence store, labeled by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(LinksCollected)
	prometheus.MustRegister(RecordsScraped)
	prometheus.MustRegister(TasksFailed)
	prometheus.MustRegister(TaskDuration)
	prometheus.MustRegister(LeasedSessions)
	prometheus.MustRegister(StorePushes)
}

// Handler returns the HTTP handler exposing the registered instruments.
func Handler() http.Handler {
	return promhttp.Handler()
}
