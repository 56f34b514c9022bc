// Package metrics defines the Prometheus collectors shared by the API and
// the ingestion worker, and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// IngestReceived counts queue messages handed to the pipeline.
	IngestReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_messages_received_total",
		Help: "Total queue messages received by the ingestion worker.",
	})

	// IngestCompleted counts messages fully processed and acknowledged.
	IngestCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_messages_completed_total",
		Help: "Total queue messages processed successfully.",
	})

	// IngestFailed counts messages that failed by pipeline stage and class.
	IngestFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_messages_failed_total",
		Help: "Total queue messages that failed processing, by stage and failure class.",
	}, []string{"stage", "class"})

	// IngestDeletedUnprocessable counts poison messages removed from the queue.
	IngestDeletedUnprocessable = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_messages_deleted_unprocessable_total",
		Help: "Total queue messages deleted because they can never succeed.",
	})

	// IngestDuration observes end-to-end per-message processing time.
	IngestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_duration_seconds",
		Help:    "Per-message ingestion pipeline duration in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	// HTTPRequestsTotal counts API requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests by method, path, and status.",
	}, []string{"method", "path", "status"})
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts a standalone metrics listener. It blocks, so callers run it
// in a goroutine. An empty addr disables it.
func Serve(addr string) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return http.ListenAndServe(addr, mux)
}
