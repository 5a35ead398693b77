package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PageFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadfinder_page_fetches_total",
			Help: "Total number of result page fetches executed",
		},
		[]string{"status", "blocked_by"},
	)

	PageFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leadfinder_page_fetch_duration_seconds",
			Help:    "Duration of result page fetches in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	PageBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadfinder_page_bytes_total",
			Help: "Total bytes downloaded across all page fetches",
		},
	)

	EmailsFoundTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadfinder_emails_found_total",
			Help: "Distinct email addresses found on fetched pages",
		},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadfinder_proxy_failures_total",
			Help: "Total number of proxy failures during page fetches",
		},
		[]string{"proxy_url"},
	)

	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadfinder_search_requests_total",
			Help: "Search provider calls by outcome",
		},
		[]string{"provider", "outcome"},
	)

	SearchResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadfinder_search_results_total",
			Help: "Search results returned by provider",
		},
		[]string{"provider"},
	)

	LeadsAppendedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadfinder_leads_appended_total",
			Help: "Leads written to the store after deduplication",
		},
	)

	LeadsDuplicateTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadfinder_leads_duplicate_total",
			Help: "Candidate leads dropped as duplicates",
		},
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadfinder_exports_total",
			Help: "Export-and-reset attempts by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordFetch updates the page fetch metrics. A failed request is labelled
// with status "error".
func RecordFetch(status int, failed bool, blockedBy string, d time.Duration, bytes int) {
	statusStr := strconv.Itoa(status)
	if failed {
		statusStr = "error"
	}
	PageFetchesTotal.WithLabelValues(statusStr, blockedBy).Inc()
	PageFetchDuration.Observe(d.Seconds())
	PageBytesTotal.Add(float64(bytes))
}

// RecordSearch counts one provider call and the results it returned.
func RecordSearch(provider string, results int, degraded bool) {
	outcome := "ok"
	if degraded {
		outcome = "degraded"
	}
	SearchRequestsTotal.WithLabelValues(provider, outcome).Inc()
	SearchResultsTotal.WithLabelValues(provider).Add(float64(results))
}

// RecordAppend counts leads kept and dropped by one store append.
func RecordAppend(appended, duplicates int) {
	LeadsAppendedTotal.Add(float64(appended))
	LeadsDuplicateTotal.Add(float64(duplicates))
}

// RecordExport counts one export attempt.
func RecordExport(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	ExportsTotal.WithLabelValues(outcome).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", srv.Addr, "err", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
