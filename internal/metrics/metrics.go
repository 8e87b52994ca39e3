// file: internal/metrics/metrics.go
// version: 2.0.0
// guid: 9f8e7d6c-5b4a-3210-9fed-cba876543210

package metrics

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

var (
	registerOnce sync.Once

	catalogRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "book_explorer",
		Name:      "catalog_requests_total",
		Help:      "Catalog search requests by outcome (ok, error, cached, rejected)",
	}, []string{"outcome"})
	catalogDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "book_explorer",
		Name:      "catalog_request_duration_seconds",
		Help:      "Histogram of catalog request durations in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.05, 1.8, 10),
	})
	breakerState = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "book_explorer",
		Name:      "catalog_breaker_state",
		Help:      "Catalog circuit breaker state (0 closed, 1 half-open, 2 open)",
	})

	strategySelected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "book_explorer",
		Name:      "recommendation_strategy_total",
		Help:      "Recommendation runs by the strategy that produced the result",
	}, []string{"strategy"})
	strategyFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "book_explorer",
		Name:      "recommendation_fallbacks_total",
		Help:      "Strategy failures that forced the popularity fallback",
	}, []string{"strategy"})
	staleResults = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "book_explorer",
		Name:      "recommendation_stale_results_total",
		Help:      "Recommendation results discarded because a newer run superseded them",
	})

	storeMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "book_explorer",
		Name:      "store_mutations_total",
		Help:      "Persisted state-store mutations by structure key",
	}, []string{"key"})
	storeLoadFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "book_explorer",
		Name:      "store_load_failures_total",
		Help:      "Structures that failed to load and fell back to defaults",
	}, []string{"key"})
	readingListGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "book_explorer",
		Name:      "reading_list_books",
		Help:      "Current number of books in the reading list",
	})
)

// Register initializes metrics with the global Prometheus registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(catalogRequests, catalogDuration, breakerState,
			strategySelected, strategyFallbacks, staleResults,
			storeMutations, storeLoadFailures, readingListGauge)
	})
}

// Catalog helpers
func IncCatalogRequest(outcome string) { catalogRequests.WithLabelValues(outcome).Inc() }
func ObserveCatalogDuration(d time.Duration) {
	catalogDuration.Observe(d.Seconds())
}
func SetBreakerState(state float64) { breakerState.Set(state) }

// Recommendation helpers
func IncStrategySelected(strategy string) { strategySelected.WithLabelValues(strategy).Inc() }
func IncStrategyFallback(strategy string) { strategyFallbacks.WithLabelValues(strategy).Inc() }
func IncStaleResult()                     { staleResults.Inc() }

// Store helpers
func IncStoreMutation(key string)    { storeMutations.WithLabelValues(key).Inc() }
func IncStoreLoadFailure(key string) { storeLoadFailures.WithLabelValues(key).Inc() }
func SetReadingListBooks(n int)      { readingListGauge.Set(float64(n)) }

// WriteText writes the registered book_explorer metrics in the Prometheus
// text exposition format.
func WriteText(w io.Writer) error {
	Register()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "book_explorer_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
