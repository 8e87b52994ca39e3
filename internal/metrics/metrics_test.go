// file: internal/metrics/metrics_test.go
// version: 2.0.0
// guid: 7a8b9c0d-1e2f-3a4b-5c6d-7e8f9a0b1c2d

package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIdempotent(t *testing.T) {
	Register()
	Register()
}

func TestCatalogCounters(t *testing.T) {
	before := testutil.ToFloat64(catalogRequests.WithLabelValues("error"))
	IncCatalogRequest("error")
	IncCatalogRequest("error")
	assert.Equal(t, before+2, testutil.ToFloat64(catalogRequests.WithLabelValues("error")))

	ObserveCatalogDuration(120 * time.Millisecond)
	SetBreakerState(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(breakerState))
}

func TestRecommendationCounters(t *testing.T) {
	before := testutil.ToFloat64(strategySelected.WithLabelValues("genre-based"))
	IncStrategySelected("genre-based")
	assert.Equal(t, before+1, testutil.ToFloat64(strategySelected.WithLabelValues("genre-based")))

	fb := testutil.ToFloat64(strategyFallbacks.WithLabelValues("rating-based"))
	IncStrategyFallback("rating-based")
	assert.Equal(t, fb+1, testutil.ToFloat64(strategyFallbacks.WithLabelValues("rating-based")))

	stale := testutil.ToFloat64(staleResults)
	IncStaleResult()
	assert.Equal(t, stale+1, testutil.ToFloat64(staleResults))
}

func TestStoreMetrics(t *testing.T) {
	before := testutil.ToFloat64(storeMutations.WithLabelValues("ratings"))
	IncStoreMutation("ratings")
	assert.Equal(t, before+1, testutil.ToFloat64(storeMutations.WithLabelValues("ratings")))

	IncStoreLoadFailure("preferences")
	SetReadingListBooks(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(readingListGauge))
}

func TestWriteText(t *testing.T) {
	IncStrategySelected("popularity-fallback")

	var buf bytes.Buffer
	err := WriteText(&buf)

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "book_explorer_recommendation_strategy_total")
	assert.NotContains(t, buf.String(), "go_goroutines")
}
