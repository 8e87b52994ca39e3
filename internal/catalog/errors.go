// file: internal/catalog/errors.go
// version: 1.0.0
// guid: dc3e3966-0fdf-411e-90d0-d9b198e65f10

package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrAllQueriesFailed is returned by the multi-query helpers when not a
	// single query succeeded.
	ErrAllQueriesFailed = errors.New("all catalog queries failed")
	// ErrCircuitOpen is returned when the circuit breaker rejects a request.
	ErrCircuitOpen = errors.New("catalog circuit breaker is open")
)

// CatalogError reports a failed catalog request: the service was unreachable
// or answered with a non-success status.
type CatalogError struct {
	Query      string
	StatusCode int
	Err        error
}

func (e *CatalogError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("catalog query %q: HTTP status %d", e.Query, e.StatusCode)
	}
	return fmt.Sprintf("catalog query %q: %v", e.Query, e.Err)
}

func (e *CatalogError) Unwrap() error { return e.Err }

// retryable reports whether the failure says anything about service health.
// Client-side mistakes (4xx other than 429) do not count against the breaker.
func (e *CatalogError) retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == 429 || e.StatusCode >= 500
}
