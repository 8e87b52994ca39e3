// file: internal/testutil/mock_catalog.go
// version: 2.0.0
// guid: c3d4e5f6-a7b8-9012-cdef-345678901abc

package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// MockResponse is a canned reply for requests matching a route pattern.
type MockResponse struct {
	Status int
	Body   string
}

// MockCatalog is an httptest server mimicking the Google Books volume API
// that records every request it receives.
type MockCatalog struct {
	*httptest.Server

	mu       sync.Mutex
	requests []string
}

// NewMockCatalog starts a mock catalog. Route keys are matched with Contains
// against the unescaped request URI, so "q=subject:Mystery" matches a
// subject search for Mystery. Unmatched requests get a 404. The server is
// closed when the test ends.
func NewMockCatalog(t *testing.T, routes map[string]MockResponse) *MockCatalog {
	t.Helper()
	m := &MockCatalog{}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uri, err := url.QueryUnescape(r.URL.RequestURI())
		if err != nil {
			uri = r.URL.RequestURI()
		}
		m.mu.Lock()
		m.requests = append(m.requests, uri)
		m.mu.Unlock()

		for pattern, resp := range routes {
			if strings.Contains(uri, pattern) {
				status := resp.Status
				if status == 0 {
					status = http.StatusOK
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_, _ = w.Write([]byte(resp.Body))
				return
			}
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(m.Server.Close)
	return m
}

// MockCatalogServer is NewMockCatalog for routes that all answer 200.
func MockCatalogServer(t *testing.T, responses map[string]string) *MockCatalog {
	t.Helper()
	routes := make(map[string]MockResponse, len(responses))
	for pattern, body := range responses {
		routes[pattern] = MockResponse{Body: body}
	}
	return NewMockCatalog(t, routes)
}

// Requests returns the unescaped request URIs received so far.
func (m *MockCatalog) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

// RequestCount counts requests whose URI contains pattern.
func (m *MockCatalog) RequestCount(pattern string) int {
	n := 0
	for _, r := range m.Requests() {
		if strings.Contains(r, pattern) {
			n++
		}
	}
	return n
}

// Volume renders a minimal volume item with an id, title, and categories.
func Volume(id, title string, categories ...string) string {
	cats := make([]string, len(categories))
	for i, c := range categories {
		cats[i] = fmt.Sprintf("%q", c)
	}
	return fmt.Sprintf(`{"id":%q,"volumeInfo":{"title":%q,"authors":["Test Author"],"pageCount":320,"categories":[%s]}}`,
		id, title, strings.Join(cats, ","))
}

// VolumesResponse wraps volume items in a search response.
func VolumesResponse(items ...string) string {
	return fmt.Sprintf(`{"kind":"books#volumes","totalItems":%d,"items":[%s]}`, len(items), strings.Join(items, ","))
}

// HobbitVolume is a fully populated volume record.
const HobbitVolume = `{
	"id": "hobbit-1",
	"volumeInfo": {
		"title": "The Hobbit",
		"authors": ["J.R.R. Tolkien"],
		"description": "There and back again.",
		"publishedDate": "1937-09-21",
		"pageCount": 310,
		"categories": ["Fantasy"],
		"averageRating": 4.5,
		"ratingsCount": 1200,
		"imageLinks": {"thumbnail": "http://books.example/hobbit.jpg"},
		"previewLink": "http://books.example/preview/hobbit",
		"infoLink": "http://books.example/info/hobbit",
		"industryIdentifiers": [
			{"type": "ISBN_10", "identifier": "0261103342"},
			{"type": "ISBN_13", "identifier": "9780261103344"}
		]
	}
}`

// EmptyVolumesResponse returns no results.
const EmptyVolumesResponse = `{"kind":"books#volumes","totalItems":0}`
