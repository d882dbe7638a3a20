// Package testutil provides testing utilities for the explorer client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock explorer response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockExplorer is a configurable fake explorer API. Handlers are keyed by
// "module.action".
type MockExplorer struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request, params url.Values)

	// Tracking
	RequestCount      int
	Requests          []url.Values
	LastRequestHeader http.Header
}

// NewMockExplorer creates a new mock explorer server.
func NewMockExplorer() *MockExplorer {
	mock := &MockExplorer{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request, params url.Values)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		params := r.Form

		mock.mu.Lock()
		mock.RequestCount++
		mock.Requests = append(mock.Requests, params)
		mock.LastRequestHeader = r.Header.Clone()
		handler, exists := mock.handlers[params.Get("module")+"."+params.Get("action")]
		mock.mu.Unlock()

		if exists {
			handler(w, r, params)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the API endpoint of the mock server.
func (m *MockExplorer) URL() string {
	return m.server.URL + "/api"
}

// Close shuts down the mock server.
func (m *MockExplorer) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockExplorer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Requests = nil
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a module.action pair.
func (m *MockExplorer) SetHandler(action string, handler func(w http.ResponseWriter, r *http.Request, params url.Values)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[action] = handler
}

// SetResponse configures a fixed response for a module.action pair.
func (m *MockExplorer) SetResponse(action string, resp MockResponse) {
	m.SetHandler(action, func(w http.ResponseWriter, r *http.Request, _ url.Values) {
		writeResponse(w, resp)
	})
}

// SetPagedRecords serves records page by page using the page and offset
// fields. Pages past the end answer like the explorer does: status 0 with
// an empty list.
func (m *MockExplorer) SetPagedRecords(action string, records []map[string]any) {
	m.SetHandler(action, func(w http.ResponseWriter, r *http.Request, params url.Values) {
		page, _ := strconv.Atoi(params.Get("page"))
		offset, _ := strconv.Atoi(params.Get("offset"))
		if page < 1 {
			page = 1
		}
		if offset < 1 {
			offset = 10
		}

		start := (page - 1) * offset
		if start >= len(records) {
			writeResponse(w, NewEnvelopeResponse("0", "No records found", []any{}))
			return
		}
		end := min(start+offset, len(records))
		writeResponse(w, NewEnvelopeResponse("1", "OK", records[start:end]))
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockExplorer) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// CountAction returns how many requests hit a module.action pair.
func (m *MockExplorer) CountAction(action string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, p := range m.Requests {
		if p.Get("module")+"."+p.Get("action") == action {
			n++
		}
	}
	return n
}

// defaultHandler answers unknown actions the way the explorer does.
func (m *MockExplorer) defaultHandler(w http.ResponseWriter, _ *http.Request) {
	writeResponse(w, NewEnvelopeResponse("0", "Unknown action", nil))
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if resp.StatusCode == 0 {
		resp.StatusCode = http.StatusOK
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewEnvelopeResponse creates a 200 OK response carrying a status envelope.
func NewEnvelopeResponse(status, message string, result any) MockResponse {
	body, err := json.Marshal(map[string]any{
		"status":  status,
		"message": message,
		"result":  result,
	})
	if err != nil {
		panic(fmt.Sprintf("marshal mock envelope: %v", err))
	}
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewOKResponse creates a status 1 envelope response.
func NewOKResponse(result any) MockResponse {
	return NewEnvelopeResponse("1", "OK", result)
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewFlakyHandler fails the first failures calls with a 503, then serves resp.
func NewFlakyHandler(failures int, resp MockResponse) func(w http.ResponseWriter, r *http.Request, params url.Values) {
	var mu sync.Mutex
	calls := 0
	return func(w http.ResponseWriter, r *http.Request, _ url.Values) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		if n <= failures {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeResponse(w, resp)
	}
}
