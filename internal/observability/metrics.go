package observability

import (
	"sync"
	"time"
)

type requestKey struct {
	path   string
	method string
	status int
}

type errorKey struct {
	path   string
	method string
	code   string
}

// Metrics keeps in-process request and error counters. Counter reads go
// through Totals, used by the readiness/metrics surface.
type Metrics struct {
	mu       sync.Mutex
	requests map[requestKey]int64
	errors   map[errorKey]int64
}

// NewMetrics initializes empty counters.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: make(map[requestKey]int64),
		errors:   make(map[errorKey]int64),
	}
}

// RecordRequest counts one completed request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[requestKey{path: path, method: method, status: status}]++
}

// RecordError counts one request that resolved to an error envelope.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[errorKey{path: path, method: method, code: code}]++
}

// Totals returns the overall request and error counts.
func (m *Metrics) Totals() (requests, errors int64) {
	if m == nil {
		return 0, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.requests {
		requests += n
	}
	for _, n := range m.errors {
		errors += n
	}
	return requests, errors
}
