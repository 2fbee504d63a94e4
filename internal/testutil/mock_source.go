// Package testutil provides testing utilities for the loadmore packages.
package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/samber/lo"
)

type pageFailure struct {
	status    int
	remaining int // -1 means every time
}

// MockPagedServer is a configurable paged HTTP backend for testing. It
// answers GET requests carrying page and page_size query parameters with a
// JSON array holding that window of the configured items.
type MockPagedServer struct {
	server   *httptest.Server
	mu       sync.RWMutex
	items    []any
	failures map[int]*pageFailure
	failAll  int
	handler  http.HandlerFunc

	// Tracking
	RequestCount int
	PageRequests []int
}

// NewMockPagedServer creates a mock paged backend with no items.
func NewMockPagedServer() *MockPagedServer {
	mock := &MockPagedServer{
		failures: make(map[int]*pageFailure),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))

		mock.mu.Lock()
		mock.RequestCount++
		mock.PageRequests = append(mock.PageRequests, page)
		handler := mock.handler
		mock.mu.Unlock()

		if handler != nil {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockPagedServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockPagedServer) Close() {
	m.server.Close()
}

// Reset clears tracking counters and configured failures.
func (m *MockPagedServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PageRequests = nil
	m.failures = make(map[int]*pageFailure)
	m.failAll = 0
}

// SetItems replaces the backing items.
func (m *MockPagedServer) SetItems(items []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
}

// SetIntRange fills the backing items with count sequential ints starting
// at from.
func (m *MockPagedServer) SetIntRange(from, count int) {
	items := make([]any, 0, count)
	for _, n := range lo.RangeFrom(from, count) {
		items = append(items, n)
	}
	m.SetItems(items)
}

// FailPage makes every request for the given page fail with status.
func (m *MockPagedServer) FailPage(page, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[page] = &pageFailure{status: status, remaining: -1}
}

// FailPageTimes makes the next times requests for the given page fail with
// status, then succeed again.
func (m *MockPagedServer) FailPageTimes(page, status, times int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[page] = &pageFailure{status: status, remaining: times}
}

// FailAll makes every request fail with status until cleared.
func (m *MockPagedServer) FailAll(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = status
}

// ClearFailures removes all configured failures.
func (m *MockPagedServer) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = make(map[int]*pageFailure)
	m.failAll = 0
}

// SetHandler replaces the paging handler entirely.
func (m *MockPagedServer) SetHandler(handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockPagedServer) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPageRequests returns the page indexes requested so far, in order.
func (m *MockPagedServer) GetPageRequests() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int, len(m.PageRequests))
	copy(out, m.PageRequests)
	return out
}

// defaultHandler serves one window of the configured items.
func (m *MockPagedServer) defaultHandler(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, err := strconv.Atoi(r.URL.Query().Get("page_size"))
	if err != nil || size <= 0 {
		http.Error(w, "bad page_size", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	status := m.failAll
	if f, ok := m.failures[page]; ok && f.remaining != 0 {
		status = f.status
		if f.remaining > 0 {
			f.remaining--
		}
	}
	items := m.items
	m.mu.Unlock()

	if status != 0 {
		http.Error(w, "mock failure", status)
		return
	}

	start := page * size
	window := lo.Slice(items, start, start+size)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(window)
}

type scriptStep[T any] struct {
	items []T
	err   error
}

// ScriptedFetcher replays a fixed script of batches and errors, recording
// every call. Steps past the end of the script return an empty batch.
type ScriptedFetcher[T any] struct {
	mu      sync.Mutex
	steps   []scriptStep[T]
	next    int
	gate    chan struct{}
	started chan struct{}

	// Calls records the (pageIndex, pageSize) argument pairs seen.
	Calls [][2]int
}

// NewScriptedFetcher creates a fetcher with an empty script.
func NewScriptedFetcher[T any]() *ScriptedFetcher[T] {
	return &ScriptedFetcher[T]{}
}

// Return appends a successful batch to the script.
func (f *ScriptedFetcher[T]) Return(items ...T) *ScriptedFetcher[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, scriptStep[T]{items: items})
	return f
}

// Fail appends a failing step to the script.
func (f *ScriptedFetcher[T]) Fail(err error) *ScriptedFetcher[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, scriptStep[T]{err: err})
	return f
}

// Gated makes every fetch block until Release is called. Started signals
// each fetch that has reached the gate.
func (f *ScriptedFetcher[T]) Gated() *ScriptedFetcher[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.started = make(chan struct{}, 16)
	return f
}

// Started returns the channel signalling fetches waiting at the gate.
func (f *ScriptedFetcher[T]) Started() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

// Release unblocks all pending and future fetches.
func (f *ScriptedFetcher[T]) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

// CallCount returns the number of fetches seen so far.
func (f *ScriptedFetcher[T]) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// FetchPage replays the next scripted step.
func (f *ScriptedFetcher[T]) FetchPage(ctx context.Context, pageIndex, pageSize int) ([]T, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, [2]int{pageIndex, pageSize})
	var step scriptStep[T]
	if f.next < len(f.steps) {
		step = f.steps[f.next]
		f.next++
	}
	gate, started := f.gate, f.started
	f.mu.Unlock()

	if gate != nil {
		if started != nil {
			started <- struct{}{}
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return step.items, step.err
}
