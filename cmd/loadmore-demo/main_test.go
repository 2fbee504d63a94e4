package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"

	"github.com/Sternrassler/go-loadmore/internal/testutil"
	"github.com/Sternrassler/go-loadmore/pkg/loadmore"
	"github.com/Sternrassler/go-loadmore/pkg/source"
)

// newDemoController builds an in-memory controller over count demo items.
func newDemoController(t *testing.T, count, pageSize int) *loadmore.Controller[demoItem] {
	t.Helper()

	items := make([]demoItem, 0, count)
	for _, id := range lo.RangeFrom(1, count) {
		items = append(items, demoItem{ID: id, Name: fmt.Sprintf("Item %03d", id)})
	}

	ctrl, err := loadmore.New(loadmore.DefaultConfig[demoItem](source.NewSlice(items), pageSize))
	if err != nil {
		t.Fatalf("Failed to create controller: %v", err)
	}
	return ctrl
}

func TestGetEnv(t *testing.T) {
	t.Setenv("DEMO_TEST_KEY", "set")

	if got := getEnv("DEMO_TEST_KEY", "default"); got != "set" {
		t.Errorf("getEnv() = %q, want \"set\"", got)
	}
	if got := getEnv("DEMO_TEST_MISSING", "default"); got != "default" {
		t.Errorf("getEnv() = %q, want \"default\"", got)
	}

	t.Setenv("DEMO_TEST_INT", "42")
	if got := getEnvInt("DEMO_TEST_INT", 7); got != 42 {
		t.Errorf("getEnvInt() = %d, want 42", got)
	}
	if got := getEnvInt("DEMO_TEST_INT_MISSING", 7); got != 7 {
		t.Errorf("getEnvInt() = %d, want 7", got)
	}
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestLoadEndpoint(t *testing.T) {
	ctrl := newDemoController(t, 12, 5)
	handler := loadHandler(ctrl)

	t.Run("method not allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("GET", "/load", nil))

		if w.Result().StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("Expected status 405, got %d", w.Result().StatusCode)
		}
	})

	t.Run("invalid count", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("POST", "/load?count=-1", nil))

		if w.Result().StatusCode != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Result().StatusCode)
		}
	})

	t.Run("first page", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("POST", "/load?count=10", nil))

		resp := w.Result()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}

		var load loadResponse
		if err := json.NewDecoder(resp.Body).Decode(&load); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		if load.Length != 5 {
			t.Errorf("Length = %d, want 5", load.Length)
		}
		if load.PageIndex != 1 {
			t.Errorf("PageIndex = %d, want 1", load.PageIndex)
		}
		if !load.HasMoreItems {
			t.Error("HasMoreItems = false, want true")
		}
		if load.CountAfterOperation != 15 {
			t.Errorf("CountAfterOperation = %d, want 15", load.CountAfterOperation)
		}
	})

	t.Run("exhaustion", func(t *testing.T) {
		// Drain the remaining pages, then one more call past the end.
		var load loadResponse
		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			handler(w, httptest.NewRequest("POST", "/load", nil))
			if w.Result().StatusCode != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Result().StatusCode)
			}
			if err := json.NewDecoder(w.Result().Body).Decode(&load); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
		}

		if load.HasMoreItems {
			t.Error("HasMoreItems = true, want false after exhaustion")
		}
		if load.Length != 12 {
			t.Errorf("Length = %d, want 12", load.Length)
		}
		if load.PageIndex != 3 {
			t.Errorf("PageIndex = %d, want 3", load.PageIndex)
		}
	})
}

func TestLoadEndpoint_Conflict(t *testing.T) {
	fetcher := testutil.NewScriptedFetcher[demoItem]().
		Return(demoItem{ID: 1, Name: "Item 001"}).
		Gated()

	ctrl, err := loadmore.New(loadmore.DefaultConfig[demoItem](fetcher, 5))
	if err != nil {
		t.Fatalf("Failed to create controller: %v", err)
	}
	handler := loadHandler(ctrl)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("POST", "/load", nil))
		done <- w
	}()

	<-fetcher.Started() // first load is inside the fetch

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("POST", "/load", nil))
	if w.Result().StatusCode != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Result().StatusCode)
	}

	fetcher.Release()
	if first := <-done; first.Result().StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 for the first load, got %d", first.Result().StatusCode)
	}
}

func TestLoadEndpoint_FetchFailure(t *testing.T) {
	failing := testutil.NewScriptedFetcher[demoItem]().Fail(errors.New("backend unavailable"))
	ctrl, err := loadmore.New(loadmore.DefaultConfig[demoItem](failing, 5))
	if err != nil {
		t.Fatalf("Failed to create controller: %v", err)
	}
	handler := loadHandler(ctrl)

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("POST", "/load", nil))

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "backend unavailable") {
		t.Errorf("Body = %q, want the fetch error", string(body))
	}
}

func TestItemsEndpoint(t *testing.T) {
	ctrl := newDemoController(t, 4, 2)
	handler := itemsHandler(ctrl)

	if _, err := ctrl.LoadMore(httptest.NewRequest("GET", "/items", nil).Context(), 0); err != nil {
		t.Fatalf("LoadMore() failed: %v", err)
	}

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/items", nil))

	var items []demoItem
	if err := json.NewDecoder(w.Result().Body).Decode(&items); err != nil {
		t.Fatalf("Failed to decode items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Items = %d, want 2", len(items))
	}
	if items[0].Name != "Item 001" || items[1].Name != "Item 002" {
		t.Errorf("Items = %+v", items)
	}
}

func TestStateEndpoint(t *testing.T) {
	ctrl := newDemoController(t, 12, 5)
	handler := stateHandler(ctrl)

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/state", nil))

	var state stateResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&state); err != nil {
		t.Fatalf("Failed to decode state: %v", err)
	}

	if state.PageIndex != 0 {
		t.Errorf("PageIndex = %d, want 0", state.PageIndex)
	}
	if state.PageSize != 5 {
		t.Errorf("PageSize = %d, want 5", state.PageSize)
	}
	if state.Length != 0 {
		t.Errorf("Length = %d, want 0", state.Length)
	}
	if state.IsLoading {
		t.Error("IsLoading = true, want false")
	}
	if !state.HasMoreItems {
		t.Error("HasMoreItems = false, want true")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	// Touch the controller so its metrics are registered and populated.
	ctrl := newDemoController(t, 3, 3)
	if _, err := ctrl.LoadMore(httptest.NewRequest("GET", "/metrics", nil).Context(), 0); err != nil {
		t.Fatalf("LoadMore() failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler := promhttp.Handler()
	handler.ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	bodyStr := string(body)

	if !strings.Contains(bodyStr, "# HELP") || !strings.Contains(bodyStr, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}

	if !strings.Contains(bodyStr, "loadmore_loads_in_flight") {
		t.Error("Expected metrics output to contain loadmore_loads_in_flight")
	}
}
