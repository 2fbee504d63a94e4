package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for HTTP source operations.
var (
	httpFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loadmore_http_fetches_total",
		Help: "Total page fetches against HTTP sources by result",
	}, []string{"result"})
)

// HTTPConfig holds the configuration for an HTTP page source.
type HTTPConfig struct {
	// BaseURL is the endpoint serving pages (REQUIRED).
	// The endpoint must answer GET requests with a JSON array of items;
	// an empty array signals exhaustion.
	BaseURL string

	// Client is the HTTP client used for requests.
	// Defaults to a client with a 30 second timeout.
	Client *http.Client

	// UserAgent header sent with every request.
	UserAgent string

	// PageParam and SizeParam name the query parameters carrying the
	// page cursor and page size. Default to "page" and "page_size".
	PageParam string
	SizeParam string
}

// DefaultHTTPConfig returns a safe default configuration.
func DefaultHTTPConfig(baseURL string) HTTPConfig {
	return HTTPConfig{
		BaseURL:   baseURL,
		Client:    &http.Client{Timeout: 30 * time.Second},
		UserAgent: "go-loadmore/1.0",
		PageParam: "page",
		SizeParam: "page_size",
	}
}

// HTTP fetches pages from a JSON endpoint, one GET per page.
type HTTP[T any] struct {
	config HTTPConfig
	logger zerolog.Logger
}

// NewHTTP creates an HTTP page source.
func NewHTTP[T any](cfg HTTPConfig) (*HTTP[T], error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base_url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base_url: %w", err)
	}

	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.PageParam == "" {
		cfg.PageParam = "page"
	}
	if cfg.SizeParam == "" {
		cfg.SizeParam = "page_size"
	}

	logger := log.With().Str("component", "http-source").Logger()

	return &HTTP[T]{config: cfg, logger: logger}, nil
}

// FetchPage requests one page and decodes the JSON array body.
func (h *HTTP[T]) FetchPage(ctx context.Context, pageIndex, pageSize int) ([]T, error) {
	u, err := url.Parse(h.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base_url: %w", err)
	}
	q := u.Query()
	q.Set(h.config.PageParam, strconv.Itoa(pageIndex))
	q.Set(h.config.SizeParam, strconv.Itoa(pageSize))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if h.config.UserAgent != "" {
		req.Header.Set("User-Agent", h.config.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.config.Client.Do(req)
	if err != nil {
		httpFetchesTotal.WithLabelValues("network_error").Inc()
		h.logger.Error().Err(err).Int("page_index", pageIndex).Msg("HTTP fetch failed")
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		httpFetchesTotal.WithLabelValues("network_error").Inc()
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		httpFetchesTotal.WithLabelValues("status_error").Inc()
		h.logger.Warn().
			Int("status_code", resp.StatusCode).
			Int("page_index", pageIndex).
			Msg("HTTP source returned error status")
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	var items []T
	if err := json.Unmarshal(body, &items); err != nil {
		httpFetchesTotal.WithLabelValues("decode_error").Inc()
		return nil, fmt.Errorf("decode page %d: %w", pageIndex, err)
	}

	httpFetchesTotal.WithLabelValues("success").Inc()
	h.logger.Debug().
		Int("page_index", pageIndex).
		Int("page_size", pageSize).
		Int("fetched", len(items)).
		Msg("Fetched page")

	return items, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
