package source

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/go-loadmore/pkg/loadmore"
)

// Prometheus metrics for retry operations.
var (
	fetchRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loadmore_fetch_retries_total",
		Help: "Total number of fetch retry attempts",
	})

	fetchRetryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "loadmore_fetch_retry_backoff_seconds",
		Help:    "Backoff duration before fetch retries",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})

	fetchRetryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loadmore_fetch_retry_exhausted_total",
		Help: "Total number of times fetch retries were exhausted",
	})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int

	// InitialBackoff is the backoff before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64

	// Retryable decides whether an error is worth another attempt.
	// Defaults to DefaultRetryable.
	Retryable func(error) bool

	// Clock supplies backoff timers. Defaults to the wall clock.
	Clock clock.Clock
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Retry decorates a fetcher with exponential backoff retry logic. Failures
// the Retryable predicate rejects are returned immediately and unchanged;
// once attempts run out the last error is wrapped in ErrRetryExhausted.
type Retry[T any] struct {
	inner  loadmore.PageFetcher[T]
	config RetryConfig
	logger zerolog.Logger
}

// NewRetry wraps a fetcher with retry logic.
func NewRetry[T any](inner loadmore.PageFetcher[T], cfg RetryConfig) (*Retry[T], error) {
	if inner == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("max_attempts must be >= 1 (got %d)", cfg.MaxAttempts)
	}
	if cfg.InitialBackoff <= 0 {
		return nil, fmt.Errorf("initial_backoff must be > 0 (got %v)", cfg.InitialBackoff)
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		return nil, fmt.Errorf("max_backoff must be >= initial_backoff (got %v)", cfg.MaxBackoff)
	}
	if cfg.BackoffMultiplier < 1.0 {
		return nil, fmt.Errorf("backoff_multiplier must be >= 1.0 (got %v)", cfg.BackoffMultiplier)
	}

	if cfg.Retryable == nil {
		cfg.Retryable = DefaultRetryable
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	logger := log.With().Str("component", "retry").Logger()

	return &Retry[T]{inner: inner, config: cfg, logger: logger}, nil
}

// FetchPage calls the wrapped fetcher, retrying with exponential backoff and
// jitter. It respects context cancellation during backoff waits.
func (r *Retry[T]) FetchPage(ctx context.Context, pageIndex, pageSize int) ([]T, error) {
	var lastErr error
	backoff := r.config.InitialBackoff

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		items, err := r.inner.FetchPage(ctx, pageIndex, pageSize)
		if err == nil {
			if attempt > 1 {
				r.logger.Info().
					Int("page_index", pageIndex).
					Int("attempt", attempt).
					Msg("Fetch succeeded after retry")
			}
			return items, nil
		}

		lastErr = err

		if !r.config.Retryable(err) {
			return nil, err
		}

		// If this was the last attempt, don't wait.
		if attempt >= r.config.MaxAttempts {
			break
		}

		fetchRetriesTotal.Inc()

		// Add jitter (±20% randomness)
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		fetchRetryBackoffSeconds.Observe(jitter.Seconds())

		r.logger.Debug().
			Err(err).
			Int("page_index", pageIndex).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying fetch after backoff")

		select {
		case <-ctx.Done():
			r.logger.Warn().
				Int("page_index", pageIndex).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return nil, ctx.Err()
		case <-r.config.Clock.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * r.config.BackoffMultiplier)
		if backoff > r.config.MaxBackoff {
			backoff = r.config.MaxBackoff
		}
	}

	fetchRetryExhaustedTotal.Inc()
	r.logger.Warn().
		Err(lastErr).
		Int("page_index", pageIndex).
		Int("max_attempts", r.config.MaxAttempts).
		Msg("Retry attempts exhausted")

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, r.config.MaxAttempts, lastErr)
}
