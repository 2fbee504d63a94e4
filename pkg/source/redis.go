package source

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for Redis source operations.
var (
	redisFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loadmore_redis_fetches_total",
		Help: "Total page fetches against Redis list sources by result",
	}, []string{"result"})
)

// RedisConfig holds the configuration for a Redis list source.
type RedisConfig[T any] struct {
	// Redis is the client used for LRANGE queries (REQUIRED).
	Redis *redis.Client

	// Key is the list holding the items, oldest first (REQUIRED).
	Key string

	// Decode turns one list element into an item.
	// Defaults to JSON decoding.
	Decode func(string) (T, error)
}

// RedisList fetches pages from a Redis list with LRANGE, one window per page.
type RedisList[T any] struct {
	config RedisConfig[T]
	logger zerolog.Logger
}

// NewRedisList creates a Redis list page source.
func NewRedisList[T any](cfg RedisConfig[T]) (*RedisList[T], error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("key is required")
	}

	if cfg.Decode == nil {
		cfg.Decode = func(raw string) (T, error) {
			var v T
			err := json.Unmarshal([]byte(raw), &v)
			return v, err
		}
	}

	logger := log.With().
		Str("component", "redis-source").
		Str("key", cfg.Key).
		Logger()

	return &RedisList[T]{config: cfg, logger: logger}, nil
}

// FetchPage reads the pageIndex-th window of the list.
func (r *RedisList[T]) FetchPage(ctx context.Context, pageIndex, pageSize int) ([]T, error) {
	start := int64(pageIndex) * int64(pageSize)
	stop := start + int64(pageSize) - 1

	raw, err := r.config.Redis.LRange(ctx, r.config.Key, start, stop).Result()
	if err != nil {
		redisFetchesTotal.WithLabelValues("error").Inc()
		r.logger.Error().Err(err).Int("page_index", pageIndex).Msg("LRANGE failed")
		return nil, fmt.Errorf("lrange %s [%d:%d]: %w", r.config.Key, start, stop, err)
	}

	items := make([]T, 0, len(raw))
	for i, el := range raw {
		item, err := r.config.Decode(el)
		if err != nil {
			redisFetchesTotal.WithLabelValues("decode_error").Inc()
			return nil, fmt.Errorf("decode element %d of page %d: %w", i, pageIndex, err)
		}
		items = append(items, item)
	}

	redisFetchesTotal.WithLabelValues("success").Inc()
	r.logger.Debug().
		Int("page_index", pageIndex).
		Int("page_size", pageSize).
		Int("fetched", len(items)).
		Msg("Fetched page")

	return items, nil
}
