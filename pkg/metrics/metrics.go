// Package metrics provides the centralized Prometheus metrics registry for
// the load-more library. All metrics are defined in their owning packages
// (loadmore, source) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the library.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Load Metrics (pkg/loadmore):
//   - loadmore_loads_total{result} (Counter): LoadMore calls by outcome
//     (success, empty, error, rejected)
//   - loadmore_items_loaded_total (Counter): Items appended to bound sequences
//   - loadmore_load_duration_seconds (Histogram): LoadMore duration from call to settle
//   - loadmore_loads_in_flight (Gauge): Loads currently between start and settle
//
// Source Metrics (pkg/source):
//   - loadmore_http_fetches_total{result} (Counter): HTTP source fetches by outcome
//     (success, network_error, status_error, decode_error)
//   - loadmore_redis_fetches_total{result} (Counter): Redis source fetches by outcome
//     (success, error, decode_error)
//   - loadmore_fetch_retries_total (Counter): Retry attempts made by the retry decorator
//   - loadmore_fetch_retry_backoff_seconds (Histogram): Backoff waits before retries
//   - loadmore_fetch_retry_exhausted_total (Counter): Loads that ran out of attempts
//
// Example Prometheus Queries:
//
//   # Load Error Rate
//   rate(loadmore_loads_total{result="error"}[5m]) /
//   rate(loadmore_loads_total[5m])
//
//   # Items Loaded Per Second
//   rate(loadmore_items_loaded_total[5m])
//
//   # P95 Load Latency
//   histogram_quantile(0.95, rate(loadmore_load_duration_seconds_bucket[5m]))
//
//   # Overlap Pressure (rejected loads)
//   rate(loadmore_loads_total{result="rejected"}[5m])
