package loadmore

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/Sternrassler/go-loadmore/pkg/dispatch"
	"github.com/Sternrassler/go-loadmore/pkg/observable"
)

// Prometheus metrics for load operations.
var (
	loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loadmore_loads_total",
		Help: "Total LoadMore calls by result",
	}, []string{"result"})

	itemsLoadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loadmore_items_loaded_total",
		Help: "Total items appended to bound sequences",
	})

	loadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "loadmore_load_duration_seconds",
		Help:    "LoadMore duration from call to settle in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	})

	loadsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loadmore_loads_in_flight",
		Help: "Loads currently between start and settle",
	})
)

// OverlapPolicy selects how LoadMore treats calls that arrive while a
// previous load has not settled.
type OverlapPolicy string

const (
	// OverlapReject fails overlapping calls with ErrLoadInFlight.
	OverlapReject OverlapPolicy = "reject"

	// OverlapCoalesce joins overlapping calls to the running load; all
	// callers receive the winning call's LoadResult and error.
	OverlapCoalesce OverlapPolicy = "coalesce"
)

// CountMode selects how LoadResult.CountAfterOperation is computed for a
// successful, non-empty load.
type CountMode string

const (
	// CountModeFetched reports requestedCount plus the number of items
	// fetched by this call.
	CountModeFetched CountMode = "fetched"

	// CountModeLegacy reports requestedCount plus the sequence length
	// after the merge minus one, matching host views built against that
	// contract.
	CountModeLegacy CountMode = "legacy"
)

// LoadResult is reported back to the host view's virtualization protocol
// after a load settles.
type LoadResult struct {
	// CountAfterOperation reflects the post-merge state per the
	// controller's CountMode. Counts are unsigned, as exchanged by
	// list-virtualization protocols.
	CountAfterOperation uint32
}

// Controller drives incremental loading for one bound view: it owns the
// page cursor, the loading and has-more flags, and the merge of fetched
// pages into the observable sequence.
type Controller[T any] struct {
	fetcher    PageFetcher[T]
	items      *observable.List[T]
	dispatcher dispatch.Dispatcher
	policy     OverlapPolicy
	countMode  CountMode
	pageSize   int
	logger     zerolog.Logger

	pageIndex atomic.Int64
	loading   *observable.Value[bool]
	hasMore   *observable.Value[bool]

	inflight atomic.Bool        // OverlapReject guard
	group    singleflight.Group // OverlapCoalesce join point
}

// Config holds the controller configuration.
type Config[T any] struct {
	// Fetcher retrieves pages from the data source (REQUIRED).
	Fetcher PageFetcher[T]

	// PageSize is the fixed number of items requested per page (REQUIRED, >= 1).
	PageSize int

	// Items is the sequence the controller appends to. Nil creates a
	// fresh empty list.
	Items *observable.List[T]

	// InitialItems pre-seeds a fresh list. Ignored when Items is set.
	// Seeding never advances the page cursor: a fetcher that treats the
	// seed as page 0 must offset its own indexing.
	InitialItems []T

	// Dispatcher delivers sequence mutations and flag writes on the
	// binding context. Nil means dispatch.Immediate.
	Dispatcher dispatch.Dispatcher

	// Policy for overlapping LoadMore calls. Empty means OverlapReject.
	Policy OverlapPolicy

	// CountMode for LoadResult computation. Empty means CountModeFetched.
	CountMode CountMode
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig[T any](fetcher PageFetcher[T], pageSize int) Config[T] {
	return Config[T]{
		Fetcher:    fetcher,
		PageSize:   pageSize,
		Dispatcher: dispatch.Immediate{},
		Policy:     OverlapReject,
		CountMode:  CountModeFetched,
	}
}

// New creates a paging controller.
func New[T any](cfg Config[T]) (*Controller[T], error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}

	if cfg.PageSize < 1 {
		return nil, fmt.Errorf("page_size must be >= 1 (got %d)", cfg.PageSize)
	}

	switch cfg.Policy {
	case "", OverlapReject, OverlapCoalesce:
	default:
		return nil, fmt.Errorf("unknown overlap policy %q", cfg.Policy)
	}

	switch cfg.CountMode {
	case "", CountModeFetched, CountModeLegacy:
	default:
		return nil, fmt.Errorf("unknown count mode %q", cfg.CountMode)
	}

	items := cfg.Items
	if items == nil {
		items = observable.NewList(cfg.InitialItems...)
	}

	dispatcher := cfg.Dispatcher
	if dispatcher == nil {
		dispatcher = dispatch.Immediate{}
	}

	policy := cfg.Policy
	if policy == "" {
		policy = OverlapReject
	}

	countMode := cfg.CountMode
	if countMode == "" {
		countMode = CountModeFetched
	}

	// Initialize logger
	logger := log.With().Str("component", "loadmore").Logger()

	c := &Controller[T]{
		fetcher:    cfg.Fetcher,
		items:      items,
		dispatcher: dispatcher,
		policy:     policy,
		countMode:  countMode,
		pageSize:   cfg.PageSize,
		logger:     logger,
		loading:    observable.NewValue(false),
		hasMore:    observable.NewValue(true),
	}
	return c, nil
}

// loadKey is the singleflight key; one controller is one logical flight.
const loadKey = "load"

// LoadMore fetches the next page and merges it into the bound sequence.
// It blocks until the load settles and reports the resulting count.
//
// requestedCount is informational passthrough from the host view (the
// count it believes exists before this call) and only feeds the returned
// CountAfterOperation.
//
// Fetch failures are returned exactly as the fetcher produced them, after
// the loading flag has been reset. Under OverlapReject an overlapping call
// fails with ErrLoadInFlight; under OverlapCoalesce it joins the running
// load and shares the winning call's context, result, and error.
func (c *Controller[T]) LoadMore(ctx context.Context, requestedCount uint32) (LoadResult, error) {
	if c.policy == OverlapCoalesce {
		v, err, _ := c.group.Do(loadKey, func() (any, error) {
			return c.load(ctx, requestedCount)
		})
		res, _ := v.(LoadResult)
		return res, err
	}

	if !c.inflight.CompareAndSwap(false, true) {
		loadsTotal.WithLabelValues("rejected").Inc()
		c.logger.Warn().
			Int("page_index", c.PageIndex()).
			Msg("Overlapping load rejected")
		return LoadResult{}, ErrLoadInFlight
	}
	defer c.inflight.Store(false)

	return c.load(ctx, requestedCount)
}

// load runs one exclusive load. Callers hold the overlap guard.
func (c *Controller[T]) load(ctx context.Context, requestedCount uint32) (LoadResult, error) {
	startTime := time.Now()
	loadsInFlight.Inc()
	defer func() {
		loadsInFlight.Dec()
		loadDuration.Observe(time.Since(startTime).Seconds())
	}()

	pageIndex := c.PageIndex()

	// Step 1: Raise the loading flag on the binding context.
	if err := c.dispatcher.Invoke(ctx, func() { c.loading.Set(true) }); err != nil {
		loadsTotal.WithLabelValues("error").Inc()
		return LoadResult{}, &LoadError{PageIndex: pageIndex, PageSize: c.pageSize, Err: err}
	}

	// The flag must drop on every exit path, the failure path included.
	// Cleanup ignores the caller's cancellation so a cancelled fetch
	// cannot strand the flag.
	defer func() {
		if err := c.dispatcher.Invoke(context.WithoutCancel(ctx), func() { c.loading.Set(false) }); err != nil {
			c.logger.Error().Err(err).Msg("Failed to reset loading flag")
		}
	}()

	// Step 2: Fetch the next page.
	c.logger.Debug().
		Int("page_index", pageIndex).
		Int("page_size", c.pageSize).
		Uint32("requested", requestedCount).
		Msg("Fetching page")

	items, err := c.fetcher.FetchPage(ctx, pageIndex, c.pageSize)
	if err != nil {
		loadsTotal.WithLabelValues("error").Inc()
		c.logger.Error().
			Err(err).
			Int("page_index", pageIndex).
			Msg("Page fetch failed")
		// Propagate untouched; the sequence and cursor are unchanged.
		return LoadResult{}, err
	}

	// Step 3: Empty page means the source is exhausted.
	if len(items) == 0 {
		if err := c.dispatcher.Invoke(ctx, func() { c.hasMore.Set(false) }); err != nil {
			loadsTotal.WithLabelValues("error").Inc()
			return LoadResult{}, &LoadError{PageIndex: pageIndex, PageSize: c.pageSize, Err: err}
		}
		loadsTotal.WithLabelValues("empty").Inc()
		c.logger.Info().
			Int("page_index", pageIndex).
			Msg("Source exhausted")
		return LoadResult{CountAfterOperation: requestedCount}, nil
	}

	// Step 4: Merge into the sequence on the binding context, in fetch
	// order, one change notification per item.
	if err := c.dispatcher.Invoke(ctx, func() { c.items.AppendAll(items...) }); err != nil {
		loadsTotal.WithLabelValues("error").Inc()
		return LoadResult{}, &LoadError{PageIndex: pageIndex, PageSize: c.pageSize, Err: err}
	}

	// Step 5: Advance the cursor, only now that items are committed.
	c.pageIndex.Add(1)

	loadsTotal.WithLabelValues("success").Inc()
	itemsLoadedTotal.Add(float64(len(items)))
	c.logger.Debug().
		Int("page_index", pageIndex).
		Int("fetched", len(items)).
		Int("length", c.items.Len()).
		Msg("Page merged")

	return LoadResult{CountAfterOperation: c.count(requestedCount, len(items))}, nil
}

// count computes CountAfterOperation for a non-empty load.
func (c *Controller[T]) count(requestedCount uint32, fetched int) uint32 {
	if c.countMode == CountModeLegacy {
		return requestedCount + uint32(c.items.Len()) - 1
	}
	return requestedCount + uint32(fetched)
}

// PageIndex returns the next page to fetch. It advances only after a
// successful, non-empty load.
func (c *Controller[T]) PageIndex() int {
	return int(c.pageIndex.Load())
}

// PageSize returns the fixed page size.
func (c *Controller[T]) PageSize() int {
	return c.pageSize
}

// IsLoading reports whether a load is currently between start and settle.
func (c *Controller[T]) IsLoading() bool {
	return c.loading.Get()
}

// HasMoreItems reports whether the source may still have unfetched pages.
func (c *Controller[T]) HasMoreItems() bool {
	return c.hasMore.Get()
}

// Items returns the bound sequence.
func (c *Controller[T]) Items() *observable.List[T] {
	return c.items
}

// Loading exposes the loading flag for data binding.
func (c *Controller[T]) Loading() *observable.Value[bool] {
	return c.loading
}

// HasMore exposes the has-more flag for data binding.
func (c *Controller[T]) HasMore() *observable.Value[bool] {
	return c.hasMore
}
