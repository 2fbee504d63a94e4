// Package loadmore provides the paging controller behind a "load more"
// list or grid: it appends pages from an external data source to an
// observable sequence and reports progress back to the host view's
// virtualization protocol.
//
// The controller implements incremental loading with the following features:
//
// - Monotonic page sequencing (the index advances only on a successful, non-empty fetch)
// - Sticky exhaustion (the first empty page clears hasMoreItems, permanently)
// - Bindable isLoading and hasMoreItems flags, notified on every write
// - All sequence mutations and notifications delivered on an injected binding context
// - Explicit overlap handling (reject or coalesce concurrent load requests)
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	// A fetcher maps (pageIndex, pageSize) to one page of items.
//	fetcher := loadmore.FetchFunc[int](func(ctx context.Context, pageIndex, pageSize int) ([]int, error) {
//		return backend.Page(ctx, pageIndex, pageSize)
//	})
//
//	ctrl, err := loadmore.New(loadmore.DefaultConfig[int](fetcher, 25))
//	if err != nil {
//		return err
//	}
//
//	// The host view calls LoadMore when it wants more data.
//	res, err := ctrl.LoadMore(ctx, requestedCount)
//	if err != nil {
//		// Fetch failures arrive here exactly as the fetcher returned them.
//	}
//	_ = res.CountAfterOperation
//
// # Data Binding
//
//	items := ctrl.Items()       // *observable.List[int], append events per item
//	loading := ctrl.Loading()   // *observable.Value[bool] for a progress indicator
//	more := ctrl.HasMore()      // *observable.Value[bool] for the trigger's enabled state
//
//	unsubscribe := items.Subscribe(func(c observable.Change[int]) {
//		view.InsertItem(c.Index, c.Item)
//	})
//	defer unsubscribe()
//
// When the host view is thread-affine, pass a dispatch.Serial as
// Config.Dispatcher; every append and flag write is then delivered on that
// dispatcher's goroutine. LoadMore itself blocks and must not be called
// from that goroutine.
//
// # Overlap Policies
//
// A view can fire its trigger again while a load is still running. The
// policy decides what happens:
//
//   - OverlapReject (default): the second call fails fast with
//     ErrLoadInFlight and has no side effects.
//   - OverlapCoalesce: the second call joins the running load and receives
//     the same LoadResult and error; the fetcher runs once.
//
// # Count Modes
//
// LoadResult.CountAfterOperation is computed per the configured CountMode:
// CountModeFetched reports requestedCount plus the items fetched by this
// call; CountModeLegacy reports requestedCount plus the sequence length
// after the merge minus one, for host views built against that contract.
// Empty pages report requestedCount unchanged in both modes.
//
// # Metrics
//
// The controller exports Prometheus metrics:
//
//   - loadmore_loads_total{result} - LoadMore calls by outcome (success, empty, error, rejected)
//   - loadmore_items_loaded_total - Items appended to bound sequences
//   - loadmore_load_duration_seconds - Duration from call to settle
//   - loadmore_loads_in_flight - Loads currently running
//
// # Exhaustion
//
// After the first empty page the controller keeps calling the fetcher with
// the same, un-advanced page index if the host keeps requesting more. It
// does not short-circuit; hosts wanting to skip the round trip consult
// HasMoreItems first.
package loadmore
