package loadmore

import "context"

// PageFetcher retrieves one page of items from an external data source.
//
// FetchPage returns the items of the requested page, an empty batch when
// the page lies past the end of the data, or an error. A non-nil error
// means no items; any batch returned alongside it is ignored. The
// controller assumes repeated calls with the same arguments behave
// consistently; it cannot enforce this.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, pageIndex, pageSize int) ([]T, error)
}

// FetchFunc adapts a plain function to the PageFetcher interface.
type FetchFunc[T any] func(ctx context.Context, pageIndex, pageSize int) ([]T, error)

// FetchPage calls f.
func (f FetchFunc[T]) FetchPage(ctx context.Context, pageIndex, pageSize int) ([]T, error) {
	return f(ctx, pageIndex, pageSize)
}
