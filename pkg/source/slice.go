package source

import (
	"context"

	"github.com/samber/lo"
)

// Slice serves pages from an in-memory slice. It never fails and returns an
// empty batch once the window moves past the end of the data.
//
// The slice is not copied; the caller must not mutate it while the fetcher
// is in use.
type Slice[T any] struct {
	items []T
}

// NewSlice creates a fetcher over the given items.
func NewSlice[T any](items []T) *Slice[T] {
	return &Slice[T]{items: items}
}

// FetchPage returns the pageIndex-th window of pageSize items.
func (s *Slice[T]) FetchPage(_ context.Context, pageIndex, pageSize int) ([]T, error) {
	start := pageIndex * pageSize
	return lo.Slice(s.items, start, start+pageSize), nil
}
