package loadmore

import (
	"errors"
	"fmt"
)

// ErrLoadInFlight is returned by LoadMore under OverlapReject while a
// previous load has not settled yet. The rejected call has no side effects.
var ErrLoadInFlight = errors.New("load already in flight")

// LoadError reports a failure of the controller's own machinery, currently
// only the dispatcher refusing to deliver work during shutdown. Fetch
// failures are never wrapped in a LoadError; LoadMore returns them to the
// caller exactly as the fetcher produced them.
type LoadError struct {
	// PageIndex is the page the failing load was working on.
	PageIndex int

	// PageSize is the controller's fixed page size.
	PageSize int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load page %d (size %d): %v", e.PageIndex, e.PageSize, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *LoadError) Unwrap() error {
	return e.Err
}
