// Package source provides ready-made page fetchers for the loadmore
// controller: in-memory slices, JSON-over-HTTP endpoints, and Redis lists,
// plus a retry decorator that wraps any of them.
package source
