// Package observable provides the observable containers a data-bound view
// binds to: an append-only list and a scalar value. Both notify their
// subscribers synchronously, before the mutating call returns.
package observable

import "sync"

// Change describes a single append to a List.
type Change[T any] struct {
	// Index is the position the item was inserted at.
	Index int

	// Item is the appended item.
	Item T
}

// List is an ordered, observable sequence of items. Every append notifies
// all subscribers before the appending call returns, so a subscriber can
// already read the new item through At or Len from inside its callback.
//
// Reads are safe under concurrent access. Appends are expected to be
// confined to a single binding context (see pkg/dispatch); the internal
// lock keeps the data consistent either way.
type List[T any] struct {
	mu        sync.RWMutex
	items     []T
	observers map[int]func(Change[T])
	nextID    int
}

// NewList creates a List, optionally pre-seeded with initial items.
// Seeding raises no notifications.
func NewList[T any](initial ...T) *List[T] {
	l := &List[T]{
		items:     make([]T, len(initial)),
		observers: make(map[int]func(Change[T])),
	}
	copy(l.items, initial)
	return l
}

// Append adds item to the end of the list and notifies subscribers on the
// calling goroutine. Callbacks run outside the internal lock, so they may
// re-enter the list.
func (l *List[T]) Append(item T) {
	l.mu.Lock()
	index := len(l.items)
	l.items = append(l.items, item)
	subs := l.snapshotObservers()
	l.mu.Unlock()

	change := Change[T]{Index: index, Item: item}
	for _, fn := range subs {
		fn(change)
	}
}

// AppendAll appends items in argument order, raising one notification per
// item. List-control binding protocols consume per-item change events, so
// there is no batch event form.
func (l *List[T]) AppendAll(items ...T) {
	for _, item := range items {
		l.Append(item)
	}
}

// Len returns the number of items in the list.
func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// At returns the item at index i. It panics if i is out of range, mirroring
// slice indexing.
func (l *List[T]) At(i int) T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.items[i]
}

// Items returns a copy of the current contents.
func (l *List[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Subscribe registers fn to be called for every future append. The returned
// function removes the subscription.
func (l *List[T]) Subscribe(fn func(Change[T])) func() {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.observers[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.observers, id)
		l.mu.Unlock()
	}
}

// snapshotObservers copies the observer set. Caller must hold mu.
func (l *List[T]) snapshotObservers() []func(Change[T]) {
	subs := make([]func(Change[T]), 0, len(l.observers))
	for _, fn := range l.observers {
		subs = append(subs, fn)
	}
	return subs
}
