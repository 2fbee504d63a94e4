package observable

import "sync"

// Value is an observable scalar, used for bindable properties such as a
// loading flag. Set notifies on every write, including writes that leave
// the value unchanged, so bindings observe each transition in order.
type Value[T any] struct {
	mu        sync.RWMutex
	v         T
	observers map[int]func(T)
	nextID    int
}

// NewValue creates a Value holding initial. No notification is raised.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{
		v:         initial,
		observers: make(map[int]func(T)),
	}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.v
}

// Set stores next and notifies all subscribers before returning. Equal
// values are not suppressed. Callbacks run on the calling goroutine,
// outside the internal lock.
func (v *Value[T]) Set(next T) {
	v.mu.Lock()
	v.v = next
	subs := make([]func(T), 0, len(v.observers))
	for _, fn := range v.observers {
		subs = append(subs, fn)
	}
	v.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}

// Subscribe registers fn to be called with the value of every future Set.
// The returned function removes the subscription.
func (v *Value[T]) Subscribe(fn func(T)) func() {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.observers[id] = fn
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		delete(v.observers, id)
		v.mu.Unlock()
	}
}
