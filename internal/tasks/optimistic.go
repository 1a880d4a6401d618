package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/persona/internal/shared"
)

// Optimistic holds locally displayed values that can be changed ahead of the server.
//
// A mutation applies its change immediately, then commits it. On success the value is
// kept, or replaced by the authoritative value when commit returns one. On failure the
// value captured before the change is restored. While a key has a mutation pending,
// further mutations of that key are rejected.
type Optimistic[K comparable, V any] struct {
	mu      sync.Mutex
	values  map[K]V
	pending map[K]struct{}
}

// NewOptimistic creates an empty store.
func NewOptimistic[K comparable, V any]() *Optimistic[K, V] {
	return &Optimistic[K, V]{
		values:  make(map[K]V),
		pending: make(map[K]struct{}),
	}
}

// Get returns the currently displayed value for key.
func (o *Optimistic[K, V]) Get(key K) (V, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.values[key]
	return v, ok
}

// Set replaces the value for key with one known to match the server.
//
// It is ignored while a mutation of key is pending, so a refresh cannot clobber an optimistic change.
func (o *Optimistic[K, V]) Set(key K, value V) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.pending[key]; busy {
		return false
	}
	o.values[key] = value
	return true
}

// Pending reports whether a mutation of key is in flight.
func (o *Optimistic[K, V]) Pending(key K) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, busy := o.pending[key]
	return busy
}

// Mutate applies apply to the value of key, then runs commit.
//
// It returns the value left displayed afterwards. A rejected or failed mutation returns
// the restored value together with the error.
func (o *Optimistic[K, V]) Mutate(ctx context.Context, key K, apply func(V) V, commit func(context.Context) (*V, error)) (V, error) {
	o.mu.Lock()
	if _, busy := o.pending[key]; busy {
		current := o.values[key]
		o.mu.Unlock()
		return current, fmt.Errorf("%w: %v", shared.ErrMutationInFlight, key)
	}

	previous, existed := o.values[key]
	o.values[key] = apply(previous)
	o.pending[key] = struct{}{}
	o.mu.Unlock()

	authoritative, err := commit(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.pending, key)

	if err != nil {
		if existed {
			o.values[key] = previous
		} else {
			delete(o.values, key)
		}
		return previous, err
	}

	if authoritative != nil {
		o.values[key] = *authoritative
	}
	return o.values[key], nil
}
