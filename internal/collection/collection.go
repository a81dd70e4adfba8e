// Package collection manages one ordered, durable sequence of records per
// entity kind. Every mutation is written through to the store before it
// returns.
package collection

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/theo/internal/state"
	"github.com/user/theo/internal/types"
)

// Collection is an insertion-ordered sequence of T persisted under one key.
type Collection[T types.Record[T]] struct {
	key   string
	store *state.Store
	newID types.IDGenerator

	mu    sync.RWMutex
	items []T
}

// Option configures a Collection.
type Option func(*options)

type options struct {
	newID types.IDGenerator
}

// WithIDGenerator overrides the default timestamp id generator.
func WithIDGenerator(gen types.IDGenerator) Option {
	return func(o *options) {
		if gen != nil {
			o.newID = gen
		}
	}
}

// Load reads the sequence stored under key. A missing or undecodable entry
// yields an empty collection.
func Load[T types.Record[T]](ctx context.Context, store *state.Store, key string, opts ...Option) *Collection[T] {
	o := options{newID: types.NewRecordID}
	for _, opt := range opts {
		opt(&o)
	}
	return &Collection[T]{
		key:   key,
		store: store,
		newID: o.newID,
		items: state.Read(ctx, store, key, []T{}),
	}
}

// Key returns the store key backing the collection.
func (c *Collection[T]) Key() string {
	return c.key
}

// stored re-reads the sequence so writes from other processes sharing the
// store are not overwritten. An unreadable entry keeps the in-memory copy.
// The caller holds c.mu.
func (c *Collection[T]) stored(ctx context.Context) []T {
	return state.Read(ctx, c.store, c.key, c.items)
}

// Reload replaces the in-memory sequence with the stored one.
func (c *Collection[T]) Reload(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = c.stored(ctx)
}

// Add stamps draft with a new id, appends it to the stored sequence and
// persists the result. On a persistence failure the store is left as it was
// and the error returned.
func (c *Collection[T]) Add(ctx context.Context, draft T) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.stored(ctx)
	record := draft.WithID(c.newID())
	next := append(current[:len(current):len(current)], record)
	if err := c.store.Write(ctx, c.key, next); err != nil {
		c.items = current
		var zero T
		return zero, fmt.Errorf("persist %s: %w", c.key, err)
	}
	c.items = next
	return record, nil
}

// Remove drops the record with the given id and persists the result.
// An unknown id leaves the sequence unchanged and is not an error.
func (c *Collection[T]) Remove(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.stored(ctx)
	next := make([]T, 0, len(current))
	for _, item := range current {
		if item.RecordID() != id {
			next = append(next, item)
		}
	}
	if err := c.store.Write(ctx, c.key, next); err != nil {
		c.items = current
		return fmt.Errorf("persist %s: %w", c.key, err)
	}
	c.items = next
	return nil
}

// List returns a copy of the sequence in insertion order.
func (c *Collection[T]) List() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Get finds a record by id.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, item := range c.items {
		if item.RecordID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Len returns the number of records.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
