package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/spec-kit/helpdesk/internal/persistence"
)

// Keys of the persisted records.
const (
	KeyUsers       = "users"
	KeyTickets     = "tickets"
	KeyCurrentUser = "currentUser"
)

// ErrNotFound is returned when a record id is absent from its collection.
var ErrNotFound = errors.New("repository: record not found")

// ErrDuplicateID is returned when inserting an id that already exists.
var ErrDuplicateID = errors.New("repository: duplicate id")

// collection stores a JSON array under one key. Every write goes through
// mu, so a read-modify-write never interleaves with another writer.
type collection[T any] struct {
	mu    sync.Mutex
	store persistence.KVStore
	key   string
}

func newCollection[T any](store persistence.KVStore, key string) *collection[T] {
	return &collection[T]{store: store, key: key}
}

// load returns the stored items and whether the record exists at all.
func (c *collection[T]) load(ctx context.Context) ([]T, bool, error) {
	raw, err := c.store.Get(ctx, c.key)
	if errors.Is(err, persistence.ErrKeyNotFound) {
		return []T{}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", c.key, err)
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, true, fmt.Errorf("decode %s: %w", c.key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, true, nil
}

func (c *collection[T]) save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	if err := c.store.Set(ctx, c.key, raw); err != nil {
		return fmt.Errorf("save %s: %w", c.key, err)
	}
	return nil
}

// update runs fn against the latest items under the writer lock and saves
// the result when fn succeeds.
func (c *collection[T]) update(ctx context.Context, fn func([]T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, _, err := c.load(ctx)
	if err != nil {
		return err
	}
	next, err := fn(items)
	if err != nil {
		return err
	}
	return c.save(ctx, next)
}

func (c *collection[T]) exists(ctx context.Context) (bool, error) {
	_, ok, err := c.load(ctx)
	return ok, err
}
