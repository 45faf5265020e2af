// ABOUTME: Generic JSON collection persisted under a single key
// ABOUTME: Every mutation is a full read-modify-write of the ordered array
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/LautaroSnchz/kion-crm/kv"
	"github.com/LautaroSnchz/kion-crm/models"
)

// Storage keys.
const (
	KeyClients     = "kioncrm_clients"
	KeyDeals       = "kioncrm_deals"
	KeyInitialized = "kioncrm_initialized"
)

type collection[T any] struct {
	key string
	id  func(*T) string
}

// load returns the stored records in order. A missing key is an empty collection.
func (c collection[T]) load(ctx context.Context, store kv.Store) ([]T, error) {
	data, err := store.Get(ctx, c.key)
	if errors.Is(err, kv.ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.key, err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, c.key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c collection[T]) save(ctx context.Context, store kv.Store, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", c.key, err)
	}
	if err := store.Set(ctx, c.key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.key, err)
	}
	return nil
}

func (c collection[T]) find(items []T, id string) int {
	for i := range items {
		if c.id(&items[i]) == id {
			return i
		}
	}
	return -1
}

// update applies fn to the record with id and persists. Returns nil when absent.
func (c collection[T]) update(ctx context.Context, store kv.Store, id string, fn func(*T) error) (*T, error) {
	items, err := c.load(ctx, store)
	if err != nil {
		return nil, err
	}
	i := c.find(items, id)
	if i < 0 {
		return nil, nil
	}
	if err := fn(&items[i]); err != nil {
		return nil, err
	}
	if err := c.save(ctx, store, items); err != nil {
		return nil, err
	}
	updated := items[i]
	return &updated, nil
}

// remove filters out id and persists. Reports whether anything was removed.
func (c collection[T]) remove(ctx context.Context, store kv.Store, id string) (bool, error) {
	items, err := c.load(ctx, store)
	if err != nil {
		return false, err
	}
	i := c.find(items, id)
	if i < 0 {
		return false, nil
	}
	items = append(items[:i], items[i+1:]...)
	if err := c.save(ctx, store, items); err != nil {
		return false, err
	}
	return true, nil
}

var (
	clientsCollection = collection[models.Client]{key: KeyClients, id: func(c *models.Client) string { return c.ID }}
	dealsCollection   = collection[models.Deal]{key: KeyDeals, id: func(d *models.Deal) string { return d.ID }}
)
