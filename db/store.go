// ABOUTME: Collection store holding the client and deal collections in a kv.Store
// ABOUTME: Handles one-time seeding and reset to fixtures; not safe for concurrent use on its own
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LautaroSnchz/kion-crm/kv"
	"github.com/LautaroSnchz/kion-crm/models"
)

// Store serializes the two collections to their keys. Callers that share a
// Store across goroutines go through Repository, which serializes access.
type Store struct {
	kv    kv.Store
	newID IDFunc
	now   func() time.Time
}

func NewStore(store kv.Store, newID IDFunc, now func() time.Time) *Store {
	if newID == nil {
		newID = NewULIDGenerator()
	}
	if now == nil {
		now = time.Now
	}
	return &Store{kv: store, newID: newID, now: now}
}

// KV exposes the underlying slot store.
func (s *Store) KV() kv.Store {
	return s.kv
}

// Initialized reports whether the sentinel key is present.
func (s *Store) Initialized(ctx context.Context) (bool, error) {
	_, err := s.kv.Get(ctx, KeyInitialized)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", KeyInitialized, err)
	}
	return true, nil
}

// Initialize seeds both collections with fixtures the first time it runs.
// It reports whether seeding happened. Stored records are never migrated.
func (s *Store) Initialize(ctx context.Context) (bool, error) {
	ok, err := s.Initialized(ctx)
	if err != nil || ok {
		return false, err
	}
	if err := s.writeFixtures(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Reset overwrites both collections with the fixtures.
func (s *Store) Reset(ctx context.Context) error {
	return s.writeFixtures(ctx)
}

func (s *Store) writeFixtures(ctx context.Context) error {
	clients, deals, err := Fixtures()
	if err != nil {
		return err
	}
	if err := clientsCollection.save(ctx, s.kv, clients); err != nil {
		return err
	}
	if err := dealsCollection.save(ctx, s.kv, deals); err != nil {
		return err
	}
	if err := s.kv.Set(ctx, KeyInitialized, []byte("true")); err != nil {
		return fmt.Errorf("failed to write %s: %w", KeyInitialized, err)
	}
	return nil
}

func (s *Store) today() models.Date {
	return models.NewDate(s.now())
}
