// ABOUTME: Charm KV Store synced to a Charm server
// ABOUTME: Auto-sync pushes every write; Sync pulls remote changes on demand
package kv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/charm/client"
	charmkv "github.com/charmbracelet/charm/kv"
	"github.com/dgraph-io/badger/v3"
)

const (
	// DefaultCharmHost is the self-hosted charm server.
	DefaultCharmHost = "charm.2389.dev"

	// CharmDBName names the local charm database.
	CharmDBName = "kion"
)

type CharmStore struct {
	kv       *charmkv.KV
	autoSync bool
	mu       sync.RWMutex
}

func NewCharmStore(host string, autoSync bool) (*CharmStore, error) {
	if host == "" {
		host = DefaultCharmHost
	}
	// Must be set before opening the KV.
	_ = os.Setenv("CHARM_HOST", host)

	db, err := charmkv.OpenWithDefaults(CharmDBName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}

	s := &CharmStore{kv: db, autoSync: autoSync}
	// Pull remote changes on startup.
	if autoSync {
		_ = db.Sync()
	}
	return s, nil
}

// ID returns the charm user ID for this device.
func (c *CharmStore) ID() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.ID()
}

func (c *CharmStore) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, err := c.kv.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return v, err
}

func (c *CharmStore) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.kv.Set([]byte(key), value); err != nil {
		return err
	}
	if c.autoSync {
		_ = c.kv.Sync()
	}
	return nil
}

func (c *CharmStore) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.kv.Delete([]byte(key)); err != nil {
		return err
	}
	if c.autoSync {
		_ = c.kv.Sync()
	}
	return nil
}

func (c *CharmStore) Keys(_ context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	raw, err := c.kv.Keys()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(raw))
	for i, k := range raw {
		keys[i] = string(k)
	}
	return keys, nil
}

func (c *CharmStore) Sync(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Sync()
}

func (c *CharmStore) Reset(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Reset()
}

// Close is a no-op: charm/kv does not expose its badger handle, which is
// released on process exit.
func (c *CharmStore) Close() error {
	return nil
}
