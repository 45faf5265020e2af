// ABOUTME: Single in-process owner of the collection store
// ABOUTME: Serializes every operation, records metrics and notifies subscribers after commits
package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/LautaroSnchz/kion-crm/kv"
	"github.com/LautaroSnchz/kion-crm/models"
	"go.uber.org/zap"
)

// ErrUnsupported is returned when the backend lacks an optional capability.
var ErrUnsupported = errors.New("not supported by this storage backend")

// Metrics receives operation outcomes. The metrics package provides a
// Prometheus implementation.
type Metrics interface {
	ObserveOperation(op string, d time.Duration, err error)
	SetRecords(collection string, n int)
	IncEvent(kind string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveOperation(string, time.Duration, error) {}
func (nopMetrics) SetRecords(string, int)                        {}
func (nopMetrics) IncEvent(string)                               {}

type Option func(*Repository)

func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(r *Repository) {
		if m != nil {
			r.metrics = m
		}
	}
}

func WithIDFunc(fn IDFunc) Option {
	return func(r *Repository) { r.newID = fn }
}

func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

type Repository struct {
	mu      sync.Mutex
	store   *Store
	logger  *zap.Logger
	metrics Metrics
	subs    subscribers

	newID IDFunc
	now   func() time.Time
}

func NewRepository(store kv.Store, opts ...Option) *Repository {
	r := &Repository{
		logger:  zap.NewNop(),
		metrics: nopMetrics{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.store = NewStore(store, r.newID, r.now)
	return r
}

// Subscribe registers fn for every committed change. fn runs on the
// goroutine that made the change, after the repository lock is released.
func (r *Repository) Subscribe(fn func(Event)) (cancel func()) {
	return r.subs.add(fn)
}

func (r *Repository) publish(ev Event) {
	r.metrics.IncEvent(ev.Kind.String())
	r.logger.Debug("repository event",
		zap.Stringer("kind", ev.Kind),
		zap.String("collection", ev.Collection),
		zap.String("id", ev.ID))
	r.subs.publish(ev)
}

// run holds the lock for one operation and records its outcome.
func (r *Repository) run(op string, fn func() error) error {
	start := time.Now()
	r.mu.Lock()
	err := fn()
	r.mu.Unlock()

	r.metrics.ObserveOperation(op, time.Since(start), err)
	if err != nil {
		r.logger.Warn("repository operation failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

// KV exposes the underlying slot store for session and theme records.
func (r *Repository) KV() kv.Store {
	return r.store.KV()
}

func (r *Repository) Initialized(ctx context.Context) (bool, error) {
	var ok bool
	err := r.run("initialized", func() error {
		var err error
		ok, err = r.store.Initialized(ctx)
		return err
	})
	return ok, err
}

func (r *Repository) Initialize(ctx context.Context) error {
	var seeded bool
	err := r.run("initialize", func() error {
		var err error
		seeded, err = r.store.Initialize(ctx)
		return err
	})
	if err != nil {
		return err
	}
	if seeded {
		r.logger.Info("seeded store with fixtures")
		r.publish(Event{Kind: EventSeeded})
	}
	return nil
}

// Reset rewrites both collections with the fixtures.
func (r *Repository) Reset(ctx context.Context) error {
	if err := r.run("reset", func() error { return r.store.Reset(ctx) }); err != nil {
		return err
	}
	r.publish(Event{Kind: EventReset})
	return nil
}

func (r *Repository) ListClients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	err := r.run("list_clients", func() error {
		var err error
		clients, err = r.store.ListClients(ctx)
		return err
	})
	if err == nil {
		r.metrics.SetRecords(CollectionClients, len(clients))
	}
	return clients, err
}

func (r *Repository) GetClient(ctx context.Context, id string) (*models.Client, error) {
	var client *models.Client
	err := r.run("get_client", func() error {
		var err error
		client, err = r.store.GetClient(ctx, id)
		return err
	})
	return client, err
}

func (r *Repository) FindClientByName(ctx context.Context, name string) (*models.Client, error) {
	var client *models.Client
	err := r.run("find_client", func() error {
		var err error
		client, err = r.store.FindClientByName(ctx, name)
		return err
	})
	return client, err
}

func (r *Repository) AddClient(ctx context.Context, in models.ClientInput) (*models.Client, error) {
	var client *models.Client
	err := r.run("add_client", func() error {
		var err error
		client, err = r.store.AddClient(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.publish(Event{Kind: EventAdded, Collection: CollectionClients, ID: client.ID})
	return client, nil
}

func (r *Repository) UpdateClient(ctx context.Context, id string, patch models.ClientPatch) (*models.Client, error) {
	var client *models.Client
	err := r.run("update_client", func() error {
		var err error
		client, err = r.store.UpdateClient(ctx, id, patch)
		return err
	})
	if err != nil || client == nil {
		return client, err
	}
	r.publish(Event{Kind: EventUpdated, Collection: CollectionClients, ID: id})
	return client, nil
}

func (r *Repository) RemoveClient(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := r.run("remove_client", func() error {
		var err error
		removed, err = r.store.RemoveClient(ctx, id)
		return err
	})
	if err != nil || !removed {
		return removed, err
	}
	r.publish(Event{Kind: EventRemoved, Collection: CollectionClients, ID: id})
	return true, nil
}

func (r *Repository) ListDeals(ctx context.Context) ([]models.Deal, error) {
	var deals []models.Deal
	err := r.run("list_deals", func() error {
		var err error
		deals, err = r.store.ListDeals(ctx)
		return err
	})
	if err == nil {
		r.metrics.SetRecords(CollectionDeals, len(deals))
	}
	return deals, err
}

func (r *Repository) GetDeal(ctx context.Context, id string) (*models.Deal, error) {
	var deal *models.Deal
	err := r.run("get_deal", func() error {
		var err error
		deal, err = r.store.GetDeal(ctx, id)
		return err
	})
	return deal, err
}

func (r *Repository) DealsByStage(ctx context.Context, stage models.Stage) ([]models.Deal, error) {
	var deals []models.Deal
	err := r.run("deals_by_stage", func() error {
		var err error
		deals, err = r.store.DealsByStage(ctx, stage)
		return err
	})
	return deals, err
}

func (r *Repository) DealsForClient(ctx context.Context, clientID string) ([]models.Deal, error) {
	var deals []models.Deal
	err := r.run("deals_for_client", func() error {
		var err error
		deals, err = r.store.DealsForClient(ctx, clientID)
		return err
	})
	return deals, err
}

func (r *Repository) AddDeal(ctx context.Context, in models.DealInput) (*models.Deal, error) {
	var deal *models.Deal
	err := r.run("add_deal", func() error {
		var err error
		deal, err = r.store.AddDeal(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.publish(Event{Kind: EventAdded, Collection: CollectionDeals, ID: deal.ID})
	return deal, nil
}

func (r *Repository) UpdateDeal(ctx context.Context, id string, patch models.DealPatch) (*models.Deal, error) {
	var deal *models.Deal
	err := r.run("update_deal", func() error {
		var err error
		deal, err = r.store.UpdateDeal(ctx, id, patch)
		return err
	})
	if err != nil || deal == nil {
		return deal, err
	}
	r.publish(Event{Kind: EventUpdated, Collection: CollectionDeals, ID: id})
	return deal, nil
}

func (r *Repository) MoveDeal(ctx context.Context, id string, stage models.Stage) (*models.Deal, error) {
	var deal *models.Deal
	err := r.run("move_deal", func() error {
		var err error
		deal, err = r.store.MoveDeal(ctx, id, stage)
		return err
	})
	if err != nil || deal == nil {
		return deal, err
	}
	r.publish(Event{Kind: EventUpdated, Collection: CollectionDeals, ID: id})
	return deal, nil
}

func (r *Repository) RemoveDeal(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := r.run("remove_deal", func() error {
		var err error
		removed, err = r.store.RemoveDeal(ctx, id)
		return err
	})
	if err != nil || !removed {
		return removed, err
	}
	r.publish(Event{Kind: EventRemoved, Collection: CollectionDeals, ID: id})
	return true, nil
}

// Keys lists every key in the backing store.
func (r *Repository) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.run("keys", func() error {
		var err error
		keys, err = r.store.KV().Keys(ctx)
		return err
	})
	return keys, err
}

// Sync pulls and pushes remote changes when the backend is replicated.
func (r *Repository) Sync(ctx context.Context) error {
	syncer, ok := r.store.KV().(kv.Syncer)
	if !ok {
		return fmt.Errorf("sync: %w", ErrUnsupported)
	}
	if err := r.run("sync", func() error { return syncer.Sync(ctx) }); err != nil {
		return err
	}
	r.publish(Event{Kind: EventExternal})
	return nil
}

// Wipe deletes every key, including the seed sentinel, session and theme.
func (r *Repository) Wipe(ctx context.Context) error {
	resetter, ok := r.store.KV().(kv.Resetter)
	if !ok {
		return fmt.Errorf("wipe: %w", ErrUnsupported)
	}
	if err := r.run("wipe", func() error { return resetter.Reset(ctx) }); err != nil {
		return err
	}
	r.publish(Event{Kind: EventReset})
	return nil
}

// WatchExternal publishes EventExternal for every change another process
// makes to the store, until ctx is cancelled. Concurrent writers are not
// merged: the last write wins.
func (r *Repository) WatchExternal(ctx context.Context) error {
	watcher, ok := r.store.KV().(kv.Watcher)
	if !ok {
		return fmt.Errorf("watch: %w", ErrUnsupported)
	}
	changes, err := watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	for key := range changes {
		r.publish(Event{Kind: EventExternal, Collection: collectionForKey(key)})
	}
	return nil
}
