// ABOUTME: Tests for the Repository: event publication, metrics hooks and concurrency
// ABOUTME: Also verifies external change watching on the file backend
package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LautaroSnchz/kion-crm/kv"
	"github.com/LautaroSnchz/kion-crm/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recordedEvents struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordedEvents) add(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordedEvents) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []EventKind
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

type fakeMetrics struct {
	mu      sync.Mutex
	ops     map[string]int
	failed  map[string]int
	records map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{ops: map[string]int{}, failed: map[string]int{}, records: map[string]int{}}
}

func (f *fakeMetrics) ObserveOperation(op string, _ time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops[op]++
	if err != nil {
		f.failed[op]++
	}
}

func (f *fakeMetrics) SetRecords(collection string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[collection] = n
}

func (f *fakeMetrics) IncEvent(string) {}

func TestRepositoryPublishesEvents(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	var rec recordedEvents
	cancel := repo.Subscribe(rec.add)

	require.NoError(t, repo.Initialize(ctx))
	require.NoError(t, repo.Initialize(ctx))

	c, err := repo.AddClient(ctx, models.ClientInput{Name: "Acme", Email: "a@acme.com", Company: "AcmeCo"})
	require.NoError(t, err)
	_, err = repo.UpdateClient(ctx, c.ID, models.ClientPatch{Phone: models.Ptr("555")})
	require.NoError(t, err)

	// Not-found paths publish nothing.
	missing, err := repo.UpdateClient(ctx, "nonexistent-id", models.ClientPatch{Name: models.Ptr("X")})
	require.NoError(t, err)
	assert.Nil(t, missing)
	removed, err := repo.RemoveDeal(ctx, "nonexistent-id")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = repo.MoveDeal(ctx, "1", models.StageProposal)
	require.NoError(t, err)
	removed, err = repo.RemoveClient(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	require.NoError(t, repo.Reset(ctx))

	assert.Equal(t, []EventKind{EventSeeded, EventAdded, EventUpdated, EventUpdated, EventRemoved, EventReset}, rec.kinds())

	cancel()
	cancel()
	_, err = repo.AddClient(ctx, models.ClientInput{Name: "Late"})
	require.NoError(t, err)
	assert.Len(t, rec.kinds(), 6)
}

func TestRepositorySubscriberMayCallBack(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	require.NoError(t, repo.Initialize(ctx))

	var counts []int
	repo.Subscribe(func(ev Event) {
		// Reading from a callback must not deadlock.
		deals, err := repo.ListDeals(ctx)
		require.NoError(t, err)
		counts = append(counts, len(deals))
	})

	_, err := repo.RemoveDeal(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, []int{5}, counts)
}

func TestRepositoryMetrics(t *testing.T) {
	ctx := context.Background()
	m := newFakeMetrics()
	repo := NewRepository(kv.NewMemoryStore(), WithMetrics(m))
	require.NoError(t, repo.Initialize(ctx))

	_, err := repo.ListClients(ctx)
	require.NoError(t, err)
	_, err = repo.AddDeal(ctx, models.DealInput{Title: "x", ClientID: "ghost", Value: 1})
	require.ErrorIs(t, err, ErrClientNotFound)

	assert.Equal(t, 1, m.ops["list_clients"])
	assert.Equal(t, 9, m.records[CollectionClients])
	assert.Equal(t, 1, m.failed["add_deal"])
}

func TestRepositoryConcurrentAdds(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	repo := NewRepository(kv.NewMemoryStore())

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := repo.AddClient(ctx, models.ClientInput{Name: "Concurrent"})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	clients, err := repo.ListClients(ctx)
	require.NoError(t, err)
	assert.Len(t, clients, workers*perWorker)

	ids := make(map[string]bool)
	for _, c := range clients {
		ids[c.ID] = true
	}
	assert.Len(t, ids, workers*perWorker)
}

func TestRepositoryCapabilities(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	assert.ErrorIs(t, repo.Sync(ctx), ErrUnsupported)
	assert.ErrorIs(t, repo.WatchExternal(ctx), ErrUnsupported)

	require.NoError(t, repo.Initialize(ctx))
	require.NoError(t, repo.Wipe(ctx))
	keys, err := repo.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRepositoryWatchExternal(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	ours, err := kv.NewFileStore(dir, nil)
	require.NoError(t, err)
	theirs, err := kv.NewFileStore(dir, nil)
	require.NoError(t, err)

	repo := NewRepository(ours)
	other := NewRepository(theirs)

	got := make(chan Event, 8)
	repo.Subscribe(func(ev Event) {
		if ev.Kind == EventExternal {
			got <- ev
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- repo.WatchExternal(ctx) }()

	// Give the watcher time to register before the other process writes.
	time.Sleep(100 * time.Millisecond)
	_, err = other.AddClient(context.Background(), models.ClientInput{Name: "From another tab"})
	require.NoError(t, err)

	select {
	case ev := <-got:
		assert.Equal(t, CollectionClients, ev.Collection)
	case <-time.After(5 * time.Second):
		t.Fatal("no external event")
	}

	cancel()
	err = <-done
	assert.True(t, err == nil || errors.Is(err, context.Canceled))
}
