// ABOUTME: View-local state over the repository for interactive surfaces
// ABOUTME: Loads with a short artificial delay and merges mutation results optimistically
package live

import (
	"context"
	"sync"
	"time"

	"github.com/LautaroSnchz/kion-crm/db"
)

// DefaultLoadDelay drives the loading indicator on first render.
const DefaultLoadDelay = 300 * time.Millisecond

type Option func(*config)

type config struct {
	delay time.Duration
}

func WithLoadDelay(d time.Duration) Option {
	return func(c *config) { c.delay = d }
}

func newConfig(opts []Option) config {
	c := config{delay: DefaultLoadDelay}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Subscriber is the event side of the repository.
type Subscriber interface {
	Subscribe(fn func(db.Event)) (cancel func())
}

// state holds one collection's local copy.
type state[T any] struct {
	id func(*T) string

	mu      sync.RWMutex
	items   []T
	loading bool
	err     error
}

func (s *state[T]) snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]T(nil), s.items...)
}

func (s *state[T]) setLoading() {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
}

func (s *state[T]) finish(items []T, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.err = err
	if err == nil {
		s.items = items
	}
}

func (s *state[T]) isLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *state[T]) lastErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// upsert replaces the item with the same id or appends it.
func (s *state[T]) upsert(item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id(&item)
	for i := range s.items {
		if s.id(&s.items[i]) == id {
			s.items[i] = item
			return
		}
	}
	s.items = append(s.items, item)
}

func (s *state[T]) drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.items[:0]
	for _, it := range s.items {
		if s.id(&it) != id {
			out = append(out, it)
		}
	}
	s.items = out
}

func (s *state[T]) filter(keep func(*T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []T
	for i := range s.items {
		if keep(&s.items[i]) {
			out = append(out, s.items[i])
		}
	}
	return out
}

// wait sleeps for d unless ctx ends first.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// follow reloads on events that touch collection and then calls notify.
func follow(sub Subscriber, collection string, reload func() error, notify func(error)) func() {
	return sub.Subscribe(func(ev db.Event) {
		if ev.Collection != "" && ev.Collection != collection {
			return
		}
		err := reload()
		if notify != nil {
			notify(err)
		}
	})
}
