// ABOUTME: Persisted light/dark theme preference
// ABOUTME: Falls back to terminal background detection, and notifies subscribers on change
package theme

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/LautaroSnchz/kion-crm/kv"
	"github.com/charmbracelet/lipgloss"
)

// Key is where the theme is stored.
const Key = "theme"

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

func Parse(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case Light:
		return Light, nil
	case Dark:
		return Dark, nil
	}
	return "", fmt.Errorf("invalid theme %q (valid: light, dark)", s)
}

func (t Theme) Opposite() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

type Manager struct {
	store    kv.Store
	detect   func() bool
	fallback Theme

	mu   sync.Mutex
	next int
	subs map[int]func(Theme)
}

func NewManager(store kv.Store) *Manager {
	return &Manager{
		store:  store,
		detect: lipgloss.HasDarkBackground,
		subs:   make(map[int]func(Theme)),
	}
}

// WithDetector replaces terminal background detection, which is used when no
// theme has been stored yet.
func (m *Manager) WithDetector(detect func() bool) *Manager {
	m.detect = detect
	return m
}

// WithInitial sets the theme used while none is stored, in place of terminal
// detection. A stored theme still wins.
func (m *Manager) WithInitial(t Theme) *Manager {
	m.fallback = t
	return m
}

// Current returns the stored theme, else the initial one, else the
// terminal's, else light.
func (m *Manager) Current(ctx context.Context) (Theme, error) {
	data, err := m.store.Get(ctx, Key)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return "", fmt.Errorf("failed to read theme: %w", err)
	}
	if err == nil {
		if t, perr := Parse(string(data)); perr == nil {
			return t, nil
		}
	}
	if m.fallback != "" {
		return m.fallback, nil
	}
	if m.detect != nil && m.detect() {
		return Dark, nil
	}
	return Light, nil
}

// Set persists t and notifies subscribers.
func (m *Manager) Set(ctx context.Context, t Theme) error {
	if _, err := Parse(string(t)); err != nil {
		return err
	}
	if err := m.store.Set(ctx, Key, []byte(t)); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	m.notify(t)
	return nil
}

// Toggle flips between light and dark and returns the new theme.
func (m *Manager) Toggle(ctx context.Context) (Theme, error) {
	cur, err := m.Current(ctx)
	if err != nil {
		return "", err
	}
	next := cur.Opposite()
	return next, m.Set(ctx, next)
}

func (m *Manager) Subscribe(fn func(Theme)) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next
	m.next++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify(t Theme) {
	m.mu.Lock()
	fns := make([]func(Theme), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(t)
	}
}
