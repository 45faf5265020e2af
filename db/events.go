// ABOUTME: Change notifications published by the Repository
// ABOUTME: Subscribers replace polling: views reload when an event arrives
package db

import "sync"

type EventKind int

const (
	EventAdded EventKind = iota + 1
	EventUpdated
	EventRemoved
	EventSeeded
	EventReset
	EventExternal
)

func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventUpdated:
		return "updated"
	case EventRemoved:
		return "removed"
	case EventSeeded:
		return "seeded"
	case EventReset:
		return "reset"
	case EventExternal:
		return "external"
	}
	return "unknown"
}

// Collection names carried by events.
const (
	CollectionClients = "clients"
	CollectionDeals   = "deals"
)

// Event describes one committed change. Collection and ID are empty for
// events that touch everything (seed, reset).
type Event struct {
	Kind       EventKind
	Collection string
	ID         string
}

type subscribers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(Event)
}

func (s *subscribers) add(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(Event))
	}
	id := s.next
	s.next++
	s.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		})
	}
}

func (s *subscribers) publish(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func collectionForKey(key string) string {
	switch key {
	case KeyClients:
		return CollectionClients
	case KeyDeals:
		return CollectionDeals
	}
	return ""
}
