// Package reactive provides an observable state container with per-field
// views. Writers mutate the record through Update; watchers are invoked on a
// single dispatcher goroutine per store, one at a time, with the latest
// record. Bursts of updates are coalesced into one notification.
package reactive

import (
	"sort"
	"sync"
)

// Store holds a record of type S and notifies subscribers after it changes.
type Store[S any] struct {
	mu    sync.RWMutex
	state S

	subsMu sync.Mutex
	subs   map[uint64]func(S)
	nextID uint64

	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewStore returns a store seeded with initial and starts its dispatcher.
func NewStore[S any](initial S) *Store[S] {
	s := &Store[S]{
		state:  initial,
		subs:   make(map[uint64]func(S)),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.dispatch()
	return s
}

// Get returns a copy of the current record.
func (s *Store[S]) Get() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Update applies fn to the record under the write lock and schedules a
// notification. fn must not call back into the store.
func (s *Store[S]) Update(fn func(*S)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Subscribe registers fn for change notifications. The returned function
// removes the subscription.
func (s *Store[S]) Subscribe(fn func(S)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	s.subsMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

// Close stops the dispatcher. Pending notifications are dropped.
func (s *Store[S]) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Store[S]) dispatch() {
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
		}

		state := s.Get()
		for _, fn := range s.subscribers() {
			select {
			case <-s.done:
				return
			default:
			}
			fn(state)
		}
	}
}

// subscribers returns callbacks in registration order.
func (s *Store[S]) subscribers() []func(S) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]func(S), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subs[id])
	}
	return out
}
