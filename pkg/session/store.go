package session

import (
	"log"
	"sync"
	"time"
)

// Key identifies one conversation slot: the chat the dialog happens in plus
// the external (Telegram) user id. The registration and report machines each
// own an independent Store, so the same Key may be live in both at once but
// never twice within one.
type Key struct {
	ChatID int64
	UserID int64
}

type entry[T any] struct {
	value     T
	updatedAt time.Time
	ttl       time.Duration

	// gen invalidates the eviction timer of a superseded entry: a timer that
	// fires after Put refreshed the slot sees a newer generation and backs off.
	gen   uint64
	timer *time.Timer
}

// Store is a process-wide keyed session table with per-entry TTL eviction.
// Expiry is enforced twice: lazily on Get and actively by a timer scheduled
// on every Put. Safe for concurrent use from handlers of different keys.
type Store[T any] struct {
	mu      sync.Mutex
	entries map[Key]*entry[T]
	nextGen uint64

	// onClear runs (outside the lock) whenever a key is evicted or explicitly
	// cleared; a Put refreshing the slot does not count as teardown. It is the
	// single hook through which session teardown resets attempt records.
	onClear func(Key)

	now func() time.Time
}

// Option configures a Store.
type Option[T any] func(*Store[T])

// WithOnClear registers the teardown hook invoked after a key is evicted or
// cleared.
func WithOnClear[T any](fn func(Key)) Option[T] {
	return func(s *Store[T]) { s.onClear = fn }
}

// WithClock overrides the time source, for tests.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(s *Store[T]) { s.now = now }
}

func NewStore[T any](opts ...Option[T]) *Store[T] {
	s := &Store[T]{
		entries: make(map[Key]*entry[T]),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the live session for key. An entry whose TTL has elapsed is
// treated as absent and evicted on the spot, so lazy expiry observes exactly
// what the eviction timer would have produced.
func (s *Store[T]) Get(key Key) (T, bool) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		var zero T
		return zero, false
	}
	if s.now().Sub(e.updatedAt) >= e.ttl {
		s.removeLocked(key, e)
		s.mu.Unlock()
		s.fireOnClear(key)
		var zero T
		return zero, false
	}
	v := e.value
	s.mu.Unlock()
	return v, true
}

// Put stores or refreshes the session for key and (re)schedules its eviction
// timer, cancelling any timer belonging to the previous entry.
func (s *Store[T]) Put(key Key, value T, ttl time.Duration) {
	s.mu.Lock()
	if prev, ok := s.entries[key]; ok && prev.timer != nil {
		prev.timer.Stop()
	}
	s.nextGen++
	e := &entry[T]{
		value:     value,
		updatedAt: s.now(),
		ttl:       ttl,
		gen:       s.nextGen,
	}
	s.entries[key] = e
	gen := e.gen
	e.timer = time.AfterFunc(ttl, func() {
		s.expire(key, gen)
	})
	s.mu.Unlock()
}

// Clear removes the session for key, cancelling its timer. Clearing an absent
// key is a no-op; the onClear hook still runs so that attempt records tied to
// the key cannot outlive an explicit teardown.
func (s *Store[T]) Clear(key Key) {
	s.mu.Lock()
	if e, ok := s.entries[key]; ok {
		s.removeLocked(key, e)
	}
	s.mu.Unlock()
	s.fireOnClear(key)
}

// Len reports the number of live (non-expired) sessions.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	now := s.now()
	for _, e := range s.entries {
		if now.Sub(e.updatedAt) < e.ttl {
			n++
		}
	}
	return n
}

// expire is the timer callback. The generation check makes it a no-op when the
// entry was refreshed or replaced after this timer was scheduled.
func (s *Store[T]) expire(key Key, gen uint64) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok || e.gen != gen {
		s.mu.Unlock()
		return
	}
	s.removeLocked(key, e)
	s.mu.Unlock()
	log.Printf("[session] expired session for chat %d user %d", key.ChatID, key.UserID)
	s.fireOnClear(key)
}

func (s *Store[T]) removeLocked(key Key, e *entry[T]) {
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(s.entries, key)
}

func (s *Store[T]) fireOnClear(key Key) {
	if s.onClear != nil {
		s.onClear(key)
	}
}
