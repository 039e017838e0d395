package guard

import (
	"log"
	"sync"
	"time"

	"fieldreportbot/pkg/session"
)

const (
	// DefaultMaxAttempts is the failed-code ceiling after which a key is
	// locked out.
	DefaultMaxAttempts = 3
	// DefaultLockout is the soft lockout window applied once the ceiling is
	// reached.
	DefaultLockout = 15 * time.Minute
)

// AttemptRecord tracks consecutive failed code checks for one key.
type AttemptRecord struct {
	Count        int
	BlockedUntil time.Time
}

// AbuseGuard counts failed one-time-code attempts per session key and applies
// a time-based lockout once the ceiling is reached. The lockout lifts by
// itself; no external signal is needed.
type AbuseGuard struct {
	mu          sync.Mutex
	attempts    map[session.Key]*AttemptRecord
	maxAttempts int
	lockout     time.Duration
	now         func() time.Time
}

type Option func(*AbuseGuard)

// WithLimits overrides the attempt ceiling and lockout window.
func WithLimits(maxAttempts int, lockout time.Duration) Option {
	return func(g *AbuseGuard) {
		g.maxAttempts = maxAttempts
		g.lockout = lockout
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *AbuseGuard) { g.now = now }
}

func New(opts ...Option) *AbuseGuard {
	g := &AbuseGuard{
		attempts:    make(map[session.Key]*AttemptRecord),
		maxAttempts: DefaultMaxAttempts,
		lockout:     DefaultLockout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RecordFailure increments the failure count for key and, once the count
// reaches the ceiling, arms the lockout window. The updated record is
// returned so the caller can tell the user when the lockout lifts.
func (g *AbuseGuard) RecordFailure(key session.Key) AttemptRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.attempts[key]
	if !ok {
		rec = &AttemptRecord{}
		g.attempts[key] = rec
	}
	rec.Count++
	if rec.Count >= g.maxAttempts && rec.BlockedUntil.IsZero() {
		rec.BlockedUntil = g.now().Add(g.lockout)
		log.Printf("[guard] chat %d user %d locked out until %s after %d failed attempts",
			key.ChatID, key.UserID, rec.BlockedUntil.Format(time.RFC3339), rec.Count)
	}
	return *rec
}

// IsBlocked reports whether key is inside an active lockout window and how
// long remains of it.
func (g *AbuseGuard) IsBlocked(key session.Key) (bool, time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.attempts[key]
	if !ok || rec.BlockedUntil.IsZero() {
		return false, 0
	}
	remaining := rec.BlockedUntil.Sub(g.now())
	if remaining <= 0 {
		// Window elapsed: the slate is clean again.
		delete(g.attempts, key)
		return false, 0
	}
	return true, remaining
}

// Reset clears the attempt record for key. Idempotent. A still-active lockout
// is deliberately preserved: restarting the flow must not shortcut a
// time-based block.
func (g *AbuseGuard) Reset(key session.Key) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.attempts[key]
	if !ok {
		return
	}
	if !rec.BlockedUntil.IsZero() && rec.BlockedUntil.After(g.now()) {
		rec.Count = 0
		return
	}
	delete(g.attempts, key)
}

// AttemptsLeft reports how many failures remain before rec reaches the ceiling.
func (g *AbuseGuard) AttemptsLeft(rec AttemptRecord) int {
	left := g.maxAttempts - rec.Count
	if left < 0 {
		return 0
	}
	return left
}

// ActiveLockouts reports how many keys are currently inside a lockout window.
func (g *AbuseGuard) ActiveLockouts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	now := g.now()
	for _, rec := range g.attempts {
		if rec.BlockedUntil.After(now) {
			n++
		}
	}
	return n
}
