package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Command classes gated by the limiter.
const (
	ClassBuy    = "buy"
	ClassUnlock = "unlock"
)

type key struct {
	userID       int64
	commandClass string
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter admits at most one command per (user, command class) per window.
// It is an in-memory gate: losing its state on restart only resets
// throttling, never correctness.
type Limiter struct {
	mu        sync.Mutex
	entries   map[key]*entry
	window    time.Duration
	lastSweep time.Time
}

func New(window time.Duration) *Limiter {
	return &Limiter{
		entries:   make(map[key]*entry),
		window:    window,
		lastSweep: time.Now(),
	}
}

// Allow reports whether the user may run the command class at the given
// time, consuming the slot if so. It never blocks.
func (l *Limiter) Allow(userID int64, commandClass string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)

	k := key{userID: userID, commandClass: commandClass}
	e, exists := l.entries[k]
	if !exists {
		e = &entry{limiter: rate.NewLimiter(rate.Every(l.window), 1)}
		l.entries[k] = e
	}

	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Window returns the configured minimum interval between admissions.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// Len returns the number of tracked keys; used by tests and debugging.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// sweepLocked drops keys idle for longer than the window. Run lazily on
// access, at most once per window, so the map stays bounded without a
// background goroutine.
func (l *Limiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now

	for k, e := range l.entries {
		if now.Sub(e.lastSeen) > l.window {
			delete(l.entries, k)
		}
	}
}
