// Package guard enforces that at most one session is in flight per process.
// Two sessions spending from the same funding address at once would race on
// ledger sequence numbers, so a second request is rejected rather than queued.
package guard

import (
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrBusy is returned when another session already holds the guard.
var ErrBusy = errors.New("a session is already in progress")

// Guard is a single-slot, non-blocking semaphore.
type Guard struct {
	sem *semaphore.Weighted
}

// New returns an unheld guard.
func New() *Guard {
	return &Guard{sem: semaphore.NewWeighted(1)}
}

// TryAcquire takes the slot without blocking. The returned release func is
// safe to call more than once; only the first call frees the slot.
func (g *Guard) TryAcquire() (release func(), err error) {
	if !g.sem.TryAcquire(1) {
		return nil, ErrBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() { g.sem.Release(1) })
	}, nil
}

// Busy reports whether the slot is currently held. The answer can be stale
// by the time the caller acts on it; use TryAcquire to actually claim it.
func (g *Guard) Busy() bool {
	if !g.sem.TryAcquire(1) {
		return true
	}
	g.sem.Release(1)
	return false
}
