package engine

import "sync"

// ownerLocks provides logical locks scoped to an owner id.
//
// Operations against different owners proceed fully in parallel; operations
// against the same owner serialize their read-modify-write sequences. The
// conditional writes in the store remain the last line of defense - the
// lock exists to avoid wasted conflicting work, not to guarantee
// correctness on its own.
//
// Locks are created on first use and never released; the owner population
// is bounded by the facility's schedules and monitors.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the owner's mutex and returns the unlock function.
func (l *ownerLocks) acquire(ownerID string) func() {
	l.mu.Lock()
	m, ok := l.locks[ownerID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[ownerID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
