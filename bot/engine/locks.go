package engine

import "sync"

// identityLocks serializes handling per user identity so concurrent webhook
// deliveries for one phone number never interleave a stale read-modify-write.
// Entries are never evicted; the map is bounded by the distinct user count.
type identityLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newIdentityLocks() *identityLocks {
	return &identityLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the per-identity mutex and returns its unlock func.
func (l *identityLocks) Lock(identity string) func() {
	l.mu.Lock()
	m, ok := l.locks[identity]
	if !ok {
		m = &sync.Mutex{}
		l.locks[identity] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
