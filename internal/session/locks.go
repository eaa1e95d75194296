package session

import "sync"

// Locks serializes turn processing per session. The store's own mutex only
// covers reads and commits; this keyed lock is what guarantees turns for
// one session are processed one at a time while other sessions proceed.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewLocks bootstraps an empty keyed lock set.
func NewLocks() *Locks {
	return &Locks{locks: make(map[string]*sessionLock)}
}

// Acquire blocks until the session's lock is held and returns the release
// function. Entries are reference counted so idle sessions don't pin memory.
func (l *Locks) Acquire(sessionID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[sessionID]
	if !ok {
		entry = &sessionLock{}
		l.locks[sessionID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, sessionID)
		}
		l.mu.Unlock()
	}
}
