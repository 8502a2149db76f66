package conversation

import (
	"sync"

	"chatshop/pkg/domain/model"
)

// keyedLock serializes work per user. Entries are dropped once nobody holds
// or waits for them.
type keyedLock struct {
	mu      sync.Mutex
	entries map[model.UserID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLock() *keyedLock {
	return &keyedLock{entries: make(map[model.UserID]*lockEntry)}
}

func (l *keyedLock) Lock(id model.UserID) func() {
	l.mu.Lock()
	entry, ok := l.entries[id]
	if !ok {
		entry = &lockEntry{}
		l.entries[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, id)
		}
		l.mu.Unlock()
	}
}

func (l *keyedLock) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
