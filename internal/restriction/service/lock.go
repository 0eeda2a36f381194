package service

import (
	"sync"

	id "warden/pkg/domain"
)

// accountLocks serializes mutations per account so two concurrent lifts
// cannot both observe the banned state and double-append audit records.
// Mutexes are kept for the process lifetime; the map is bounded by the number
// of accounts mutated since start.
type accountLocks struct {
	mu    sync.Mutex
	locks map[id.UserID]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[id.UserID]*sync.Mutex)}
}

// Lock acquires the mutex for userID and returns its unlock function.
func (l *accountLocks) Lock(userID id.UserID) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
