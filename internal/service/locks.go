package service

import "sync"

// pollLocks serializes mutation per poll id. Distinct polls are fully
// independent, so each gets its own mutex.
type pollLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPollLocks() *pollLocks {
	return &pollLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the poll's mutex and returns the unlock function
func (l *pollLocks) acquire(pollID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[pollID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[pollID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
