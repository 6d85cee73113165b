package engine

import "sync"

// threadLocks hands out one mutex per thread id so that at most one worker
// pass per thread runs inside a single process. Entries are created lazily
// and kept for the lifetime of the engine; the map is bounded by the number
// of distinct threads the process has touched.
type threadLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newThreadLocks() *threadLocks {
	return &threadLocks{locks: make(map[string]*sync.Mutex)}
}

// Acquire blocks until the lock for threadID is held and returns the
// release function.
func (t *threadLocks) Acquire(threadID string) func() {
	t.mu.Lock()
	l, ok := t.locks[threadID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[threadID] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}
