package service

import "sync"

// titleLocks hands out one mutex per title. Entries are dropped once no
// goroutine holds or waits for them.
type titleLocks struct {
	mu    sync.Mutex
	locks map[string]*titleLock
}

type titleLock struct {
	mu   sync.Mutex
	refs int
}

func newTitleLocks() *titleLocks {
	return &titleLocks{locks: make(map[string]*titleLock)}
}

// Lock blocks until title is free and returns the matching unlock.
func (l *titleLocks) Lock(title string) func() {
	l.mu.Lock()
	tl, ok := l.locks[title]
	if !ok {
		tl = &titleLock{}
		l.locks[title] = tl
	}
	tl.refs++
	l.mu.Unlock()

	tl.mu.Lock()
	return func() {
		tl.mu.Unlock()
		l.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.locks, title)
		}
		l.mu.Unlock()
	}
}

func (l *titleLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
