package chat

import "sync"

// TurnLocks serialises turns per conversation so the user and assistant
// writes of one turn never interleave with another turn on the same
// conversation. Different keys never block each other. The zero value is
// ready to use.
type TurnLocks struct {
	mu    sync.Mutex
	locks map[string]*turnLock
}

type turnLock struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until the lock for key is held and returns the function that
// releases it.
func (l *TurnLocks) Lock(key string) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*turnLock)
	}
	tl, ok := l.locks[key]
	if !ok {
		tl = &turnLock{}
		l.locks[key] = tl
	}
	tl.refs++
	l.mu.Unlock()

	tl.mu.Lock()
	return func() {
		tl.mu.Unlock()
		l.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// Len returns the number of keys currently held or waited on.
func (l *TurnLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
