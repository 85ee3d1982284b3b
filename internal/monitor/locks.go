package monitor

import "sync"

// vesselLocks serialises the registry write and the store write for one
// vessel id so the store never ends up behind the registry.
type vesselLocks struct {
	mu   sync.Mutex
	held map[string]*vesselLock
}

type vesselLock struct {
	mu   sync.Mutex
	refs int
}

// lock blocks until id is free and returns the matching unlock.
func (l *vesselLocks) lock(id string) func() {
	l.mu.Lock()
	if l.held == nil {
		l.held = make(map[string]*vesselLock)
	}
	vl, ok := l.held[id]
	if !ok {
		vl = &vesselLock{}
		l.held[id] = vl
	}
	vl.refs++
	l.mu.Unlock()

	vl.mu.Lock()
	return func() {
		vl.mu.Unlock()
		l.mu.Lock()
		vl.refs--
		if vl.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}
