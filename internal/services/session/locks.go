package session

import (
	"sync"

	"umbra/internal/domain"
)

// keyedMutex hands out one mutex per address. Entries are dropped once the
// last holder or waiter releases them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[domain.Address]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[domain.Address]*refMutex)}
}

// lock blocks until addr is held and returns the matching unlock.
func (k *keyedMutex) lock(addr domain.Address) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[addr]
	if !ok {
		m = &refMutex{}
		k.locks[addr] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, addr)
		}
		k.mu.Unlock()
	}
}

// size reports how many addresses currently have an entry.
func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
