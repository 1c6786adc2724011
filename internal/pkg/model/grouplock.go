package model

import (
	"sync"
	"sync/atomic"
)

// GroupLock serialises group-membership changes. Locked never blocks, so
// notification handlers can skip work while a group operation is running.
type GroupLock struct {
	mu   sync.Mutex
	held atomic.Bool
}

func (l *GroupLock) Lock() {
	l.mu.Lock()
	l.held.Store(true)
}

func (l *GroupLock) Unlock() {
	l.held.Store(false)
	l.mu.Unlock()
}

func (l *GroupLock) Locked() bool {
	return l.held.Load()
}
