package billingtest

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker is a process-local lock table keyed like the Redis locker.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]bool
	Err  error
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: map[string]bool{}}
}

// Hold marks key as taken by someone else.
func (l *MemoryLocker) Hold(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[key] = true
}

func (l *MemoryLocker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[key]
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	if l.Err != nil {
		return nil, false, l.Err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, true, nil
}
