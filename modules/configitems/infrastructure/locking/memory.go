package locking

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryLocker serializes holders within one process. Locks do not expire. A key is
// tracked only while it has a holder or a waiter.
type MemoryLocker struct {
	mu   sync.Mutex
	keys map[string]*memorySlot
}

type memorySlot struct {
	ch   chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{keys: make(map[string]*memorySlot)}
}

func (l *MemoryLocker) join(key string) *memorySlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.keys[key]
	if !ok {
		s = &memorySlot{ch: make(chan struct{}, 1)}
		l.keys[key] = s
	}
	s.refs++
	return s
}

func (l *MemoryLocker) leave(key string, s *memorySlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 && l.keys[key] == s {
		delete(l.keys, key)
	}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, _ time.Duration) (Lock, error) {
	s := l.join(key)
	select {
	case s.ch <- struct{}{}:
		return &memoryLock{locker: l, key: key, slot: s}, nil
	case <-ctx.Done():
		l.leave(key, s)
		return nil, errors.Join(ErrNotAcquired, ctx.Err())
	}
}

type memoryLock struct {
	once   sync.Once
	locker *MemoryLocker
	key    string
	slot   *memorySlot
}

func (m *memoryLock) Release(context.Context) error {
	m.once.Do(func() {
		<-m.slot.ch
		m.locker.leave(m.key, m.slot)
	})
	return nil
}
