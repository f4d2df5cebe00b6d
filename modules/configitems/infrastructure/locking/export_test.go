package locking

func (l *MemoryLocker) TrackedKeys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
