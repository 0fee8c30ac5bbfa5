package reconcile

import (
	"sync/atomic"
)

// syncLock admits one reconciliation at a time. Callers that find it held
// fail fast with ErrSyncInProgress; the holder's operation name is kept for
// the error message.
type syncLock struct {
	holder atomic.Pointer[string]
}

// TryAcquire takes the lock for op without blocking
func (l *syncLock) TryAcquire(op string) bool {
	return l.holder.CompareAndSwap(nil, &op)
}

// Release releases the lock.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *syncLock) Release() {
	l.holder.Store(nil)
}

// Holder returns the running operation, or "" when the lock is free
func (l *syncLock) Holder() string {
	if op := l.holder.Load(); op != nil {
		return *op
	}
	return ""
}
