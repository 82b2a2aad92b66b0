// Package concurrent provides the small set of lock-free primitives the
// pool coordinator needs: a 64-bit counter shared across borrowers,
// returners and the evictor without a mutex.
package concurrent

import "go.uber.org/atomic"

// AtomicInteger is a 64-bit counter safe for concurrent use. It backs
// createCount and the destroy-reason counters on the pool, which are
// read and written from borrow, return, invalidate and evictor paths
// without ever taking a lock.
type AtomicInteger struct {
	v atomic.Int64
}

// NewAtomicInteger returns a counter initialized to n.
func NewAtomicInteger(n int64) AtomicInteger {
	a := AtomicInteger{}
	a.v.Store(n)
	return a
}

// Get returns the current value.
func (a *AtomicInteger) Get() int64 {
	return a.v.Load()
}

// Set stores n unconditionally.
func (a *AtomicInteger) Set(n int64) {
	a.v.Store(n)
}

// IncrementAndGet adds one and returns the new value.
func (a *AtomicInteger) IncrementAndGet() int64 {
	return a.v.Inc()
}

// DecrementAndGet subtracts one and returns the new value.
func (a *AtomicInteger) DecrementAndGet() int64 {
	return a.v.Dec()
}

// CompareAndSet atomically sets the value to next if it is currently cur.
func (a *AtomicInteger) CompareAndSet(cur, next int64) bool {
	return a.v.CAS(cur, next)
}
