// Package collections provides the (unbounded) blocking deque and the
// identity map the pool coordinator needs to hold idle and in-flight
// members, built on container/list and sync.Mutex.
package collections

import (
	"container/list"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrInterrupted is returned to a borrower blocked in TakeFirst or
// PollFirstWithTimeout when InterruptTakeWaiters wakes it without ever
// handing it a value (see ObjectPool.Close).
var ErrInterrupted = errors.New("collections: take interrupted")

// Iterator is a weakly consistent traversal over the live deque,
// starting from the end it was created at. It tolerates concurrent
// AddFirst/AddLast elsewhere in the deque. If the node it is about to
// visit is removed from the deque, the iterator still yields that
// node's value once and then HasNext reports false — the same
// "invalidated by concurrent modification, reinitialize" signal
// commons-pool's eviction loop relies on.
type Iterator interface {
	HasNext() bool
	Next() interface{}
}

type listIterator struct {
	next    *list.Element
	reverse bool
}

func (it *listIterator) HasNext() bool {
	return it.next != nil
}

func (it *listIterator) Next() interface{} {
	if it.next == nil {
		return nil
	}
	v := it.next.Value
	if it.reverse {
		it.next = it.next.Prev()
	} else {
		it.next = it.next.Next()
	}
	return v
}

// waiter is a single blocked TakeFirst/PollFirstWithTimeout call. ch is
// buffered so a racing AddFirst/AddLast never blocks handing it off.
type waiter struct {
	ch chan interface{}
}

// LinkedBlockingDeque is the idle-objects structure: a double ended
// queue with non-blocking push/pop at both ends and a blocking
// pop-from-front that wakes waiters in strict FIFO arrival order.
//
// Capacity here is nominal — the pool enforces maxIdle itself, so
// AddFirst/AddLast never block and never reject.
type LinkedBlockingDeque struct {
	mu       sync.Mutex
	items    *list.List
	waiters  *list.List // of *waiter, oldest at Front
	capacity int
}

// NewDeque returns an empty deque. capacity is advisory; the idle
// deque is sized unbounded in practice since the pool coordinator, not
// the deque itself, enforces the maxIdle cap.
func NewDeque(capacity int) *LinkedBlockingDeque {
	return &LinkedBlockingDeque{
		items:    list.New(),
		waiters:  list.New(),
		capacity: capacity,
	}
}

// Size returns the number of items currently held (excludes blocked
// waiters, which hold no item).
func (d *LinkedBlockingDeque) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.items.Len()
}

// HasTakeWaiters reports whether any caller is currently blocked in
// TakeFirst or PollFirstWithTimeout.
func (d *LinkedBlockingDeque) HasTakeWaiters() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waiters.Len() > 0
}

// handToOldestWaiter pops the longest-waiting caller and hands it v
// directly, bypassing the items list entirely, and reports true. With
// no caller waiting it hands off nothing and reports false. Caller
// holds d.mu.
func (d *LinkedBlockingDeque) handToOldestWaiter(v interface{}) bool {
	e := d.waiters.Front()
	if e == nil {
		return false
	}
	d.waiters.Remove(e)
	w := e.Value.(*waiter)
	w.ch <- v
	return true
}

// AddFirst parks v at the head of the deque (LIFO reuse order), unless
// a borrower is already blocked waiting, in which case v is handed to
// the oldest such borrower instead of ever touching the list.
func (d *LinkedBlockingDeque) AddFirst(v interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handToOldestWaiter(v) {
		return
	}
	d.items.PushFront(v)
}

// AddLast parks v at the tail of the deque (FIFO reuse order), with
// the same waiter hand-off as AddFirst.
func (d *LinkedBlockingDeque) AddLast(v interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handToOldestWaiter(v) {
		return
	}
	d.items.PushBack(v)
}

// PollFirst removes and returns the head of the deque, or nil if empty.
// Never blocks.
func (d *LinkedBlockingDeque) PollFirst() interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.items.Front()
	if e == nil {
		return nil
	}
	d.items.Remove(e)
	return e.Value
}

// Poll is an alias of PollFirst.
func (d *LinkedBlockingDeque) Poll() interface{} {
	return d.PollFirst()
}

// PollLast removes and returns the tail of the deque, or nil if empty.
// Never blocks. Used by ReturnObject's overflow trim to evict the
// stalest member from whichever end insertion is not happening at.
func (d *LinkedBlockingDeque) PollLast() interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.items.Back()
	if e == nil {
		return nil
	}
	d.items.Remove(e)
	return e.Value
}

// TakeFirst blocks until an item is available or InterruptTakeWaiters
// is called. Waiters queue in FIFO order: the caller that has been
// waiting longest is the one woken by the next AddFirst/AddLast.
func (d *LinkedBlockingDeque) TakeFirst() (interface{}, error) {
	d.mu.Lock()
	if e := d.items.Front(); e != nil {
		d.items.Remove(e)
		d.mu.Unlock()
		return e.Value, nil
	}
	w := &waiter{ch: make(chan interface{}, 1)}
	el := d.waiters.PushBack(w)
	d.mu.Unlock()

	v := <-w.ch
	if v == interruptedSentinel {
		return nil, ErrInterrupted
	}
	_ = el
	return v, nil
}

// PollFirstWithTimeout blocks up to timeout for an item. A nil result
// with a nil error means the timeout elapsed with nothing available.
func (d *LinkedBlockingDeque) PollFirstWithTimeout(timeout time.Duration) (interface{}, error) {
	d.mu.Lock()
	if e := d.items.Front(); e != nil {
		d.items.Remove(e)
		d.mu.Unlock()
		return e.Value, nil
	}
	w := &waiter{ch: make(chan interface{}, 1)}
	el := d.waiters.PushBack(w)
	d.mu.Unlock()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case v := <-w.ch:
		if v == interruptedSentinel {
			return nil, ErrInterrupted
		}
		return v, nil
	case <-t.C:
		d.mu.Lock()
		// Drop out of the waiters list. If a concurrent AddFirst/AddLast
		// already popped us (racing the timer), this is a harmless no-op:
		// container/list.Remove ignores an element no longer on this list.
		d.waiters.Remove(el)
		d.mu.Unlock()
		select {
		case v := <-w.ch:
			if v == interruptedSentinel {
				return nil, ErrInterrupted
			}
			return v, nil
		default:
			return nil, nil
		}
	}
}

// interruptedSentinel is handed to every queued waiter by
// InterruptTakeWaiters so TakeFirst/PollFirstWithTimeout can
// distinguish "woken by close" from "woken by a real item".
var interruptedSentinel = &struct{ name string }{"interrupted"}

// InterruptTakeWaiters wakes every caller currently blocked in
// TakeFirst or PollFirstWithTimeout with ErrInterrupted. Used by
// ObjectPool.Close's idle-deque teardown.
func (d *LinkedBlockingDeque) InterruptTakeWaiters() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for e := d.waiters.Front(); e != nil; e = e.Next() {
		w := e.Value.(*waiter)
		w.ch <- interruptedSentinel
	}
	d.waiters.Init()
}

// Remove removes the first occurrence of v, scanning front-to-back.
// Used by the evictor and invalidate paths to pull a specific member
// out of the idle deque regardless of position.
func (d *LinkedBlockingDeque) Remove(v interface{}) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for e := d.items.Front(); e != nil; e = e.Next() {
		if e.Value == v {
			d.items.Remove(e)
			return true
		}
	}
	return false
}

// RemoveFirstOccurrence is an alias of Remove kept to match the naming
// used at its call sites (destroy).
func (d *LinkedBlockingDeque) RemoveFirstOccurrence(v interface{}) bool {
	return d.Remove(v)
}

// Iterator walks the deque front to back. Under FIFO insertion
// (AddLast) that is oldest-to-newest — the order a FIFO-reuse pool's
// evictor should examine members.
func (d *LinkedBlockingDeque) Iterator() Iterator {
	d.mu.Lock()
	defer d.mu.Unlock()
	return &listIterator{next: d.items.Front()}
}

// DescendingIterator walks the deque back to front. Under LIFO
// insertion (AddFirst) that is oldest-to-newest — the order a
// LIFO-reuse pool's evictor should examine members, so the most
// recently parked member is tested last.
func (d *LinkedBlockingDeque) DescendingIterator() Iterator {
	d.mu.Lock()
	defer d.mu.Unlock()
	return &listIterator{next: d.items.Back(), reverse: true}
}
