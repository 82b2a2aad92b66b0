package pool

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/shangshujie365/commons-pool/collections"
)

func currentTimeMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// PooledObjectState is the member state machine. Transitions are
// compare-and-set on a single int32 field — no lock — so allocate,
// deallocate, and the evictor's startEvictionTest/endEvictionTest never
// contend with each other beyond a single CAS.
type PooledObjectState int32

const (
	// StateIdle is the resting state: available in the idle deque.
	StateIdle PooledObjectState = iota
	// StateAllocated is checked out to a borrower.
	StateAllocated
	// StateEviction is under test by the evictor; still present in the
	// idle deque.
	StateEviction
	// StateEvictionReturnToHead marks that a borrower polled the member
	// out of the idle deque while the evictor was testing it and lost
	// the race (its Allocate failed); the evictor finishes its test and,
	// if the member survives, EndEvictionTest re-parks it at the idle
	// deque head.
	StateEvictionReturnToHead
	// StateReturning is a transient state between ReturnObject
	// accepting an ALLOCATED member and Deallocate completing the
	// return, so an abandoned-object sweep never flags a member that
	// is mid-return.
	StateReturning
	// StateAbandoned marks a member the abandoned-object sweep has
	// claimed for removal.
	StateAbandoned
	// StateInvalid is terminal: the member has been destroyed.
	StateInvalid
)

func (s PooledObjectState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAllocated:
		return "ALLOCATED"
	case StateEviction:
		return "EVICTION"
	case StateEvictionReturnToHead:
		return "EVICTION_RETURN_TO_HEAD"
	case StateReturning:
		return "RETURNING"
	case StateAbandoned:
		return "ABANDONED"
	case StateInvalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}

// PooledObject wraps one user value together with its lifecycle state
// and timestamps. ID is a stable identity field Go's lack of an
// identity hashcode would otherwise leave unnamed — used in logging and
// the abandoned-object sweep, not as the allObjects map key (allObjects
// stays keyed on Object itself for O(1) lookup).
type PooledObject struct {
	ID     uuid.UUID
	Object interface{}

	state atomic.Int32

	createTime     int64
	lastBorrowTime atomic.Int64
	lastReturnTime atomic.Int64
	lastUsedTime   atomic.Int64
}

// NewPooledObject wraps object, fresh out of the factory's MakeObject.
// It starts in the IDLE state but is not yet in the idle deque, ready
// for the borrower that triggered its creation to Allocate it directly.
func NewPooledObject(object interface{}) *PooledObject {
	now := currentTimeMillis()
	p := &PooledObject{
		ID:         uuid.New(),
		Object:     object,
		createTime: now,
	}
	p.state.Store(int32(StateIdle))
	p.lastReturnTime.Store(now)
	p.lastUsedTime.Store(now)
	return p
}

// GetObject returns the wrapped value.
func (p *PooledObject) GetObject() interface{} {
	return p.Object
}

// GetState returns the current lifecycle state.
func (p *PooledObject) GetState() PooledObjectState {
	return PooledObjectState(p.state.Load())
}

// GetCreateTime returns the creation timestamp in epoch milliseconds.
func (p *PooledObject) GetCreateTime() int64 {
	return p.createTime
}

// GetLastBorrowTime returns the last successful Allocate timestamp.
func (p *PooledObject) GetLastBorrowTime() int64 {
	return p.lastBorrowTime.Load()
}

// GetLastReturnTime returns the last completed Deallocate timestamp.
func (p *PooledObject) GetLastReturnTime() int64 {
	return p.lastReturnTime.Load()
}

// GetLastUsedTime returns the more recent of the create and last
// borrow times (Deallocate does not update it), the clock the
// abandoned-object sweep checks against.
func (p *PooledObject) GetLastUsedTime() int64 {
	return p.lastUsedTime.Load()
}

// GetIdleTimeMillis returns time since the member was last returned,
// valid while it sits in the idle deque (IDLE, EVICTION, or the
// transient EVICTION_RETURN_TO_HEAD); zero while checked out.
func (p *PooledObject) GetIdleTimeMillis() int64 {
	switch p.GetState() {
	case StateIdle, StateEviction, StateEvictionReturnToHead:
		return currentTimeMillis() - p.lastReturnTime.Load()
	default:
		return 0
	}
}

// GetActiveTimeMillis returns how long the member has been checked
// out since its last borrow, or zero if it has been returned since.
func (p *PooledObject) GetActiveTimeMillis() int64 {
	rt := p.lastReturnTime.Load()
	bt := p.lastBorrowTime.Load()
	if bt > rt {
		return currentTimeMillis() - bt
	}
	return 0
}

// Allocate transitions IDLE -> ALLOCATED and reports whether it was
// this caller that won the member. Losing the race during EVICTION
// flags EVICTION_RETURN_TO_HEAD; the evictor still completes its test
// of the member (and may destroy it), and if the member survives,
// EndEvictionTest puts it back at the idle deque head.
func (p *PooledObject) Allocate() bool {
	if p.state.CAS(int32(StateIdle), int32(StateAllocated)) {
		now := currentTimeMillis()
		p.lastBorrowTime.Store(now)
		p.lastUsedTime.Store(now)
		return true
	}
	if p.state.CAS(int32(StateEviction), int32(StateEvictionReturnToHead)) {
		return false
	}
	return false
}

// MarkReturning transitions ALLOCATED -> RETURNING, reporting whether
// the transition was legal. It guards the window between ReturnObject
// accepting the member and Deallocate completing, during which the
// abandoned-object sweep must not also claim it.
func (p *PooledObject) MarkReturning() bool {
	return p.state.CAS(int32(StateAllocated), int32(StateReturning))
}

// Deallocate transitions RETURNING -> IDLE, recording the return time.
// A false result (second Deallocate on the same member) is the
// AlreadyReturned condition.
func (p *PooledObject) Deallocate() bool {
	if p.state.CAS(int32(StateReturning), int32(StateIdle)) {
		p.lastReturnTime.Store(currentTimeMillis())
		return true
	}
	return false
}

// StartEvictionTest transitions IDLE -> EVICTION, reporting whether
// this evictor run won the member (false means a borrower already
// holds it, so the evictor must skip it without counting a test).
func (p *PooledObject) StartEvictionTest() bool {
	return p.state.CAS(int32(StateIdle), int32(StateEviction))
}

// EndEvictionTest concludes an eviction test that decided not to evict
// the member. The common case (EVICTION -> IDLE) leaves the member
// where it already sits in the idle deque, since the evictor's
// iterator never removed it. If a borrower polled the member out of
// the deque mid-test and its Allocate failed (EVICTION_RETURN_TO_HEAD),
// the member is no longer in the deque; this re-inserts it at the head
// so it is never silently dropped from the pool, and returns false.
func (p *PooledObject) EndEvictionTest(idleDeque *collections.LinkedBlockingDeque) bool {
	if p.state.CAS(int32(StateEviction), int32(StateIdle)) {
		return true
	}
	if p.state.CAS(int32(StateEvictionReturnToHead), int32(StateIdle)) {
		if idleDeque != nil {
			idleDeque.AddFirst(p)
		}
		return false
	}
	return false
}

// Invalidate forces the member to the terminal INVALID state. Called
// exactly once, from destroy, regardless of the state it is coming
// from.
func (p *PooledObject) Invalidate() {
	p.state.Store(int32(StateInvalid))
}

// MarkAbandoned claims an ALLOCATED member for the abandoned-object
// sweep, reporting whether this sweep won the race against a
// concurrent ReturnObject/InvalidateObject.
func (p *PooledObject) MarkAbandoned() bool {
	return p.state.CAS(int32(StateAllocated), int32(StateAbandoned))
}
