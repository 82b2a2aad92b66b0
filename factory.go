package pool

// PooledObjectFactory is the pool's external collaborator: the pool
// core never constructs, destroys, or inspects a member's value itself
// — every lifecycle hook is delegated here, and never called while the
// coordinator holds a lock a borrower or returner would need.
type PooledObjectFactory interface {
	// MakeObject creates a new instance to be wrapped and managed by
	// the pool.
	MakeObject() (*PooledObject, error)

	// DestroyObject destroys a no-longer-needed instance. Errors here
	// are swallowed by every pool housekeeping path except
	// InvalidateObject.
	DestroyObject(object *PooledObject) error

	// ValidateObject ensures the instance is safe to hand to a
	// borrower (testOnBorrow), safe to park back in the idle deque
	// (testOnReturn), or still usable while idle (testWhileIdle).
	ValidateObject(object *PooledObject) bool

	// ActivateObject reinitializes an instance for use, invoked just
	// before it leaves the idle deque.
	ActivateObject(object *PooledObject) error

	// PassivateObject deinitializes an instance, invoked just before
	// it enters the idle deque.
	PassivateObject(object *PooledObject) error
}
