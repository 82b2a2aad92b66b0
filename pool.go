// Package pool is a generic, thread-safe object pool: a reusable cache
// of expensive-to-construct instances that amortizes creation cost by
// lending idle instances to concurrent borrowers and reclaiming them on
// return. It enforces a maximum concurrent allocation, validates
// liveness at configurable lifecycle points, and asynchronously evicts
// stale members via a shared scheduler (see the scheduler subpackage).
package pool

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shangshujie365/commons-pool/collections"
	"github.com/shangshujie365/commons-pool/concurrent"
	"github.com/shangshujie365/commons-pool/scheduler"
)

// ObjectPool is the pool coordinator: borrowObject / returnObject /
// invalidateObject / addObject / clear / close, plus capacity accounting
// against Config.MaxTotal/MaxIdle/MinIdle.
type ObjectPool struct {
	// AbandonedConfig enables the abandoned-object sweep; nil (the
	// default) disables it entirely.
	AbandonedConfig *AbandonedConfig
	// Config is read once at construction and on every SetConfig call
	// to build the snapshot borrow/return/evict actually read from.
	Config *ObjectPoolConfig

	snapshot atomic.Pointer[poolConfigSnapshot]

	closed  bool
	closeMu sync.Mutex

	evictionLock     sync.Mutex
	evictionIterator collections.Iterator
	evictorHandle    *scheduler.Handle
	evictorScheduler *scheduler.Scheduler

	idleObjects *collections.LinkedBlockingDeque
	allObjects  *collections.SyncIdentityMap

	factory   PooledObjectFactory
	factoryMu sync.Mutex

	createCount                      concurrent.AtomicInteger
	destroyedCount                   concurrent.AtomicInteger
	destroyedByEvictorCount          concurrent.AtomicInteger
	destroyedByBorrowValidationCount concurrent.AtomicInteger

	log *logrus.Entry
}

// NewObjectPool builds a pool around factory configured by config. The
// evictor is started immediately at config.TimeBetweenEvictionRunsMillis
// (a value <= 0 leaves it disabled) on the process-wide scheduler.
func NewObjectPool(factory PooledObjectFactory, config *ObjectPoolConfig) *ObjectPool {
	return NewObjectPoolWithScheduler(factory, config, scheduler.Shared())
}

// NewObjectPoolWithScheduler is NewObjectPool but schedules the evictor
// task on sched instead of the process-wide scheduler — tests use this
// to avoid sharing timer state with other pools in the same process.
func NewObjectPoolWithScheduler(factory PooledObjectFactory, config *ObjectPoolConfig, sched *scheduler.Scheduler) *ObjectPool {
	p := &ObjectPool{
		factory:          factory,
		Config:           config,
		idleObjects:      collections.NewDeque(math.MaxInt32),
		allObjects:       collections.NewSyncMap(),
		evictorScheduler: sched,
		log:              logrus.WithField("component", "objectpool"),
	}
	p.snapshot.Store(snapshotOf(config))
	p.StartEvictor()
	return p
}

// NewObjectPoolWithDefaultConfig builds a pool with NewDefaultPoolConfig.
func NewObjectPoolWithDefaultConfig(factory PooledObjectFactory) *ObjectPool {
	return NewObjectPool(factory, NewDefaultPoolConfig())
}

// SetConfig installs config as the pool's live configuration, taking
// effect for every call that starts after this returns. It also
// restarts the evictor at the new cadence.
func (p *ObjectPool) SetConfig(config *ObjectPoolConfig) {
	p.Config = config
	p.snapshot.Store(snapshotOf(config))
	p.StartEvictor()
}

func (p *ObjectPool) config() *poolConfigSnapshot {
	return p.snapshot.Load()
}

// SetFactory installs factory, the only collaborator this pool ever
// calls Make/Destroy/Activate/Passivate/Validate on. Permitted only
// while allObjects is empty: while the pool holds any member the
// factory cannot be changed, and once every member has been destroyed
// it can be replaced again.
func (p *ObjectPool) SetFactory(factory PooledObjectFactory) error {
	p.factoryMu.Lock()
	defer p.factoryMu.Unlock()
	if p.allObjects.Size() > 0 {
		return NewIllegalStateErr("Cannot change factory while pool contains objects")
	}
	p.factory = factory
	return nil
}

// IsClosed reports whether Close has run.
func (p *ObjectPool) IsClosed() bool {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	return p.closed
}

// GetNumIdle returns the number of members currently parked idle.
func (p *ObjectPool) GetNumIdle() int {
	return p.idleObjects.Size()
}

// GetNumActive returns the number of members currently checked out.
func (p *ObjectPool) GetNumActive() int {
	return p.allObjects.Size() - p.idleObjects.Size()
}

// GetCreatedCount returns the number of members currently created or
// being created.
func (p *ObjectPool) GetCreatedCount() int64 {
	return p.createCount.Get()
}

// GetDestroyedCount returns the lifetime count of destroyed members.
func (p *ObjectPool) GetDestroyedCount() int64 {
	return p.destroyedCount.Get()
}

// GetDestroyedByEvictorCount returns how many members the evictor has
// destroyed for staleness or failed testWhileIdle validation.
func (p *ObjectPool) GetDestroyedByEvictorCount() int64 {
	return p.destroyedByEvictorCount.Get()
}

// GetDestroyedByBorrowValidationCount returns how many members were
// destroyed because testOnBorrow validation failed.
func (p *ObjectPool) GetDestroyedByBorrowValidationCount() int64 {
	return p.destroyedByBorrowValidationCount.Get()
}

// create attempts to grow the pool by one member, subject to maxTotal.
// It increments createCount before checking the cap and decrements on
// rejection or factory failure, so concurrent creators may transiently
// overshoot the cap within this function but never leave it overshot.
func (p *ObjectPool) create() *PooledObject {
	maxTotal := p.config().maxTotal
	n := p.createCount.IncrementAndGet()
	if (maxTotal > -1 && int(n) > maxTotal) || n >= math.MaxInt32 {
		p.createCount.DecrementAndGet()
		return nil
	}

	p.factoryMu.Lock()
	factory := p.factory
	p.factoryMu.Unlock()
	if factory == nil {
		p.createCount.DecrementAndGet()
		return nil
	}

	obj, err := factory.MakeObject()
	if err != nil {
		p.createCount.DecrementAndGet()
		p.log.WithError(err).Debug("factory MakeObject failed")
		return nil
	}

	p.allObjects.Put(obj.Object, obj)
	return obj
}

// destroy runs the full teardown of toDestroy: invalidate its state,
// remove it from the idle deque and allObjects index, and hand it to
// the factory. The returned error, if any, is the factory's
// DestroyObject failure — callers on housekeeping paths (clear, return
// overflow, the evictor) discard it via destroyQuietly; InvalidateObject
// is the one caller that propagates it instead.
func (p *ObjectPool) destroy(toDestroy *PooledObject) error {
	toDestroy.Invalidate()
	p.idleObjects.RemoveFirstOccurrence(toDestroy)
	p.allObjects.Remove(toDestroy.Object)
	err := p.factory.DestroyObject(toDestroy)
	p.destroyedCount.IncrementAndGet()
	p.createCount.DecrementAndGet()
	return err
}

// destroyQuietly is destroy for every caller that swallows factory
// failures: it logs and discards rather than returning them.
func (p *ObjectPool) destroyQuietly(toDestroy *PooledObject) {
	if err := p.destroy(toDestroy); err != nil {
		p.log.WithError(err).Debug("factory DestroyObject failed, swallowed")
	}
}

// BorrowObject obtains an instance from the pool, newly created or
// reused, already activated and (if configured) validated.
func (p *ObjectPool) BorrowObject() (interface{}, error) {
	cfg := p.config()
	return p.borrowObject(cfg)
}

func (p *ObjectPool) borrowObject(cfg *poolConfigSnapshot) (interface{}, error) {
	if p.IsClosed() {
		return nil, NewIllegalStateErr("Pool not open")
	}

	if ac := p.AbandonedConfig; ac != nil && ac.RemoveAbandonedOnBorrow &&
		p.GetNumIdle() < 2 && p.GetNumActive() > cfg.maxTotal-3 {
		p.removeAbandoned(ac)
	}

	var obj *PooledObject
	for obj == nil {
		freshlyCreated := false

		if polled, ok := p.idleObjects.PollFirst().(*PooledObject); ok {
			obj = polled
		} else if created := p.create(); created != nil {
			obj = created
			freshlyCreated = true
		}

		if obj == nil {
			switch cfg.whenExhaustedAction {
			case WhenExhaustedFail:
				return nil, NewNoSuchElementErr("Pool exhausted")
			default: // WhenExhaustedBlock
				var v interface{}
				var err error
				if cfg.maxWaitMillis <= 0 {
					v, err = p.idleObjects.TakeFirst()
				} else {
					v, err = p.idleObjects.PollFirstWithTimeout(time.Duration(cfg.maxWaitMillis) * time.Millisecond)
				}
				if err != nil {
					return nil, err
				}
				waited, ok := v.(*PooledObject)
				if !ok {
					return nil, NewNoSuchElementErr("Timeout waiting for idle object")
				}
				obj = waited
			}
		}

		if !obj.Allocate() {
			// Lost the race to the evictor (EVICTION_RETURN_TO_HEAD) or
			// the member was otherwise claimed; retry from scratch.
			obj = nil
			continue
		}

		if err := p.factory.ActivateObject(obj); err != nil {
			p.destroyQuietly(obj)
			obj = nil
			if freshlyCreated {
				return nil, NewNoSuchElementErrWithCause("Unable to activate object", err)
			}
			continue
		}

		if cfg.testOnBorrow || (freshlyCreated && cfg.testOnCreate) {
			if !p.factory.ValidateObject(obj) {
				p.destroyQuietly(obj)
				p.destroyedByBorrowValidationCount.IncrementAndGet()
				obj = nil
				if freshlyCreated {
					return nil, NewNoSuchElementErr("Unable to validate object")
				}
				continue
			}
		}
	}

	return obj.GetObject(), nil
}

// ReturnObject returns object, previously obtained from BorrowObject,
// back to the pool.
func (p *ObjectPool) ReturnObject(object interface{}) error {
	obj, ok := p.lookup(object)
	if !ok {
		if p.hasAbandonedConfig() {
			return nil
		}
		return NewIllegalStateErr("Returned object not currently part of this pool")
	}

	if !obj.MarkReturning() {
		return NewIllegalStateErr("Object has already been returned to this pool or is invalid")
	}

	cfg := p.config()

	if cfg.testOnReturn {
		if !p.factory.ValidateObject(obj) {
			p.destroyQuietly(obj)
			p.ensureIdle(1, false)
			return nil
		}
	}

	if err := p.factory.PassivateObject(obj); err != nil {
		p.log.WithError(err).Debug("factory PassivateObject failed on return, swallowed")
		p.destroyQuietly(obj)
		p.ensureIdle(1, false)
		return nil
	}

	if !obj.Deallocate() {
		return NewIllegalStateErr("Object has already been returned to this pool or is invalid")
	}

	if p.IsClosed() {
		p.destroyQuietly(obj)
		return nil
	}

	if cfg.lifo {
		p.idleObjects.AddFirst(obj)
	} else {
		p.idleObjects.AddLast(obj)
	}

	// Trim back to the idle cap by evicting whichever end insertion
	// isn't happening at, so the member that gave way is always the
	// stalest one parked, never the one that just landed.
	if cfg.maxIdle > -1 {
		for p.idleObjects.Size() > cfg.maxIdle {
			var stalest *PooledObject
			if cfg.lifo {
				stalest, _ = p.idleObjects.PollLast().(*PooledObject)
			} else {
				stalest, _ = p.idleObjects.PollFirst().(*PooledObject)
			}
			if stalest == nil {
				break
			}
			p.destroyQuietly(stalest)
		}
	}

	if p.IsClosed() {
		// Closed while this return was landing the object in the idle
		// deque; make sure it doesn't leak past the close.
		p.Clear()
	}
	return nil
}

// lookup is the O(1) allObjects index read: a plain map get keyed on
// the member's value, not a scan, since allObjects is keyed directly on
// Object (see PooledObject's doc comment on its ID field for why
// the identity field itself is not the map key).
func (p *ObjectPool) lookup(object interface{}) (*PooledObject, bool) {
	v := p.allObjects.Get(object)
	if v == nil {
		return nil, false
	}
	return v.(*PooledObject), true
}

func (p *ObjectPool) hasAbandonedConfig() bool {
	return p.AbandonedConfig != nil
}

// InvalidateObject removes object from the pool, used when a borrower
// determines (due to an exception or other problem) the instance it
// holds is broken. Unlike ReturnObject's abandoned-config carve-out,
// this always reports an unknown object; the asymmetry is intentional.
// Unlike clear/return-overflow/the evictor, a DestroyObject failure here
// is not swallowed: it is the one path that hands it back to the caller.
func (p *ObjectPool) InvalidateObject(object interface{}) error {
	obj, ok := p.lookup(object)
	if !ok {
		return NewIllegalStateErr("Invalidated object not currently part of this pool")
	}
	var destroyErr error
	if obj.GetState() != StateInvalid {
		destroyErr = p.destroy(obj)
	}
	p.ensureIdle(1, false)
	if destroyErr != nil {
		return NewFactoryErr("Failed to destroy invalidated object", destroyErr)
	}
	return nil
}

// AddObject creates, passivates, and parks a new member without ever
// handing it to a caller — used to pre-warm a pool.
func (p *ObjectPool) AddObject() error {
	if p.IsClosed() {
		return NewIllegalStateErr("Pool not open")
	}
	if p.factory == nil {
		return NewIllegalStateErr("Cannot add objects without a factory")
	}
	p.addIdleObject(p.create())
	return nil
}

func (p *ObjectPool) addIdleObject(obj *PooledObject) {
	if obj == nil {
		return
	}
	if err := p.factory.PassivateObject(obj); err != nil {
		p.log.WithError(err).Debug("factory PassivateObject failed during addObject, swallowed")
		p.destroyQuietly(obj)
		return
	}
	if p.config().lifo {
		p.idleObjects.AddFirst(obj)
	} else {
		p.idleObjects.AddLast(obj)
	}
}

// Clear destroys every member currently idle. Members concurrently
// returned during Clear's own execution make no guarantee of being
// swept up by this call.
func (p *ObjectPool) Clear() {
	for {
		obj, ok := p.idleObjects.PollFirst().(*PooledObject)
		if !ok {
			return
		}
		p.destroyQuietly(obj)
	}
}

// Close marks the pool closed, clears every idle member, and stops the
// evictor. After Close, BorrowObject fails; ReturnObject and
// InvalidateObject keep working (returned objects are simply
// destroyed) since Close does not forcibly reclaim members still
// checked out to a borrower.
func (p *ObjectPool) Close() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	p.closeMu.Unlock()

	p.startEvictor(-1)
	p.Clear()
	p.idleObjects.InterruptTakeWaiters()
}

// StartEvictor (re)schedules the evictor task at the pool's current
// TimeBetweenEvictionRunsMillis. Call this after changing that field
// directly on Config without going through SetConfig.
func (p *ObjectPool) StartEvictor() {
	p.startEvictor(p.config().timeBetweenEvictionRunsMillis)
}

func (p *ObjectPool) startEvictor(delayMillis int64) {
	p.evictionLock.Lock()
	defer p.evictionLock.Unlock()
	if p.evictorHandle != nil {
		p.evictorScheduler.Cancel(p.evictorHandle)
		p.evictorHandle = nil
		p.evictionIterator = nil
	}
	if delayMillis > 0 {
		period := time.Duration(delayMillis) * time.Millisecond
		p.evictorHandle = p.evictorScheduler.Schedule(func() {
			p.evict()
			p.ensureMinIdle()
		}, period, period)
	}
}

func (p *ObjectPool) removeAbandoned(config *AbandonedConfig) {
	now := currentTimeMillis()
	timeoutAt := now - config.RemoveAbandonedTimeout*1000
	var toRemove []*PooledObject
	for _, v := range p.allObjects.Values() {
		obj := v.(*PooledObject)
		if obj.GetState() == StateAllocated && obj.GetLastUsedTime() <= timeoutAt {
			if obj.MarkAbandoned() {
				toRemove = append(toRemove, obj)
			}
		}
	}
	for _, obj := range toRemove {
		p.log.WithField("object_id", obj.ID).Warn("removing abandoned object")
		_ = p.InvalidateObject(obj.Object)
	}
}

func (p *ObjectPool) getNumTests(cfg *poolConfigSnapshot) int {
	idle := p.idleObjects.Size()
	if cfg.numTestsPerEvictionRun >= 0 {
		if cfg.numTestsPerEvictionRun < idle {
			return cfg.numTestsPerEvictionRun
		}
		return idle
	}
	return int(math.Ceil(float64(idle) / math.Abs(float64(cfg.numTestsPerEvictionRun))))
}

func (p *ObjectPool) evictionIteratorFor(cfg *poolConfigSnapshot) collections.Iterator {
	if cfg.lifo {
		return p.idleObjects.DescendingIterator()
	}
	return p.idleObjects.Iterator()
}

func (p *ObjectPool) getMinIdle(cfg *poolConfigSnapshot) int {
	if cfg.minIdle > cfg.maxIdle && cfg.maxIdle >= 0 {
		return cfg.maxIdle
	}
	return cfg.minIdle
}

// evict is the evictor's periodic sweep: test up to numTests idle
// members for staleness/invalidity, evicting or revalidating each,
// using a persistent iterator across runs that reinitializes whenever
// it is exhausted or invalidated by concurrent modification.
func (p *ObjectPool) evict() {
	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("panic", r).Error("evictor run panicked, swallowed")
		}
	}()
	defer func() {
		if ac := p.AbandonedConfig; ac != nil && ac.RemoveAbandonedOnMaintenance {
			p.removeAbandoned(ac)
		}
	}()

	if p.idleObjects.Size() == 0 {
		return
	}

	cfg := p.config()
	policy := GetEvictionPolicy(cfg.evictionPolicyName)
	if policy == nil {
		policy = GetEvictionPolicy(DefaultEvictionPolicyName)
	}

	p.evictionLock.Lock()
	defer p.evictionLock.Unlock()

	evictionCfg := &EvictionConfig{
		IdleEvictTime:     cfg.minEvictableIdleTimeMillis,
		IdleSoftEvictTime: cfg.softMinEvictableIdleTimeMillis,
		MinIdle:           cfg.minIdle,
	}

	for i, n := 0, p.getNumTests(cfg); i < n; i++ {
		if p.evictionIterator == nil || !p.evictionIterator.HasNext() {
			p.evictionIterator = p.evictionIteratorFor(cfg)
		}
		if !p.evictionIterator.HasNext() {
			return
		}

		underTest, ok := p.evictionIterator.Next().(*PooledObject)
		if !ok || underTest == nil {
			p.evictionIterator = nil
			i--
			continue
		}

		if !underTest.StartEvictionTest() {
			// Borrowed concurrently; doesn't count as a test.
			i--
			continue
		}

		if policy.Evict(evictionCfg, underTest, p.idleObjects.Size()) {
			p.destroyQuietly(underTest)
			p.destroyedByEvictorCount.IncrementAndGet()
			continue
		}

		if cfg.testWhileIdle {
			if err := p.factory.ActivateObject(underTest); err != nil {
				p.destroyQuietly(underTest)
				p.destroyedByEvictorCount.IncrementAndGet()
				continue
			}
			if !p.factory.ValidateObject(underTest) {
				p.destroyQuietly(underTest)
				p.destroyedByEvictorCount.IncrementAndGet()
				continue
			}
			if err := p.factory.PassivateObject(underTest); err != nil {
				p.destroyQuietly(underTest)
				p.destroyedByEvictorCount.IncrementAndGet()
				continue
			}
		}

		underTest.EndEvictionTest(p.idleObjects)
	}
}

func (p *ObjectPool) ensureMinIdle() {
	p.ensureIdle(p.getMinIdle(p.config()), true)
}

func (p *ObjectPool) ensureIdle(idleCount int, always bool) {
	if idleCount < 1 || p.IsClosed() || (!always && !p.idleObjects.HasTakeWaiters()) {
		return
	}

	lifo := p.config().lifo
	for p.idleObjects.Size() < idleCount {
		obj := p.create()
		if obj == nil {
			break
		}
		if lifo {
			p.idleObjects.AddFirst(obj)
		} else {
			p.idleObjects.AddLast(obj)
		}
	}
	if p.IsClosed() {
		p.Clear()
	}
}

// Prefill repeatedly calls AddObject, swallowing individual failures,
// to warm up a freshly constructed pool before traffic arrives.
func Prefill(p *ObjectPool, count int) {
	for i := 0; i < count; i++ {
		_ = p.AddObject()
	}
}
