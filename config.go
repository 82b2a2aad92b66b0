package pool

// WhenExhaustedAction names what BorrowObject does when the pool has
// nothing idle and is already at maxTotal.
type WhenExhaustedAction int

const (
	// WhenExhaustedFail makes BorrowObject raise PoolExhausted
	// immediately instead of waiting.
	WhenExhaustedFail WhenExhaustedAction = iota
	// WhenExhaustedBlock makes BorrowObject wait up to MaxWaitMillis
	// (or forever, if <= 0) for a member to become available.
	WhenExhaustedBlock
)

func (a WhenExhaustedAction) String() string {
	if a == WhenExhaustedFail {
		return "FAIL"
	}
	return "BLOCK"
}

// ObjectPoolConfig is the mutable configuration value object. Fields
// here are not read directly by borrow/return/evict — SetConfig
// installs an immutable snapshot (poolConfigSnapshot) that those paths
// read atomically at entry, so a concurrent reconfiguration does not
// change the exhaustion action, wait time or test flags of a call
// already in flight. Member creation reads MaxTotal, and AddObject and
// the minIdle refill read Lifo, from whichever snapshot is current
// when they run.
type ObjectPoolConfig struct {
	// MaxTotal caps members either created or being created; <0 means
	// unbounded.
	MaxTotal int
	// MaxIdle caps members parked in the idle deque; <0 means
	// unbounded. Excess is destroyed on return.
	MaxIdle int
	// MinIdle is the floor the evictor refills the idle deque to.
	MinIdle int
	// MaxWaitMillis bounds how long a BLOCK borrow waits; <= 0 waits
	// forever.
	MaxWaitMillis int64
	// WhenExhaustedAction selects FAIL or BLOCK behavior on exhaustion.
	WhenExhaustedAction WhenExhaustedAction
	// TestOnBorrow validates a member before handing it to a borrower.
	TestOnBorrow bool
	// TestOnReturn validates a member when it comes back.
	TestOnReturn bool
	// TestOnCreate validates a freshly created member immediately,
	// independent of TestOnBorrow.
	TestOnCreate bool
	// TestWhileIdle has the evictor validate members it does not evict.
	TestWhileIdle bool
	// TimeBetweenEvictionRunsMillis is the evictor's cadence; <= 0
	// disables the evictor entirely.
	TimeBetweenEvictionRunsMillis int64
	// MinEvictableIdleTimeMillis is the hard eviction threshold.
	MinEvictableIdleTimeMillis int64
	// SoftMinEvictableIdleTimeMillis is a softer threshold gated by
	// MinIdle: a member older than this is only evicted if doing so
	// still leaves at least MinIdle members parked.
	SoftMinEvictableIdleTimeMillis int64
	// NumTestsPerEvictionRun bounds the per-sweep budget; negative is
	// a fractional "1/|n| of idle size" budget.
	NumTestsPerEvictionRun int
	// Lifo selects the idle-reuse order for non-blocked borrows: head
	// (true, most-recently-returned first) or tail (false, FIFO).
	Lifo bool
	// EvictionPolicyName selects a registered EvictionPolicy; unknown
	// or empty names fall back to DefaultEvictionPolicyName.
	EvictionPolicyName string
}

// NewDefaultPoolConfig returns the default configuration.
func NewDefaultPoolConfig() *ObjectPoolConfig {
	return &ObjectPoolConfig{
		MaxTotal:                       8,
		MaxIdle:                        8,
		MinIdle:                        0,
		MaxWaitMillis:                  -1,
		WhenExhaustedAction:            WhenExhaustedBlock,
		TestOnBorrow:                   false,
		TestOnReturn:                   false,
		TestOnCreate:                   false,
		TestWhileIdle:                  false,
		TimeBetweenEvictionRunsMillis:  -1,
		MinEvictableIdleTimeMillis:     30 * 60 * 1000,
		SoftMinEvictableIdleTimeMillis: -1,
		NumTestsPerEvictionRun:         3,
		Lifo:                           true,
		EvictionPolicyName:             DefaultEvictionPolicyName,
	}
}

// poolConfigSnapshot is the immutable read-only copy borrow/return/evict
// take at method entry: configuration fields are individually volatile,
// so every call reads one consistent snapshot instead of racing the
// individual fields.
type poolConfigSnapshot struct {
	maxTotal                       int
	maxIdle                        int
	minIdle                        int
	maxWaitMillis                  int64
	whenExhaustedAction            WhenExhaustedAction
	testOnBorrow                   bool
	testOnReturn                   bool
	testOnCreate                   bool
	testWhileIdle                  bool
	timeBetweenEvictionRunsMillis  int64
	minEvictableIdleTimeMillis     int64
	softMinEvictableIdleTimeMillis int64
	numTestsPerEvictionRun         int
	lifo                           bool
	evictionPolicyName             string
}

func snapshotOf(c *ObjectPoolConfig) *poolConfigSnapshot {
	return &poolConfigSnapshot{
		maxTotal:                       c.MaxTotal,
		maxIdle:                        c.MaxIdle,
		minIdle:                        c.MinIdle,
		maxWaitMillis:                  c.MaxWaitMillis,
		whenExhaustedAction:            c.WhenExhaustedAction,
		testOnBorrow:                   c.TestOnBorrow,
		testOnReturn:                   c.TestOnReturn,
		testOnCreate:                   c.TestOnCreate,
		testWhileIdle:                  c.TestWhileIdle,
		timeBetweenEvictionRunsMillis:  c.TimeBetweenEvictionRunsMillis,
		minEvictableIdleTimeMillis:     c.MinEvictableIdleTimeMillis,
		softMinEvictableIdleTimeMillis: c.SoftMinEvictableIdleTimeMillis,
		numTestsPerEvictionRun:         c.NumTestsPerEvictionRun,
		lifo:                           c.Lifo,
		evictionPolicyName:             c.EvictionPolicyName,
	}
}

// AbandonedConfig governs the abandoned-object sweep: detecting
// ALLOCATED members a borrower never returned. Off by default; nil on
// a pool means the sweep never runs.
type AbandonedConfig struct {
	// RemoveAbandonedOnBorrow runs the sweep opportunistically inside
	// BorrowObject when idle supply is low and active count is near
	// MaxTotal.
	RemoveAbandonedOnBorrow bool
	// RemoveAbandonedOnMaintenance runs the sweep at the end of every
	// evictor pass.
	RemoveAbandonedOnMaintenance bool
	// RemoveAbandonedTimeout is how long, in seconds, a member may sit
	// ALLOCATED with no activity before the sweep claims it.
	RemoveAbandonedTimeout int64
}
