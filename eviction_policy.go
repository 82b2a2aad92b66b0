package pool

import "sync"

// DefaultEvictionPolicyName is the EvictionPolicyName every
// ObjectPoolConfig defaults to.
const DefaultEvictionPolicyName = "default"

// EvictionConfig is the read-only view of the evictor's thresholds an
// EvictionPolicy needs, isolated from the rest of ObjectPoolConfig so a
// custom policy can't reach into borrow/return behavior.
type EvictionConfig struct {
	// IdleEvictTime is the hard threshold (MinEvictableIdleTimeMillis).
	IdleEvictTime int64
	// IdleSoftEvictTime is the soft threshold
	// (SoftMinEvictableIdleTimeMillis), gated by MinIdle.
	IdleSoftEvictTime int64
	// MinIdle is the floor the soft threshold must not dip below.
	MinIdle int
}

// EvictionPolicy decides whether an idle member under test should be
// evicted. Pluggable so callers can swap in a different staleness rule
// without touching the pool coordinator.
type EvictionPolicy interface {
	Evict(config *EvictionConfig, underTest *PooledObject, idleCount int) bool
}

// DefaultEvictionPolicy applies the hard-then-soft staleness rule: the
// hard threshold takes precedence, the soft threshold only applies
// above the MinIdle floor.
type DefaultEvictionPolicy struct{}

// Evict reports whether underTest has been idle long enough to evict.
func (DefaultEvictionPolicy) Evict(config *EvictionConfig, underTest *PooledObject, idleCount int) bool {
	idleTime := underTest.GetIdleTimeMillis()
	if config.IdleEvictTime > 0 && idleTime > config.IdleEvictTime {
		return true
	}
	if config.IdleSoftEvictTime > 0 && idleTime > config.IdleSoftEvictTime && idleCount > config.MinIdle {
		return true
	}
	return false
}

var (
	evictionPoliciesMu sync.RWMutex
	evictionPolicies   = map[string]EvictionPolicy{
		DefaultEvictionPolicyName: DefaultEvictionPolicy{},
	}
)

// RegisterEvictionPolicy makes a custom EvictionPolicy available under
// name for ObjectPoolConfig.EvictionPolicyName to select.
func RegisterEvictionPolicy(name string, policy EvictionPolicy) {
	evictionPoliciesMu.Lock()
	defer evictionPoliciesMu.Unlock()
	evictionPolicies[name] = policy
}

// GetEvictionPolicy looks up a registered policy by name, or nil if
// none is registered under it.
func GetEvictionPolicy(name string) EvictionPolicy {
	evictionPoliciesMu.RLock()
	defer evictionPoliciesMu.RUnlock()
	return evictionPolicies[name]
}
