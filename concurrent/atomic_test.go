package concurrent

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAtomicInteger_IncrementDecrement(t *testing.T) {
	a := NewAtomicInteger(0)
	assert.EqualValues(t, 1, a.IncrementAndGet())
	assert.EqualValues(t, 2, a.IncrementAndGet())
	assert.EqualValues(t, 1, a.DecrementAndGet())
	assert.EqualValues(t, 1, a.Get())
}

func TestAtomicInteger_SetAndGet(t *testing.T) {
	a := NewAtomicInteger(5)
	assert.EqualValues(t, 5, a.Get())
	a.Set(42)
	assert.EqualValues(t, 42, a.Get())
}

func TestAtomicInteger_CompareAndSet(t *testing.T) {
	a := NewAtomicInteger(10)
	assert.False(t, a.CompareAndSet(1, 2))
	assert.EqualValues(t, 10, a.Get())
	assert.True(t, a.CompareAndSet(10, 20))
	assert.EqualValues(t, 20, a.Get())
}

func TestAtomicInteger_ConcurrentIncrements(t *testing.T) {
	a := NewAtomicInteger(0)
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.IncrementAndGet()
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 200, a.Get())
}
