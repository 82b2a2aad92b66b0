package collections

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeque_AddFirstPollFirst_LIFO(t *testing.T) {
	d := NewDeque(10)
	d.AddFirst("a")
	d.AddFirst("b")
	d.AddFirst("c")

	assert.Equal(t, 3, d.Size())
	assert.Equal(t, "c", d.PollFirst())
	assert.Equal(t, "b", d.PollFirst())
	assert.Equal(t, "a", d.PollFirst())
	assert.Nil(t, d.PollFirst())
}

func TestDeque_AddLastPollFirst_FIFO(t *testing.T) {
	d := NewDeque(10)
	d.AddLast("a")
	d.AddLast("b")
	d.AddLast("c")

	assert.Equal(t, "a", d.PollFirst())
	assert.Equal(t, "b", d.PollFirst())
	assert.Equal(t, "c", d.PollFirst())
}

func TestDeque_PollLast(t *testing.T) {
	d := NewDeque(10)
	d.AddFirst("a")
	d.AddFirst("b")
	d.AddFirst("c")
	// deque is now [c, b, a] front to back
	assert.Equal(t, "a", d.PollLast())
	assert.Equal(t, "b", d.PollLast())
	assert.Equal(t, "c", d.PollLast())
	assert.Nil(t, d.PollLast())
}

func TestDeque_RemoveFirstOccurrence(t *testing.T) {
	d := NewDeque(10)
	d.AddLast("a")
	d.AddLast("b")
	d.AddLast("c")

	assert.True(t, d.RemoveFirstOccurrence("b"))
	assert.False(t, d.RemoveFirstOccurrence("b"))
	assert.Equal(t, 2, d.Size())
	assert.Equal(t, "a", d.PollFirst())
	assert.Equal(t, "c", d.PollFirst())
}

func TestDeque_TakeFirst_BlocksUntilAdd(t *testing.T) {
	d := NewDeque(10)
	var got interface{}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := d.TakeFirst()
		require.NoError(t, err)
		got = v
	}()

	time.Sleep(20 * time.Millisecond)
	assert.True(t, d.HasTakeWaiters())
	d.AddLast("value")
	wg.Wait()
	assert.Equal(t, "value", got)
	assert.False(t, d.HasTakeWaiters())
}

func TestDeque_TakeFirst_FIFOFairness(t *testing.T) {
	d := NewDeque(10)
	order := make([]int, 0, 3)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 3; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Stagger so waiters queue in a known order.
			time.Sleep(time.Duration(i) * 20 * time.Millisecond)
			v, err := d.TakeFirst()
			require.NoError(t, err)
			mu.Lock()
			order = append(order, v.(int))
			mu.Unlock()
		}()
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	d.AddLast(1)
	d.AddLast(2)
	d.AddLast(3)
	wg.Wait()

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestDeque_PollFirstWithTimeout_Elapses(t *testing.T) {
	d := NewDeque(10)
	start := time.Now()
	v, err := d.PollFirstWithTimeout(50 * time.Millisecond)
	elapsed := time.Since(start)

	assert.NoError(t, err)
	assert.Nil(t, v)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestDeque_PollFirstWithTimeout_RacesAdd(t *testing.T) {
	d := NewDeque(10)
	go func() {
		time.Sleep(10 * time.Millisecond)
		d.AddLast("won")
	}()

	v, err := d.PollFirstWithTimeout(500 * time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, "won", v)
}

func TestDeque_InterruptTakeWaiters(t *testing.T) {
	d := NewDeque(10)
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.TakeFirst()
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	d.InterruptTakeWaiters()
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.ErrorIs(t, err, ErrInterrupted)
	}
}

func TestDeque_Iterator_OldestToNewest(t *testing.T) {
	d := NewDeque(10)
	d.AddLast(1)
	d.AddLast(2)
	d.AddLast(3)

	it := d.Iterator()
	var got []int
	for it.HasNext() {
		got = append(got, it.Next().(int))
	}
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestDeque_DescendingIterator_OldestToNewest_WhenLifoInsertion(t *testing.T) {
	d := NewDeque(10)
	// LIFO reuse order: newest parked at the head.
	d.AddFirst(1)
	d.AddFirst(2)
	d.AddFirst(3)
	// Deque front-to-back is now [3, 2, 1]; oldest (1) sits at the tail.

	it := d.DescendingIterator()
	var got []int
	for it.HasNext() {
		got = append(got, it.Next().(int))
	}
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestDeque_Iterator_ExhaustsAfterTailRemoved(t *testing.T) {
	d := NewDeque(10)
	d.AddLast(1)
	d.AddLast(2)

	it := d.Iterator()
	require.True(t, it.HasNext())
	assert.Equal(t, 1, it.Next())

	// The node the iterator is about to visit is unlinked out from
	// under it; advancing past it exhausts the iterator instead of
	// continuing to a node that no longer follows it in the list.
	d.Remove(2)
	require.True(t, it.HasNext())
	assert.Equal(t, 2, it.Next())
	assert.False(t, it.HasNext())
}
