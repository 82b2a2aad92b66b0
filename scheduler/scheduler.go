// Package scheduler implements a process-wide evictor timer shared
// across pool instances. It starts its single background goroutine
// lazily on the first Schedule call and tears it down once the last
// task is canceled, so an idle application holding an ObjectPool with
// the evictor disabled retains no live goroutine.
package scheduler

import (
	"container/heap"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Task is a no-argument unit of work the scheduler runs on its own
// goroutine.
type Task func()

type entry struct {
	task     Task
	period   time.Duration
	next     time.Time
	index    int
	canceled bool
}

type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].next.Before(h[j].next) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *entryHeap) Push(x interface{}) { e := x.(*entry); e.index = len(*h); *h = append(*h, e) }
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Scheduler is a single lazily-started background goroutine dispatching
// an arbitrary number of periodic tasks at their own independent
// cadences, ordered by a min-heap on next-fire time rather than one
// goroutine per task.
type Scheduler struct {
	mu      sync.Mutex
	pending entryHeap
	wake    chan struct{}
	running bool
	logger  *logrus.Entry
}

var shared = New()

// Shared returns the process-wide scheduler every ObjectPool schedules
// its evictor task on unless constructed with
// NewObjectPoolWithScheduler.
func Shared() *Scheduler {
	return shared
}

// New returns a standalone scheduler. Tests that don't want to share
// timer state with other pools in the same process construct their own.
func New() *Scheduler {
	return &Scheduler{
		wake:   make(chan struct{}, 1),
		logger: logrus.WithField("component", "evictor-scheduler"),
	}
}

// Handle identifies one scheduled task for Cancel.
type Handle struct {
	e *entry
}

// Schedule runs task once after delay, then every period thereafter,
// until Cancel(handle) is called. period <= 0 runs task exactly once.
func (s *Scheduler) Schedule(task Task, delay, period time.Duration) *Handle {
	e := &entry{task: task, period: period, next: time.Now().Add(delay)}

	s.mu.Lock()
	heap.Push(&s.pending, e)
	needsStart := !s.running
	if needsStart {
		s.running = true
	}
	s.mu.Unlock()

	if needsStart {
		go s.run()
	}
	s.poke()
	return &Handle{e: e}
}

// Cancel stops h's task. Safe to call more than once, and safe to call
// with a handle whose task already ran to completion (period <= 0).
func (s *Scheduler) Cancel(h *Handle) {
	if h == nil {
		return
	}
	s.mu.Lock()
	h.e.canceled = true
	s.mu.Unlock()
	s.poke()
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run is the scheduler's single worker goroutine. It sleeps until the
// earliest pending task is due, fires every task that has come due,
// and exits once the heap is empty — Schedule restarts it the next time
// it is needed.
func (s *Scheduler) run() {
	for {
		s.mu.Lock()
		for s.pending.Len() > 0 && s.pending[0].canceled {
			heap.Pop(&s.pending)
		}
		if s.pending.Len() == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		wait := time.Until(s.pending[0].next)
		s.mu.Unlock()

		if wait <= 0 {
			s.fireDue()
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-s.wake:
			timer.Stop()
		}
	}
}

func (s *Scheduler) fireDue() {
	now := time.Now()
	var due []Task

	s.mu.Lock()
	for s.pending.Len() > 0 && !s.pending[0].next.After(now) {
		e := heap.Pop(&s.pending).(*entry)
		if e.canceled {
			continue
		}
		due = append(due, e.task)
		if e.period > 0 {
			e.next = now.Add(e.period)
			heap.Push(&s.pending, e)
		}
	}
	s.mu.Unlock()

	for _, task := range due {
		s.runTask(task)
	}
}

// runTask recovers a panicking task so one misbehaving pool's evictor
// never takes down the shared scheduler goroutine.
func (s *Scheduler) runTask(task Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", r).Error("scheduled task panicked, run swallowed")
		}
	}()
	task()
}
