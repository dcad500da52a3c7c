package sched

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// Cooperative task scheduler
//
// A FIFO queue of deferred closures. Nothing runs until someone calls
// RunOnce or Run, and a task that starts always runs to completion. Cells
// and channels make progress by draining the queue from their poll loops.
//
// The queue is safe to feed from other goroutines (an external producer may
// Spawn or Set), but tasks only ever execute on the goroutine that drains.

// Options configures a Scheduler
type Options struct {
	// MaxPending caps the queue length. When the queue is full Spawn runs
	// the task immediately instead of dropping it. 0 means unbounded.
	MaxPending int
}

// Scheduler is a FIFO run queue
type Scheduler struct {
	mu         sync.Mutex
	head, tail *node
	pending    int
	maxPending int

	wake chan struct{}
}

type node struct {
	fn   func()
	next *node
}

var nodePool = sync.Pool{New: func() any { return new(node) }}

// spinYields is how many empty polls yield before the backoff sleeps
const spinYields = 16

// maxBackoff caps the idle sleep of a poll loop
const maxBackoff = time.Millisecond

// New creates an empty scheduler
func New(opts Options) *Scheduler {
	return &Scheduler{
		maxPending: opts.MaxPending,
		wake:       make(chan struct{}, 1),
	}
}

// Spawn appends fn to the queue. If no queue slot is available fn runs
// synchronously before Spawn returns.
func (s *Scheduler) Spawn(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	if s.maxPending > 0 && s.pending >= s.maxPending {
		s.mu.Unlock()
		fn()
		return
	}
	n := nodePool.Get().(*node)
	n.fn = fn
	n.next = nil
	if s.tail != nil {
		s.tail.next = n
	} else {
		s.head = n
	}
	s.tail = n
	s.pending++
	s.mu.Unlock()
	s.signal()
}

// Pending returns the number of queued tasks
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// RunOnce runs the head task and reports whether one ran
func (s *Scheduler) RunOnce() bool {
	s.mu.Lock()
	n := s.head
	if n == nil {
		s.mu.Unlock()
		return false
	}
	s.head = n.next
	if s.head == nil {
		s.tail = nil
	}
	s.pending--
	s.mu.Unlock()

	fn := n.fn
	n.fn = nil
	n.next = nil
	nodePool.Put(n)

	fn()
	return true
}

// Run executes tasks until the queue is empty, including tasks spawned
// while running
func (s *Scheduler) Run() {
	for s.RunOnce() {
	}
}

// Reset drops every queued task without running it
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for n := s.head; n != nil; {
		next := n.next
		n.fn = nil
		n.next = nil
		nodePool.Put(n)
		n = next
	}
	s.head = nil
	s.tail = nil
	s.pending = 0
}

// signal wakes an idle poll loop, if any
func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// idle is called by a poll loop that found the queue empty. It yields for
// the first spinYields attempts, then sleeps with exponential backoff up to
// maxBackoff. A Spawn or Set cuts the sleep short.
func (s *Scheduler) idle(ctx context.Context, attempt int) error {
	if attempt < spinYields {
		runtime.Gosched()
		return ctx.Err()
	}
	shift := attempt - spinYields
	if shift > 10 {
		shift = 10
	}
	d := time.Microsecond << shift
	if d > maxBackoff {
		d = maxBackoff
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-s.wake:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
