package sched

import (
	"context"
	"sync"
	"sync/atomic"
)

// Cell is a single-slot future: pending until a producer sets it.
type Cell[T any] struct {
	s     *Scheduler
	ready atomic.Bool

	mu  sync.Mutex
	val T
}

// NewPending returns an unset cell driven by s
func NewPending[T any](s *Scheduler) *Cell[T] {
	return &Cell[T]{s: s}
}

// NewReady returns a cell already holding v
func NewReady[T any](s *Scheduler, v T) *Cell[T] {
	c := &Cell[T]{s: s, val: v}
	c.ready.Store(true)
	return c
}

// Set stores v and marks the cell ready. Setting a ready cell overwrites
// its value.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	c.val = v
	c.mu.Unlock()
	c.ready.Store(true)
	c.s.signal()
}

// Ready reports whether a value is available
func (c *Cell[T]) Ready() bool { return c.ready.Load() }

// Await runs queued tasks until the cell is ready and returns its value.
// With an empty queue it keeps polling, since the producer may live outside
// the scheduler. A producer that never sets the cell stalls Await forever.
func (c *Cell[T]) Await() T {
	v, _ := c.AwaitContext(context.Background())
	return v
}

// AwaitContext is Await with cancellation
func (c *Cell[T]) AwaitContext(ctx context.Context) (T, error) {
	for attempt := 0; !c.ready.Load(); {
		if c.s.RunOnce() {
			attempt = 0
			continue
		}
		if err := c.s.idle(ctx, attempt); err != nil {
			var zero T
			return zero, err
		}
		attempt++
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.val, nil
}

// Void is a cell that carries no value
type Void struct {
	Cell[struct{}]
}

// NewPendingVoid returns an unset void cell
func NewPendingVoid(s *Scheduler) *Void {
	return &Void{Cell[struct{}]{s: s}}
}

// NewReadyVoid returns a completed void cell
func NewReadyVoid(s *Scheduler) *Void {
	v := NewPendingVoid(s)
	v.ready.Store(true)
	return v
}

// Done marks the cell ready
func (v *Void) Done() { v.Set(struct{}{}) }

// Wait blocks like Await
func (v *Void) Wait() { v.Await() }
