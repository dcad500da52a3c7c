package sched

import (
	"errors"
	"fmt"
	"sync"
)

// ErrChannelStalled is returned when a channel operation cannot proceed and
// the scheduler has nothing left to run that could unblock it.
var ErrChannelStalled = errors.New("sched: channel stalled with empty run queue")

// ErrChannelCapacity is returned for a capacity above MaxChannelCapacity
var ErrChannelCapacity = errors.New("sched: channel capacity too large")

// MaxChannelCapacity bounds the buffer a single channel may reserve
const MaxChannelCapacity = 1 << 20

// Channel is a bounded FIFO ring buffer. Send waits while full and Recv
// waits while empty, both by running queued tasks. Unlike a Cell, a channel
// gives up as soon as the run queue is empty.
type Channel[T any] struct {
	s *Scheduler

	mu    sync.Mutex
	buf   []T
	head  int
	tail  int
	count int
}

// NewChannel creates a channel holding up to capacity values. Capacity
// below 1 is raised to 1.
func NewChannel[T any](s *Scheduler, capacity int) (*Channel[T], error) {
	if capacity > MaxChannelCapacity {
		return nil, fmt.Errorf("%w: %d > %d", ErrChannelCapacity, capacity, MaxChannelCapacity)
	}
	if capacity <= 0 {
		capacity = 1
	}
	return &Channel[T]{s: s, buf: make([]T, capacity)}, nil
}

// Cap returns the buffer capacity
func (ch *Channel[T]) Cap() int { return len(ch.buf) }

// Len returns the number of buffered values
func (ch *Channel[T]) Len() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.count
}

// TrySend enqueues v if there is room
func (ch *Channel[T]) TrySend(v T) bool {
	ch.mu.Lock()
	if ch.count == len(ch.buf) {
		ch.mu.Unlock()
		return false
	}
	ch.buf[ch.tail] = v
	ch.tail = (ch.tail + 1) % len(ch.buf)
	ch.count++
	ch.mu.Unlock()
	ch.s.signal()
	return true
}

// TryRecv dequeues the oldest value if there is one
func (ch *Channel[T]) TryRecv() (T, bool) {
	var zero T
	ch.mu.Lock()
	if ch.count == 0 {
		ch.mu.Unlock()
		return zero, false
	}
	v := ch.buf[ch.head]
	ch.buf[ch.head] = zero
	ch.head = (ch.head + 1) % len(ch.buf)
	ch.count--
	ch.mu.Unlock()
	ch.s.signal()
	return v, true
}

// Send enqueues v, running tasks while the buffer is full. It reports
// false when the buffer is full and the run queue is empty.
func (ch *Channel[T]) Send(v T) bool {
	return ch.SendErr(v) == nil
}

// SendErr is Send returning ErrChannelStalled on failure
func (ch *Channel[T]) SendErr(v T) error {
	for !ch.TrySend(v) {
		if !ch.s.RunOnce() {
			return ErrChannelStalled
		}
	}
	return nil
}

// Recv dequeues a value, running tasks while the buffer is empty. It
// reports false when the buffer is empty and the run queue is empty.
func (ch *Channel[T]) Recv() (T, bool) {
	v, err := ch.RecvErr()
	return v, err == nil
}

// RecvErr is Recv returning ErrChannelStalled on failure
func (ch *Channel[T]) RecvErr() (T, error) {
	for {
		if v, ok := ch.TryRecv(); ok {
			return v, nil
		}
		if !ch.s.RunOnce() {
			var zero T
			return zero, ErrChannelStalled
		}
	}
}
