// Package handles converts values into opaque 64-bit handles that can cross
// a foreign-function boundary and be validated when they come back.
//
// A handle packs a slot generation and a slot index:
//
//	bits 63..32  generation (never 0)
//	bits 31..0   slot index + 1 (0 is reserved)
//
// Invalidating a handle advances its slot's generation, so a stale handle
// never resolves, even after the slot is reused by a later Register.
package handles

import (
	"errors"
	"math"
	"sync"

	"golang.org/x/exp/slices"
)

var (
	// ErrInvalidHandle indicates a handle that is zero, malformed or stale
	ErrInvalidHandle = errors.New("handles: invalid handle")

	// ErrTableFull indicates the slot array cannot grow any further
	ErrTableFull = errors.New("handles: table full")
)

// Handle is an opaque reference to a registered value. Zero is never valid.
type Handle uint64

// Invalid is the zero handle
const Invalid Handle = 0

// InitialCapacity is the slot count allocated on first Register
const InitialCapacity = 16

// MaxSlots is the largest slot count an index can address
const MaxSlots = math.MaxUint32 - 1

// Index returns the slot index encoded in h
func (h Handle) Index() uint32 { return uint32(h) - 1 }

// Generation returns the slot generation encoded in h
func (h Handle) Generation() uint32 { return uint32(h >> 32) }

func makeHandle(idx, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(idx+1))
}

type slot[V any] struct {
	val  V
	gen  uint32
	live bool
}

// Options configures a Table
type Options struct {
	// MaxSlots bounds the slot array; 0 means MaxSlots
	MaxSlots int
}

// Table is a generation-counted slot array. It is safe for concurrent use.
type Table[V any] struct {
	mu       sync.RWMutex
	slots    []slot[V]
	free     []uint32
	live     int
	maxSlots int
}

// New creates an empty table
func New[V any](opts Options) *Table[V] {
	maxSlots := opts.MaxSlots
	if maxSlots <= 0 || maxSlots > MaxSlots {
		maxSlots = MaxSlots
	}
	return &Table[V]{maxSlots: maxSlots}
}

// Register stores v and returns a fresh handle for it. Freed slots are
// reused most-recent first.
func (t *Table[V]) Register(v V) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		if len(t.slots) >= t.maxSlots {
			return Invalid, ErrTableFull
		}
		t.ensureCapacity(len(t.slots) + 1)
		idx = uint32(len(t.slots))
		t.slots = append(t.slots, slot[V]{gen: 1})
	}

	s := &t.slots[idx]
	s.val = v
	s.live = true
	if s.gen == 0 {
		s.gen = 1
	}
	t.live++
	return makeHandle(idx, s.gen), nil
}

// Resolve returns the value behind h if h is still valid
func (t *Table[V]) Resolve(h Handle) (V, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var zero V
	s := t.lookup(h)
	if s == nil {
		return zero, false
	}
	return s.val, true
}

// Invalidate releases h. Every copy of h stops resolving, and the slot's
// next handle carries a new generation.
func (t *Table[V]) Invalidate(h Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.lookup(h)
	if s == nil {
		return ErrInvalidHandle
	}
	var zero V
	s.val = zero
	s.live = false
	if s.gen == math.MaxUint32 {
		s.gen = 1
	} else {
		s.gen++
	}
	t.live--
	t.free = append(t.free, h.Index())
	return nil
}

// Len returns the number of live handles
func (t *Table[V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// Cap returns the allocated slot capacity
func (t *Table[V]) Cap() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return cap(t.slots)
}

// lookup decodes h and returns its slot when the generation matches
func (t *Table[V]) lookup(h Handle) *slot[V] {
	if h == Invalid || uint32(h) == 0 || h.Generation() == 0 {
		return nil
	}
	idx := h.Index()
	if int(idx) >= len(t.slots) {
		return nil
	}
	s := &t.slots[idx]
	if !s.live || s.gen != h.Generation() {
		return nil
	}
	return s
}

// ensureCapacity doubles from InitialCapacity until min fits, clamping to
// the slot limit
func (t *Table[V]) ensureCapacity(min int) {
	c := cap(t.slots)
	if c >= min {
		return
	}
	if c < InitialCapacity {
		c = InitialCapacity
	}
	for c < min {
		if c > t.maxSlots/2 {
			c = min
			break
		}
		c *= 2
	}
	if c > t.maxSlots {
		c = t.maxSlots
	}
	t.slots = slices.Grow(t.slots, c-len(t.slots))
}
