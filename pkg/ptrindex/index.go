package ptrindex

import "math/bits"

// Pointer Index - reverse map from a raw payload address to its metadata
//
// Open addressing with linear probing over a power-of-two table:
//   key 0          empty slot, terminates a probe
//   key Tombstone  deleted slot, probed over, reusable on insert
//
// The table grows (2x) before an insert once live + tombstone slots would
// reach 70% of capacity. Growth rehashes live entries into a fresh table and
// drops every tombstone.
//
// Growth is bounded by the maxCap given to New. When growth is refused the old table is
// kept and the insert still lands if a free slot remains; otherwise Put
// reports failure and callers fall back to scanning their own bookkeeping.

// Tombstone marks a deleted slot. It is never a valid key.
const Tombstone uintptr = 1

// DefaultCapacity is used when New is given a non-positive capacity
const DefaultCapacity = 1024

// Table maps non-zero addresses to values of type V
type Table[V any] struct {
	keys  []uintptr
	vals  []V
	count int
	tombs int

	initCap int
	maxCap  int
}

// New creates an empty table. Storage is allocated on the first Put.
// maxCap <= 0 leaves growth unbounded.
func New[V any](initCap, maxCap int) *Table[V] {
	if initCap <= 0 {
		initCap = DefaultCapacity
	}
	return &Table[V]{
		initCap: roundPow2(initCap),
		maxCap:  maxCap,
	}
}

// Len returns the number of live entries
func (t *Table[V]) Len() int { return t.count }

// Cap returns the number of slots
func (t *Table[V]) Cap() int { return len(t.keys) }

// Tombstones returns the number of deleted-but-occupied slots
func (t *Table[V]) Tombstones() int { return t.tombs }

// Get returns the value stored for addr
func (t *Table[V]) Get(addr uintptr) (V, bool) {
	var zero V
	if !validKey(addr) || len(t.keys) == 0 {
		return zero, false
	}
	mask := uintptr(len(t.keys) - 1)
	idx := Hash(addr) & mask
	for {
		cur := t.keys[idx]
		if cur == 0 {
			return zero, false
		}
		if cur == addr {
			return t.vals[idx], true
		}
		idx = (idx + 1) & mask
	}
}

// Put inserts or replaces the value for addr. It returns false when the key
// is invalid or the table is full and could not grow.
func (t *Table[V]) Put(addr uintptr, val V) bool {
	if !validKey(addr) {
		return false
	}
	if len(t.keys) == 0 {
		if !t.resize(t.initCap) {
			return false
		}
	}
	if (t.count+t.tombs+1)*10 >= len(t.keys)*7 {
		t.grow()
	}
	// Keep at least one empty slot so probes terminate.
	if t.count+t.tombs+1 >= len(t.keys) && !t.contains(addr) {
		return false
	}

	mask := uintptr(len(t.keys) - 1)
	idx := Hash(addr) & mask
	reuse := -1
	for {
		cur := t.keys[idx]
		if cur == 0 {
			if reuse >= 0 {
				idx = uintptr(reuse)
				t.tombs--
			}
			t.keys[idx] = addr
			t.vals[idx] = val
			t.count++
			return true
		}
		if cur == Tombstone {
			if reuse < 0 {
				reuse = int(idx)
			}
		} else if cur == addr {
			t.vals[idx] = val
			return true
		}
		idx = (idx + 1) & mask
	}
}

// Delete removes addr, leaving a tombstone. It reports whether addr was present.
func (t *Table[V]) Delete(addr uintptr) bool {
	if !validKey(addr) || len(t.keys) == 0 {
		return false
	}
	var zero V
	mask := uintptr(len(t.keys) - 1)
	idx := Hash(addr) & mask
	for {
		cur := t.keys[idx]
		if cur == 0 {
			return false
		}
		if cur == addr {
			t.keys[idx] = Tombstone
			t.vals[idx] = zero
			if t.count > 0 {
				t.count--
			}
			t.tombs++
			return true
		}
		idx = (idx + 1) & mask
	}
}

// Range calls fn for every live entry until fn returns false
func (t *Table[V]) Range(fn func(addr uintptr, val V) bool) {
	for i, k := range t.keys {
		if k > Tombstone {
			if !fn(k, t.vals[i]) {
				return
			}
		}
	}
}

func (t *Table[V]) contains(addr uintptr) bool {
	_, ok := t.Get(addr)
	return ok
}

// grow doubles the table. When doubling is refused, tombstones are still
// purged by rehashing at the current size.
func (t *Table[V]) grow() {
	next := len(t.keys) * 2
	if next > 0 && t.resize(next) {
		return
	}
	if t.tombs > 0 {
		t.resize(len(t.keys))
	}
}

func (t *Table[V]) resize(n int) bool {
	n = roundPow2(n)
	if t.maxCap > 0 && n > t.maxCap {
		return false
	}
	oldKeys, oldVals := t.keys, t.vals
	t.keys = make([]uintptr, n)
	t.vals = make([]V, n)
	t.count = 0
	t.tombs = 0

	mask := uintptr(n - 1)
	for i, k := range oldKeys {
		if k <= Tombstone {
			continue
		}
		idx := Hash(k) & mask
		for t.keys[idx] != 0 {
			idx = (idx + 1) & mask
		}
		t.keys[idx] = k
		t.vals[idx] = oldVals[i]
		t.count++
	}
	return true
}

func validKey(addr uintptr) bool {
	return addr != 0 && addr != Tombstone
}

func roundPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// Hash mixes an address after discarding its alignment bits
func Hash(v uintptr) uintptr {
	if bits.UintSize == 64 {
		x := uint64(v)
		x >>= 3
		x ^= x >> 33
		x *= 0xff51afd7ed558ccd
		x ^= x >> 33
		return uintptr(x)
	}
	x := uint32(v)
	x >>= 2
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	return uintptr(x)
}
