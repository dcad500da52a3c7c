package memory

import (
	"fmt"
	"sync/atomic"
)

// Realloc resizes the allocation at p to size bytes and returns its address.
//
// A record with rc <= 1 is resized in place (the address may still change if
// the heap has to move it) and keeps its count. A shared record (rc > 1) is
// never touched: a fresh rc=1 copy is created in the original's scope, holding
// min(old, new) bytes, and the original gives up one reference.
//
// p == 0 behaves as Alloc. size <= 0 is treated as 1.
func (m *Manager) Realloc(p uintptr, size int) (uintptr, error) {
	if p == 0 {
		return m.Alloc(size)
	}
	if size <= 0 {
		size = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.findScan(p)
	if r == nil {
		return 0, fmt.Errorf("realloc %#x: %w", p, ErrUnknownPointer)
	}
	if !m.cfg.Disabled && m.loadRC(r) > 1 {
		return m.cloneLocked(r, size)
	}

	nb, err := m.heap.Resize(r.block, size)
	if err != nil {
		return 0, fmt.Errorf("realloc %#x to %d bytes: %w", p, size, err)
	}
	if nb.Addr != r.block.Addr {
		// the heap released the old block
		m.indexDelete(r.block.Addr)
		r.block = nb
		m.indexPut(r)
	}
	if size > r.size {
		clear(r.block.Data[r.size:size])
	}
	r.size = size
	return r.addr(), nil
}

// cloneLocked copies a shared record into a fresh one and drops one
// reference from the original
func (m *Manager) cloneLocked(r *record, size int) (uintptr, error) {
	s := r.scope
	if s == nil {
		s = m.current
	}
	fresh, err := m.newRecord(s, size)
	if err != nil {
		return 0, err
	}
	copy(fresh.block.Data[:size], r.block.Data[:r.size])

	if m.cfg.Atomic {
		atomic.AddInt32(&r.rc, -1)
	} else if r.rc > 0 {
		r.rc--
	}
	return fresh.addr(), nil
}

func (m *Manager) loadRC(r *record) int32 {
	if m.cfg.Atomic {
		return atomic.LoadInt32(&r.rc)
	}
	return r.rc
}
