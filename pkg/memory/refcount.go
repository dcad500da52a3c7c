package memory

import (
	"math"
	"sync/atomic"

	"go.uber.org/zap"
)

// Reference counting
//
// Two modes, chosen once from config:
//   relaxed  plain read-modify-write, single goroutine only
//   atomic   CAS increment, fetch-and-subtract decrement
//
// Counts saturate at MaxInt32 instead of wrapping. A release that drops the
// count to zero or below frees the record. Unknown pointers are ignored and
// report a count of zero.

// Retain increments the count of p using the configured mode
func (m *Manager) Retain(p uintptr) {
	m.retain(p, m.cfg.Atomic, "retain")
}

// Release decrements the count of p using the configured mode
func (m *Manager) Release(p uintptr) {
	m.release(p, m.cfg.Atomic, "release")
}

// Refcount returns the count of p, or 0 when p is unknown or refcounting is off
func (m *Manager) Refcount(p uintptr) int32 {
	return m.refcount(p, m.cfg.Atomic)
}

// RetainAtomic increments the count of p atomically regardless of mode
func (m *Manager) RetainAtomic(p uintptr) {
	m.retain(p, true, "retain_atomic")
}

// ReleaseAtomic decrements the count of p atomically regardless of mode
func (m *Manager) ReleaseAtomic(p uintptr) {
	m.release(p, true, "release_atomic")
}

// RefcountAtomic loads the count of p atomically
func (m *Manager) RefcountAtomic(p uintptr) int32 {
	return m.refcount(p, true)
}

func (m *Manager) retain(p uintptr, atomicMode bool, op string) {
	if m.cfg.Disabled {
		return
	}
	r := m.lookup(p)
	if r == nil {
		return
	}
	var rc int32
	if atomicMode {
		rc = incSaturating(&r.rc)
	} else {
		if r.rc < math.MaxInt32 {
			r.rc++
		}
		rc = r.rc
	}
	m.retains.Add(1)
	m.diag(op, p, rc)
}

func (m *Manager) release(p uintptr, atomicMode bool, op string) {
	if m.cfg.Disabled {
		return
	}
	r := m.lookup(p)
	if r == nil {
		return
	}
	var next int32
	if atomicMode {
		// seq-cst in Go: the decrement publishes this holder's writes and the
		// zero observer sees all of them before teardown
		next = atomic.AddInt32(&r.rc, -1)
	} else {
		if r.rc > 0 {
			r.rc--
		}
		next = r.rc
	}
	m.releases.Add(1)
	m.diag(op, p, next)
	if next > 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r.block.Data == nil {
		return
	}
	m.destroyLocked(r)
}

func (m *Manager) refcount(p uintptr, atomicMode bool) int32 {
	if m.cfg.Disabled {
		return 0
	}
	r := m.lookup(p)
	if r == nil {
		return 0
	}
	if atomicMode {
		return atomic.LoadInt32(&r.rc)
	}
	return r.rc
}

// incSaturating adds one unless the count already sits at MaxInt32
func incSaturating(rc *int32) int32 {
	for {
		cur := atomic.LoadInt32(rc)
		if cur == math.MaxInt32 {
			return cur
		}
		if atomic.CompareAndSwapInt32(rc, cur, cur+1) {
			return cur + 1
		}
	}
}

func (m *Manager) diag(op string, p uintptr, rc int32) {
	if !m.cfg.Diag {
		return
	}
	m.log.Debug(op, zap.Uintptr("ptr", p), zap.Int32("rc", rc))
}
