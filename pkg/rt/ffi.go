package rt

import (
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"scoperc/pkg/handles"
)

// FfiHandleRegister wraps p in an opaque handle. 0 for a nil pointer or a
// full table.
func (r *Runtime) FfiHandleRegister(p uintptr) uint64 {
	if p == 0 {
		return 0
	}
	h, err := r.ptrs.Register(p)
	if err != nil {
		r.log.Warn("ffi handle register failed", zap.Uintptr("ptr", p), zap.Error(err))
		return 0
	}
	return uint64(h)
}

// FfiHandleResolve returns the pointer behind h, or 0 for a stale handle
func (r *Runtime) FfiHandleResolve(h uint64) uintptr {
	p, _ := r.ptrs.Resolve(handles.Handle(h))
	return p
}

// FfiHandleInvalidate retires h
func (r *Runtime) FfiHandleInvalidate(h uint64) int32 {
	if err := r.ptrs.Invalidate(handles.Handle(h)); err != nil {
		return StatusInvalid
	}
	return StatusOK
}

// ============ Int32 cells ============
//
// A boxed int32 reachable only through a handle. The box is a managed
// allocation parked in the global scope so scope pops never reclaim it.

// HandleNewInt32 boxes v and returns its handle, or 0
func (r *Runtime) HandleNewInt32(v int32) uint64 {
	p := r.Malloc(4)
	if p == 0 {
		return 0
	}
	r.mem.EscapeToGlobal(p)
	cell := r.int32At(p)
	if cell == nil {
		r.mem.Free(p)
		return 0
	}
	atomic.StoreInt32(cell, v)
	h := r.FfiHandleRegister(p)
	if h == 0 {
		r.mem.Free(p)
	}
	return h
}

// HandleGetInt32 reads the boxed value
func (r *Runtime) HandleGetInt32(h uint64) (int32, int32) {
	cell := r.int32At(r.FfiHandleResolve(h))
	if cell == nil {
		return 0, StatusInvalid
	}
	return atomic.LoadInt32(cell), StatusOK
}

// HandleAddInt32 adds delta to the boxed value and returns the new value
func (r *Runtime) HandleAddInt32(h uint64, delta int32) (int32, int32) {
	cell := r.int32At(r.FfiHandleResolve(h))
	if cell == nil {
		return 0, StatusInvalid
	}
	return atomic.AddInt32(cell, delta), StatusOK
}

// HandleReleaseInt32 retires h and frees the box
func (r *Runtime) HandleReleaseInt32(h uint64) int32 {
	p := r.FfiHandleResolve(h)
	if p == 0 {
		return StatusInvalid
	}
	if status := r.FfiHandleInvalidate(h); status != StatusOK {
		return status
	}
	r.mem.Free(p)
	return StatusOK
}

// ============ Atomics on managed memory ============
//
// p must be the payload address of a managed allocation of at least four
// bytes. Unknown addresses read as 0 and never store.

// AtomicCASInt32 swaps *p from expect to desired and returns 1 on success
func (r *Runtime) AtomicCASInt32(p uintptr, expect, desired int32) int32 {
	cell := r.int32At(p)
	if cell == nil {
		return 0
	}
	return boolToInt32(atomic.CompareAndSwapInt32(cell, expect, desired))
}

// AtomicStoreInt32 stores v at p
func (r *Runtime) AtomicStoreInt32(p uintptr, v int32) {
	if cell := r.int32At(p); cell != nil {
		atomic.StoreInt32(cell, v)
	}
}

// AtomicLoadInt32 loads the int32 at p
func (r *Runtime) AtomicLoadInt32(p uintptr) int32 {
	if cell := r.int32At(p); cell != nil {
		return atomic.LoadInt32(cell)
	}
	return 0
}

// int32At views the first four payload bytes of p as an int32
func (r *Runtime) int32At(p uintptr) *int32 {
	if p == 0 {
		return nil
	}
	b := r.mem.Bytes(p)
	if len(b) < 4 {
		return nil
	}
	return (*int32)(unsafe.Pointer(&b[0]))
}
