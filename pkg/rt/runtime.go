// Package rt is the flat entry-point surface generated code calls into.
//
// Every method mirrors one exported C symbol (see package abi) and reports
// failure the way the C side expects: a zero address, a zero handle, a 0/1
// flag or a -1 status. Nothing here panics on bad input from generated code.
package rt

import (
	"go.uber.org/zap"

	"scoperc/pkg/config"
	"scoperc/pkg/handles"
	"scoperc/pkg/memory"
	"scoperc/pkg/sched"
)

// Status codes returned by handle operations
const (
	StatusOK      int32 = 0
	StatusInvalid int32 = -1
)

// Options configures a Runtime
type Options struct {
	Config     config.Config
	Heap       memory.Heap
	Logger     *zap.Logger
	MaxPending int
}

// Runtime bundles the memory manager, the scheduler and the handle tables
type Runtime struct {
	log   *zap.Logger
	mem   *memory.Manager
	sched *sched.Scheduler
	ptrs  *handles.Table[uintptr]
	objs  *handles.Table[any]
}

// New creates a runtime
func New(opts Options) *Runtime {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Runtime{
		log: log,
		mem: memory.NewManager(memory.Options{
			Config: opts.Config,
			Heap:   opts.Heap,
			Logger: log.Named("mm"),
		}),
		sched: sched.New(sched.Options{MaxPending: opts.MaxPending}),
		ptrs:  handles.New[uintptr](handles.Options{}),
		objs:  handles.New[any](handles.Options{}),
	}
}

// NewFromEnv creates a runtime configured from the process environment
func NewFromEnv(log *zap.Logger) (*Runtime, error) {
	cfg := config.Cached()
	heap, err := memory.HeapFor(cfg)
	if err != nil {
		return nil, err
	}
	return New(Options{Config: cfg, Heap: heap, Logger: log}), nil
}

// Memory returns the underlying manager
func (r *Runtime) Memory() *memory.Manager { return r.mem }

// Scheduler returns the underlying scheduler
func (r *Runtime) Scheduler() *sched.Scheduler { return r.sched }

// ============ Allocation ============

// Malloc allocates size bytes in the current scope, or returns 0
func (r *Runtime) Malloc(size int32) uintptr {
	p, err := r.mem.Alloc(int(size))
	if err != nil {
		r.log.Warn("malloc failed", zap.Int32("size", size), zap.Error(err))
		return 0
	}
	return p
}

// Free releases p regardless of its count
func (r *Runtime) Free(p uintptr) { r.mem.Free(p) }

// Realloc resizes p with the copy-on-write rule, or returns 0
func (r *Runtime) Realloc(p uintptr, size int32) uintptr {
	q, err := r.mem.Realloc(p, int(size))
	if err != nil {
		r.log.Warn("realloc failed", zap.Uintptr("ptr", p), zap.Int32("size", size), zap.Error(err))
		return 0
	}
	return q
}

// ============ Scopes ============

// ScopePush enters a child scope and returns its token
func (r *Runtime) ScopePush() uint64 { return uint64(r.mem.PushScope()) }

// ScopePop frees the current scope
func (r *Runtime) ScopePop() { r.mem.PopScope() }

// ScopeEscape moves p one scope outward
func (r *Runtime) ScopeEscape(p uintptr) { r.mem.Escape(p) }

// ScopeEscapeGlobal moves p to the global scope
func (r *Runtime) ScopeEscapeGlobal(p uintptr) { r.mem.EscapeToGlobal(p) }

// ============ Reference counting ============

func (r *Runtime) Retain(p uintptr)               { r.mem.Retain(p) }
func (r *Runtime) Release(p uintptr)              { r.mem.Release(p) }
func (r *Runtime) Refcount(p uintptr) int32       { return r.mem.Refcount(p) }
func (r *Runtime) RetainAtomic(p uintptr)         { r.mem.RetainAtomic(p) }
func (r *Runtime) ReleaseAtomic(p uintptr)        { r.mem.ReleaseAtomic(p) }
func (r *Runtime) RefcountAtomic(p uintptr) int32 { return r.mem.RefcountAtomic(p) }

// ============ Counters ============

func (r *Runtime) RetainCount() int64  { return r.mem.Stats().Retains }
func (r *Runtime) ReleaseCount() int64 { return r.mem.Stats().Releases }
func (r *Runtime) AllocCount() int64   { return r.mem.Stats().Allocs }
func (r *Runtime) FreeCount() int64    { return r.mem.Stats().Frees }
func (r *Runtime) LiveCount() int64    { return r.mem.Stats().Live }

// DiagReset zeroes the cumulative counters
func (r *Runtime) DiagReset() { r.mem.ResetStats() }

// ============ Sequences ============

// SeqGet returns the address of element idx, or 0 when out of range
func (r *Runtime) SeqGet(buf uintptr, length, idx, elemSize int32) uintptr {
	addr, err := memory.IndexAddr(buf, length, idx, elemSize)
	if err != nil {
		r.log.Debug("seq index", zap.Error(err))
		return 0
	}
	return addr
}

// SeqSetGrow grows s so idx is addressable and returns the element address
func (r *Runtime) SeqSetGrow(s *memory.Seq, idx, elemSize int32) uintptr {
	addr, err := r.mem.SeqSetGrow(s, idx, elemSize)
	if err != nil {
		r.log.Debug("seq set grow", zap.Int32("idx", idx), zap.Error(err))
		return 0
	}
	return addr
}

// SeqReserve ensures room for n elements
func (r *Runtime) SeqReserve(s *memory.Seq, n, elemSize int32) {
	if err := r.mem.SeqReserve(s, n, elemSize); err != nil {
		r.log.Warn("seq reserve failed", zap.Int32("cap", n), zap.Error(err))
	}
}

// SeqSetLen sets the length, growing capacity as needed
func (r *Runtime) SeqSetLen(s *memory.Seq, n, elemSize int32) {
	if err := r.mem.SeqSetLen(s, n, elemSize); err != nil {
		r.log.Warn("seq set len failed", zap.Int32("len", n), zap.Error(err))
	}
}
