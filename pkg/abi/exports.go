// Package abi describes the C entry points generated code links against and
// the rt.Runtime method behind each one.
package abi

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Group orders related exports in the emitted header
type Group int

const (
	GroupAlloc Group = iota
	GroupScope
	GroupRefcount
	GroupCounters
	GroupSeq
	GroupSched
	GroupAsync
	GroupChan
	GroupHandles
	GroupAtomic
)

var groupTitles = map[Group]string{
	GroupAlloc:    "Allocation",
	GroupScope:    "Scopes",
	GroupRefcount: "Reference counting",
	GroupCounters: "Counters",
	GroupSeq:      "Sequences",
	GroupSched:    "Scheduler",
	GroupAsync:    "Async cells",
	GroupChan:     "Channels",
	GroupHandles:  "FFI handles",
	GroupAtomic:   "Atomics",
}

// Title returns the header section name
func (g Group) Title() string { return groupTitles[g] }

// Export is one C symbol
type Export struct {
	Symbol string // C name
	Result string // C return type
	Params string // C parameter list
	Method string // rt.Runtime method
	Group  Group
}

// Prototype returns the C declaration
func (e Export) Prototype() string {
	params := e.Params
	if params == "" {
		params = "void"
	}
	return e.Result + " " + e.Symbol + "(" + params + ");"
}

var exports = map[string]Export{}

func add(g Group, result, symbol, params, method string) {
	exports[symbol] = Export{Symbol: symbol, Result: result, Params: params, Method: method, Group: g}
}

func init() {
	add(GroupAlloc, "void*", "cheng_malloc", "int32_t size", "Malloc")
	add(GroupAlloc, "void", "cheng_free", "void* p", "Free")
	add(GroupAlloc, "void*", "cheng_realloc", "void* p, int32_t size", "Realloc")

	add(GroupScope, "uint64_t", "cheng_mem_scope_push", "", "ScopePush")
	add(GroupScope, "void", "cheng_mem_scope_pop", "", "ScopePop")
	add(GroupScope, "void", "cheng_mem_scope_escape", "void* p", "ScopeEscape")
	add(GroupScope, "void", "cheng_mem_scope_escape_global", "void* p", "ScopeEscapeGlobal")

	add(GroupRefcount, "void", "cheng_mem_retain", "void* p", "Retain")
	add(GroupRefcount, "void", "cheng_mem_release", "void* p", "Release")
	add(GroupRefcount, "int32_t", "cheng_mem_refcount", "void* p", "Refcount")
	add(GroupRefcount, "void", "cheng_mem_retain_atomic", "void* p", "RetainAtomic")
	add(GroupRefcount, "void", "cheng_mem_release_atomic", "void* p", "ReleaseAtomic")
	add(GroupRefcount, "int32_t", "cheng_mem_refcount_atomic", "void* p", "RefcountAtomic")

	add(GroupCounters, "int64_t", "cheng_mm_retain_count", "", "RetainCount")
	add(GroupCounters, "int64_t", "cheng_mm_release_count", "", "ReleaseCount")
	add(GroupCounters, "int64_t", "cheng_mm_alloc_count", "", "AllocCount")
	add(GroupCounters, "int64_t", "cheng_mm_free_count", "", "FreeCount")
	add(GroupCounters, "int64_t", "cheng_mm_live_count", "", "LiveCount")
	add(GroupCounters, "void", "cheng_mm_diag_reset", "", "DiagReset")

	add(GroupSeq, "void*", "cheng_seq_get", "void* buffer, int32_t len, int32_t idx, int32_t elem_size", "SeqGet")
	add(GroupSeq, "void*", "cheng_seq_set_grow", "ChengSeqHeader* seq, int32_t idx, int32_t elem_size", "SeqSetGrow")
	add(GroupSeq, "void", "cheng_seq_reserve", "ChengSeqHeader* seq, int32_t cap, int32_t elem_size", "SeqReserve")
	add(GroupSeq, "void", "cheng_seq_set_len", "ChengSeqHeader* seq, int32_t len, int32_t elem_size", "SeqSetLen")

	add(GroupSched, "void", "cheng_spawn", "ChengTaskFn fn, void* ctx", "Spawn")
	add(GroupSched, "int32_t", "cheng_sched_pending", "", "SchedPending")
	add(GroupSched, "int32_t", "cheng_sched_run_once", "", "SchedRunOnce")
	add(GroupSched, "void", "cheng_sched_run", "", "SchedRun")

	add(GroupAsync, "uint64_t", "cheng_async_pending_i32", "", "AsyncPendingI32")
	add(GroupAsync, "uint64_t", "cheng_async_ready_i32", "int32_t value", "AsyncReadyI32")
	add(GroupAsync, "void", "cheng_async_set_i32", "uint64_t cell, int32_t value", "AsyncSetI32")
	add(GroupAsync, "int32_t", "cheng_await_i32", "uint64_t cell", "AwaitI32")
	add(GroupAsync, "uint64_t", "cheng_async_pending_void", "", "AsyncPendingVoid")
	add(GroupAsync, "uint64_t", "cheng_async_ready_void", "", "AsyncReadyVoid")
	add(GroupAsync, "void", "cheng_async_set_void", "uint64_t cell", "AsyncSetVoid")
	add(GroupAsync, "void", "cheng_await_void", "uint64_t cell", "AwaitVoid")
	add(GroupAsync, "int32_t", "cheng_obj_release", "uint64_t handle", "ObjRelease")

	add(GroupChan, "uint64_t", "cheng_chan_i32_new", "int32_t cap", "ChanI32New")
	add(GroupChan, "int32_t", "cheng_chan_i32_send", "uint64_t ch, int32_t value", "ChanI32Send")
	add(GroupChan, "int32_t", "cheng_chan_i32_recv", "uint64_t ch, int32_t* out", "ChanI32Recv")

	add(GroupHandles, "uint64_t", "cheng_ffi_handle_register_ptr", "void* p", "FfiHandleRegister")
	add(GroupHandles, "void*", "cheng_ffi_handle_resolve_ptr", "uint64_t handle", "FfiHandleResolve")
	add(GroupHandles, "int32_t", "cheng_ffi_handle_invalidate", "uint64_t handle", "FfiHandleInvalidate")
	add(GroupHandles, "uint64_t", "cheng_ffi_handle_new_i32", "int32_t value", "HandleNewInt32")
	add(GroupHandles, "int32_t", "cheng_ffi_handle_get_i32", "uint64_t handle, int32_t* out", "HandleGetInt32")
	add(GroupHandles, "int32_t", "cheng_ffi_handle_add_i32", "uint64_t handle, int32_t delta, int32_t* out", "HandleAddInt32")
	add(GroupHandles, "int32_t", "cheng_ffi_handle_release_i32", "uint64_t handle", "HandleReleaseInt32")

	add(GroupAtomic, "int32_t", "cheng_atomic_cas_i32", "int32_t* p, int32_t expect, int32_t desired", "AtomicCASInt32")
	add(GroupAtomic, "void", "cheng_atomic_store_i32", "int32_t* p, int32_t value", "AtomicStoreInt32")
	add(GroupAtomic, "int32_t", "cheng_atomic_load_i32", "int32_t* p", "AtomicLoadInt32")
}

// Exports returns every export ordered by group, then symbol
func Exports() []Export {
	names := maps.Keys(exports)
	slices.Sort(names)
	out := make([]Export, 0, len(names))
	for _, name := range names {
		out = append(out, exports[name])
	}
	slices.SortStableFunc(out, func(a, b Export) bool { return a.Group < b.Group })
	return out
}

// Lookup returns the export for a C symbol
func Lookup(symbol string) (Export, bool) {
	e, ok := exports[symbol]
	return e, ok
}
