package memory

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"scoperc/pkg/config"
	"scoperc/pkg/ptrindex"
)

// Manager owns the scope stack, the pointer index and the refcount engine.
//
// The scope stack is single-flow state: allocation, scope push/pop, escape
// and free are expected from one goroutine. Only RetainAtomic, ReleaseAtomic
// and RefcountAtomic (or the plain forms in atomic mode) may be called from
// another goroutine, and only on an allocation some live holder keeps above
// zero. mu serializes the list links and the index so that a final release on
// another goroutine can unlink safely.
type Manager struct {
	mu sync.Mutex

	cfg   config.Config
	heap  Heap
	log   *zap.Logger
	index *ptrindex.Table[*record]

	global    *Scope
	current   *Scope
	scopes    map[ScopeID]*Scope
	nextScope ScopeID

	retains  atomic.Int64
	releases atomic.Int64
	allocs   atomic.Int64
	frees    atomic.Int64
	live     atomic.Int64
}

// Options configures a Manager
type Options struct {
	Config config.Config
	Heap   Heap        // Default: GoHeap
	Logger *zap.Logger // Default: no-op

	// IndexMaxCapacity bounds pointer index growth; 0 is unbounded
	IndexMaxCapacity int
}

// Info describes a live allocation
type Info struct {
	Addr  uintptr
	Size  int
	RC    int32
	Scope ScopeID
}

// NewManager creates a manager with an empty global scope
func NewManager(opts Options) *Manager {
	h := opts.Heap
	if h == nil {
		h = NewGoHeap()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	global := &Scope{ID: GlobalScope}
	m := &Manager{
		cfg:       opts.Config,
		heap:      h,
		log:       log,
		index:     ptrindex.New[*record](opts.Config.IndexCapacity, opts.IndexMaxCapacity),
		global:    global,
		current:   global,
		scopes:    map[ScopeID]*Scope{GlobalScope: global},
		nextScope: GlobalScope,
	}
	return m
}

// HeapFor returns the heap backend named by cfg.Heap
func HeapFor(cfg config.Config) (Heap, error) {
	switch cfg.Heap {
	case config.HeapMmap:
		h, err := NewMmapHeap()
		if err != nil {
			return nil, fmt.Errorf("heap %q: %w", cfg.Heap, err)
		}
		return h, nil
	default:
		return NewGoHeap(), nil
	}
}

// Config returns the settings the manager was built with
func (m *Manager) Config() config.Config { return m.cfg }

// Alloc creates a record of size bytes in the current scope with rc=1 and
// returns its payload address. size <= 0 allocates one byte.
func (m *Manager) Alloc(size int) (uintptr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.newRecord(m.current, size)
	if err != nil {
		return 0, err
	}
	return r.addr(), nil
}

// lookup resolves p under the lock
func (m *Manager) lookup(p uintptr) *record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(p)
}

func (m *Manager) newRecord(s *Scope, size int) (*record, error) {
	if size <= 0 {
		size = 1
	}
	b, err := m.heap.Alloc(size)
	if err != nil {
		return nil, fmt.Errorf("alloc %d bytes: %w", size, err)
	}
	r := &record{block: b, size: size, rc: 1}
	s.link(r)
	m.indexPut(r)
	m.allocs.Add(1)
	m.live.Add(1)
	return r, nil
}

// Free releases p unconditionally, whatever its refcount
func (m *Manager) Free(p uintptr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.findScan(p)
	if r == nil {
		return
	}
	m.destroyLocked(r)
}

// Lookup reports the record owning p
func (m *Manager) Lookup(p uintptr) (Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.find(p)
	if r == nil {
		return Info{}, false
	}
	info := Info{Addr: r.addr(), Size: r.size, RC: atomic.LoadInt32(&r.rc)}
	if r.scope != nil {
		info.Scope = r.scope.ID
	}
	return info, true
}

// Bytes returns the payload of p, or nil for an unknown address
func (m *Manager) Bytes(p uintptr) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.find(p)
	if r == nil {
		return nil
	}
	return r.block.Data[:r.size:r.size]
}

// destroyLocked unlinks, unindexes and frees r
func (m *Manager) destroyLocked(r *record) {
	r.unlink()
	m.indexDelete(r.addr())
	atomic.StoreInt32(&r.rc, 0)
	m.heap.Free(r.block)
	r.block = Block{}
	m.frees.Add(1)
	if m.live.Load() > 0 {
		m.live.Add(-1)
	}
}

// indexPut records r in the pointer index. A refused insert is absorbed:
// lookups fall back to the scope scan when that is enabled.
func (m *Manager) indexPut(r *record) {
	if !m.cfg.PtrIndex {
		return
	}
	if !m.index.Put(r.addr(), r) {
		m.log.Debug("pointer index full", zap.Uintptr("ptr", r.addr()), zap.Int("cap", m.index.Cap()))
	}
}

func (m *Manager) indexDelete(p uintptr) {
	if m.cfg.PtrIndex {
		m.index.Delete(p)
	}
}

// find resolves p through the index, scanning the scope chain on a miss only
// when the scan fallback is enabled or the index is off
func (m *Manager) find(p uintptr) *record {
	if p == 0 {
		return nil
	}
	if m.cfg.PtrIndex {
		if r, ok := m.index.Get(p); ok {
			return r
		}
		if !m.cfg.PtrIndexScan {
			return nil
		}
	}
	return m.scan(p)
}

// findScan always falls back to the scope chain on an index miss
func (m *Manager) findScan(p uintptr) *record {
	if p == 0 {
		return nil
	}
	if m.cfg.PtrIndex {
		if r, ok := m.index.Get(p); ok {
			return r
		}
	}
	return m.scan(p)
}

func (m *Manager) scan(p uintptr) *record {
	for s := m.current; s != nil; s = s.Parent {
		if r := s.find(p); r != nil {
			return r
		}
	}
	return nil
}
