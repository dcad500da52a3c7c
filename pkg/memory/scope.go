package memory

// Scopes - nested lifetime regions owning allocation records
//
// Scope hierarchy (stack discipline, push/pop nest):
//   global (depth 0, never popped)
//     └── scope 1 (depth 1)
//           └── scope 2 (depth 2)   <- current
//
// Every live record is linked into exactly one scope's list. Popping a scope
// frees every record still linked to it regardless of refcount. Escape moves a
// record one level out (or straight to global) without touching its count.

// ScopeID identifies a scope. The global scope is always GlobalScope.
type ScopeID uint64

// GlobalScope is the ID of the root scope
const GlobalScope ScopeID = 1

// Scope is a lifetime region
type Scope struct {
	ID     ScopeID
	Depth  int
	Parent *Scope

	head *record
	len  int
}

// record is one managed allocation
type record struct {
	prev, next *record
	scope      *Scope

	block Block
	size  int
	rc    int32
}

func (r *record) addr() uintptr { return r.block.Addr }

// Len returns the number of records linked into the scope
func (s *Scope) Len() int { return s.len }

// link pushes r at the head of the scope list
func (s *Scope) link(r *record) {
	r.scope = s
	r.prev = nil
	r.next = s.head
	if s.head != nil {
		s.head.prev = r
	}
	s.head = r
	s.len++
}

// unlink removes r from whichever scope owns it
func (r *record) unlink() {
	s := r.scope
	if s == nil {
		return
	}
	if r.prev != nil {
		r.prev.next = r.next
	} else if s.head == r {
		s.head = r.next
	}
	if r.next != nil {
		r.next.prev = r.prev
	}
	r.prev = nil
	r.next = nil
	r.scope = nil
	s.len--
}

// find walks the scope list for the record owning addr
func (s *Scope) find(addr uintptr) *record {
	for cur := s.head; cur != nil; cur = cur.next {
		if cur.addr() == addr {
			return cur
		}
	}
	return nil
}

// PushScope creates a child of the current scope and makes it current
func (m *Manager) PushScope() ScopeID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextScope++
	s := &Scope{
		ID:     m.nextScope,
		Depth:  m.current.Depth + 1,
		Parent: m.current,
	}
	m.scopes[s.ID] = s
	m.current = s
	return s.ID
}

// PopScope frees everything still linked to the current scope and returns
// to its parent. Popping the global scope is a no-op.
func (m *Manager) PopScope() {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.current
	if s == m.global {
		return
	}
	for cur := s.head; cur != nil; {
		next := cur.next
		m.destroyLocked(cur)
		cur = next
	}
	s.head = nil
	s.len = 0

	delete(m.scopes, s.ID)
	if s.Parent != nil {
		m.current = s.Parent
	} else {
		m.current = m.global
	}
}

// Current returns the active scope
func (m *Manager) Current() ScopeID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.ID
}

// Global returns the root scope
func (m *Manager) Global() ScopeID { return GlobalScope }

// Depth returns the nesting level of the active scope (global = 0)
func (m *Manager) Depth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Depth
}

// ScopeLen returns the number of records owned by a live scope, or -1
func (m *Manager) ScopeLen(id ScopeID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scopes[id]
	if !ok {
		return -1
	}
	return s.len
}

// Escape moves the record owning p into its scope's parent. Records already
// in the global scope stay put.
func (m *Manager) Escape(p uintptr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.find(p)
	if r == nil {
		return
	}
	s := r.scope
	if s == nil || s == m.global {
		return
	}
	target := s.Parent
	if target == nil {
		target = m.global
	}
	r.unlink()
	target.link(r)
}

// EscapeToGlobal moves the record owning p straight to the global scope
func (m *Manager) EscapeToGlobal(p uintptr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.find(p)
	if r == nil {
		return
	}
	if r.scope == nil || r.scope == m.global {
		return
	}
	r.unlink()
	m.global.link(r)
}
