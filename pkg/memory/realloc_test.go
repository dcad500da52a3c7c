package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealloc_UniqueResizesAndKeepsCount(t *testing.T) {
	m := newManager(t)
	p := mustAlloc(t, m, 8)
	copy(m.Bytes(p), "abcdefgh")

	q, err := m.Realloc(p, 100)
	require.NoError(t, err)

	info, ok := m.Lookup(q)
	require.True(t, ok)
	assert.Equal(t, int32(1), info.RC)
	assert.Equal(t, 100, info.Size)
	assert.Equal(t, "abcdefgh", string(m.Bytes(q)[:8]))
	assert.Equal(t, make([]byte, 92), m.Bytes(q)[8:])
	assert.Equal(t, int64(1), m.Stats().Live)
	if q != p {
		_, ok := m.Lookup(p)
		assert.False(t, ok, "moved record must leave the index")
	}
}

func TestRealloc_ShrinkInPlace(t *testing.T) {
	m := newManager(t)
	p := mustAlloc(t, m, 32)
	copy(m.Bytes(p), "0123456789")

	q, err := m.Realloc(p, 4)
	require.NoError(t, err)
	assert.Equal(t, p, q)
	assert.Equal(t, "0123", string(m.Bytes(q)))

	// growing back inside the same block exposes zeros, not stale bytes
	q, err = m.Realloc(q, 10)
	require.NoError(t, err)
	assert.Equal(t, p, q)
	assert.Equal(t, []byte("0123\x00\x00\x00\x00\x00\x00"), m.Bytes(q))
}

func TestRealloc_CopyOnWrite(t *testing.T) {
	m := newManager(t)
	a := mustAlloc(t, m, 8)
	copy(m.Bytes(a), "original")
	m.Retain(a)

	b, err := m.Realloc(a, 64)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Equal(t, int32(1), m.Refcount(a))
	assert.Equal(t, int32(1), m.Refcount(b))
	assert.Equal(t, "original", string(m.Bytes(b)[:8]))

	copy(m.Bytes(b), "mutated!")
	assert.Equal(t, "original", string(m.Bytes(a)))
	assert.Len(t, m.Bytes(a), 8)
	assert.Equal(t, int64(2), m.Stats().Allocs)
}

func TestRealloc_CopyOnWriteShrinkCopiesPrefix(t *testing.T) {
	m := newManager(t, relaxed)
	a := mustAlloc(t, m, 8)
	copy(m.Bytes(a), "abcdefgh")
	m.Retain(a)
	m.Retain(a)

	b, err := m.Realloc(a, 3)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(m.Bytes(b)))
	assert.Equal(t, int32(2), m.Refcount(a))
}

func TestRealloc_CloneLandsInOriginalScope(t *testing.T) {
	m := newManager(t)
	outer := m.PushScope()
	a := mustAlloc(t, m, 8)
	m.Retain(a)
	m.PushScope()

	b, err := m.Realloc(a, 16)
	require.NoError(t, err)
	info, ok := m.Lookup(b)
	require.True(t, ok)
	assert.Equal(t, outer, info.Scope)

	m.PopScope()
	_, ok = m.Lookup(b)
	assert.True(t, ok)
}

func TestRealloc_DisabledSkipsCopyOnWrite(t *testing.T) {
	m := newManager(t, disabled)
	a := mustAlloc(t, m, 8)
	m.lookup(a).rc = 5

	b, err := m.Realloc(a, 8)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRealloc_NilAllocates(t *testing.T) {
	m := newManager(t)
	p, err := m.Realloc(0, 12)
	require.NoError(t, err)
	info, ok := m.Lookup(p)
	require.True(t, ok)
	assert.Equal(t, 12, info.Size)
}

func TestRealloc_UnknownPointer(t *testing.T) {
	m := newManager(t)
	_, err := m.Realloc(0xbeef0, 12)
	assert.ErrorIs(t, err, ErrUnknownPointer)
}

func TestRealloc_OutOfMemoryKeepsOriginal(t *testing.T) {
	m := NewManager(Options{Config: newManager(t).Config(), Heap: NewLimitHeap(NewGoHeap(), 64)})
	p := mustAlloc(t, m, 16)

	_, err := m.Realloc(p, 1024)
	assert.ErrorIs(t, err, ErrOutOfMemory)
	info, ok := m.Lookup(p)
	require.True(t, ok)
	assert.Equal(t, 16, info.Size)
}
