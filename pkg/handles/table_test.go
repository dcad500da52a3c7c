package handles

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_RegisterResolve(t *testing.T) {
	tab := New[uintptr](Options{})
	h, err := tab.Register(0x1000)
	require.NoError(t, err)
	assert.NotEqual(t, Invalid, h)
	assert.Equal(t, uint32(0), h.Index())
	assert.Equal(t, uint32(1), h.Generation())
	assert.Equal(t, Handle(1<<32 | 1), h)

	v, ok := tab.Resolve(h)
	require.True(t, ok)
	assert.Equal(t, uintptr(0x1000), v)
	assert.Equal(t, 1, tab.Len())
	assert.GreaterOrEqual(t, tab.Cap(), InitialCapacity)
}

func TestTable_InvalidHandles(t *testing.T) {
	tab := New[string](Options{})
	h, err := tab.Register("x")
	require.NoError(t, err)

	for _, bad := range []Handle{
		Invalid,
		Handle(1 << 32),    // index part zero
		Handle(1),          // generation zero
		Handle(1<<32 | 99), // index out of range
		Handle(2<<32 | 1),  // wrong generation
	} {
		_, ok := tab.Resolve(bad)
		assert.False(t, ok, "handle %#x", uint64(bad))
		assert.ErrorIs(t, tab.Invalidate(bad), ErrInvalidHandle, "handle %#x", uint64(bad))
	}
	_, ok := tab.Resolve(h)
	assert.True(t, ok)
}

func TestTable_ABASafety(t *testing.T) {
	tab := New[uintptr](Options{})
	h, err := tab.Register(0xaaa0)
	require.NoError(t, err)
	require.NoError(t, tab.Invalidate(h))

	_, ok := tab.Resolve(h)
	assert.False(t, ok)
	assert.ErrorIs(t, tab.Invalidate(h), ErrInvalidHandle)

	h2, err := tab.Register(0xbbb0)
	require.NoError(t, err)
	assert.Equal(t, h.Index(), h2.Index(), "slot should be reused")
	assert.NotEqual(t, h, h2)
	assert.Equal(t, h.Generation()+1, h2.Generation())

	_, ok = tab.Resolve(h)
	assert.False(t, ok)
	v, ok := tab.Resolve(h2)
	require.True(t, ok)
	assert.Equal(t, uintptr(0xbbb0), v)
}

func TestTable_GenerationWrapsToOne(t *testing.T) {
	tab := New[int](Options{})
	h, err := tab.Register(1)
	require.NoError(t, err)
	tab.slots[h.Index()].gen = ^uint32(0)
	h = makeHandle(h.Index(), ^uint32(0))

	require.NoError(t, tab.Invalidate(h))
	h2, err := tab.Register(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), h2.Generation())
}

func TestTable_FreeListLIFO(t *testing.T) {
	tab := New[int](Options{})
	var hs []Handle
	for i := 0; i < 4; i++ {
		h, err := tab.Register(i)
		require.NoError(t, err)
		hs = append(hs, h)
	}
	require.NoError(t, tab.Invalidate(hs[1]))
	require.NoError(t, tab.Invalidate(hs[3]))
	assert.Equal(t, 2, tab.Len())

	a, _ := tab.Register(10)
	b, _ := tab.Register(11)
	c, _ := tab.Register(12)
	assert.Equal(t, hs[3].Index(), a.Index())
	assert.Equal(t, hs[1].Index(), b.Index())
	assert.Equal(t, uint32(4), c.Index())
}

func TestTable_Growth(t *testing.T) {
	tab := New[int](Options{})
	for i := 0; i < 100; i++ {
		h, err := tab.Register(i)
		require.NoError(t, err)
		assert.Equal(t, uint32(i), h.Index())
	}
	assert.GreaterOrEqual(t, tab.Cap(), 100)
	assert.Equal(t, 100, tab.Len())
}

func TestTable_Full(t *testing.T) {
	tab := New[int](Options{MaxSlots: 3})
	var last Handle
	for i := 0; i < 3; i++ {
		h, err := tab.Register(i)
		require.NoError(t, err)
		last = h
	}
	_, err := tab.Register(3)
	assert.ErrorIs(t, err, ErrTableFull)

	require.NoError(t, tab.Invalidate(last))
	_, err = tab.Register(4)
	assert.NoError(t, err)
}

func TestTable_Concurrent(t *testing.T) {
	tab := New[int](Options{})
	const workers, rounds = 8, 200
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				h, err := tab.Register(w*rounds + i)
				if !assert.NoError(t, err) {
					return
				}
				v, ok := tab.Resolve(h)
				assert.True(t, ok)
				assert.Equal(t, w*rounds+i, v)
				assert.NoError(t, tab.Invalidate(h))
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 0, tab.Len())
}
