package memory

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexAddr(t *testing.T) {
	addr, err := IndexAddr(0x1000, 4, 3, 8)
	require.NoError(t, err)
	assert.Equal(t, uintptr(0x1018), addr)

	for _, idx := range []int32{-1, 4, 100} {
		_, err := IndexAddr(0x1000, 4, idx, 8)
		assert.ErrorIs(t, err, ErrIndexOutOfRange, "idx %d", idx)
	}
}

func TestNextCap(t *testing.T) {
	cases := []struct{ cur, need, want int32 }{
		{0, 1, 4},
		{0, 5, 8},
		{4, 4, 4},
		{8, 9, 16},
		{16, 100, 128},
		{0, 0, 0},
		{1 << 30, 1<<30 + 1, 1<<30 + 1},
		{0, math.MaxInt32, math.MaxInt32},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, nextCap(c.cur, c.need), "cur=%d need=%d", c.cur, c.need)
	}
}

func TestSeqSetGrow(t *testing.T) {
	m := newManager(t)
	var s Seq

	addr, err := m.SeqSetGrow(&s, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, s.Buf, addr)
	assert.Equal(t, int32(1), s.Len)
	assert.Equal(t, int32(4), s.Cap)

	binary.LittleEndian.PutUint32(m.Bytes(s.Buf), 42)

	addr, err = m.SeqSetGrow(&s, 9, 4)
	require.NoError(t, err)
	assert.Equal(t, int32(10), s.Len)
	assert.Equal(t, int32(16), s.Cap)
	assert.Equal(t, s.Buf+36, addr)

	data := m.Bytes(s.Buf)
	require.Len(t, data, 64)
	assert.Equal(t, uint32(42), binary.LittleEndian.Uint32(data))
	assert.Equal(t, make([]byte, 60), data[4:])
}

func TestSeqSetGrow_Invalid(t *testing.T) {
	m := newManager(t)
	_, err := m.SeqSetGrow(nil, 0, 4)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	var s Seq
	_, err = m.SeqSetGrow(&s, -1, 4)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = m.SeqSetGrow(&s, 0, 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestSeqSetGrow_MaxIndexLeavesHeaderIntact(t *testing.T) {
	m := newManager(t)
	var s Seq

	_, err := m.SeqSetGrow(&s, math.MaxInt32, 4)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.Equal(t, Seq{}, s)
	assert.Equal(t, int64(0), m.Stats().Live)

	addr, err := m.SeqSetGrow(&s, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, s.Buf, addr)
	assert.Equal(t, int32(1), s.Len)
	assert.Equal(t, int32(4), s.Cap)
}

func TestSeqGrow_RejectsBadCapacity(t *testing.T) {
	m := newManager(t)
	s := Seq{Cap: math.MinInt32}
	for _, c := range []int32{0, -1, math.MinInt32} {
		assert.ErrorIs(t, m.seqGrow(&s, c, 4), ErrInvalidSize, "cap %d", c)
	}
	assert.Equal(t, Seq{Cap: math.MinInt32}, s)

	assert.ErrorIs(t, m.seqGrow(&s, math.MaxInt32, 8), ErrOutOfMemory)

	// a corrupt negative capacity is treated as empty
	require.NoError(t, m.seqGrow(&s, 4, 4))
	assert.Equal(t, int32(4), s.Cap)
	assert.Equal(t, make([]byte, 16), m.Bytes(s.Buf))
}

func TestSeqSetGrow_SharedBufferCopies(t *testing.T) {
	m := newManager(t)
	var a Seq
	_, err := m.SeqSetGrow(&a, 3, 1)
	require.NoError(t, err)
	copy(m.Bytes(a.Buf), "abcd")

	// b aliases a's buffer
	b := a
	m.Retain(a.Buf)

	_, err = m.SeqSetGrow(&b, 10, 1)
	require.NoError(t, err)
	assert.NotEqual(t, a.Buf, b.Buf)
	copy(m.Bytes(b.Buf), "WXYZ")

	assert.Equal(t, "abcd", string(m.Bytes(a.Buf)))
	assert.Equal(t, int32(1), m.Refcount(a.Buf))
}

func TestSeqReserve(t *testing.T) {
	m := newManager(t)
	var s Seq
	require.NoError(t, m.SeqReserve(&s, 0, 8))
	assert.Zero(t, s.Buf)

	require.NoError(t, m.SeqReserve(&s, 5, 8))
	assert.Equal(t, int32(8), s.Cap)
	assert.Equal(t, int32(0), s.Len)
	assert.Len(t, m.Bytes(s.Buf), 64)

	buf := s.Buf
	require.NoError(t, m.SeqReserve(&s, 8, 8))
	assert.Equal(t, buf, s.Buf)
}

func TestSeqSetLen(t *testing.T) {
	m := newManager(t)
	var s Seq
	require.NoError(t, m.SeqSetLen(&s, 6, 2))
	assert.Equal(t, int32(6), s.Len)
	assert.Equal(t, int32(8), s.Cap)

	require.NoError(t, m.SeqSetLen(&s, -3, 2))
	assert.Equal(t, int32(0), s.Len)
	assert.Equal(t, int32(8), s.Cap)

	assert.NoError(t, m.SeqSetLen(nil, 3, 2))
}
