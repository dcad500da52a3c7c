package memory

import (
	"fmt"
	"math"
)

// Seq is the header generated code keeps for a growable sequence. Buf is a
// managed allocation, so two headers sharing a buffer go through the
// copy-on-write rule when either one grows.
type Seq struct {
	Len int32
	Cap int32
	Buf uintptr
}

// minSeqCap is the smallest capacity a growing sequence gets
const minSeqCap = 4

// IndexAddr returns the address of element idx in a buffer of length
// elements, each elemSize bytes
func IndexAddr(buf uintptr, length, idx, elemSize int32) (uintptr, error) {
	if idx < 0 || idx >= length {
		return 0, fmt.Errorf("%w: index %d, len %d", ErrIndexOutOfRange, idx, length)
	}
	if buf == 0 || elemSize <= 0 {
		return buf, nil
	}
	return buf + uintptr(int64(idx)*int64(elemSize)), nil
}

// SeqSetGrow makes idx addressable, growing the buffer and the length as
// needed, and returns the element address. New capacity is zero-filled.
func (m *Manager) SeqSetGrow(s *Seq, idx, elemSize int32) (uintptr, error) {
	if s == nil || elemSize <= 0 {
		return IndexAddr(0, 0, idx, elemSize)
	}
	if idx < 0 || idx == math.MaxInt32 {
		return IndexAddr(s.Buf, s.Len, idx, elemSize)
	}
	need := idx + 1
	if need > s.Cap || s.Buf == 0 {
		if err := m.seqGrow(s, nextCap(s.Cap, need), elemSize); err != nil {
			return 0, err
		}
	}
	if need > s.Len {
		s.Len = need
	}
	return IndexAddr(s.Buf, s.Len, idx, elemSize)
}

// SeqReserve ensures room for at least n elements
func (m *Manager) SeqReserve(s *Seq, n, elemSize int32) error {
	if s == nil || n <= 0 || elemSize <= 0 {
		return nil
	}
	if s.Buf != 0 && n <= s.Cap {
		return nil
	}
	return m.seqGrow(s, nextCap(s.Cap, n), elemSize)
}

// SeqSetLen sets the length, reserving capacity first if needed. Negative
// lengths clamp to zero.
func (m *Manager) SeqSetLen(s *Seq, n, elemSize int32) error {
	if s == nil {
		return nil
	}
	if n < 0 {
		n = 0
	}
	if n > s.Cap {
		if err := m.SeqReserve(s, n, elemSize); err != nil {
			return err
		}
	}
	s.Len = n
	return nil
}

// seqGrow leaves s untouched on error
func (m *Manager) seqGrow(s *Seq, newCap, elemSize int32) error {
	if newCap <= 0 {
		return fmt.Errorf("%w: seq capacity %d", ErrInvalidSize, newCap)
	}
	oldCap := s.Cap
	if s.Buf == 0 || oldCap < 0 {
		oldCap = 0
	}
	total := int64(newCap) * int64(elemSize)
	if total > maxBlock {
		return fmt.Errorf("%w: seq of %d x %d bytes", ErrOutOfMemory, newCap, elemSize)
	}
	bytes := int(total)
	buf, err := m.Realloc(s.Buf, bytes)
	if err != nil {
		return fmt.Errorf("grow seq to %d: %w", newCap, err)
	}
	if lo := int64(oldCap) * int64(elemSize); lo < total {
		if data := m.Bytes(buf); len(data) >= bytes {
			clear(data[lo:bytes])
		}
	}
	s.Buf = buf
	s.Cap = newCap
	return nil
}

// nextCap doubles from at least minSeqCap until need fits. Overflow falls
// back to need itself.
func nextCap(cur, need int32) int32 {
	if need <= 0 {
		return need
	}
	c := cur
	if c < minSeqCap {
		c = minSeqCap
	}
	for c < need {
		if c > math.MaxInt32/2 {
			return need
		}
		c *= 2
	}
	return c
}
