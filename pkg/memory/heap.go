package memory

import (
	"fmt"
	"math"
	"unsafe"
)

// System heap adapters
//
// The manager never touches raw memory directly. It asks a Heap for blocks
// and keeps the returned Block alive until the record is freed. Addresses
// are the first byte of Block.Data, so a payload pointer handed to generated
// code always points at real, writable memory.

// blockAlign is the minimum payload granularity
const blockAlign = 16

// maxBlock bounds a single request; larger sizes report ErrOutOfMemory
const maxBlock = math.MaxInt32

// Block is one contiguous piece of backing storage
type Block struct {
	Addr uintptr
	Data []byte
}

// Heap supplies backing storage for allocation records
type Heap interface {
	Alloc(size int) (Block, error)
	// Resize returns a block of at least size bytes holding the old contents.
	// The returned block may live at a new address.
	Resize(b Block, size int) (Block, error)
	Free(b Block)
}

// granular is implemented by heaps that round requests up to a fixed unit
type granular interface {
	Granularity() int
}

// chargeFor returns the bytes h hands out for a size-byte request
func chargeFor(h Heap, size int) int {
	if g, ok := h.(granular); ok && g.Granularity() > 1 {
		return roundUp(size, g.Granularity())
	}
	return size
}

// GoHeap backs payloads with Go byte slices. The Go heap does not move
// objects, so the data pointer is a stable address for the slice's lifetime.
type GoHeap struct{}

// NewGoHeap returns the default heap
func NewGoHeap() GoHeap { return GoHeap{} }

// Alloc returns a zeroed block rounded up to blockAlign
func (GoHeap) Alloc(size int) (Block, error) {
	if size <= 0 {
		return Block{}, ErrInvalidSize
	}
	if size > maxBlock {
		return Block{}, fmt.Errorf("%w: %d bytes", ErrOutOfMemory, size)
	}
	buf := make([]byte, roundUp(size, blockAlign))
	return Block{Addr: addrOf(buf), Data: buf}, nil
}

// Granularity returns the rounding unit for requests
func (GoHeap) Granularity() int { return blockAlign }

// Resize grows in place while the rounded capacity suffices
func (h GoHeap) Resize(b Block, size int) (Block, error) {
	if size <= len(b.Data) {
		return b, nil
	}
	nb, err := h.Alloc(size)
	if err != nil {
		return Block{}, err
	}
	copy(nb.Data, b.Data)
	return nb, nil
}

// Free drops the block; the garbage collector reclaims it
func (GoHeap) Free(Block) {}

// LimitHeap wraps a heap with a byte budget. Requests that would exceed
// Limit fail with ErrOutOfMemory.
type LimitHeap struct {
	Heap  Heap
	Limit int
	used  int
}

// NewLimitHeap wraps h with limit bytes of budget
func NewLimitHeap(h Heap, limit int) *LimitHeap {
	return &LimitHeap{Heap: h, Limit: limit}
}

// Used returns bytes currently held
func (l *LimitHeap) Used() int { return l.used }

func (l *LimitHeap) Alloc(size int) (Block, error) {
	want := chargeFor(l.Heap, size)
	if l.used+want > l.Limit {
		return Block{}, fmt.Errorf("%w: budget %d, used %d, want %d", ErrOutOfMemory, l.Limit, l.used, want)
	}
	b, err := l.Heap.Alloc(size)
	if err != nil {
		return Block{}, err
	}
	if l.used+len(b.Data) > l.Limit {
		l.Heap.Free(b)
		return Block{}, fmt.Errorf("%w: budget %d, used %d, got %d", ErrOutOfMemory, l.Limit, l.used, len(b.Data))
	}
	l.used += len(b.Data)
	return b, nil
}

func (l *LimitHeap) Resize(b Block, size int) (Block, error) {
	if grow := chargeFor(l.Heap, size) - len(b.Data); grow > 0 && l.used+grow > l.Limit {
		return Block{}, fmt.Errorf("%w: budget %d, used %d, want %d more", ErrOutOfMemory, l.Limit, l.used, grow)
	}
	nb, err := l.Heap.Resize(b, size)
	if err != nil {
		return Block{}, err
	}
	l.used += len(nb.Data) - len(b.Data)
	return nb, nil
}

// Granularity forwards the wrapped heap's rounding unit
func (l *LimitHeap) Granularity() int {
	if g, ok := l.Heap.(granular); ok {
		return g.Granularity()
	}
	return 1
}

func (l *LimitHeap) Free(b Block) {
	l.used -= len(b.Data)
	l.Heap.Free(b)
}

func addrOf(buf []byte) uintptr {
	if len(buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&buf[0]))
}

func roundUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
