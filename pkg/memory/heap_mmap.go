//go:build unix

package memory

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MmapHeap backs every block with its own anonymous private mapping, rounded
// up to the page size. Freed blocks are unmapped immediately, so a stale
// payload pointer faults instead of reading recycled memory.
type MmapHeap struct {
	pageSize int
}

// NewMmapHeap returns a page-backed heap
func NewMmapHeap() (*MmapHeap, error) {
	return &MmapHeap{pageSize: unix.Getpagesize()}, nil
}

func (h *MmapHeap) Alloc(size int) (Block, error) {
	if size <= 0 {
		return Block{}, ErrInvalidSize
	}
	if size > maxBlock {
		return Block{}, fmt.Errorf("%w: %d bytes", ErrOutOfMemory, size)
	}
	n := roundUp(size, h.pageSize)
	data, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return Block{}, fmt.Errorf("%w: mmap %d bytes: %v", ErrOutOfMemory, n, err)
	}
	return Block{Addr: addrOf(data), Data: data}, nil
}

// Granularity returns the page size
func (h *MmapHeap) Granularity() int { return h.pageSize }

// Resize stays in place within the mapping, otherwise maps, copies and unmaps
func (h *MmapHeap) Resize(b Block, size int) (Block, error) {
	if size <= len(b.Data) {
		return b, nil
	}
	nb, err := h.Alloc(size)
	if err != nil {
		return Block{}, err
	}
	copy(nb.Data, b.Data)
	h.Free(b)
	return nb, nil
}

func (h *MmapHeap) Free(b Block) {
	if len(b.Data) == 0 {
		return
	}
	_ = unix.Munmap(b.Data)
}
