//go:build !unix

package memory

// NewMmapHeap is only available on unix platforms
func NewMmapHeap() (Heap, error) {
	return nil, ErrUnsupported
}
