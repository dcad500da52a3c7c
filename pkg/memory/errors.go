package memory

import "errors"

var (
	// ErrOutOfMemory indicates the system heap could not supply a block.
	ErrOutOfMemory = errors.New("memory: out of memory")

	// ErrUnknownPointer indicates an address with no allocation record.
	ErrUnknownPointer = errors.New("memory: unknown pointer")

	// ErrIndexOutOfRange indicates a failed sequence bounds check.
	ErrIndexOutOfRange = errors.New("memory: index out of range")

	// ErrInvalidSize indicates a non-positive or overflowing block size.
	ErrInvalidSize = errors.New("memory: invalid size")

	// ErrUnsupported indicates a heap backend not available on this platform.
	ErrUnsupported = errors.New("memory: heap backend unsupported")
)
