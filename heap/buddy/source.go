package buddy

import "unsafe"

// Source supplies the chunks an Allocator carves up.
type Source interface {
	// Acquire returns size bytes aligned to align, or nil when no memory is
	// available. The memory must not be moved or reclaimed by the Go runtime.
	Acquire(align, size int) unsafe.Pointer

	// Release returns a region previously obtained from Acquire.
	Release(p unsafe.Pointer, size int)
}
