// Package heap routes small allocations to per-size-class slabs that share
// one buddy allocator.
//
// Requests up to Options.MaxObjectSize are rounded up to a size class: 16-byte
// steps up to 128 bytes, then four steps per power of two. Each class owns a
// slab whose pages are buddy blocks; the buddy allocator in turn draws chunks
// from the configured Source.
//
// Basic usage:
//
//	h, err := heap.New(heap.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	defer h.Close()
//
//	p := h.Alloc(100)
//	...
//	h.Free(p, 100)
//
// A Heap is owned by one goroutine at a time. RemoteFree is the exception: it
// may be called from any goroutine, and the owner picks those objects up on
// its next allocation miss or ReclaimRemoteFree call.
package heap
