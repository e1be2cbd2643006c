// Package slab carves fixed-size objects out of pages obtained from an
// upstream allocator.
//
// Every page starts with a header followed by equal-size slots. Slots that
// have never been handed out are served by a bump counter; freed slots go on
// the page's native free list; slots freed by goroutines other than the owner
// go on the page's lock-free remote list and are folded into the native list
// the next time the owner reclaims. A page lives on exactly one of two rings:
// "available" (has capacity) or "full". The front of the available ring is the
// active page that serves allocations.
//
// Alloc, Free and ReclaimRemoteFree belong to the owning goroutine. RemoteFree
// may be called from any goroutine.
package slab
