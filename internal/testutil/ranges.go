package testutil

import (
	"slices"
	"sort"
	"unsafe"

	"github.com/cockroachdb/errors"
)

type span struct {
	start, end uintptr
}

// Ranges tracks live [p, p+size) allocations and rejects any overlap.
type Ranges struct {
	spans []span
}

// Add records an allocation, failing if it intersects a live one.
func (r *Ranges) Add(p unsafe.Pointer, size int) error {
	s := span{uintptr(p), uintptr(p) + uintptr(size)}
	i := sort.Search(len(r.spans), func(i int) bool { return r.spans[i].start >= s.start })
	if i > 0 && r.spans[i-1].end > s.start {
		return errors.Newf("range [%#x,%#x) overlaps [%#x,%#x)", s.start, s.end, r.spans[i-1].start, r.spans[i-1].end)
	}
	if i < len(r.spans) && r.spans[i].start < s.end {
		return errors.Newf("range [%#x,%#x) overlaps [%#x,%#x)", s.start, s.end, r.spans[i].start, r.spans[i].end)
	}
	r.spans = slices.Insert(r.spans, i, s)
	return nil
}

// Remove forgets the allocation starting at p.
func (r *Ranges) Remove(p unsafe.Pointer) error {
	start := uintptr(p)
	i := sort.Search(len(r.spans), func(i int) bool { return r.spans[i].start >= start })
	if i == len(r.spans) || r.spans[i].start != start {
		return errors.Newf("no live range at %#x", start)
	}
	r.spans = slices.Delete(r.spans, i, i+1)
	return nil
}

// Len returns the number of live ranges.
func (r *Ranges) Len() int {
	return len(r.spans)
}

// Fill writes a pattern derived from seed over size bytes at p.
func Fill(p unsafe.Pointer, size int, seed byte) {
	b := unsafe.Slice((*byte)(p), size)
	for i := range b {
		b[i] = seed + byte(i)
	}
}

// Check reports whether the size bytes at p still hold the pattern written by
// Fill with the same seed.
func Check(p unsafe.Pointer, size int, seed byte) bool {
	b := unsafe.Slice((*byte)(p), size)
	for i := range b {
		if b[i] != seed+byte(i) {
			return false
		}
	}
	return true
}
