// Package mmap provides the chunk source backing the buddy allocator: aligned,
// zero-filled regions that live outside the Go heap.
package mmap

import (
	"log/slog"
	"sync"
	"unsafe"

	"github.com/joshuapare/slabheap/internal/align"
	"github.com/joshuapare/slabheap/internal/logger"
)

// Source hands out aligned regions mapped from the operating system. It is
// safe for concurrent use, so several allocators may share one Source.
type Source struct {
	log *slog.Logger

	mu      sync.Mutex
	regions map[uintptr]region
	mapped  int
}

// region remembers the full mapping behind an aligned window.
type region struct {
	mapping []byte
	size    int
}

// New returns an empty Source. A nil logger selects logger.L.
func New(log *slog.Logger) *Source {
	return &Source{
		log:     logger.Or(log),
		regions: make(map[uintptr]region),
	}
}

// Acquire returns a size-byte region aligned to align, or nil when align is
// not a power of two, size is not positive, or the mapping fails.
//
// The mapping is over-sized by align-1 bytes and the aligned window is handed
// out. The slack on either side is never written, so it costs address space
// but not resident memory.
func (s *Source) Acquire(alignment, size int) unsafe.Pointer {
	if !align.IsPow2(alignment) || size <= 0 {
		return nil
	}
	total, ok := align.AddOverflowSafe(size, alignment-1)
	if !ok {
		return nil
	}
	b, err := mapRegion(total)
	if err != nil {
		s.log.Debug("mmap: acquire failed", "size", size, "align", alignment, "err", err)
		return nil
	}
	base := unsafe.Pointer(unsafe.SliceData(b))
	skip := align.Up(int(uintptr(base)), alignment) - int(uintptr(base))
	p := unsafe.Add(base, skip)

	s.mu.Lock()
	s.regions[uintptr(p)] = region{mapping: b, size: size}
	s.mapped += len(b)
	s.mu.Unlock()
	return p
}

// Release unmaps a region returned by Acquire. size must match the request.
func (s *Source) Release(p unsafe.Pointer, size int) {
	s.mu.Lock()
	r, ok := s.regions[uintptr(p)]
	switch {
	case !ok:
		s.mu.Unlock()
		panic(errUnknownRegion(p))
	case r.size != size:
		s.mu.Unlock()
		panic(errSizeMismatch(p, size, r.size))
	}
	delete(s.regions, uintptr(p))
	s.mapped -= len(r.mapping)
	s.mu.Unlock()

	if err := unmapRegion(r.mapping); err != nil {
		s.log.Debug("mmap: release failed", "size", size, "err", err)
	}
}

// Regions returns the number of regions currently handed out.
func (s *Source) Regions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.regions)
}

// Mapped returns the bytes currently mapped, including alignment slack.
func (s *Source) Mapped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mapped
}
