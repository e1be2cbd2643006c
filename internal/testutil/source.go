// Package testutil holds helpers shared by the allocator tests.
package testutil

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/joshuapare/slabheap/internal/mmap"
)

// Source wraps an mmap source, counting traffic and optionally refusing
// acquisitions. It satisfies buddy.Source.
type Source struct {
	inner *mmap.Source

	mu        sync.Mutex
	acquires  int
	releases  int
	live      map[unsafe.Pointer]int
	failAfter int
}

// NewSource returns a tracking source. Regions still live when the test ends
// are unmapped during cleanup.
func NewSource(tb testing.TB) *Source {
	tb.Helper()
	s := &Source{
		inner:     mmap.New(nil),
		live:      make(map[unsafe.Pointer]int),
		failAfter: -1,
	}
	tb.Cleanup(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for p, size := range s.live {
			s.inner.Release(p, size)
		}
		clear(s.live)
	})
	return s
}

// FailAfter makes Acquire return nil once n further acquisitions have
// succeeded. A negative n removes the limit.
func (s *Source) FailAfter(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAfter = n
}

// Acquire implements buddy.Source.
func (s *Source) Acquire(align, size int) unsafe.Pointer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter == 0 {
		return nil
	}
	p := s.inner.Acquire(align, size)
	if p == nil {
		return nil
	}
	if s.failAfter > 0 {
		s.failAfter--
	}
	s.acquires++
	s.live[p] = size
	return p
}

// Release implements buddy.Source.
func (s *Source) Release(p unsafe.Pointer, size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, p)
	s.releases++
	s.inner.Release(p, size)
}

// Acquires returns the number of successful Acquire calls.
func (s *Source) Acquires() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquires
}

// Releases returns the number of Release calls.
func (s *Source) Releases() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases
}

// Live returns the number of regions acquired and not yet released.
func (s *Source) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}
