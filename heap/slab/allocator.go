package slab

import (
	"log/slog"
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/slabheap/internal/align"
	"github.com/joshuapare/slabheap/internal/ilist"
	"github.com/joshuapare/slabheap/internal/logger"
)

// AcquireFunc returns size bytes aligned to align, or nil.
type AcquireFunc func(align, size int) unsafe.Pointer

// ReleaseFunc returns memory obtained from the matching AcquireFunc.
type ReleaseFunc func(p unsafe.Pointer, size int)

// minObjectSize leaves room for a free-list link in every slot.
const minObjectSize = int(unsafe.Sizeof(ilist.Link{}))

// Option customizes an Allocator.
type Option func(*Allocator)

// WithLogger routes page lifecycle events to l.
func WithLogger(l *slog.Logger) Option {
	return func(s *Allocator) {
		if l != nil {
			s.log = l
		}
	}
}

// Allocator serves objects of one size.
type Allocator struct {
	objectSize int
	pageSize   int
	perPage    int
	pageMask   uintptr
	acquire    AcquireFunc
	release    ReleaseFunc
	log        *slog.Logger

	// available.Front() is the active page. Every member has capacity.
	available ilist.Ring
	full      ilist.Ring

	// remotePending approximates the number of objects sitting on remote
	// lists. It may lag a concurrent RemoteFree, never a completed one.
	remotePending atomic.Int64

	stats Stats
}

// New returns an allocator for objectSize-byte objects on pageSize-byte
// pages. objectSize must be a multiple of the pointer size and a page must
// hold at least two objects after its header.
func New(objectSize, pageSize int, acquire AcquireFunc, release ReleaseFunc, opts ...Option) (*Allocator, error) {
	switch {
	case objectSize < minObjectSize || objectSize%minObjectSize != 0:
		return nil, errors.Wrapf(ErrInvalidConfig, "object size %d must be a positive multiple of %d",
			objectSize, minObjectSize)
	case !align.IsPow2(pageSize):
		return nil, errors.Wrapf(ErrInvalidConfig, "page size %d is not a power of two", pageSize)
	case pageSize <= PageHeaderSize || (pageSize-PageHeaderSize)/objectSize < 2:
		return nil, errors.Wrapf(ErrInvalidConfig, "page size %d holds fewer than 2 objects of %d bytes",
			pageSize, objectSize)
	case uint64((pageSize-PageHeaderSize)/objectSize) > math.MaxUint32:
		return nil, errors.Wrapf(ErrInvalidConfig, "page size %d holds too many objects", pageSize)
	case acquire == nil || release == nil:
		return nil, errors.Wrap(ErrInvalidConfig, "acquire and release are required")
	}
	s := &Allocator{
		objectSize: objectSize,
		pageSize:   pageSize,
		perPage:    (pageSize - PageHeaderSize) / objectSize,
		pageMask:   uintptr(pageSize - 1),
		acquire:    acquire,
		release:    release,
		log:        logger.L,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ObjectSize returns the size of every object.
func (s *Allocator) ObjectSize() int { return s.objectSize }

// PageSize returns the size of every page.
func (s *Allocator) PageSize() int { return s.pageSize }

// ObjectsPerPage returns the number of slots on a page.
func (s *Allocator) ObjectsPerPage() int { return s.perPage }

// Pages returns the number of pages currently owned.
func (s *Allocator) Pages() int { return s.available.Len() + s.full.Len() }

// Size returns the bytes held in pages.
func (s *Allocator) Size() int { return s.Pages() * s.pageSize }

// Stats returns a snapshot of the slab counters.
func (s *Allocator) Stats() Stats {
	st := s.stats
	st.AvailablePages = s.available.Len()
	st.FullPages = s.full.Len()
	st.Pages = st.AvailablePages + st.FullPages
	return st
}

// Alloc returns one object, or nil when a new page is needed and cannot be
// obtained.
func (s *Allocator) Alloc() unsafe.Pointer {
	front := s.available.Front()
	if front == nil {
		if !s.ReclaimRemoteFree() && !s.grow() {
			s.stats.FailedAllocs++
			return nil
		}
		front = s.available.Front()
	}
	pg := pageOfLink(front)
	p := s.take(pg)
	if pg.exhausted() {
		s.drain(pg)
		if pg.exhausted() {
			s.available.Remove(&pg.link)
			s.full.PushBack(&pg.link)
			pg.state = stateFull
		}
	}
	s.stats.Allocs++
	return p
}

// take pops a recycled slot, falling back to the bump counter. The page must
// not be exhausted.
func (s *Allocator) take(pg *page) unsafe.Pointer {
	if l := pg.native.Pop(); l != nil {
		pg.nfree--
		return l.Ptr()
	}
	pg.bump--
	return pg.slot(int(pg.bump), s.objectSize)
}

// grow acquires a page and makes it the active page.
func (s *Allocator) grow() bool {
	p := s.acquire(s.pageSize, s.pageSize)
	if p == nil {
		s.log.Debug("slab: page acquisition failed", "object_size", s.objectSize, "page_size", s.pageSize)
		return false
	}
	if uintptr(p)&s.pageMask != 0 {
		panic(errors.AssertionFailedf("slab: page %p not aligned to %d", p, s.pageSize))
	}
	pg := (*page)(p)
	*pg = page{bump: uint32(s.perPage), state: stateAvailable}
	s.available.PushFront(&pg.link)
	s.stats.PagesAcquired++
	s.log.Debug("slab: page acquired", "object_size", s.objectSize, "pages", s.Pages())
	return true
}

// pageOf returns the page holding object p, checking that p is a slot start.
func (s *Allocator) pageOf(p unsafe.Pointer) *page {
	base := unsafe.Add(p, -int(uintptr(p)&s.pageMask))
	off := int(uintptr(p)-uintptr(base)) - PageHeaderSize
	if p == nil || off < 0 || off%s.objectSize != 0 || off/s.objectSize >= s.perPage {
		panic(errors.AssertionFailedf("slab: %p is not an object of size %d", p, s.objectSize))
	}
	return (*page)(base)
}

// Free returns an object allocated by this slab. Only the owning goroutine
// may call Free.
func (s *Allocator) Free(p unsafe.Pointer) {
	pg := s.pageOf(p)
	if pg.state == stateDetached || pg.free() >= s.perPage {
		panic(errors.AssertionFailedf("slab: free of %p on %s page with %d/%d free slots",
			p, pg.state, pg.free(), s.perPage))
	}
	pg.native.Push(ilist.LinkAt(p))
	pg.nfree++
	s.stats.Frees++
	s.settle(pg)
}

// RemoteFree returns an object from a goroutine that does not own the slab.
// The slot becomes reusable after the owner's next reclaim.
func (s *Allocator) RemoteFree(p unsafe.Pointer) {
	pg := s.pageOf(p)
	pg.remote.Push(ilist.LinkAt(p))
	s.remotePending.Add(1)
}

// ReclaimRemoteFree folds every pending remote free into its page's native
// list, starting with the active page, and reports whether the active page
// has capacity afterwards. Pages that become empty are released unless
// active.
func (s *Allocator) ReclaimRemoteFree() bool {
	if s.remotePending.Load() > 0 {
		for l := s.available.Front(); l != nil; {
			next := s.available.Next(l)
			s.drain(pageOfLink(l))
			l = next
		}
		for l := s.full.Front(); l != nil; {
			next := s.full.Next(l)
			s.drain(pageOfLink(l))
			l = next
		}
	}
	return s.available.Front() != nil
}

// drain moves the page's remote list onto its native list.
func (s *Allocator) drain(pg *page) {
	head := pg.remote.PopAll()
	if head == nil {
		return
	}
	n := 0
	for l := head; l != nil; {
		next := l.Next()
		pg.native.Push(l)
		n++
		l = next
	}
	if pg.free()+n > s.perPage {
		panic(errors.AssertionFailedf("slab: %d remote frees overflow page %p with %d/%d free slots",
			n, pg, pg.free(), s.perPage))
	}
	pg.nfree += uint32(n)
	s.remotePending.Add(int64(-n))
	s.stats.RemoteReclaimed += n
	s.settle(pg)
}

// settle applies the page transitions that follow freeing slots: a full page
// becomes available, and an empty page other than the active one is released.
func (s *Allocator) settle(pg *page) {
	if pg.state == stateFull {
		s.full.Remove(&pg.link)
		s.available.PushBack(&pg.link)
		pg.state = stateAvailable
	}
	if pg.free() == s.perPage && s.available.Front() != &pg.link {
		s.available.Remove(&pg.link)
		s.releasePage(pg)
	}
}

func (s *Allocator) releasePage(pg *page) {
	pg.state = stateDetached
	s.release(unsafe.Pointer(pg), s.pageSize)
	s.stats.PagesReleased++
	s.log.Debug("slab: page released", "object_size", s.objectSize, "pages", s.Pages())
}

// Close releases every page, including pages with live objects. Pending
// remote frees are discarded.
func (s *Allocator) Close() {
	for _, r := range []*ilist.Ring{&s.available, &s.full} {
		for l := r.PopFront(); l != nil; l = r.PopFront() {
			s.releasePage(pageOfLink(l))
		}
	}
	s.remotePending.Store(0)
}
