package buddy

import (
	"log/slog"
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/slabheap/internal/addrmap"
	"github.com/joshuapare/slabheap/internal/align"
	"github.com/joshuapare/slabheap/internal/ilist"
	"github.com/joshuapare/slabheap/internal/logger"
)

// chunk is one region obtained from the Source.
type chunk struct {
	base unsafe.Pointer
	meta *Meta
}

func (c *chunk) offset(p unsafe.Pointer) int {
	return int(uintptr(p) - uintptr(c.base))
}

func (c *chunk) at(offset int) unsafe.Pointer {
	return unsafe.Add(c.base, offset)
}

// Allocator hands out power-of-two blocks carved from chunks.
type Allocator struct {
	chunkSize    int
	minAllocSize int
	chunkMask    uintptr
	budget       int
	src          Source
	log          *slog.Logger

	// geom answers class arithmetic; it is never marked.
	geom *Meta
	top  int

	// free[c] threads every free block of class c across all chunks.
	free   []ilist.FreeList
	chunks *addrmap.Map[*chunk]

	stats Stats
}

// New returns an allocator that owns no chunks yet.
func New(opts *Options) (*Allocator, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	geom := NewMeta(opts.ChunkSize, opts.MinAllocSize)
	return &Allocator{
		chunkSize:    opts.ChunkSize,
		minAllocSize: opts.MinAllocSize,
		chunkMask:    uintptr(opts.ChunkSize - 1),
		budget:       opts.Budget,
		src:          opts.Source,
		log:          logger.Or(opts.Logger),
		geom:         geom,
		top:          geom.NumClasses() - 1,
		free:         make([]ilist.FreeList, geom.NumClasses()),
		chunks:       addrmap.New[*chunk](),
	}, nil
}

// ChunkSize returns the configured chunk size.
func (a *Allocator) ChunkSize() int { return a.chunkSize }

// MinAllocSize returns the smallest block size.
func (a *Allocator) MinAllocSize() int { return a.minAllocSize }

// NumClasses returns the number of block classes.
func (a *Allocator) NumClasses() int { return a.top + 1 }

// SizeClass returns the class serving size, or -1 when size exceeds the chunk.
func (a *Allocator) SizeClass(size int) int { return a.geom.SizeClass(size) }

// ClassSize returns the block size of class.
func (a *Allocator) ClassSize(class int) int { return a.geom.ClassSize(class) }

// Alloc returns a block of at least size bytes aligned to its own (rounded)
// size, or nil when size is outside [MinAllocSize, ChunkSize] or no memory
// can be obtained within the budget.
func (a *Allocator) Alloc(size int) unsafe.Pointer {
	if size < a.minAllocSize || size > a.chunkSize {
		a.stats.FailedAllocs++
		return nil
	}
	class := a.geom.SizeClass(size)
	c, off := a.alloc(class)
	if c == nil {
		if !a.grow() {
			a.stats.FailedAllocs++
			return nil
		}
		if c, off = a.alloc(class); c == nil {
			a.stats.FailedAllocs++
			return nil
		}
	}
	a.stats.Allocs++
	return c.at(off)
}

// alloc takes a block of class from its free list, splitting a larger block
// when the list is empty. The block is marked in use.
func (a *Allocator) alloc(class int) (*chunk, int) {
	if n := a.free[class].Pop(); n != nil {
		c := a.chunkOf(n.Ptr())
		off := c.offset(n.Ptr())
		c.meta.MarkInUse(off, class)
		return c, off
	}
	if class == a.top {
		return nil, 0
	}
	c, off := a.alloc(class + 1)
	if c == nil {
		return nil, 0
	}
	// The parent stays marked as split; keep the lower half, free the upper.
	c.meta.MarkInUse(off, class)
	a.free[class].Push(ilist.DLinkAt(c.at(a.geom.Buddy(off, class))))
	a.stats.Splits++
	return c, off
}

// grow acquires one chunk and files it as a single free top-class block.
func (a *Allocator) grow() bool {
	if a.budget > 0 {
		need, ok := align.MulOverflowSafe(a.chunks.Len()+1, a.chunkSize)
		if !ok || need > a.budget {
			a.stats.BudgetRefusals++
			a.log.Debug("buddy: chunk refused by budget",
				"chunks", a.chunks.Len(), "chunk_size", a.chunkSize, "budget", a.budget)
			return false
		}
	}
	p := a.src.Acquire(a.chunkSize, a.chunkSize)
	if p == nil {
		a.stats.SourceFailures++
		a.log.Debug("buddy: source failed to provide chunk", "chunk_size", a.chunkSize)
		return false
	}
	if uintptr(p)&a.chunkMask != 0 {
		panic(errors.AssertionFailedf("buddy: source returned %p not aligned to %d", p, a.chunkSize))
	}
	c := &chunk{base: p, meta: NewMeta(a.chunkSize, a.minAllocSize)}
	if !a.chunks.Insert(uintptr(p), c) {
		panic(errors.AssertionFailedf("buddy: source returned owned chunk %p", p))
	}
	a.free[a.top].Push(ilist.DLinkAt(p))
	a.stats.ChunksAcquired++
	a.log.Debug("buddy: chunk acquired", "base", p, "chunks", a.chunks.Len())
	return true
}

// chunkOf maps any address inside an owned chunk to the chunk.
func (a *Allocator) chunkOf(p unsafe.Pointer) *chunk {
	c, ok := a.chunks.Find(uintptr(p) &^ a.chunkMask)
	if !ok {
		panic(errors.AssertionFailedf("buddy: %p is not inside an owned chunk", p))
	}
	return c
}

// Free returns a block obtained from Alloc with the same size. It reports
// whether the block's chunk became entirely free and was released to the
// Source.
func (a *Allocator) Free(p unsafe.Pointer, size int) bool {
	if size < a.minAllocSize || size > a.chunkSize {
		panic(errors.AssertionFailedf("buddy: free of %p with size %d outside [%d,%d]",
			p, size, a.minAllocSize, a.chunkSize))
	}
	class := a.geom.SizeClass(size)
	c := a.chunkOf(p)
	a.stats.Frees++
	return a.release(c, c.offset(p), class)
}

// release marks the block free and merges it with its buddy for as long as
// the buddy is free too.
func (a *Allocator) release(c *chunk, off, class int) bool {
	for {
		c.meta.MarkFree(off, class)
		if class == a.top {
			a.releaseChunk(c)
			return true
		}
		buddy := a.geom.Buddy(off, class)
		if !c.meta.IsFree(buddy, class) {
			a.free[class].Push(ilist.DLinkAt(c.at(off)))
			return false
		}
		a.free[class].Remove(ilist.DLinkAt(c.at(buddy)))
		a.stats.Merges++
		off = min(off, buddy)
		class++
	}
}

func (a *Allocator) releaseChunk(c *chunk) {
	a.chunks.Erase(uintptr(c.base))
	a.src.Release(c.base, a.chunkSize)
	a.stats.ChunksReleased++
	a.log.Debug("buddy: chunk released", "base", c.base, "chunks", a.chunks.Len())
}

// Size returns the bytes held by owned chunks, including their bitmaps.
func (a *Allocator) Size() int {
	return a.chunks.Len() * (a.chunkSize + a.geom.Bytes())
}

// Chunks returns the number of chunks currently owned.
func (a *Allocator) Chunks() int {
	return a.chunks.Len()
}

// FreeBlocks returns the length of each class's free list, smallest class
// first.
func (a *Allocator) FreeBlocks() []int {
	out := make([]int, len(a.free))
	for i := range a.free {
		out[i] = a.free[i].Len()
	}
	return out
}

// Stats returns a snapshot of the allocator counters.
func (a *Allocator) Stats() Stats {
	s := a.stats
	s.Chunks = a.chunks.Len()
	return s
}

// Close releases every owned chunk, including chunks with live blocks. The
// allocator is empty afterwards and may be reused.
func (a *Allocator) Close() error {
	var bases []unsafe.Pointer
	a.chunks.Range(func(_ uintptr, c *chunk) bool {
		bases = append(bases, c.base)
		return true
	})
	for _, base := range bases {
		a.chunks.Erase(uintptr(base))
		a.src.Release(base, a.chunkSize)
		a.stats.ChunksReleased++
	}
	for i := range a.free {
		a.free[i] = ilist.FreeList{}
	}
	if len(bases) > 0 {
		a.log.Debug("buddy: closed", "chunks_released", len(bases))
	}
	return nil
}
