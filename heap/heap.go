package heap

import (
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/slabheap/heap/buddy"
	"github.com/joshuapare/slabheap/heap/slab"
	"github.com/joshuapare/slabheap/internal/logger"
	"github.com/joshuapare/slabheap/internal/mmap"
)

// Heap serves objects up to MaxObjectSize bytes.
type Heap struct {
	buddy     *buddy.Allocator
	table     *sizeClassTable
	slabs     []*slab.Allocator
	maxObject int
}

// New builds a heap. Nil opts selects DefaultOptions; zero fields in opts
// take their defaults as well.
func New(opts *Options) (*Heap, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	if o.ChunkSize == 0 {
		o.ChunkSize = buddy.DefaultChunkSize
	}
	if o.MinPageSize == 0 {
		o.MinPageSize = buddy.DefaultMinAllocSize
	}
	if o.MaxObjectSize == 0 {
		o.MaxObjectSize = DefaultMaxObjectSize
	}
	if o.MinObjectsPerPage == 0 {
		o.MinObjectsPerPage = DefaultMinObjectsPerPage
	}
	if o.Source == nil {
		o.Source = mmap.New(o.Logger)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	log := logger.Or(o.Logger)
	b, err := buddy.New(&buddy.Options{
		ChunkSize:    o.ChunkSize,
		MinAllocSize: o.MinPageSize,
		Budget:       o.Budget,
		Source:       o.Source,
		Logger:       log,
	})
	if err != nil {
		return nil, invalidOptions(errors.Wrap(err, "heap: buddy tier"))
	}
	table, err := newSizeClassTable(o.MaxObjectSize, o.MinPageSize, o.MinObjectsPerPage, o.ChunkSize)
	if err != nil {
		return nil, err
	}

	h := &Heap{
		buddy:     b,
		table:     table,
		slabs:     make([]*slab.Allocator, len(table.classes)),
		maxObject: o.MaxObjectSize,
	}
	acquire := func(_, size int) unsafe.Pointer { return b.Alloc(size) }
	release := func(p unsafe.Pointer, size int) { b.Free(p, size) }
	for i, c := range table.classes {
		s, err := slab.New(c.Size, c.PageSize, acquire, release, slab.WithLogger(log))
		if err != nil {
			return nil, invalidOptions(errors.Wrapf(err, "heap: class %d (%d bytes)", i, c.Size))
		}
		h.slabs[i] = s
	}
	log.Debug("heap: created", "classes", len(h.slabs), "max_object", h.maxObject,
		"chunk_size", o.ChunkSize, "budget", o.Budget)
	return h, nil
}

// MaxObjectSize returns the largest size Alloc serves.
func (h *Heap) MaxObjectSize() int {
	return h.maxObject
}

// Classes returns the size class table, smallest first.
func (h *Heap) Classes() []Class {
	out := make([]Class, len(h.table.classes))
	copy(out, h.table.classes)
	return out
}

// ClassOf returns the index of the class serving size, or -1 when size is
// not positive or exceeds MaxObjectSize.
func (h *Heap) ClassOf(size int) int {
	return h.table.classOf(size, h.maxObject)
}

func (h *Heap) mustClass(p unsafe.Pointer, size int) *slab.Allocator {
	c := h.table.classOf(size, h.maxObject)
	if c < 0 {
		panic(errors.AssertionFailedf("heap: free of %p with size %d outside (0,%d]", p, size, h.maxObject))
	}
	return h.slabs[c]
}

// Alloc returns size bytes, or nil when size is not positive, exceeds
// MaxObjectSize, or no memory is available within the budget.
func (h *Heap) Alloc(size int) unsafe.Pointer {
	c := h.table.classOf(size, h.maxObject)
	if c < 0 {
		return nil
	}
	return h.slabs[c].Alloc()
}

// Free returns an object obtained from Alloc. size must map to the same class
// as the allocation request.
func (h *Heap) Free(p unsafe.Pointer, size int) {
	h.mustClass(p, size).Free(p)
}

// RemoteFree returns an object from a goroutine that does not own the heap.
func (h *Heap) RemoteFree(p unsafe.Pointer, size int) {
	h.mustClass(p, size).RemoteFree(p)
}

// AllocBytes returns a size-byte slice backed by heap memory. The slice must
// be returned with FreeBytes and must not be grown with append.
func (h *Heap) AllocBytes(size int) ([]byte, error) {
	c := h.table.classOf(size, h.maxObject)
	if c < 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "size %d outside (0,%d]", size, h.maxObject)
	}
	p := h.slabs[c].Alloc()
	if p == nil {
		return nil, errors.Wrapf(ErrOutOfMemory, "allocating %d bytes", size)
	}
	return unsafe.Slice((*byte)(p), size), nil
}

// FreeBytes returns a slice obtained from AllocBytes. Reslicing b is fine as
// long as its start and capacity are unchanged.
func (h *Heap) FreeBytes(b []byte) {
	h.Free(unsafe.Pointer(unsafe.SliceData(b)), cap(b))
}

// ReclaimRemoteFree folds pending remote frees back into every class and
// returns how many objects were recovered.
func (h *Heap) ReclaimRemoteFree() int {
	n := 0
	for _, s := range h.slabs {
		before := s.Stats().RemoteReclaimed
		s.ReclaimRemoteFree()
		n += s.Stats().RemoteReclaimed - before
	}
	return n
}

// Size returns the bytes held by the buddy tier, chunk metadata included.
func (h *Heap) Size() int {
	return h.buddy.Size()
}

// Validate checks the buddy tier's internal consistency.
func (h *Heap) Validate() error {
	return h.buddy.Validate()
}

// Close returns every page and chunk to the Source. Outstanding objects
// become invalid.
func (h *Heap) Close() error {
	for _, s := range h.slabs {
		s.Close()
	}
	return h.buddy.Close()
}
