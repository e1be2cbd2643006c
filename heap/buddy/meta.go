package buddy

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/slabheap/internal/align"
)

// Meta is the per-chunk block bitmap. Blocks form an implicit binary tree:
// the root is the whole chunk (the top class) and each block of class c > 0
// has two children of class c-1. Every block owns one bit:
//
//	1: the block is allocated, or split into two children
//	0: the block is free, or lies inside a larger free or allocated block
//
// The bit of block (offset, class) sits at 2^(N-class-1) - 1 + offset/size(class),
// so the root is bit 0 and the smallest blocks occupy the last 2^(N-1) bits.
type Meta struct {
	chunkSize  int
	minShift   int
	numClasses int
	bits       []uint64
}

// NewMeta returns an all-zero bitmap for a chunk of chunkSize bytes split
// down to minAllocSize. Both must be powers of two with minAllocSize < chunkSize.
func NewMeta(chunkSize, minAllocSize int) *Meta {
	if !align.IsPow2(chunkSize) || !align.IsPow2(minAllocSize) || minAllocSize >= chunkSize {
		panic(errors.AssertionFailedf("buddy: invalid geometry chunk=%d min=%d", chunkSize, minAllocSize))
	}
	n := align.Log2(chunkSize) - align.Log2(minAllocSize) + 1
	nbits := 1<<n - 1
	return &Meta{
		chunkSize:  chunkSize,
		minShift:   align.Log2(minAllocSize),
		numClasses: n,
		bits:       make([]uint64, (nbits+63)/64),
	}
}

// NumClasses returns the number of size classes N.
func (m *Meta) NumClasses() int {
	return m.numClasses
}

// SizeClass returns the smallest class whose blocks hold size bytes, or -1
// when size is not positive or exceeds the chunk.
func (m *Meta) SizeClass(size int) int {
	if size <= 0 || size > m.chunkSize {
		return -1
	}
	if size <= 1<<m.minShift {
		return 0
	}
	p, _ := align.CeilPow2(size)
	return align.Log2(p) - m.minShift
}

// ClassSize returns the block size of class.
func (m *Meta) ClassSize(class int) int {
	return 1 << (m.minShift + class)
}

// Buddy returns the offset of the other half of the class+1 block that
// contains the class block at offset.
func (m *Meta) Buddy(offset, class int) int {
	return offset ^ m.ClassSize(class)
}

// BitmapIndex returns the bit owned by the block at offset in class.
func (m *Meta) BitmapIndex(offset, class int) int {
	return 1<<(m.numClasses-class-1) - 1 + offset>>(m.minShift+class)
}

// Bytes returns the bitmap's memory footprint.
func (m *Meta) Bytes() int {
	return len(m.bits) * 8
}

func (m *Meta) checkBlock(offset, class int) int {
	if class < 0 || class >= m.numClasses {
		panic(errors.AssertionFailedf("buddy: class %d out of range [0,%d)", class, m.numClasses))
	}
	if offset < 0 || offset >= m.chunkSize || offset&(m.ClassSize(class)-1) != 0 {
		panic(errors.AssertionFailedf("buddy: offset %#x invalid for class %d", offset, class))
	}
	return m.BitmapIndex(offset, class)
}

func (m *Meta) bit(i int) bool {
	return m.bits[i>>6]&(1<<(i&63)) != 0
}

// IsFree reports whether the block's bit is clear.
func (m *Meta) IsFree(offset, class int) bool {
	return !m.bit(m.checkBlock(offset, class))
}

// MarkInUse sets the block's bit. The block must currently be free.
func (m *Meta) MarkInUse(offset, class int) {
	i := m.checkBlock(offset, class)
	if m.bit(i) {
		panic(errors.AssertionFailedf("buddy: block %#x/%d already in use", offset, class))
	}
	m.bits[i>>6] |= 1 << (i & 63)
}

// MarkFree clears the block's bit. The block must currently be in use.
func (m *Meta) MarkFree(offset, class int) {
	i := m.checkBlock(offset, class)
	if !m.bit(i) {
		panic(errors.AssertionFailedf("buddy: block %#x/%d is not in use", offset, class))
	}
	m.bits[i>>6] &^= 1 << (i & 63)
}
