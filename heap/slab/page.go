package slab

import (
	"unsafe"

	"github.com/joshuapare/slabheap/internal/ilist"
)

type pageState uint8

const (
	stateDetached pageState = iota
	stateAvailable
	stateFull
)

func (s pageState) String() string {
	switch s {
	case stateAvailable:
		return "available"
	case stateFull:
		return "full"
	default:
		return "detached"
	}
}

// page is the header at the start of every slab page. link must stay the
// first field so a ring node converts back to its page.
type page struct {
	link   ilist.DLink
	native ilist.Stack
	remote ilist.AtomicStack
	bump   uint32 // slots never handed out
	nfree  uint32 // length of native
	state  pageState
}

// PageHeaderSize is the number of bytes reserved at the start of every page.
const PageHeaderSize = (int(unsafe.Sizeof(page{})) + 15) &^ 15

func pageOfLink(l *ilist.DLink) *page {
	return (*page)(unsafe.Pointer(l))
}

func (pg *page) free() int {
	return int(pg.bump) + int(pg.nfree)
}

func (pg *page) exhausted() bool {
	return pg.bump == 0 && pg.nfree == 0
}

// slot returns slot i of a page whose slots are size bytes.
func (pg *page) slot(i, size int) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(pg), PageHeaderSize+i*size)
}
