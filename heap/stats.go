package heap

import (
	"github.com/joshuapare/slabheap/heap/buddy"
	"github.com/joshuapare/slabheap/heap/slab"
)

// ClassStats pairs a size class with its slab counters.
type ClassStats struct {
	Class
	slab.Stats
}

// Stats is a point-in-time view of a heap.
type Stats struct {
	Size    int          `json:"size"`
	Live    int          `json:"live"`
	Buddy   buddy.Stats  `json:"buddy"`
	Classes []ClassStats `json:"classes"`
}

// Stats returns counters for the buddy tier and every class.
func (h *Heap) Stats() Stats {
	st := Stats{
		Size:    h.buddy.Size(),
		Buddy:   h.buddy.Stats(),
		Classes: make([]ClassStats, len(h.slabs)),
	}
	for i, s := range h.slabs {
		cs := ClassStats{Class: h.table.classes[i], Stats: s.Stats()}
		st.Live += cs.Stats.Live()
		st.Classes[i] = cs
	}
	return st
}
