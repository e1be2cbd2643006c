package slab

// Stats counts slab activity since construction.
type Stats struct {
	Pages           int // Pages currently owned
	AvailablePages  int // Pages with at least one free slot
	FullPages       int // Pages with no free slot
	Allocs          int // Successful Alloc calls
	Frees           int // Free calls
	RemoteReclaimed int // Remote frees folded back into native lists
	PagesAcquired   int // Pages obtained from the upstream allocator
	PagesReleased   int // Pages returned upstream
	FailedAllocs    int // Alloc calls that returned nil
}

// Live returns the number of objects handed out and not yet freed or
// reclaimed.
func (s Stats) Live() int {
	return s.Allocs - s.Frees - s.RemoteReclaimed
}
