package ilist

import (
	"runtime"
	"sync/atomic"
)

const (
	// spinRounds is how many doubling busy-wait rounds a contended CAS loop
	// performs before yielding the processor.
	spinRounds = 6
)

var spinSink atomic.Uint32

// backoff is a short spin-then-yield wait used between failed CAS attempts.
type backoff struct {
	round int
}

func (b *backoff) wait() {
	if b.round < spinRounds {
		for i := 0; i < 1<<b.round; i++ {
			spinSink.Load()
		}
		b.round++
		return
	}
	runtime.Gosched()
}

// AtomicStack is a lock-free LIFO of Links (a Treiber stack).
//
// Push and PopAll may be called from any number of goroutines. Pop is only
// ABA-safe with a single popping goroutine; the allocator always drains with
// PopAll from the owning goroutine.
type AtomicStack struct {
	head atomic.Pointer[Link]
}

// Empty reports whether the stack currently has no nodes.
func (s *AtomicStack) Empty() bool {
	return s.head.Load() == nil
}

// Peek returns the current top node without removing it.
func (s *AtomicStack) Peek() *Link {
	return s.head.Load()
}

// Push links n on top of the stack.
func (s *AtomicStack) Push(n *Link) {
	var bo backoff
	for {
		head := s.head.Load()
		n.next = head
		if s.head.CompareAndSwap(head, n) {
			return
		}
		bo.wait()
	}
}

// Pop unlinks and returns the top node, or nil when empty.
func (s *AtomicStack) Pop() *Link {
	var bo backoff
	for {
		head := s.head.Load()
		if head == nil {
			return nil
		}
		if s.head.CompareAndSwap(head, head.next) {
			return head
		}
		bo.wait()
	}
}

// PopAll detaches every node pushed so far and returns the first one (the
// most recently pushed). Nodes are walked with Next in LIFO order.
func (s *AtomicStack) PopAll() *Link {
	var bo backoff
	for {
		head := s.head.Load()
		if head == nil {
			return nil
		}
		if s.head.CompareAndSwap(head, nil) {
			return head
		}
		bo.wait()
	}
}
