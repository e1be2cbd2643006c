package ilist

import "unsafe"

// Link is the node of a Stack or AtomicStack.
type Link struct {
	next *Link
}

// LinkAt reinterprets p as a Link.
func LinkAt(p unsafe.Pointer) *Link {
	return (*Link)(p)
}

// Next returns the node linked after l, or nil.
func (l *Link) Next() *Link {
	return l.next
}

// Ptr returns the address of the node.
func (l *Link) Ptr() unsafe.Pointer {
	return unsafe.Pointer(l)
}

// Stack is a LIFO singly linked list. The zero value is an empty stack.
type Stack struct {
	head *Link
}

// Empty reports whether the stack has no nodes.
func (s *Stack) Empty() bool {
	return s.head == nil
}

// Peek returns the top node without removing it.
func (s *Stack) Peek() *Link {
	return s.head
}

// Push links n on top of the stack.
func (s *Stack) Push(n *Link) {
	n.next = s.head
	s.head = n
}

// Pop unlinks and returns the top node, or nil when empty.
func (s *Stack) Pop() *Link {
	head := s.head
	if head != nil {
		s.head = head.next
	}
	return head
}

// PopAll detaches the whole chain and returns its first node. The chain can
// be walked with Next.
func (s *Stack) PopAll() *Link {
	head := s.head
	s.head = nil
	return head
}
