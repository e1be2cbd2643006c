package ilist

import "unsafe"

// DLink is the node of a FreeList or Ring.
type DLink struct {
	next *DLink
	prev *DLink
}

// DLinkAt reinterprets p as a DLink.
func DLinkAt(p unsafe.Pointer) *DLink {
	return (*DLink)(p)
}

// Next returns the following node. For a FreeList it is nil at the tail; for a
// Ring use Ring.Next, which hides the sentinel.
func (l *DLink) Next() *DLink {
	return l.next
}

// Ptr returns the address of the node.
func (l *DLink) Ptr() unsafe.Pointer {
	return unsafe.Pointer(l)
}

// FreeList is a nil-terminated doubly linked list supporting O(1) removal of
// an arbitrary member. The zero value is an empty list.
type FreeList struct {
	head *DLink
	n    int
}

// Empty reports whether the list has no nodes.
func (l *FreeList) Empty() bool {
	return l.head == nil
}

// Len returns the number of linked nodes.
func (l *FreeList) Len() int {
	return l.n
}

// Peek returns the first node without removing it.
func (l *FreeList) Peek() *DLink {
	return l.head
}

// Push links n at the head of the list.
func (l *FreeList) Push(n *DLink) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	l.n++
}

// Pop unlinks and returns the head, or nil when empty.
func (l *FreeList) Pop() *DLink {
	head := l.head
	if head == nil {
		return nil
	}
	l.unlink(head)
	return head
}

// Remove unlinks n, which must currently be a member of l.
func (l *FreeList) Remove(n *DLink) {
	l.unlink(n)
}

func (l *FreeList) unlink(n *DLink) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	n.next, n.prev = nil, nil
	l.n--
}
