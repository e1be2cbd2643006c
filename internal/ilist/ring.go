package ilist

// Ring is a circular doubly linked list with an embedded sentinel. The zero
// value is an empty ring. Members point at the sentinel, so a Ring must not be
// copied once a node has been linked.
type Ring struct {
	root DLink
	n    int
}

func (r *Ring) lazyInit() {
	if r.root.next == nil {
		r.root.next = &r.root
		r.root.prev = &r.root
	}
}

// Empty reports whether the ring has no members.
func (r *Ring) Empty() bool {
	return r.n == 0
}

// Len returns the number of members.
func (r *Ring) Len() int {
	return r.n
}

// Front returns the first member, or nil.
func (r *Ring) Front() *DLink {
	if r.n == 0 {
		return nil
	}
	return r.root.next
}

// Back returns the last member, or nil.
func (r *Ring) Back() *DLink {
	if r.n == 0 {
		return nil
	}
	return r.root.prev
}

// Next returns the member after n, or nil when n is the last one.
func (r *Ring) Next(n *DLink) *DLink {
	if n.next == &r.root {
		return nil
	}
	return n.next
}

func (r *Ring) insertAfter(n, at *DLink) {
	n.prev = at
	n.next = at.next
	at.next.prev = n
	at.next = n
	r.n++
}

// PushFront links n as the first member.
func (r *Ring) PushFront(n *DLink) {
	r.lazyInit()
	r.insertAfter(n, &r.root)
}

// PushBack links n as the last member.
func (r *Ring) PushBack(n *DLink) {
	r.lazyInit()
	r.insertAfter(n, r.root.prev)
}

// Remove unlinks n, which must currently be a member of r.
func (r *Ring) Remove(n *DLink) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.next, n.prev = nil, nil
	r.n--
}

// PopFront unlinks and returns the first member, or nil.
func (r *Ring) PopFront() *DLink {
	n := r.Front()
	if n != nil {
		r.Remove(n)
	}
	return n
}

// PopBack unlinks and returns the last member, or nil.
func (r *Ring) PopBack() *DLink {
	n := r.Back()
	if n != nil {
		r.Remove(n)
	}
	return n
}

// MoveToFront makes member n the first member.
func (r *Ring) MoveToFront(n *DLink) {
	if r.root.next == n {
		return
	}
	r.Remove(n)
	r.PushFront(n)
}

// MoveToBack makes member n the last member.
func (r *Ring) MoveToBack(n *DLink) {
	if r.root.prev == n {
		return
	}
	r.Remove(n)
	r.PushBack(n)
}
