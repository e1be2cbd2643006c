// Package ilist provides intrusive linked lists whose nodes live inside the
// memory they describe.
//
// # Overview
//
// The allocator never allocates bookkeeping nodes for free memory. A freed
// block or slot is itself reinterpreted as a list node, so the lists in this
// package only ever link pointers handed to them; they own no storage.
//
//   - Stack: LIFO singly linked list (slab native free lists)
//   - AtomicStack: lock-free Stack for cross-goroutine pushes (remote frees)
//   - FreeList: doubly linked, nil terminated, O(1) removal of any node
//     (buddy free lists, where a buddy is pulled out of the middle)
//   - Ring: doubly linked circular list with a sentinel (slab page queues)
//
// # Node placement
//
// Callers reinterpret raw memory with LinkAt / DLinkAt. The memory must be at
// least pointer aligned and large enough for the node (8 bytes for Link,
// 16 bytes for DLink on 64-bit platforms), and must not be handed out to a
// caller while it is linked.
//
// None of the types are safe for concurrent use except AtomicStack.
package ilist
