package ilist

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

type stackItem struct {
	Link
	val int
}

func stackVal(l *Link) int {
	return (*stackItem)(unsafe.Pointer(l)).val
}

type listItem struct {
	DLink
	val int
}

func listVal(l *DLink) int {
	return (*listItem)(unsafe.Pointer(l)).val
}

func newListItems(n int) []*listItem {
	items := make([]*listItem, n)
	for i := range items {
		items[i] = &listItem{val: i + 1}
	}
	return items
}

func TestStack_LIFO(t *testing.T) {
	var s Stack
	n1, n2, n3 := &stackItem{val: 1}, &stackItem{val: 2}, &stackItem{val: 3}

	require.True(t, s.Empty())
	s.Push(&n1.Link)
	s.Push(&n2.Link)
	s.Push(&n3.Link)

	require.Equal(t, 3, stackVal(s.Pop()))
	require.False(t, s.Empty())
	require.Equal(t, 2, stackVal(s.Pop()))

	s.Push(&n3.Link)
	s.Push(&n2.Link)
	require.Equal(t, 2, stackVal(s.Peek()))
	require.Equal(t, 2, stackVal(s.Pop()))
	require.Equal(t, 3, stackVal(s.Pop()))
	require.Equal(t, 1, stackVal(s.Pop()))
	require.True(t, s.Empty())
	require.Nil(t, s.Pop())
}

func TestStack_PopAll(t *testing.T) {
	var s Stack
	for i := 1; i <= 4; i++ {
		s.Push(&(&stackItem{val: i}).Link)
	}

	var got []int
	for l := s.PopAll(); l != nil; l = l.Next() {
		got = append(got, stackVal(l))
	}
	require.Equal(t, []int{4, 3, 2, 1}, got)
	require.True(t, s.Empty())
	require.Nil(t, s.PopAll())
}

func TestStack_LinkAtReinterpretsMemory(t *testing.T) {
	buf := make([]uint64, 4)
	var s Stack
	s.Push(LinkAt(unsafe.Pointer(&buf[0])))
	s.Push(LinkAt(unsafe.Pointer(&buf[2])))

	require.Equal(t, unsafe.Pointer(&buf[2]), s.Pop().Ptr())
	require.Equal(t, unsafe.Pointer(&buf[0]), s.Pop().Ptr())
}

func TestAtomicStack_SingleGoroutine(t *testing.T) {
	var s AtomicStack
	require.True(t, s.Empty())
	require.Nil(t, s.Pop())
	require.Nil(t, s.PopAll())

	items := []*stackItem{{val: 1}, {val: 2}, {val: 3}}
	for _, it := range items {
		s.Push(&it.Link)
	}
	require.Equal(t, 3, stackVal(s.Peek()))
	require.Equal(t, 3, stackVal(s.Pop()))

	var got []int
	for l := s.PopAll(); l != nil; l = l.Next() {
		got = append(got, stackVal(l))
	}
	require.Equal(t, []int{2, 1}, got)
	require.True(t, s.Empty())
}

func TestAtomicStack_ConcurrentPushPopAll(t *testing.T) {
	const (
		producers = 8
		perThread = 2000
	)

	var s AtomicStack
	items := make([][]stackItem, producers)
	for p := range items {
		items[p] = make([]stackItem, perThread)
		for i := range items[p] {
			items[p][i].val = p*perThread + i
		}
	}

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := range items[p] {
				s.Push(&items[p][i].Link)
			}
		}(p)
	}

	seen := make(map[int]bool, producers*perThread)
	drain := func() {
		for l := s.PopAll(); l != nil; l = l.Next() {
			v := stackVal(l)
			require.False(t, seen[v], "value %d drained twice", v)
			seen[v] = true
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
			drain()
		}
	}
	drain()

	require.Len(t, seen, producers*perThread)
}

func TestFreeList_PushPopRemove(t *testing.T) {
	var l FreeList
	items := newListItems(5)
	for _, it := range items {
		l.Push(&it.DLink)
	}
	require.Equal(t, 5, l.Len())
	require.Equal(t, 5, listVal(l.Peek()))

	// Remove from the middle, the tail and the head.
	l.Remove(&items[2].DLink)
	l.Remove(&items[0].DLink)
	l.Remove(&items[4].DLink)
	require.Equal(t, 2, l.Len())

	var got []int
	for n := l.Peek(); n != nil; n = n.Next() {
		got = append(got, listVal(n))
	}
	require.Equal(t, []int{4, 2}, got)

	require.Equal(t, 4, listVal(l.Pop()))
	require.Equal(t, 2, listVal(l.Pop()))
	require.True(t, l.Empty())
	require.Nil(t, l.Pop())
	require.Equal(t, 0, l.Len())
}

func TestFreeList_RemoveOnlyNode(t *testing.T) {
	var l FreeList
	it := &listItem{val: 7}
	l.Push(&it.DLink)
	l.Remove(&it.DLink)
	require.True(t, l.Empty())

	l.Push(&it.DLink)
	require.Equal(t, 7, listVal(l.Pop()))
}

func ringVals(r *Ring) []int {
	var out []int
	for n := r.Front(); n != nil; n = r.Next(n) {
		out = append(out, listVal(n))
	}
	return out
}

func TestRing_FrontBack(t *testing.T) {
	var r Ring
	require.True(t, r.Empty())
	require.Nil(t, r.Front())
	require.Nil(t, r.Back())
	require.Nil(t, r.PopFront())
	require.Nil(t, r.PopBack())

	items := newListItems(4)
	r.PushBack(&items[0].DLink)
	r.PushBack(&items[1].DLink)
	r.PushFront(&items[2].DLink)
	r.PushFront(&items[3].DLink)

	require.Equal(t, []int{4, 3, 1, 2}, ringVals(&r))
	require.Equal(t, 4, listVal(r.Front()))
	require.Equal(t, 2, listVal(r.Back()))
	require.Equal(t, 4, r.Len())

	require.Equal(t, 4, listVal(r.PopFront()))
	require.Equal(t, 2, listVal(r.PopBack()))
	require.Equal(t, []int{3, 1}, ringVals(&r))
}

func TestRing_MoveAndRemove(t *testing.T) {
	var r Ring
	items := newListItems(4)
	for _, it := range items {
		r.PushBack(&it.DLink)
	}

	r.MoveToFront(&items[2].DLink)
	require.Equal(t, []int{3, 1, 2, 4}, ringVals(&r))

	r.MoveToBack(&items[0].DLink)
	require.Equal(t, []int{3, 2, 4, 1}, ringVals(&r))

	// Moving the current front/back is a no-op.
	r.MoveToFront(&items[2].DLink)
	r.MoveToBack(&items[0].DLink)
	require.Equal(t, []int{3, 2, 4, 1}, ringVals(&r))

	r.Remove(&items[3].DLink)
	require.Equal(t, []int{3, 2, 1}, ringVals(&r))
	require.Equal(t, 3, r.Len())

	for !r.Empty() {
		r.PopFront()
	}
	require.Nil(t, r.Front())

	// Ring is reusable after being drained.
	r.PushFront(&items[1].DLink)
	require.Equal(t, []int{2}, ringVals(&r))
}
