package slab

import (
	"math/rand"
	"runtime"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/slabheap/heap/buddy"
	"github.com/joshuapare/slabheap/internal/testutil"
)

const (
	testObject = 64
	testPage   = 4096
)

// newBuddyBacked returns a slab whose pages come from a buddy allocator over
// a tracking source.
func newBuddyBacked(t *testing.T, objectSize, pageSize int) (*Allocator, *buddy.Allocator) {
	t.Helper()
	src := testutil.NewSource(t)
	b, err := buddy.New(&buddy.Options{
		ChunkSize:    1 << 20,
		MinAllocSize: pageSize,
		Source:       src,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	s, err := New(objectSize, pageSize,
		func(_, size int) unsafe.Pointer { return b.Alloc(size) },
		func(p unsafe.Pointer, size int) { b.Free(p, size) },
	)
	require.NoError(t, err)
	return s, b
}

func allocN(t *testing.T, s *Allocator, n int) []unsafe.Pointer {
	t.Helper()
	out := make([]unsafe.Pointer, n)
	for i := range out {
		out[i] = s.Alloc()
		require.NotNil(t, out[i], "alloc %d", i)
	}
	return out
}

func TestPageHeaderSize(t *testing.T) {
	require.Zero(t, PageHeaderSize%16)
	require.GreaterOrEqual(t, PageHeaderSize, int(unsafe.Sizeof(page{})))
	if unsafe.Sizeof(uintptr(0)) == 8 {
		require.Equal(t, 48, PageHeaderSize)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	acq := func(_, _ int) unsafe.Pointer { return nil }
	rel := func(unsafe.Pointer, int) {}
	tests := []struct {
		name       string
		objectSize int
		pageSize   int
	}{
		{"object too small", 4, 4096},
		{"object not word multiple", 13, 4096},
		{"page not pow2", 64, 3000},
		{"one object per page", 2048, 4096},
		{"header fills page", 16, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.objectSize, tt.pageSize, acq, rel)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
	_, err := New(64, 4096, nil, rel)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestScenario_FillOnePageThenGrow(t *testing.T) {
	s, _ := newBuddyBacked(t, testObject, testPage)
	perPage := (testPage - PageHeaderSize) / testObject
	require.Equal(t, perPage, s.ObjectsPerPage())

	objs := allocN(t, s, perPage)
	st := s.Stats()
	require.Equal(t, 1, st.Pages)
	require.Equal(t, 1, st.FullPages, "page leaves the available ring once filled")
	require.Zero(t, st.AvailablePages)
	require.Equal(t, 1, st.PagesAcquired)

	base := uintptr(objs[0]) &^ (testPage - 1)
	var ranges testutil.Ranges
	for _, p := range objs {
		require.Equal(t, base, uintptr(p)&^(testPage-1), "object outside the first page")
		require.NoError(t, ranges.Add(p, testObject))
	}

	require.NotNil(t, s.Alloc())
	st = s.Stats()
	require.Equal(t, 2, st.PagesAcquired)
	require.Equal(t, 2, st.Pages)
	require.Equal(t, 2*testPage, s.Size())
}

func TestFree_PageTransitions(t *testing.T) {
	s, _ := newBuddyBacked(t, testObject, testPage)
	first := allocN(t, s, s.ObjectsPerPage())
	second := s.Alloc()
	require.Equal(t, 1, s.Stats().FullPages)

	s.Free(first[0])
	st := s.Stats()
	require.Zero(t, st.FullPages, "first free moves a full page back")
	require.Equal(t, 2, st.AvailablePages)

	for _, p := range first[1:] {
		s.Free(p)
	}
	st = s.Stats()
	require.Equal(t, 1, st.Pages, "empty non-active page is released")
	require.Equal(t, 1, st.PagesReleased)

	s.Free(second)
	st = s.Stats()
	require.Equal(t, 1, st.Pages, "active page is kept while empty")
	require.Zero(t, st.Live())
}

func TestFree_ActivePageReusesSlot(t *testing.T) {
	s, b := newBuddyBacked(t, testObject, testPage)
	p := s.Alloc()
	s.Free(p)
	require.Equal(t, 1, s.Pages())
	require.Equal(t, 1, b.Chunks())
	require.Equal(t, p, s.Alloc(), "freed slot is served first")
}

func TestFree_Preconditions(t *testing.T) {
	s, _ := newBuddyBacked(t, testObject, testPage)
	p := s.Alloc()
	require.Panics(t, func() { s.Free(unsafe.Add(p, 8)) }, "interior pointer")
	require.Panics(t, func() { s.Free(nil) })

	s.Free(p)
	require.Panics(t, func() { s.Free(p) }, "double free on an empty page")
}

func TestPageOf_MasksToPageBase(t *testing.T) {
	s, _ := newBuddyBacked(t, testObject, testPage)
	objs := allocN(t, s, s.ObjectsPerPage())
	base := uintptr(objs[0]) &^ (testPage - 1)
	for _, p := range objs {
		pg := s.pageOf(p)
		require.Equal(t, base, uintptr(unsafe.Pointer(pg)))
		require.Equal(t, stateFull, pg.state)
	}
}

func TestAlloc_UpstreamExhausted(t *testing.T) {
	calls := 0
	s, err := New(testObject, testPage,
		func(_, _ int) unsafe.Pointer { calls++; return nil },
		func(unsafe.Pointer, int) { t.Fatal("nothing to release") },
	)
	require.NoError(t, err)
	require.Nil(t, s.Alloc())
	require.Nil(t, s.Alloc())
	require.Equal(t, 2, calls)
	require.Equal(t, 2, s.Stats().FailedAllocs)
	require.Zero(t, s.Size())
}

func TestRemoteFree_ReclaimedBeforeNewPage(t *testing.T) {
	s, _ := newBuddyBacked(t, testObject, testPage)
	objs := allocN(t, s, s.ObjectsPerPage())
	require.Equal(t, 1, s.Stats().FullPages)

	var wg sync.WaitGroup
	for _, p := range objs[:10] {
		wg.Add(1)
		go func(p unsafe.Pointer) {
			defer wg.Done()
			s.RemoteFree(p)
		}(p)
	}
	wg.Wait()
	require.Equal(t, 1, s.Stats().FullPages, "remote frees are invisible until reclaimed")

	for range 10 {
		require.NotNil(t, s.Alloc())
	}
	st := s.Stats()
	require.Equal(t, 1, st.PagesAcquired, "reclaimed slots served instead of a new page")
	require.Equal(t, 10, st.RemoteReclaimed)
	require.Equal(t, 1, st.FullPages)
}

func TestReclaimRemoteFree_ReleasesEmptyPages(t *testing.T) {
	s, _ := newBuddyBacked(t, testObject, testPage)
	objs := allocN(t, s, 3*s.ObjectsPerPage()+1)
	require.Equal(t, 4, s.Pages())

	for _, p := range objs {
		s.RemoteFree(p)
	}
	require.True(t, s.ReclaimRemoteFree())
	st := s.Stats()
	require.Equal(t, 1, st.Pages, "only the active page survives")
	require.Equal(t, 3, st.PagesReleased)
	require.Zero(t, st.Live())
}

func TestRemoteFree_ConcurrentConservation(t *testing.T) {
	const (
		goroutines = 8
		perG       = 500
	)
	s, _ := newBuddyBacked(t, testObject, testPage)
	objs := allocN(t, s, goroutines*perG)

	var wg sync.WaitGroup
	for g := range goroutines {
		wg.Add(1)
		go func(batch []unsafe.Pointer) {
			defer wg.Done()
			for _, p := range batch {
				s.RemoteFree(p)
			}
		}(objs[g*perG : (g+1)*perG])
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
			s.ReclaimRemoteFree()
			runtime.Gosched()
		}
	}
	s.ReclaimRemoteFree()

	st := s.Stats()
	require.Equal(t, goroutines*perG, st.RemoteReclaimed)
	require.Zero(t, st.Live())
	require.Equal(t, 1, st.Pages)
}

func Test_RandomOps_NoOverlap(t *testing.T) {
	s, b := newBuddyBacked(t, 48, testPage)
	rng := rand.New(rand.NewSource(1))
	var ranges testutil.Ranges
	var live []unsafe.Pointer
	seed := func(p unsafe.Pointer) byte { return byte(uintptr(p) >> 4) }

	for step := 0; step < 100000; step++ {
		op := rng.Intn(10)
		switch {
		case op < 5 || len(live) == 0:
			p := s.Alloc()
			require.NotNil(t, p)
			require.NoError(t, ranges.Add(p, s.ObjectSize()), "step %d", step)
			testutil.Fill(p, s.ObjectSize(), seed(p))
			live = append(live, p)
		default:
			i := rng.Intn(len(live))
			p := live[i]
			live[i] = live[len(live)-1]
			live = live[:len(live)-1]
			require.True(t, testutil.Check(p, s.ObjectSize(), seed(p)), "step %d: %p corrupted", step, p)
			require.NoError(t, ranges.Remove(p))
			if op < 8 {
				s.Free(p)
			} else {
				s.RemoteFree(p)
			}
		}
	}

	for _, p := range live {
		s.Free(p)
	}
	s.ReclaimRemoteFree()
	st := s.Stats()
	assert.Zero(t, st.Live())
	assert.Equal(t, 1, st.Pages)
	assert.Equal(t, st.PagesAcquired-st.PagesReleased, st.Pages)
	require.NoError(t, b.Validate())

	s.Close()
	assert.Zero(t, s.Pages())
	assert.Zero(t, b.Chunks(), "every page returned upstream")
}
