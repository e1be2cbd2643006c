package main

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
	"unsafe"

	"github.com/spf13/cobra"

	"github.com/joshuapare/slabheap/heap"
	"github.com/joshuapare/slabheap/internal/logger"
	"github.com/joshuapare/slabheap/internal/testutil"
)

var (
	stressOps     int
	stressSeed    int64
	stressRemote  int
	stressMaxSize int
	stressMaxLive int
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVar(&stressOps, "ops", 200000, "Number of alloc/free operations")
	cmd.Flags().Int64Var(&stressSeed, "seed", 1, "Random seed (0 = time-based)")
	cmd.Flags().IntVar(&stressRemote, "remote", 4, "Goroutines performing remote frees")
	cmd.Flags().IntVar(&stressMaxSize, "max-size", 0, "Largest request size (0 = max object size)")
	cmd.Flags().IntVar(&stressMaxLive, "max-live", 50000, "Cap on simultaneously live objects")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stress",
		Short: "Run a randomized allocation workload",
		Long: `The stress command drives a heap with random allocations, local frees
and remote frees issued from worker goroutines. Every live object is filled
with a pattern that is checked before it is freed, no two live objects may
overlap, and the heap must be empty and consistent at the end.

Example:
  slabctl stress --ops 1000000 --remote 8
  slabctl stress --budget 16777216 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress()
		},
	}
}

// StressReport summarizes a stress run.
type StressReport struct {
	Ops         int           `json:"ops"`
	Allocs      int           `json:"allocs"`
	Failed      int           `json:"failed"`
	LocalFrees  int           `json:"local_frees"`
	RemoteFrees int           `json:"remote_frees"`
	Reclaimed   int           `json:"reclaimed"`
	PeakLive    int           `json:"peak_live"`
	PeakSize    int           `json:"peak_size"`
	Duration    time.Duration `json:"duration_ns"`
	Heap        heap.Stats    `json:"heap"`
}

type object struct {
	p    unsafe.Pointer
	size int
}

func pattern(p unsafe.Pointer) byte {
	return byte(uintptr(p) >> 4)
}

func runStress() error {
	opts, err := heapOptions()
	if err != nil {
		return err
	}
	h, err := heap.New(opts)
	if err != nil {
		return err
	}
	defer h.Close()

	seed := stressSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	maxSize := stressMaxSize
	if maxSize <= 0 || maxSize > h.MaxObjectSize() {
		maxSize = h.MaxObjectSize()
	}
	printVerbose("Seed %d, max size %d, %d remote workers\n", seed, maxSize, stressRemote)
	logger.L.Info("stress: starting", "ops", stressOps, "seed", seed, "remote", stressRemote)

	remote := make(chan object, 1024)
	var wg sync.WaitGroup
	for range stressRemote {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for o := range remote {
				h.RemoteFree(o.p, o.size)
			}
		}()
	}
	stopWorkers := sync.OnceFunc(func() {
		close(remote)
		wg.Wait()
	})
	defer stopWorkers()

	rng := rand.New(rand.NewSource(seed))
	var (
		ranges testutil.Ranges
		live   []object
		report StressReport
	)
	start := time.Now()
	for i := 0; i < stressOps; i++ {
		report.Ops++
		if len(live) == 0 || (len(live) < stressMaxLive && rng.Intn(2) == 0) {
			size := 1 + rng.Intn(maxSize)
			p := h.Alloc(size)
			if p == nil {
				report.Failed++
				continue
			}
			if err := ranges.Add(p, size); err != nil {
				return fmt.Errorf("op %d: %w", i, err)
			}
			testutil.Fill(p, size, pattern(p))
			live = append(live, object{p, size})
			report.Allocs++
			report.PeakLive = max(report.PeakLive, len(live))
			report.PeakSize = max(report.PeakSize, h.Size())
			continue
		}

		j := rng.Intn(len(live))
		o := live[j]
		live[j] = live[len(live)-1]
		live = live[:len(live)-1]
		if !testutil.Check(o.p, o.size, pattern(o.p)) {
			return fmt.Errorf("op %d: object %p (%d bytes) was overwritten", i, o.p, o.size)
		}
		if err := ranges.Remove(o.p); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
		if stressRemote > 0 && rng.Intn(3) == 0 {
			remote <- o
			report.RemoteFrees++
		} else {
			h.Free(o.p, o.size)
			report.LocalFrees++
		}
	}

	for _, o := range live {
		h.Free(o.p, o.size)
		report.LocalFrees++
	}
	stopWorkers()
	report.Reclaimed = h.ReclaimRemoteFree()
	report.Duration = time.Since(start)
	report.Heap = h.Stats()

	if report.Heap.Live != 0 {
		return fmt.Errorf("heap reports %d live objects after freeing everything", report.Heap.Live)
	}
	if err := h.Validate(); err != nil {
		return err
	}
	logger.L.Info("stress: finished", "allocs", report.Allocs, "duration", report.Duration)

	if jsonOut {
		return printJSON(report)
	}
	printInfo("Operations:    %d in %v\n", report.Ops, report.Duration.Round(time.Millisecond))
	printInfo("Allocations:   %d (%d failed)\n", report.Allocs, report.Failed)
	printInfo("Local frees:   %d\n", report.LocalFrees)
	printInfo("Remote frees:  %d (%d reclaimed at exit)\n", report.RemoteFrees, report.Reclaimed)
	printInfo("Peak live:     %d objects, %s held\n", report.PeakLive, formatBytes(report.PeakSize))
	printInfo("Chunks:        %d acquired, %d released\n",
		report.Heap.Buddy.ChunksAcquired, report.Heap.Buddy.ChunksReleased)
	for _, c := range report.Heap.Classes {
		if c.Allocs == 0 {
			continue
		}
		printVerbose("  class %5d: %d allocs, %d pages acquired, %d released\n",
			c.Size, c.Allocs, c.PagesAcquired, c.PagesReleased)
	}
	printInfo("OK\n")
	return nil
}
