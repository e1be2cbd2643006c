package main

import (
	"fmt"

	sigar "github.com/cloudfoundry/gosigar"
	"github.com/spf13/cobra"

	"github.com/joshuapare/slabheap/heap"
	"github.com/joshuapare/slabheap/heap/buddy"
)

var (
	// Heap configuration flags
	chunkSize     int
	minPageSize   int
	maxObjectSize int
	minPerPage    int
	budget        int
	budgetPercent float64
)

func addHeapFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.IntVar(&chunkSize, "chunk-size", buddy.DefaultChunkSize, "Bytes per chunk requested from the OS (power of two)")
	f.IntVar(&minPageSize, "min-page-size", buddy.DefaultMinAllocSize, "Smallest slab page and buddy block (power of two)")
	f.IntVar(&maxObjectSize, "max-object-size", heap.DefaultMaxObjectSize, "Largest object served (multiple of 16)")
	f.IntVar(&minPerPage, "min-objects-per-page", heap.DefaultMinObjectsPerPage, "Minimum objects per slab page")
	f.IntVar(&budget, "budget", 0, "Maximum bytes of chunks held at once (0 = unbounded)")
	f.Float64Var(&budgetPercent, "budget-percent", 0,
		"Derive --budget from this percentage of host RAM (overrides --budget)")
}

// hostMemory reports total and free RAM in bytes.
func hostMemory() (total, free uint64, err error) {
	mem := sigar.Mem{}
	if err := mem.Get(); err != nil {
		return 0, 0, fmt.Errorf("read host memory: %w", err)
	}
	return mem.Total, mem.ActualFree, nil
}

// resolveBudget returns the byte budget selected by the flags. A percentage
// of host RAM is rounded down to whole chunks, and never below one chunk.
func resolveBudget() (int, error) {
	if budgetPercent == 0 {
		return budget, nil
	}
	if chunkSize <= 0 {
		return 0, fmt.Errorf("--chunk-size %d must be positive", chunkSize)
	}
	if budgetPercent < 0 || budgetPercent > 100 {
		return 0, fmt.Errorf("--budget-percent %.2f outside (0,100]", budgetPercent)
	}
	total, _, err := hostMemory()
	if err != nil {
		return 0, err
	}
	b := int(float64(total) * budgetPercent / 100)
	b -= b % chunkSize
	return max(b, chunkSize), nil
}

// heapOptions builds heap options from the flags.
func heapOptions() (*heap.Options, error) {
	b, err := resolveBudget()
	if err != nil {
		return nil, err
	}
	opts := heap.DefaultOptions()
	opts.ChunkSize = chunkSize
	opts.MinPageSize = minPageSize
	opts.MaxObjectSize = maxObjectSize
	opts.MinObjectsPerPage = minPerPage
	opts.Budget = b
	return opts, nil
}
