package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/slabheap/heap"
	"github.com/joshuapare/slabheap/heap/slab"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show heap configuration and host memory",
		Long: `The info command prints the effective heap configuration, the budget
it resolves to, and the host's total and available memory.

Example:
  slabctl info
  slabctl info --budget-percent 25 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo()
		},
	}
}

// InfoReport is the info command's output.
type InfoReport struct {
	ChunkSize         int    `json:"chunk_size"`
	MinPageSize       int    `json:"min_page_size"`
	MaxObjectSize     int    `json:"max_object_size"`
	MinObjectsPerPage int    `json:"min_objects_per_page"`
	PageHeaderSize    int    `json:"page_header_size"`
	Classes           int    `json:"classes"`
	Budget            int    `json:"budget"`
	HostTotal         uint64 `json:"host_total"`
	HostAvailable     uint64 `json:"host_available"`
}

func runInfo() error {
	opts, err := heapOptions()
	if err != nil {
		return err
	}
	h, err := heap.New(opts)
	if err != nil {
		return err
	}
	defer h.Close()

	total, avail, err := hostMemory()
	if err != nil {
		return err
	}
	report := InfoReport{
		ChunkSize:         opts.ChunkSize,
		MinPageSize:       opts.MinPageSize,
		MaxObjectSize:     opts.MaxObjectSize,
		MinObjectsPerPage: opts.MinObjectsPerPage,
		PageHeaderSize:    slab.PageHeaderSize,
		Classes:           len(h.Classes()),
		Budget:            opts.Budget,
		HostTotal:         total,
		HostAvailable:     avail,
	}
	if jsonOut {
		return printJSON(report)
	}

	printInfo("Chunk size:        %s\n", formatBytes(report.ChunkSize))
	printInfo("Min page size:     %s\n", formatBytes(report.MinPageSize))
	printInfo("Max object size:   %s\n", formatBytes(report.MaxObjectSize))
	printInfo("Objects per page:  >= %d\n", report.MinObjectsPerPage)
	printInfo("Page header:       %d B\n", report.PageHeaderSize)
	printInfo("Size classes:      %d\n", report.Classes)
	if report.Budget == 0 {
		printInfo("Budget:            unbounded\n")
	} else {
		printInfo("Budget:            %s (%d chunks)\n", formatBytes(report.Budget), report.Budget/report.ChunkSize)
	}
	printInfo("Host memory:       %s\n", formatBytes(int(report.HostTotal)))
	printInfo("Host available:    %s\n", formatBytes(int(report.HostAvailable)))
	return nil
}
