package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/slabheap/heap"
)

func init() {
	rootCmd.AddCommand(newClassesCmd())
}

func newClassesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classes",
		Short: "Show the size-class table",
		Long: `The classes command lists every size class of the configured heap with
its slab page size, objects per page and per-page waste.

Example:
  slabctl classes
  slabctl classes --max-object-size 65536 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClasses()
		},
	}
}

type classRow struct {
	heap.Class
	Index int `json:"index"`
	Waste int `json:"waste"`
}

func runClasses() error {
	opts, err := heapOptions()
	if err != nil {
		return err
	}
	h, err := heap.New(opts)
	if err != nil {
		return err
	}
	defer h.Close()

	classes := h.Classes()
	rows := make([]classRow, len(classes))
	for i, c := range classes {
		rows[i] = classRow{Class: c, Index: i, Waste: c.Waste()}
	}
	if jsonOut {
		return printJSON(rows)
	}

	printInfo("%-5s %10s %10s %8s %8s\n", "CLASS", "SIZE", "PAGE", "OBJECTS", "WASTE")
	for _, r := range rows {
		printInfo("%-5d %10d %10d %8d %8d\n", r.Index, r.Size, r.PageSize, r.ObjectsPerPage, r.Waste)
	}
	printVerbose("\n%d classes, largest object %d bytes\n", len(rows), h.MaxObjectSize())
	return nil
}
