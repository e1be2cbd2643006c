package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/joshuapare/slabheap/heap/buddy"
	"github.com/joshuapare/slabheap/heap/slab"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// moduleVersion returns the main module's version from the embedded build
// info, falling back to the ldflags-injected version for local builds.
func moduleVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return version
	}
	return info.Main.Version
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version, build and allocator layout information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("slabctl %s\n", moduleVersion())
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built: %s\n", date)
		fmt.Printf("  go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Printf("  page header: %d B, default chunk: %d B\n", slab.PageHeaderSize, buddy.DefaultChunkSize)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
