package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/slabheap/internal/logger"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
	logDir  string

	closeLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "slabctl",
	Short: "Inspect and exercise the slabheap allocator",
	Long: `slabctl prints the size-class layout of a heap configuration, reports
host memory and the allocation budget derived from it, and runs randomized
allocation workloads that verify the allocator end to end.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		closer, err := logger.Init(logger.Options{
			Enabled: verbose || logDir != "",
			Writer:  writerFor(logDir),
			LogDir:  logDir,
			Level:   level,
			JSON:    jsonOut,
		})
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		closeLog = closer
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logs")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Write logs to daily files in this directory")
	addHeapFlags(rootCmd)
}

// writerFor sends debug logs to stderr unless a log directory was given.
func writerFor(dir string) io.Writer {
	if dir != "" {
		return nil
	}
	return os.Stderr
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Helper functions for output

var numbers = message.NewPrinter(language.English)

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprint(os.Stdout, numbers.Sprintf(format, args...))
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprint(os.Stdout, numbers.Sprintf(format, args...))
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// formatBytes renders n with digit grouping and a binary-unit hint.
func formatBytes(n int) string {
	units := []string{"B", "KiB", "MiB", "GiB", "TiB"}
	v := float64(n)
	u := 0
	for v >= 1024 && u < len(units)-1 {
		v /= 1024
		u++
	}
	if u == 0 {
		return numbers.Sprintf("%d B", n)
	}
	return numbers.Sprintf("%d B (%.1f %s)", n, v, units[u])
}
