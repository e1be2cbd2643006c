package main

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/slabheap/heap"
	"github.com/joshuapare/slabheap/heap/buddy"
)

// resetFlags restores every global flag to its default between runs.
func resetFlags() {
	verbose, quiet, jsonOut, logDir = false, false, false, ""
	chunkSize = buddy.DefaultChunkSize
	minPageSize = buddy.DefaultMinAllocSize
	maxObjectSize = heap.DefaultMaxObjectSize
	minPerPage = heap.DefaultMinObjectsPerPage
	budget, budgetPercent = 0, 0
	stressOps, stressSeed, stressRemote, stressMaxSize, stressMaxLive = 200000, 1, 4, 0, 50000
}

// run executes slabctl with args and returns what it wrote to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	var buf bytes.Buffer
	done := make(chan error, 1)
	go func() {
		_, err := buf.ReadFrom(r)
		done <- err
	}()

	rootCmd.SetArgs(args)
	runErr := rootCmd.Execute()

	w.Close()
	os.Stdout = origStdout
	require.NoError(t, <-done)
	return buf.String(), runErr
}

// assertJSON checks that output is valid JSON and decodes it into v.
func assertJSON(t *testing.T, output string, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(output), v), "output: %s", output)
}
