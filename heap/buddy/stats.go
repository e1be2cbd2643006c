package buddy

// Stats counts allocator activity since construction.
type Stats struct {
	Chunks         int // Chunks currently owned
	ChunksAcquired int // Successful Source.Acquire calls
	ChunksReleased int // Chunks returned to the Source
	Allocs         int // Successful Alloc calls
	Frees          int // Free calls
	Splits         int // Blocks split in two
	Merges         int // Buddy pairs coalesced
	FailedAllocs   int // Alloc calls that returned nil
	BudgetRefusals int // Chunk acquisitions refused by the budget
	SourceFailures int // Source.Acquire calls that returned nil
}
