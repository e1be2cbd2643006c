// Package buddy implements a binary buddy allocator over large aligned chunks.
//
// Each chunk is split into power-of-two blocks between Options.MinAllocSize
// and Options.ChunkSize. A block's state lives in a single bit of its chunk's
// bitmap (see Meta); the allocator keeps no header inside live blocks, so the
// caller supplies the block size again on Free. Free blocks are threaded onto
// per-class free lists through their own first bytes, and buddies are merged
// eagerly on every free.
//
// Chunks come from a Source and are handed back as soon as they become
// entirely free. An optional byte budget caps how many chunks may be owned at
// once.
//
// An Allocator is not safe for concurrent use.
package buddy
