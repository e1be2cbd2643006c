package buddy

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/slabheap/internal/align"
	"github.com/joshuapare/slabheap/internal/mmap"
)

const (
	// DefaultChunkSize is the size and alignment of every chunk.
	DefaultChunkSize = 4 << 20

	// DefaultMinAllocSize is the smallest block handed out.
	DefaultMinAllocSize = 4 << 10

	// minMinAllocSize leaves room for a free-list node in every free block.
	minMinAllocSize = 16
)

// Options configures an Allocator.
type Options struct {
	// ChunkSize is the size and alignment of the regions requested from Source.
	// Must be a power of two.
	// Default: 4 MiB
	ChunkSize int

	// MinAllocSize is the size of the smallest block class. Must be a power of
	// two, at least 16 and smaller than ChunkSize.
	// Default: 4 KiB
	MinAllocSize int

	// Budget caps the bytes of chunks owned at once. Zero means unbounded;
	// otherwise it must be at least ChunkSize.
	// Default: 0
	Budget int

	// Source provides chunks.
	// Default: an mmap-backed source
	Source Source

	// Logger receives chunk lifecycle events. Nil selects the package-global
	// logger.
	// Default: nil
	Logger *slog.Logger
}

// DefaultOptions returns the recommended configuration backed by anonymous
// memory mappings.
func DefaultOptions() *Options {
	return &Options{
		ChunkSize:    DefaultChunkSize,
		MinAllocSize: DefaultMinAllocSize,
		Source:       mmap.New(nil),
	}
}

func (o *Options) validate() error {
	switch {
	case !align.IsPow2(o.ChunkSize):
		return errors.Wrapf(ErrInvalidOptions, "chunk size %d is not a power of two", o.ChunkSize)
	case !align.IsPow2(o.MinAllocSize):
		return errors.Wrapf(ErrInvalidOptions, "min alloc size %d is not a power of two", o.MinAllocSize)
	case o.MinAllocSize < minMinAllocSize:
		return errors.Wrapf(ErrInvalidOptions, "min alloc size %d below %d", o.MinAllocSize, minMinAllocSize)
	case o.MinAllocSize >= o.ChunkSize:
		return errors.Wrapf(ErrInvalidOptions, "min alloc size %d must be smaller than chunk size %d",
			o.MinAllocSize, o.ChunkSize)
	case o.Budget < 0 || (o.Budget > 0 && o.Budget < o.ChunkSize):
		return errors.Wrapf(ErrInvalidOptions, "budget %d must be 0 or at least the chunk size %d",
			o.Budget, o.ChunkSize)
	case o.Source == nil:
		return errors.Wrap(ErrInvalidOptions, "source is required")
	}
	return nil
}
