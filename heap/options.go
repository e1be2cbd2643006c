package heap

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/slabheap/heap/buddy"
	"github.com/joshuapare/slabheap/internal/mmap"
)

const (
	// DefaultMaxObjectSize is the largest request served by default.
	DefaultMaxObjectSize = 8 << 10

	// DefaultMinObjectsPerPage is the minimum slots a class page must hold.
	DefaultMinObjectsPerPage = 8

	granule = 16
)

// Options configures a Heap.
type Options struct {
	// ChunkSize is the size of the regions the buddy tier requests from Source.
	// Must be a power of two.
	// Default: 4 MiB
	ChunkSize int

	// MinPageSize is the smallest slab page and the buddy tier's smallest
	// block. Must be a power of two smaller than ChunkSize.
	// Default: 4 KiB
	MinPageSize int

	// MaxObjectSize is the largest request served. Must be a multiple of 16.
	// Default: 8 KiB
	MaxObjectSize int

	// MinObjectsPerPage sets how many objects a class page must hold; larger
	// classes get larger pages. Must be at least 2.
	// Default: 8
	MinObjectsPerPage int

	// Budget caps the bytes of chunks held at once. Zero means unbounded.
	// Default: 0
	Budget int

	// Source provides chunks.
	// Default: an mmap-backed source
	Source buddy.Source

	// Logger receives chunk and page lifecycle events. Nil selects the
	// package-global logger.
	// Default: nil
	Logger *slog.Logger
}

// DefaultOptions returns the recommended configuration.
func DefaultOptions() *Options {
	return &Options{
		ChunkSize:         buddy.DefaultChunkSize,
		MinPageSize:       buddy.DefaultMinAllocSize,
		MaxObjectSize:     DefaultMaxObjectSize,
		MinObjectsPerPage: DefaultMinObjectsPerPage,
		Source:            mmap.New(nil),
	}
}

func (o *Options) validate() error {
	switch {
	case o.MaxObjectSize < granule || o.MaxObjectSize%granule != 0:
		return errors.Wrapf(ErrInvalidOptions, "max object size %d must be a positive multiple of %d",
			o.MaxObjectSize, granule)
	case o.MinObjectsPerPage < 2:
		return errors.Wrapf(ErrInvalidOptions, "min objects per page %d below 2", o.MinObjectsPerPage)
	}
	return nil
}
