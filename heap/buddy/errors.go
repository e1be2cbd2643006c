package buddy

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidOptions indicates a configuration the allocator cannot run with.
	ErrInvalidOptions = errors.New("buddy: invalid options")

	// ErrCorrupt is returned by Validate when the bitmap and free lists disagree.
	ErrCorrupt = errors.New("buddy: inconsistent state")
)
