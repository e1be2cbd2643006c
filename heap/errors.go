package heap

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidOptions indicates a configuration the heap cannot run with.
	ErrInvalidOptions = errors.New("heap: invalid options")

	// ErrInvalidSize indicates a request of zero, negative, or more than
	// MaxObjectSize bytes.
	ErrInvalidSize = errors.New("heap: invalid size")

	// ErrOutOfMemory indicates that no page could be obtained within the budget.
	ErrOutOfMemory = errors.New("heap: out of memory")
)

// optionsError reports a lower tier's configuration error as ErrInvalidOptions
// while keeping the tier's own error reachable through Unwrap.
type optionsError struct {
	cause error
}

func invalidOptions(cause error) error {
	return &optionsError{cause: cause}
}

func (e *optionsError) Error() string { return e.cause.Error() }

func (e *optionsError) Unwrap() error { return e.cause }

func (e *optionsError) Is(target error) bool { return target == ErrInvalidOptions }
