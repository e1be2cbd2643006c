package mmap

import (
	"unsafe"

	"github.com/cockroachdb/errors"
)

func errUnknownRegion(p unsafe.Pointer) error {
	return errors.AssertionFailedf("mmap: release of unknown region %p", p)
}

func errSizeMismatch(p unsafe.Pointer, got, want int) error {
	return errors.AssertionFailedf("mmap: release of %p with size %d, acquired with %d", p, got, want)
}
