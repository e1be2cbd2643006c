package slab

import "github.com/cockroachdb/errors"

// ErrInvalidConfig indicates an object and page size pair the slab cannot use.
var ErrInvalidConfig = errors.New("slab: invalid configuration")
