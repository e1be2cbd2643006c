package heap

import (
	"math"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/slabheap/heap/slab"
)

const (
	// linearMax is the last class reached in granule-sized steps.
	linearMax = 128

	// stepsPerDoubling is the number of classes between consecutive powers of
	// two above linearMax.
	stepsPerDoubling = 4
)

// Class describes one size class.
type Class struct {
	Size           int `json:"size"`             // Object size served
	PageSize       int `json:"page_size"`        // Slab page size
	ObjectsPerPage int `json:"objects_per_page"` // Slots per page after the header
}

// Waste returns the bytes per page left over after the header and slots.
func (c Class) Waste() int {
	return c.PageSize - slab.PageHeaderSize - c.ObjectsPerPage*c.Size
}

// sizeClassTable maps request sizes to class indexes.
type sizeClassTable struct {
	classes []Class
	// lookup[(size+15)/16] is the class serving size.
	lookup []uint8
}

// classSizes returns the object size ladder up to and including maxObject:
// 16-byte steps to 128, then four steps per power of two.
func classSizes(maxObject int) []int {
	sizes := make([]int, 0, 64)
	for size := granule; size <= linearMax && size <= maxObject; size += granule {
		sizes = append(sizes, size)
	}
	for base := linearMax; base < maxObject; base *= 2 {
		step := base / stepsPerDoubling
		for size := base + step; size <= 2*base && size <= maxObject; size += step {
			sizes = append(sizes, size)
		}
		if base > math.MaxInt/4 {
			break
		}
	}
	if sizes[len(sizes)-1] != maxObject {
		sizes = append(sizes, maxObject)
	}
	return sizes
}

// classPageSize returns the smallest power of two at least minPage that holds
// minObjects objects of size after the page header.
func classPageSize(size, minPage, minObjects, limit int) (int, error) {
	for page := minPage; page <= limit; page *= 2 {
		if (page-slab.PageHeaderSize)/size >= minObjects {
			return page, nil
		}
		if page > math.MaxInt/2 {
			break
		}
	}
	return 0, errors.Wrapf(ErrInvalidOptions, "objects of %d bytes need pages larger than %d", size, limit)
}

func newSizeClassTable(maxObject, minPage, minObjects, chunkSize int) (*sizeClassTable, error) {
	sizes := classSizes(maxObject)
	if len(sizes) > math.MaxUint8+1 {
		return nil, errors.Wrapf(ErrInvalidOptions, "max object size %d yields %d classes", maxObject, len(sizes))
	}
	t := &sizeClassTable{
		classes: make([]Class, len(sizes)),
		lookup:  make([]uint8, maxObject/granule+1),
	}
	for i, size := range sizes {
		page, err := classPageSize(size, minPage, minObjects, chunkSize)
		if err != nil {
			return nil, err
		}
		t.classes[i] = Class{
			Size:           size,
			PageSize:       page,
			ObjectsPerPage: (page - slab.PageHeaderSize) / size,
		}
	}
	class := 0
	for g := 1; g < len(t.lookup); g++ {
		for sizes[class] < g*granule {
			class++
		}
		t.lookup[g] = uint8(class)
	}
	return t, nil
}

// classOf returns the class serving size, or -1.
func (t *sizeClassTable) classOf(size, maxObject int) int {
	if size <= 0 || size > maxObject {
		return -1
	}
	return int(t.lookup[(size+granule-1)/granule])
}
