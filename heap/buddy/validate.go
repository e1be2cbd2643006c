package buddy

import "github.com/cockroachdb/errors"

type blockKey struct {
	base  uintptr
	off   int
	class int
}

// Validate walks every free list and every chunk's block tree and reports
// the first inconsistency found: a listed block whose bit is set, a clear bit
// that no list accounts for, a free block nested inside an allocated one, or
// two free buddies left unmerged. It returns nil for a consistent allocator.
func (a *Allocator) Validate() error {
	free := make(map[blockKey]bool)
	for class := range a.free {
		count := 0
		for n := a.free[class].Peek(); n != nil; n = n.Next() {
			if count++; count > a.free[class].Len() {
				return errors.Wrapf(ErrCorrupt, "class %d list longer than its length %d", class, a.free[class].Len())
			}
			p := n.Ptr()
			base := uintptr(p) &^ a.chunkMask
			c, ok := a.chunks.Find(base)
			if !ok {
				return errors.Wrapf(ErrCorrupt, "free block %p (class %d) outside owned chunks", p, class)
			}
			off := c.offset(p)
			if off&(a.geom.ClassSize(class)-1) != 0 {
				return errors.Wrapf(ErrCorrupt, "free block %p misaligned for class %d", p, class)
			}
			if !c.meta.IsFree(off, class) {
				return errors.Wrapf(ErrCorrupt, "free block %p (class %d) marked in use", p, class)
			}
			k := blockKey{base, off, class}
			if free[k] {
				return errors.Wrapf(ErrCorrupt, "free block %p listed twice", p)
			}
			free[k] = true
		}
		if count != a.free[class].Len() {
			return errors.Wrapf(ErrCorrupt, "class %d list has %d nodes, length says %d", class, count, a.free[class].Len())
		}
	}

	var (
		visited int
		err     error
	)
	a.chunks.Range(func(base uintptr, c *chunk) bool {
		if c.base == nil || uintptr(c.base) != base {
			err = errors.Wrapf(ErrCorrupt, "chunk index key %#x maps to chunk at %p", base, c.base)
			return false
		}
		var n int
		n, err = a.walk(c, base, 0, a.top, free)
		visited += n
		return err == nil
	})
	if err != nil {
		return err
	}
	if visited != len(free) {
		return errors.Wrapf(ErrCorrupt, "%d free blocks listed, %d reachable in chunk trees", len(free), visited)
	}
	return nil
}

// walk descends the block tree below (off, class) and returns how many
// listed free blocks it reached.
func (a *Allocator) walk(c *chunk, base uintptr, off, class int, free map[blockKey]bool) (int, error) {
	if free[blockKey{base, off, class}] {
		return 1, nil
	}
	if c.meta.IsFree(off, class) {
		return 0, errors.Wrapf(ErrCorrupt, "chunk %#x block %#x/%d is clear but not listed", base, off, class)
	}
	if class == 0 {
		return 0, nil
	}
	lo, hi := off, off+a.geom.ClassSize(class-1)
	loFree, hiFree := free[blockKey{base, lo, class - 1}], free[blockKey{base, hi, class - 1}]
	if loFree && hiFree {
		return 0, errors.Wrapf(ErrCorrupt, "chunk %#x buddies at %#x and %#x (class %d) both free", base, lo, hi, class-1)
	}
	if !loFree && !hiFree && c.meta.IsFree(lo, class-1) && c.meta.IsFree(hi, class-1) {
		// Allocated block; its descendants are untracked.
		return 0, nil
	}
	n1, err := a.walk(c, base, lo, class-1, free)
	if err != nil {
		return 0, err
	}
	n2, err := a.walk(c, base, hi, class-1, free)
	if err != nil {
		return 0, err
	}
	return n1 + n2, nil
}
