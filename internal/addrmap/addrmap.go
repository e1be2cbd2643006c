// Package addrmap is an open-addressing hash map keyed by raw addresses.
//
// The buddy allocator uses it to map a chunk's base address to the chunk's
// metadata. Lookups use linear probing; deletion uses backward-shift so the
// table never accumulates tombstones and Find never probes past the first
// empty bucket.
package addrmap

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
)

const (
	// DefaultLoadFactor is the fill ratio that triggers a doubling.
	DefaultLoadFactor = 0.75

	// MaxLoadFactor keeps at least one bucket empty so probes terminate.
	MaxLoadFactor = 0.99

	// DefaultBuckets is the initial bucket count.
	DefaultBuckets = 8
)

// ErrInvalidConfig is returned by NewWithConfig for a load factor or bucket
// count the table cannot operate with.
var ErrInvalidConfig = errors.New("addrmap: invalid configuration")

type cell[V any] struct {
	key uintptr
	val V
}

// Map maps non-zero addresses to values of type V. The key 0 is reserved to
// mark empty buckets. A Map is not safe for concurrent use.
type Map[V any] struct {
	cells []cell[V]
	n     int
	load  float64
	hash  func(uintptr) uint64
}

// New returns an empty map with the default load factor and bucket count.
func New[V any]() *Map[V] {
	m, _ := NewWithConfig[V](DefaultLoadFactor, DefaultBuckets)
	return m
}

// NewWithConfig returns an empty map. buckets is rounded up to a power of two.
func NewWithConfig[V any](loadFactor float64, buckets int) (*Map[V], error) {
	if !(loadFactor > 0 && loadFactor <= MaxLoadFactor) {
		return nil, errors.Wrapf(ErrInvalidConfig, "load factor %v outside (0, %v]", loadFactor, MaxLoadFactor)
	}
	if buckets < 1 {
		return nil, errors.Wrapf(ErrInvalidConfig, "bucket count %d must be positive", buckets)
	}
	size := 1
	for size < buckets {
		if size > math.MaxInt/2 {
			return nil, errors.Wrapf(ErrInvalidConfig, "bucket count %d too large", buckets)
		}
		size <<= 1
	}
	return &Map[V]{
		cells: make([]cell[V], size),
		load:  loadFactor,
		hash:  hashAddr,
	}, nil
}

func hashAddr(key uintptr) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(key))
	return xxhash.Sum64(b[:])
}

// Len returns the number of keys present.
func (m *Map[V]) Len() int {
	return m.n
}

// Buckets returns the current bucket count.
func (m *Map[V]) Buckets() int {
	return len(m.cells)
}

func (m *Map[V]) mask() int {
	return len(m.cells) - 1
}

func (m *Map[V]) ideal(key uintptr) int {
	return int(m.hash(key) & uint64(m.mask()))
}

// bucketOf returns the bucket holding key, or the empty bucket where it
// would be inserted.
func (m *Map[V]) bucketOf(key uintptr) int {
	b := m.ideal(key)
	for m.cells[b].key != 0 && m.cells[b].key != key {
		b = (b + 1) & m.mask()
	}
	return b
}

// distance is the number of probe steps from a to b, wrapping around.
func (m *Map[V]) distance(a, b int) int {
	return (b - a) & m.mask()
}

// Find returns the value stored for key.
func (m *Map[V]) Find(key uintptr) (V, bool) {
	if key == 0 {
		var zero V
		return zero, false
	}
	c := &m.cells[m.bucketOf(key)]
	if c.key == 0 {
		var zero V
		return zero, false
	}
	return c.val, true
}

// Insert stores val under key. It reports false, leaving the existing value
// untouched, when key is already present or is 0.
func (m *Map[V]) Insert(key uintptr, val V) bool {
	if key == 0 {
		return false
	}
	if float64(m.n+1) > float64(len(m.cells))*m.load {
		m.grow()
	}
	b := m.bucketOf(key)
	if m.cells[b].key != 0 {
		return false
	}
	m.cells[b] = cell[V]{key: key, val: val}
	m.n++
	return true
}

// Erase removes key, reporting whether it was present. Subsequent members of
// the probe run are shifted back into the hole when the hole lies between
// their ideal bucket and their current one.
func (m *Map[V]) Erase(key uintptr) bool {
	if key == 0 {
		return false
	}
	hole := m.bucketOf(key)
	if m.cells[hole].key != key {
		return false
	}
	for next := (hole + 1) & m.mask(); m.cells[next].key != 0; next = (next + 1) & m.mask() {
		ideal := m.ideal(m.cells[next].key)
		if m.distance(ideal, hole) < m.distance(ideal, next) {
			m.cells[hole] = m.cells[next]
			hole = next
		}
	}
	m.cells[hole] = cell[V]{}
	m.n--
	return true
}

// Range calls fn for every entry until fn returns false. The map must not be
// modified during the walk.
func (m *Map[V]) Range(fn func(key uintptr, val V) bool) {
	for i := range m.cells {
		if m.cells[i].key == 0 {
			continue
		}
		if !fn(m.cells[i].key, m.cells[i].val) {
			return
		}
	}
}

func (m *Map[V]) grow() {
	if len(m.cells) > math.MaxInt/2 {
		panic(errors.AssertionFailedf("addrmap: cannot grow past %d buckets", len(m.cells)))
	}
	old := m.cells
	m.cells = make([]cell[V], len(old)*2)
	for i := range old {
		if old[i].key == 0 {
			continue
		}
		m.cells[m.bucketOf(old[i].key)] = old[i]
	}
}

// Dump renders every bucket as "index --> key, value", one per line.
func (m *Map[V]) Dump() string {
	var sb strings.Builder
	for i := range m.cells {
		fmt.Fprintf(&sb, "%d --> %#x, %v\n", i, m.cells[i].key, m.cells[i].val)
	}
	return sb.String()
}
