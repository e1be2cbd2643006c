// Package align provides power-of-two and overflow-safe arithmetic shared by
// the buddy and slab tiers.
package align

import (
	"math"
	"math/bits"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies two non-negative values, returning ok = false when
// the product would overflow int. Negative operands are rejected.
func MulOverflowSafe(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// IsPow2 reports whether n is a positive power of two.
func IsPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2 returns floor(log2(n)). n must be positive.
func Log2(n int) int {
	return bits.Len(uint(n)) - 1
}

// CeilPow2 rounds n up to the next power of two. Values <= 1 round to 1.
// ok is false when the result does not fit in int.
func CeilPow2(n int) (int, bool) {
	if n <= 1 {
		return 1, true
	}
	shift := bits.Len(uint(n - 1))
	if shift >= bits.UintSize-1 {
		return 0, false
	}
	return 1 << shift, true
}

// Up rounds n up to a multiple of m. m must be a power of two.
func Up(n, m int) int {
	return (n + m - 1) &^ (m - 1)
}

// Down rounds n down to a multiple of m. m must be a power of two.
func Down(n, m int) int {
	return n &^ (m - 1)
}
