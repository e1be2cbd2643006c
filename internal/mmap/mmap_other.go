//go:build !linux && !darwin

package mmap

// mapRegion falls back to a Go-heap buffer when anonymous mappings are not
// available. The buffer holds no Go pointers the collector needs to trace and
// stays reachable through Source.regions until released.
func mapRegion(n int) ([]byte, error) {
	return make([]byte, n), nil
}

func unmapRegion([]byte) error {
	return nil
}
