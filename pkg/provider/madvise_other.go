//go:build !unix

package provider

// adviseWillNeed is a no-op on platforms without madvise; warmup becomes a
// bounded walk that issues no hints.
func adviseWillNeed(b []byte) error {
	return nil
}
