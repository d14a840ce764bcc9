//go:build unix

package provider

import "golang.org/x/sys/unix"

// adviseWillNeed hints that the given pages will be read soon. Best effort:
// the kernel may reject ranges that are not mapped the way it expects, and
// that is fine for an advisory call.
func adviseWillNeed(b []byte) error {
	return unix.Madvise(b, unix.MADV_WILLNEED)
}
