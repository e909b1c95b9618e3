//go:build linux

package memregion

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// remapFixed re-establishes a zero-filled anonymous mapping at the exact
// address r.data already occupies, via MAP_FIXED. x/sys/unix's high-level
// Mmap helper does not accept an explicit address, so this drops to the raw
// mmap(2) syscall - the same approach boltdb-style mmap wrappers use for
// fixed remaps. On success the kernel drops the old pages and the new ones
// read as zero; r.data's pointer and length are unchanged, only the
// physical backing is replaced.
func (r *Region) remapFixed() bool {
	if len(r.data) == 0 {
		return false
	}
	addr := uintptr(unsafe.Pointer(&r.data[0]))
	_, _, errno := unix.Syscall6(
		unix.SYS_MMAP,
		addr,
		uintptr(len(r.data)),
		uintptr(unix.PROT_READ|unix.PROT_WRITE),
		uintptr(unix.MAP_ANON|unix.MAP_PRIVATE|unix.MAP_FIXED),
		^uintptr(0), // fd -1
		0,
	)
	return errno == 0
}
