//go:build unix

// Package memregion is the table's memory provider: large anonymous virtual
// allocations that a caller can zero-by-remap instead of touching every
// page, plus an optional madvise hint. The table's lifecycle needs
// fixed-address remapping and random-access advice, neither of which Go's
// experimental arena package exposes, so this wraps golang.org/x/sys/unix
// directly.
//
// Every region reserves `size` bytes of virtual address space up front via
// New and never grows; Table.SetSize only changes the logical table_size
// within that reservation, exactly as §4.5 specifies.
//
// © 2025 hashcons authors. MIT License.
package memregion

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/Voskan/hashcons/internal/unsafehelpers"
)

// Region is a fixed-size anonymous mapping that can be zeroed in place by
// remapping MAP_FIXED over itself on platforms that support it (see
// zero_linux.go), or by a plain memset fallback everywhere else (see
// zero_fallback.go) - the fallback is the contract §9's design notes call
// for explicitly: "the clear contract does not depend on remap succeeding."
type Region struct {
	data []byte
	size int
}

// New reserves size bytes of anonymous, zero-filled, read/write memory. The
// mmap request is rounded up to a full page, since the kernel would round it
// up anyway and the region's zero/remap logic assumes a whole-page mapping.
func New(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("memregion: size must be > 0, got %d", size)
	}
	pageSize := os.Getpagesize()
	mapSize := int(unsafehelpers.AlignUp(uintptr(size), uintptr(pageSize)))
	data, err := unix.Mmap(-1, 0, mapSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("memregion: mmap %d bytes: %w", mapSize, err)
	}
	return &Region{data: data, size: size}, nil
}

// Bytes returns the full backing slice. Callers build typed views
// (directory words, payload pairs, bitmap words) over this with
// internal/unsafehelpers.
func (r *Region) Bytes() []byte { return r.data }

// Len reports the reserved size in bytes.
func (r *Region) Len() int { return r.size }

// AdviseRandom hints to the kernel that access to this region is
// non-sequential, matching §4.5's "advises random access on the directory".
// Best-effort: failures are not fatal, callers should log and continue.
func (r *Region) AdviseRandom() error {
	if len(r.data) == 0 {
		return nil
	}
	return unix.Madvise(r.data, unix.MADV_RANDOM)
}

// Zero clears the entire region, preferring a fixed-address remap (O(1), no
// byte-by-byte write) and falling back to a manual memset when the platform
// does not support it or the remap syscall fails.
func (r *Region) Zero() (remapped bool, err error) {
	if len(r.data) == 0 {
		return false, nil
	}
	if ok := r.remapFixed(); ok {
		return true, nil
	}
	for i := range r.data {
		r.data[i] = 0
	}
	return false, nil
}

// Free releases the mapping. After Free the Region must not be used again.
func (r *Region) Free() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	r.size = 0
	if err != nil {
		return fmt.Errorf("memregion: munmap: %w", err)
	}
	return nil
}
