// Package payload is the two-word data array: two consecutive 64-bit words
// (a,b) at index i, opaque to the table itself. Rather than wrapping Go's
// experimental arena allocator (a single-owner, bump-allocated region) it
// exposes random-access slots over an internal/memregion.Region sized for
// max_size entries, because payload slots here are addressed by a stable
// numeric index forever, not freed individually.
//
// © 2025 hashcons authors. MIT License.
package payload

import (
	"sync/atomic"
	"unsafe"

	"github.com/Voskan/hashcons/internal/memregion"
	"github.com/Voskan/hashcons/internal/unsafehelpers"
)

// wordsPerSlot is the two machine words every payload occupies, per §1:
// "Payloads wider than two machine words" are out of scope.
const wordsPerSlot = 2

// Store owns the payload array: max_size pairs of uint64 words.
type Store struct {
	region *memregion.Region
	words  []uint64 // len == maxSize*wordsPerSlot
}

// New reserves storage for maxSize payload slots.
func New(maxSize uint64) (*Store, error) {
	region, err := memregion.New(int(maxSize) * wordsPerSlot * 8)
	if err != nil {
		return nil, err
	}
	words := unsafehelpers.PtrSlice((*uint64)(unsafe.Pointer(&region.Bytes()[0])), int(maxSize)*wordsPerSlot)
	return &Store{region: region, words: words}, nil
}

// Write publishes (a,b) into slot i. The caller must do this before the
// directory CAS that makes i visible to other readers - §5's
// happens-before requirement is satisfied by the release semantics of that
// later CompareAndSwap, not by anything in this method.
func (s *Store) Write(i uint64, a, b uint64) {
	base := i * wordsPerSlot
	atomic.StoreUint64(&s.words[base], a)
	atomic.StoreUint64(&s.words[base+1], b)
}

// Read returns the (a,b) pair stored at slot i.
func (s *Store) Read(i uint64) (a, b uint64) {
	base := i * wordsPerSlot
	return atomic.LoadUint64(&s.words[base]), atomic.LoadUint64(&s.words[base+1])
}

// Free releases the backing mapping.
func (s *Store) Free() error {
	return s.region.Free()
}
