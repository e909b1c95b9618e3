// Package directory implements the hash directory and the cache-line-bounded
// probe engine of §4.1: CAS-based insertion, linear-within-a-cache-line
// probing with rehash-on-overflow, and the contention-free rehash variant
// used during GC sweeps.
//
// © 2025 hashcons authors. MIT License.
package directory

import (
	"fmt"
	"sync/atomic"

	"github.com/Voskan/hashcons/internal/allocator"
	"github.com/Voskan/hashcons/internal/bitmap"
	"github.com/Voskan/hashcons/internal/hashing"
	"github.com/Voskan/hashcons/internal/payload"
)

// bytesPerCacheLine matches common x86/arm64 cache-line sizes; HashPerCL is
// derived from it per §4.1: "HASH_PER_CL = line_size / 8 slots."
const bytesPerCacheLine = 64
const HashPerCL = bytesPerCacheLine / 8

// ErrProbeExhausted is returned when a lookup or rehash-insert burns through
// its full probe budget without finding a match or an empty slot, per §7.
var ErrProbeExhausted = fmt.Errorf("directory: probe budget exhausted")

// ErrTableFull is returned when the allocator cannot produce a fresh
// payload slot for a new insert.
var ErrTableFull = fmt.Errorf("directory: no free payload slot")

// HashFunc computes a 64-bit hash of (a,b) given a seed. The default
// implementation is hashing.Mix with the FNV offset basis seed; a client may
// register an alternative via SetCustom.
type HashFunc func(a, b, seed uint64) uint64

// EqualFunc reports whether two payloads are equivalent.
type EqualFunc func(a1, b1, a2, b2 uint64) bool

func defaultEqual(a1, b1, a2, b2 uint64) bool { return a1 == a2 && b1 == b2 }

// Directory owns the hash-slot array and the probe discipline over it.
type Directory struct {
	words     []uint64 // atomic-accessed, len == maxSize
	maxSize   uint64
	tableSize uint64
	maskMode  bool
	threshold int

	payload *payload.Store
	alloc   *allocator.Allocator
	custom  *bitmap.Bitmap // bitmap4: per-slot custom-hash flag
}

// Config bundles the fixed parameters a Directory needs at construction.
type Config struct {
	Words     []uint64 // typed view over the reserved directory region, len == maxSize
	MaxSize   uint64
	TableSize uint64
	MaskMode  bool
	Threshold int
	Payload   *payload.Store
	Allocator *allocator.Allocator
	Custom    *bitmap.Bitmap
}

// New constructs a Directory. cfg.TableSize must already satisfy §3's
// invariants (power of two in mask mode, >= 512, <= MaxSize) - Table.New is
// responsible for validating those before calling here.
func New(cfg Config) *Directory {
	return &Directory{
		words:     cfg.Words,
		maxSize:   cfg.MaxSize,
		tableSize: cfg.TableSize,
		maskMode:  cfg.MaskMode,
		threshold: cfg.Threshold,
		payload:   cfg.Payload,
		alloc:     cfg.Allocator,
		custom:    cfg.Custom,
	}
}

// SetSize updates the logical table_size and its derived mask, per §4.5:
// "no physical remap is required because the virtual range was reserved
// up-front."
func (d *Directory) SetSize(n uint64) {
	atomic.StoreUint64(&d.tableSize, n)
}

// TableSize returns the current logical size.
func (d *Directory) TableSize() uint64 {
	return atomic.LoadUint64(&d.tableSize)
}

func (d *Directory) startIndex(h uint64) uint64 {
	size := d.TableSize()
	if d.maskMode {
		return h & (size - 1)
	}
	return h % size
}

// lineStep implements §4.1's wraparound-within-cache-line index update:
// "idx = (idx & ~(HASH_PER_CL-1)) | ((idx+1) & (HASH_PER_CL-1))".
func lineStep(idx uint64) uint64 {
	const mask = HashPerCL - 1
	return (idx &^ mask) | ((idx + 1) & mask)
}

// Lookup implements the full concurrent lookup-or-insert protocol of §4.1
// using the default mixer and equality.
func (d *Directory) Lookup(workerID int, a, b uint64) (index uint64, created bool, err error) {
	return d.lookup(workerID, a, b, hashing.Default(a, b), defaultEqual, false)
}

// LookupCustom is the same protocol driven by client-supplied hash and
// equality callbacks; the published slot is additionally tagged in the
// custom-hash bit plane (bitmap4) so Rehash knows which mixer to use later.
func (d *Directory) LookupCustom(workerID int, a, b uint64, hash HashFunc, eq EqualFunc) (index uint64, created bool, err error) {
	equal := eq
	if equal == nil {
		equal = defaultEqual
	}
	h := hashing.Default(a, b)
	if hash != nil {
		h = hash(a, b, hashing.OffsetBasis)
	}
	return d.lookup(workerID, a, b, h, equal, true)
}

func (d *Directory) lookup(workerID int, a, b uint64, h uint64, eq EqualFunc, custom bool) (uint64, bool, error) {
	tag := hashing.Tag(h)

	var reserved uint64
	haveReserved := false
	defer func() {
		if haveReserved {
			d.alloc.Release(reserved)
		}
	}()

	for attempt := 0; attempt < d.threshold; attempt++ {
		idx := d.startIndex(h)
		for probe := 0; probe < HashPerCL; probe++ {
			slotAddr := &d.words[idx]
			cur := atomic.LoadUint64(slotAddr)

			if cur == 0 {
				if !haveReserved {
					reserved = d.alloc.Allocate(workerID)
					if reserved == ^uint64(0) {
						return 0, false, ErrTableFull
					}
					haveReserved = true
					d.payload.Write(reserved, a, b)
				}
				word := hashing.PackSlot(tag, reserved)
				if atomic.CompareAndSwapUint64(slotAddr, 0, word) {
					if custom {
						d.custom.SetAtomic(reserved)
					}
					haveReserved = false // ownership transferred to the table
					return reserved, true, nil
				}
				// Lost the race: re-read and fall through to the match
				// check below using the winner's value.
				cur = atomic.LoadUint64(slotAddr)
			}

			curTag, curIndex := hashing.UnpackSlot(cur)
			if curTag == tag {
				pa, pb := d.payload.Read(curIndex)
				if eq(a, b, pa, pb) {
					return curIndex, false, nil
				}
			}
			idx = lineStep(idx)
		}
		h = hashing.Remix(h)
		tag = hashing.Tag(h)
	}
	return 0, false, ErrProbeExhausted
}

// RehashInsert re-publishes a payload already known to be live at the given
// index into a freshly cleared directory, per §4.1's "Rehash variant": no
// CAS contention loop, no allocation, custom-ness taken from bitmap4. It
// returns ErrProbeExhausted if the probe budget is exceeded, which the
// caller (internal/sweep) surfaces as a "grow the table" condition.
func (d *Directory) RehashInsert(index uint64, a, b uint64, customHash HashFunc, customEqual EqualFunc) error {
	isCustom := d.custom != nil && d.custom.Test(index)
	var h uint64
	if isCustom && customHash != nil {
		h = customHash(a, b, hashing.OffsetBasis)
	} else {
		h = hashing.Default(a, b)
	}
	tag := hashing.Tag(h)

	for attempt := 0; attempt < d.threshold; attempt++ {
		idx := d.startIndex(h)
		for probe := 0; probe < HashPerCL; probe++ {
			slotAddr := &d.words[idx]
			if atomic.LoadUint64(slotAddr) == 0 {
				atomic.StoreUint64(slotAddr, hashing.PackSlot(tag, index))
				return nil
			}
			idx = lineStep(idx)
		}
		h = hashing.Remix(h)
		tag = hashing.Tag(h)
	}
	return ErrProbeExhausted
}

// ZeroFill zeroes every directory slot with atomic stores. Table.Clear calls
// it only when the backing memregion was not zeroed by remap, as the manual
// fallback; after a successful remap it is not called.
func (d *Directory) ZeroFill() {
	for i := range d.words {
		atomic.StoreUint64(&d.words[i], 0)
	}
}
