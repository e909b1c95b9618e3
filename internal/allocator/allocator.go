// Package allocator implements the region-based payload-slot allocator of
// §4.2. Allocation is split across two bit planes to minimise contention:
// bitmap1 tracks which 512-slot "region" each worker owns, bitmap2 tracks
// per-slot occupancy within an owned region. A worker claims its bitmap2
// bits with an atomic first-setter-wins set, because pkg/table hands the
// same worker ID to concurrent lookups and so a region can have more than
// one writer at a time; claiming a new region is a CAS race against every
// other worker via bitmap1.
//
// © 2025 hashcons authors. MIT License.
package allocator

import (
	"sync/atomic"

	"github.com/Voskan/hashcons/internal/bitmap"
)

// RegionSlots is the allocation granularity between workers: 512 consecutive
// payload slots, i.e. 8 words of bitmap2 (§3, §4.2, GLOSSARY "Region").
const RegionSlots = 512
const wordsPerRegion = RegionSlots / 64 // 8

// noRegion is the thread-local sentinel §5 calls "none".
const noRegion = -1

// Allocator owns bitmap1 (region ownership) and bitmap2 (occupancy) and the
// per-worker region affinity described in §4.2 and §9's design note about
// keying my_region by (worker_id, table_handle) - here the table_handle
// component is implicit: this Allocator belongs to exactly one Table.
type Allocator struct {
	regionOwner *bitmap.Bitmap // bitmap1
	occupancy   *bitmap.Bitmap // bitmap2
	numRegions  uint64
	maxSize     uint64
	workerCount int
	myRegion    []int64 // atomic, one per worker
}

// New constructs an Allocator over the given bit planes. regionOwner must
// have numRegions bits, occupancy must have maxSize bits.
func New(regionOwner, occupancy *bitmap.Bitmap, maxSize uint64, workerCount int) *Allocator {
	numRegions := maxSize / RegionSlots
	a := &Allocator{
		regionOwner: regionOwner,
		occupancy:   occupancy,
		numRegions:  numRegions,
		maxSize:     maxSize,
		workerCount: workerCount,
		myRegion:    make([]int64, workerCount),
	}
	a.ResetAllWorkers()
	return a
}

// InitReservedBits forbids indices 0 and 1, matching §3: "bitmap2[0]
// initialized to 0xC000…000." Called at construction and again after every
// Clear (which zeroes bitmap2), single-threaded, while no worker allocates.
func (a *Allocator) InitReservedBits() {
	a.occupancy.OrExclusive(0)
	a.occupancy.OrExclusive(1)
}

// ResetAllWorkers clears every worker's region affinity. Called at Create
// and at every Clear, per §5's thread-local-state contract.
func (a *Allocator) ResetAllWorkers() {
	for i := range a.myRegion {
		atomic.StoreInt64(&a.myRegion[i], noRegion)
	}
}

// ResetWorker clears a single worker's region affinity.
func (a *Allocator) ResetWorker(workerID int) {
	atomic.StoreInt64(&a.myRegion[workerID], noRegion)
}

// biasStart implements the "first-use bias" of §4.2: "a fresh worker starts
// at region (worker_id · (table_size/4096)) / worker_count, spreading
// workers across the space." table_size here is approximated by max_size,
// since regions are carved from the full reservation, not the logical
// probing window.
func (a *Allocator) biasStart(workerID int) uint64 {
	if a.numRegions == 0 || a.workerCount == 0 {
		return 0
	}
	spread := a.maxSize / 4096
	start := (uint64(workerID) * spread) / uint64(a.workerCount)
	return start % a.numRegions
}

// Full is the table-full sentinel returned when no payload slot could be
// claimed - either the region scan or the allocation-within-region scan
// exhausted a full pass.
const Full = ^uint64(0)

// Allocate claims a fresh payload slot for workerID, returning Full if the
// table has no room left (§7: "Table full / probe exhausted").
func (a *Allocator) Allocate(workerID int) uint64 {
	region := atomic.LoadInt64(&a.myRegion[workerID])
	if region != noRegion {
		if idx, ok := a.allocateInRegion(uint64(region)); ok {
			return idx
		}
		// Current region is full; fall through to claim a new one.
	}
	newRegion, ok := a.claimRegion(workerID)
	if !ok {
		return Full
	}
	atomic.StoreInt64(&a.myRegion[workerID], int64(newRegion))
	idx, ok := a.allocateInRegion(newRegion)
	if !ok {
		// A freshly claimed, exclusively-owned region can only be full if
		// RegionSlots was already fully pre-occupied, which never happens
		// in practice; treat as table-full rather than panic.
		return Full
	}
	return idx
}

// allocateInRegion scans the region's 8 words for a free bit and claims it
// with SetAtomic; if another goroutine sharing the worker ID took that bit
// first, the word is scanned again.
func (a *Allocator) allocateInRegion(region uint64) (uint64, bool) {
	base := region * wordsPerRegion
	for w := uint64(0); w < wordsPerRegion; w++ {
		wordIdx := base + w
		for {
			bitPos, ok := a.occupancy.FirstFreeBit(wordIdx)
			if !ok {
				break
			}
			index := wordIdx*64 + uint64(bitPos)
			if a.occupancy.SetAtomic(index) {
				return index, true
			}
		}
	}
	return 0, false
}

// claimRegion scans bitmap1 starting from the worker's bias position and
// CAS-claims the first unowned region it finds. The scan wraps once; after
// a full pass with no success it reports table-full, per §4.2.
func (a *Allocator) claimRegion(workerID int) (uint64, bool) {
	if a.numRegions == 0 {
		return 0, false
	}
	start := a.biasStart(workerID)
	for i := uint64(0); i < a.numRegions; i++ {
		r := (start + i) % a.numRegions
		if a.regionOwner.Test(r) {
			continue
		}
		if a.regionOwner.SetAtomic(r) {
			return r, true
		}
	}
	return 0, false
}

// Release clears the occupancy bit for index. Used only when a speculative
// reservation loses its directory CAS to an equal-payload concurrent
// insert, per §4.2.
func (a *Allocator) Release(index uint64) {
	a.occupancy.ClearAtomic(index)
}
