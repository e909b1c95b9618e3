// Package table implements the public API surface of §6: create/free,
// set_size, lookup/lookup_custom, is_marked/mark, clear/rehash/count_marked,
// set_ondead/notify_ondead/notify_all, set_custom.
//
// © 2025 hashcons authors. MIT License.
package table

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"go.uber.org/zap"

	"github.com/Voskan/hashcons/internal/allocator"
	"github.com/Voskan/hashcons/internal/bitmap"
	"github.com/Voskan/hashcons/internal/directory"
	"github.com/Voskan/hashcons/internal/memregion"
	"github.com/Voskan/hashcons/internal/metrics"
	"github.com/Voskan/hashcons/internal/payload"
	"github.com/Voskan/hashcons/internal/sweep"
	"github.com/Voskan/hashcons/internal/unsafehelpers"
	"github.com/Voskan/hashcons/internal/worker"
)

// ErrTableFull and ErrProbeExhausted mirror the directory package's
// sentinels; re-exported here so callers never need to import internal/.
var (
	ErrTableFull       = directory.ErrTableFull
	ErrProbeExhausted  = directory.ErrProbeExhausted
	ErrClosed          = errors.New("hashcons: table is closed")
	ErrQuiescenceOwned = errors.New("hashcons: cannot run lookup while a GC phase is in progress")
)

// Table is a lock-free, fixed-capacity, unique-insert hash table: identical
// two-word payloads always resolve to the same numeric index.
type Table struct {
	cfg *config

	dirRegion      *memregion.Region
	regionOwnerReg *memregion.Region
	occupancyReg   *memregion.Region
	notifyReg      *memregion.Region
	customReg      *memregion.Region
	markReg        *memregion.Region

	regionOwner *bitmap.Bitmap
	occupancy   *bitmap.Bitmap
	notify      *bitmap.Bitmap
	custom      *bitmap.Bitmap
	mark        *bitmap.Bitmap

	store *payload.Store
	alloc *allocator.Allocator
	dir   *directory.Directory
	wr    *worker.Runtime

	// GC exclusion: Lookup and the GC phases (Clear/Rehash/SetSize/NotifyAll)
	// are mutually exclusive. Lookups take RLock, GC phases take Lock - this
	// turns "client is responsible for quiescing" into an enforced Go idiom
	// instead of trusting callers.
	mu sync.RWMutex

	callbackMu sync.Mutex
	hashCb     HashFunc
	equalCb    EqualFunc
	deadCb     DeadFunc

	dispenser atomic.Uint64 // round-robin worker-ID dispenser, see DESIGN.md

	metrics metrics.Sink
	logger  *zap.Logger

	maxSize uint64
	closed  atomic.Bool
}

// New creates a table with the given initial logical size and maximum
// (virtually reserved) capacity, per §4.5's create(initial_size, max_size).
func New(initialSize, maxSize uint64, opts ...Option) (*Table, error) {
	cfg := defaultConfig(initialSize, maxSize)
	if err := applyOptions(cfg, opts); err != nil {
		return nil, err
	}

	t := &Table{cfg: cfg, maxSize: maxSize, logger: cfg.logger}
	t.metrics = metrics.New(cfg.registry, cfg.namespace)
	t.hashCb = cfg.hashCb
	t.equalCb = cfg.equalCb
	t.deadCb = cfg.deadCb

	if err := t.allocateRegions(); err != nil {
		return nil, err
	}

	t.wr = worker.New(cfg.workerCount)
	t.alloc = allocator.New(t.regionOwner, t.occupancy, maxSize, cfg.workerCount)
	t.alloc.InitReservedBits()

	t.dir = directory.New(directory.Config{
		Words:     dirWords(t.dirRegion, maxSize),
		MaxSize:   maxSize,
		TableSize: initialSize,
		MaskMode:  cfg.maskMode,
		Threshold: cfg.threshold,
		Payload:   t.store,
		Allocator: t.alloc,
		Custom:    t.custom,
	})

	// §4.5: "runs the worker init on every worker."
	ctx := context.Background()
	_ = t.wr.Together(ctx, func(workerID int) error {
		t.alloc.ResetWorker(workerID)
		return nil
	})

	return t, nil
}

func dirWords(r *memregion.Region, maxSize uint64) []uint64 {
	return unsafehelpers.PtrSlice((*uint64)(unsafe.Pointer(&r.Bytes()[0])), int(maxSize))
}

func bitmapView(r *memregion.Region, bits uint64) *bitmap.Bitmap {
	words := (bits + 63) / 64
	return bitmap.New(unsafehelpers.PtrSlice((*uint64)(unsafe.Pointer(&r.Bytes()[0])), int(words)))
}

func (t *Table) allocateRegions() (err error) {
	numRegions := t.maxSize / allocator.RegionSlots
	if numRegions == 0 {
		numRegions = 1
	}

	if t.dirRegion, err = memregion.New(int(t.maxSize) * 8); err != nil {
		return fmt.Errorf("hashcons: directory region: %w", err)
	}
	if err := t.dirRegion.AdviseRandom(); err != nil {
		t.logger.Warn("directory madvise(random) failed", zap.Error(err))
	}
	if t.regionOwnerReg, err = memregion.New(int((numRegions + 7) / 8)); err != nil {
		return fmt.Errorf("hashcons: region-owner bitmap: %w", err)
	}
	if t.occupancyReg, err = memregion.New(int((t.maxSize + 7) / 8)); err != nil {
		return fmt.Errorf("hashcons: occupancy bitmap: %w", err)
	}
	if t.notifyReg, err = memregion.New(int((t.maxSize + 7) / 8)); err != nil {
		return fmt.Errorf("hashcons: notify bitmap: %w", err)
	}
	if t.customReg, err = memregion.New(int((t.maxSize + 7) / 8)); err != nil {
		return fmt.Errorf("hashcons: custom-hash bitmap: %w", err)
	}
	if t.markReg, err = memregion.New(int((t.maxSize + 7) / 8)); err != nil {
		return fmt.Errorf("hashcons: mark bitmap: %w", err)
	}
	if t.store, err = payload.New(t.maxSize); err != nil {
		return fmt.Errorf("hashcons: payload store: %w", err)
	}

	t.regionOwner = bitmapView(t.regionOwnerReg, numRegions)
	t.occupancy = bitmapView(t.occupancyReg, t.maxSize)
	t.notify = bitmapView(t.notifyReg, t.maxSize)
	t.custom = bitmapView(t.customReg, t.maxSize)
	t.mark = bitmapView(t.markReg, t.maxSize)
	return nil
}

// Close releases every mapping owned by the table. The table must not be
// used afterwards.
func (t *Table) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	var errs []error
	for _, r := range []*memregion.Region{t.dirRegion, t.regionOwnerReg, t.occupancyReg, t.notifyReg, t.customReg, t.markReg} {
		if r != nil {
			if err := r.Free(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := t.store.Free(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SetSize updates the logical table_size, per §4.5's set_size(handle, n).
func (t *Table) SetSize(n uint64) error {
	if n < MinTableSize || n > t.maxSize {
		return errInvalidInitialSize
	}
	if t.cfg.maskMode && !unsafehelpers.IsPowerOfTwo(uintptr(n)) {
		return errNotPowerOfTwo
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dir.SetSize(n)
	t.logger.Info("table resized", zap.Uint64("table_size", n))
	return nil
}

func (t *Table) nextWorkerID() int {
	n := t.dispenser.Add(1)
	return int(n % uint64(t.wr.Count()))
}

// Lookup implements §4.1's lookup(a,b) -> (index, created) using the
// default mixer and equality.
func (t *Table) Lookup(a, b uint64) (index uint64, created bool, err error) {
	if t.closed.Load() {
		return 0, false, ErrClosed
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, created, err := t.dir.Lookup(t.nextWorkerID(), a, b)
	t.recordLookup(created, err)
	return idx, created, err
}

// LookupCustom implements §4.1's lookup_custom(a,b) -> (index, created)
// using whatever hash/equality callbacks were last registered via
// SetCustom/WithCustom.
func (t *Table) LookupCustom(a, b uint64) (index uint64, created bool, err error) {
	if t.closed.Load() {
		return 0, false, ErrClosed
	}
	t.callbackMu.Lock()
	hashCb, equalCb := t.hashCb, t.equalCb
	t.callbackMu.Unlock()

	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, created, err := t.dir.LookupCustom(t.nextWorkerID(), a, b,
		directory.HashFunc(hashCb), directory.EqualFunc(equalCb))
	t.recordLookup(created, err)
	return idx, created, err
}

func (t *Table) recordLookup(created bool, err error) {
	switch {
	case errors.Is(err, directory.ErrProbeExhausted):
		t.metrics.IncProbeExhausted()
	case errors.Is(err, directory.ErrTableFull):
		t.metrics.IncTableFull()
	default:
		t.metrics.IncLookup(created)
	}
}

// SetCustom registers the custom hash/equality callbacks used by
// LookupCustom and by Rehash for custom-tagged slots.
func (t *Table) SetCustom(hash HashFunc, equal EqualFunc) {
	t.callbackMu.Lock()
	defer t.callbackMu.Unlock()
	t.hashCb = hash
	t.equalCb = equal
}

// SetOnDead registers the dead-notify callback invoked by NotifyAll.
func (t *Table) SetOnDead(cb DeadFunc) {
	t.callbackMu.Lock()
	defer t.callbackMu.Unlock()
	t.deadCb = cb
}

// IsMarked reports whether payload slot i is marked live in the current
// epoch.
func (t *Table) IsMarked(i uint64) bool {
	return t.mark.Test(i)
}

// Mark sets the mark bit for slot i and reports whether this call was the
// first to set it this epoch, per §4.3's mark() semantics.
func (t *Table) Mark(i uint64) bool {
	return t.mark.SetAtomic(i)
}

// NotifyOnDead requests a dead-callback invocation for slot i if it is not
// marked by the end of the current GC cycle, per §4.3.
func (t *Table) NotifyOnDead(i uint64) {
	t.notify.SetAtomic(i)
}

// Clear zeroes the directory and the region-owner/occupancy bitmaps and
// resets per-worker allocation affinity, per §4.5. Lookups are excluded for
// the duration (see mu's doc comment). The mark, notify, and custom-hash
// planes are left untouched - Rehash reads the mark plane to decide what
// survives, and a slot's notify/custom attributes outlive the occupancy
// reset that temporarily forgets it is occupied.
func (t *Table) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if remapped, err := t.dirRegion.Zero(); err != nil {
		return err
	} else if !remapped {
		t.logger.Warn("directory remap failed, zero-fill fallback engaged")
		t.dir.ZeroFill()
	}
	if remapped, err := t.regionOwnerReg.Zero(); err != nil || !remapped {
		t.logger.Warn("region-owner remap failed, zero-fill fallback engaged", zap.Error(err))
	}
	if remapped, err := t.occupancyReg.Zero(); err != nil || !remapped {
		t.logger.Warn("occupancy remap failed, zero-fill fallback engaged", zap.Error(err))
	}
	t.alloc.InitReservedBits()
	t.alloc.ResetAllWorkers()
	t.logger.Info("table cleared")
	return nil
}

// Rehash re-publishes every marked payload into the (already cleared)
// directory via the parallel rehash sweep of §4.4, then ends the mark
// epoch by clearing the mark plane - see DESIGN.md for why the mark
// bitmap's reset is pinned to the end of Rehash rather than to Clear.
func (t *Table) Rehash() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.callbackMu.Lock()
	hashCb, equalCb := t.hashCb, t.equalCb
	t.callbackMu.Unlock()

	start := time.Now()
	err := sweep.Rehash(context.Background(), t.dir, t.store, t.mark, t.occupancy, t.maxSize,
		directory.HashFunc(hashCb), directory.EqualFunc(equalCb))
	t.metrics.ObserveRehash(time.Since(start))
	if err != nil {
		t.logger.Warn("rehash sweep exhausted its probe budget; grow and retry", zap.Error(err))
		return err
	}
	t.mark.ZeroRange(0, t.maxSize)
	t.logger.Info("table rehashed", zap.Duration("duration", time.Since(start)))
	return nil
}

// CountMarked runs the parallel count-marked sweep of §4.4 over the full
// [0, max_size) range.
func (t *Table) CountMarked() (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, err := sweep.CountMarked(context.Background(), t.mark, t.maxSize)
	if err == nil {
		t.metrics.SetMarked(n)
	}
	return n, err
}

// NotifyAll runs the notify-dead sweep of §4.4: every slot that is
// occupancy-clear (did not survive Rehash) but had requested notification
// gets its dead callback invoked.
func (t *Table) NotifyAll() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.callbackMu.Lock()
	cb := t.deadCb
	hashCb, equalCb := t.hashCb, t.equalCb
	t.callbackMu.Unlock()
	if cb == nil {
		return nil
	}
	return sweep.NotifyDead(context.Background(), t.dir, t.store, t.occupancy, t.notify, t.maxSize,
		directory.HashFunc(hashCb), directory.EqualFunc(equalCb),
		func(i uint64) bool { return cb(i) })
}

// Len returns the approximate number of occupied payload slots by summing
// the occupancy plane, not counting the permanently reserved indices 0 and
// 1 - a convenience diagnostic, not part of the core contract. The result
// is also reported through the occupancy gauge, the same way CountMarked
// reports through the marked gauge.
func (t *Table) Len() uint64 {
	n := t.occupancy.CountSetRange(2, t.maxSize-2)
	t.metrics.SetOccupancy(n)
	return n
}

// MaxSize returns the table's virtually-reserved capacity.
func (t *Table) MaxSize() uint64 { return t.maxSize }

// TableSize returns the current logical probing size.
func (t *Table) TableSize() uint64 { return t.dir.TableSize() }
