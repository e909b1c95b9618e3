// Package sweep implements the three parallel divide-and-conquer sweeps of
// §4.4 over a shared skeleton: split a range in half once it exceeds 1024
// elements, run the halves concurrently via internal/worker.Parallel, and
// join. Below the threshold, iterate serially.
//
// © 2025 hashcons authors. MIT License.
package sweep

import (
	"context"
	"sync/atomic"

	"github.com/Voskan/hashcons/internal/bitmap"
	"github.com/Voskan/hashcons/internal/directory"
	"github.com/Voskan/hashcons/internal/payload"
	"github.com/Voskan/hashcons/internal/worker"
)

// splitThreshold is the divide-and-conquer cutover point named in §4.4:
// "If count > 1024: split in half... Otherwise: iterate serially."
const splitThreshold = 1024

// divide runs leaf over [first, first+count), splitting in half and
// recursing in parallel while count exceeds splitThreshold.
func divide(ctx context.Context, first, count uint64, leaf func(first, count uint64) error) error {
	if count > splitThreshold {
		mid := count / 2
		return worker.Parallel(ctx,
			func() error { return divide(ctx, first, mid, leaf) },
			func() error { return divide(ctx, first+mid, count-mid, leaf) },
		)
	}
	return leaf(first, count)
}

// Rehash runs the rehash sweep of §4.4 item 1: for every index in
// [0, maxSize) whose mark bit is set, re-insert its payload into the
// (already directory.ZeroFill'd) directory via the rehash variant, and
// re-establish its occupancy bit. Any re-insert that exhausts its probe
// budget aborts the whole sweep with directory.ErrProbeExhausted, which the
// caller surfaces as "table too full, grow."
func Rehash(ctx context.Context, dir *directory.Directory, store *payload.Store, mark, occupancy *bitmap.Bitmap, maxSize uint64, customHash directory.HashFunc, customEqual directory.EqualFunc) error {
	return divide(ctx, 0, maxSize, func(first, count uint64) error {
		end := first + count
		for i := first; i < end; i++ {
			if !mark.Test(i) {
				continue
			}
			a, b := store.Read(i)
			if err := dir.RehashInsert(i, a, b, customHash, customEqual); err != nil {
				return err
			}
			occupancy.SetAtomic(i)
		}
		return nil
	})
}

// CountMarked runs the count-marked sweep of §4.4 item 2, counting the set
// bits in the mark plane over [0, maxSize): each serial leaf adds its count
// into one shared atomic total.
func CountMarked(ctx context.Context, mark *bitmap.Bitmap, maxSize uint64) (uint64, error) {
	var total atomic.Uint64
	err := divide(ctx, 0, maxSize, func(first, count uint64) error {
		total.Add(mark.CountSetRange(first, count))
		return nil
	})
	return total.Load(), err
}

// DeadFunc is invoked during the notify-dead sweep for each slot that is
// occupancy-clear but notify-requested. Returning true resurrects the slot
// (its occupancy bit is set again and its payload is re-published into the
// directory); false clears its notify-on-death bit.
type DeadFunc func(index uint64) bool

// NotifyDead runs the notify-dead sweep of §4.4 item 3: for each i where
// occupancy is clear but notify is set, invoke cb. A resurrection
// re-inserts the slot's payload into dir via the same rehash-insert path
// Rehash uses, so a subsequent Lookup with the original (a,b) finds the
// resurrected slot at its original index, per §8 scenario S4.
func NotifyDead(ctx context.Context, dir *directory.Directory, store *payload.Store, occupancy, notify *bitmap.Bitmap, maxSize uint64, customHash directory.HashFunc, customEqual directory.EqualFunc, cb DeadFunc) error {
	if cb == nil {
		return nil
	}
	return divide(ctx, 0, maxSize, func(first, count uint64) error {
		end := first + count
		for i := first; i < end; i++ {
			if occupancy.Test(i) || !notify.Test(i) {
				continue
			}
			if cb(i) {
				a, b := store.Read(i)
				if err := dir.RehashInsert(i, a, b, customHash, customEqual); err != nil {
					return err
				}
				occupancy.SetAtomic(i)
			} else {
				notify.ClearAtomic(i)
			}
		}
		return nil
	})
}
