// Package worker is the table's worker runtime: together(task) (invoke a
// task once on every worker and wait) on Runtime, and Parallel, the
// spawn/sync pair used by the sweeps. A prior design keyed its thread-local
// my_region pointer process-wide, which is a bug once more than one table
// exists in the same process: the region pointer must be keyed by
// (worker_id, table_handle). Runtime holds no per-worker cells itself; the
// my_region values live in a per-worker slice on internal/allocator's
// Allocator, and since every Allocator is owned by exactly one Table, the
// table_handle component of the key is implicit in which Allocator instance
// a caller holds.
//
// © 2025 hashcons authors. MIT License.
package worker

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// sweepFanoutSlack bounds, as a multiple of GOMAXPROCS, how many divide-and-
// conquer forks (internal/sweep's Rehash/CountMarked/NotifyDead recursion)
// may be outstanding at once. Without a cap, a pathologically large
// max_size produces a recursion tree whose every level forks a goroutine,
// which for a multi-billion-slot table can transiently spawn far more
// goroutines than there are cores to run them.
const sweepFanoutSlack = 4

var sweepSem = semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0) * sweepFanoutSlack))

// Runtime is a fixed-size pool of logical workers. It does not own OS
// threads or goroutines persistently; it only hands out worker IDs in
// [0, Count) and provides the two fan-out primitives the table needs:
// Together (run once per worker) and Parallel (run two independent tasks
// concurrently, used by the sweep package's divide-and-conquer).
type Runtime struct {
	count int
}

// New constructs a Runtime with the given logical worker count. count must
// be >= 1; callers typically pass runtime.GOMAXPROCS(0).
func New(count int) *Runtime {
	if count < 1 {
		count = 1
	}
	return &Runtime{count: count}
}

// Count returns the number of logical workers.
func (r *Runtime) Count() int { return r.count }

// Together invokes fn once for every worker ID in [0, Count) and waits for
// all of them, matching §6's together(task). Used at table creation (§4.5:
// "runs the worker init on every worker") and at Clear (§5: "initialized to
// 'none' at worker spawn and at every clear").
func (r *Runtime) Together(ctx context.Context, fn func(workerID int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < r.count; w++ {
		w := w
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return fn(w)
		})
	}
	return g.Wait()
}

// Parallel runs left and right concurrently and waits for both, returning
// the first error encountered (if any). This is the spawn/sync pair from §6
// specialised to the binary split the divide-and-conquer sweeps (§4.4) use.
// Only right is forked into its own goroutine, gated by sweepSem; left runs
// on the calling goroutine. That halves the goroutines a deep recursion
// tree creates and gives the semaphore a single, natural acquire point per
// split instead of one per side. When no sweepSem slot is free, left and
// right both run serially on the calling goroutine instead of waiting, so a
// recursion deeper than the cap never blocks on slots its own ancestors
// hold.
func Parallel(ctx context.Context, left, right func() error) error {
	if !sweepSem.TryAcquire(1) {
		if err := left(); err != nil {
			return err
		}
		return right()
	}
	defer sweepSem.Release(1)

	g, _ := errgroup.WithContext(ctx)
	g.Go(right)
	err := left()
	if werr := g.Wait(); err == nil {
		err = werr
	}
	return err
}
