// Package bench provides reproducible micro-benchmarks for hashcons. Run
// via: go test ./bench -bench=. -benchmem -cpu 1,4,16
//
// The benchmarks intentionally use a single key shape so results are
// comparable across versions: two uint64 words drawn from a PRNG with a
// fixed seed, so lookups are genuine misses (create) on the first pass over
// the dataset and genuine hits (found) on replay.
//
// We measure:
//  1. LookupInsert   - write-heavy, every key new until the dataset wraps
//  2. LookupHit      - read-heavy, every key already present
//  3. LookupParallel - concurrent Lookup from many goroutines
//  4. RehashCycle    - clear+rehash cost at a given occupancy (re-marking
//     between iterations is outside the timer)
//
// NOTE: Unit tests live in _test.go files next to their packages; this file
// is only for performance.
//
// © 2025 hashcons authors. MIT License.
package bench

import (
	"math/rand"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/Voskan/hashcons/pkg/table"
)

const (
	maxSize     = 1 << 22
	initialSize = 1 << 20
	keys        = 1 << 18
)

var ds = func() [][2]uint64 {
	r := rand.New(rand.NewSource(1))
	arr := make([][2]uint64, keys)
	for i := range arr {
		arr[i] = [2]uint64{r.Uint64(), r.Uint64()}
	}
	return arr
}()

func newBenchTable(b *testing.B) *table.Table {
	b.Helper()
	t, err := table.New(initialSize, maxSize)
	if err != nil {
		b.Fatalf("table init: %v", err)
	}
	return t
}

func BenchmarkLookupInsert(b *testing.B) {
	t := newBenchTable(b)
	defer t.Close()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := ds[i&(keys-1)]
		if _, _, err := t.Lookup(k[0], k[1]); err != nil {
			b.Fatalf("lookup: %v", err)
		}
	}
}

func BenchmarkLookupHit(b *testing.B) {
	t := newBenchTable(b)
	defer t.Close()
	for _, k := range ds {
		if _, _, err := t.Lookup(k[0], k[1]); err != nil {
			b.Fatalf("warmup lookup: %v", err)
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := ds[i&(keys-1)]
		if _, _, err := t.Lookup(k[0], k[1]); err != nil {
			b.Fatalf("lookup: %v", err)
		}
	}
}

func BenchmarkLookupParallel(b *testing.B) {
	t := newBenchTable(b)
	defer t.Close()
	for _, k := range ds {
		if _, _, err := t.Lookup(k[0], k[1]); err != nil {
			b.Fatalf("warmup lookup: %v", err)
		}
	}
	var idx atomic.Uint64
	b.SetParallelism(runtime.GOMAXPROCS(0))
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := idx.Add(1)
			k := ds[i&(keys-1)]
			if _, _, err := t.Lookup(k[0], k[1]); err != nil {
				b.Fatalf("lookup: %v", err)
			}
		}
	})
}

func BenchmarkRehashCycle(b *testing.B) {
	t := newBenchTable(b)
	defer t.Close()
	indices := make([]uint64, 0, keys)
	for _, k := range ds {
		idx, _, err := t.Lookup(k[0], k[1])
		if err != nil {
			b.Fatalf("warmup lookup: %v", err)
		}
		indices = append(indices, idx)
	}
	// Mark every other entry live, simulating a GC pass that drops half the
	// interned set.
	for i, idx := range indices {
		if i%2 == 0 {
			t.Mark(idx)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := t.Clear(); err != nil {
			b.Fatalf("clear: %v", err)
		}
		if err := t.Rehash(); err != nil {
			b.Fatalf("rehash: %v", err)
		}
		b.StopTimer()
		for j, idx := range indices {
			if j%2 == 0 {
				t.Mark(idx)
			}
		}
		b.StartTimer()
	}
}
