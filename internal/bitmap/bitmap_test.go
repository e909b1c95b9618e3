package bitmap

import (
	"sync"
	"testing"
)

func TestSetAtomicFirstSetterWinsOnce(t *testing.T) {
	b := New(make([]uint64, 1))

	const n = 64
	var wg sync.WaitGroup
	wins := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wins[i] = b.SetAtomic(5)
		}(i)
	}
	wg.Wait()

	count := 0
	for _, w := range wins {
		if w {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one winning SetAtomic, got %d", count)
	}
	if !b.Test(5) {
		t.Fatal("bit 5 should be set after SetAtomic")
	}
}

func TestMaskIsMSBFirst(t *testing.T) {
	b := New(make([]uint64, 1))
	b.SetAtomic(0)
	if b.Word(0) != 0x8000000000000000 {
		t.Fatalf("bit 0 should occupy the MSB, got word=%#x", b.Word(0))
	}
	b.ClearAtomic(0)
	b.SetAtomic(63)
	if b.Word(0) != 1 {
		t.Fatalf("bit 63 should occupy the LSB, got word=%#x", b.Word(0))
	}
}

func TestClearAtomicUndoesSet(t *testing.T) {
	b := New(make([]uint64, 1))
	b.SetAtomic(10)
	b.ClearAtomic(10)
	if b.Test(10) {
		t.Fatal("bit 10 should be clear after ClearAtomic")
	}
}

func TestFirstFreeBitScansMSBFirst(t *testing.T) {
	b := New(make([]uint64, 1))
	b.SetAtomic(0)
	pos, ok := b.FirstFreeBit(0)
	if !ok || pos != 1 {
		t.Fatalf("expected first free bit at position 1, got pos=%d ok=%v", pos, ok)
	}
}

func TestFirstFreeBitFullWord(t *testing.T) {
	b := New([]uint64{^uint64(0)})
	if _, ok := b.FirstFreeBit(0); ok {
		t.Fatal("expected no free bit in a fully-set word")
	}
}

func TestCountSetRange(t *testing.T) {
	b := New(make([]uint64, 2))
	for _, i := range []uint64{0, 5, 70, 127} {
		b.SetAtomic(i)
	}
	if n := b.CountSetRange(0, 128); n != 4 {
		t.Fatalf("CountSetRange(0,128) = %d, want 4", n)
	}
	if n := b.CountSetRange(64, 64); n != 2 {
		t.Fatalf("CountSetRange(64,64) = %d, want 2", n)
	}
}

func TestZeroRange(t *testing.T) {
	b := New(make([]uint64, 1))
	b.SetAtomic(1)
	b.SetAtomic(2)
	b.ZeroRange(0, 64)
	if b.Word(0) != 0 {
		t.Fatalf("expected word to be fully cleared, got %#x", b.Word(0))
	}
}

func TestOrExclusiveAndClearExclusive(t *testing.T) {
	b := New(make([]uint64, 1))
	b.OrExclusive(3)
	if !b.Test(3) {
		t.Fatal("expected bit 3 set after OrExclusive")
	}
	b.ClearExclusive(3)
	if b.Test(3) {
		t.Fatal("expected bit 3 clear after ClearExclusive")
	}
}
