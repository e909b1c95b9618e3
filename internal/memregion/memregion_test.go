//go:build unix

package memregion

import "testing"

func TestNewZeroFilled(t *testing.T) {
	r, err := New(4096)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Free()

	for i, b := range r.Bytes() {
		if b != 0 {
			t.Fatalf("byte %d not zero-filled at creation", i)
		}
	}
	if r.Len() != 4096 {
		t.Fatalf("Len() = %d, want 4096", r.Len())
	}
}

func TestZeroClearsDirtyRegion(t *testing.T) {
	r, err := New(4096)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Free()

	b := r.Bytes()
	for i := range b {
		b[i] = 0xFF
	}

	if _, err := r.Zero(); err != nil {
		t.Fatalf("Zero: %v", err)
	}
	for i, v := range r.Bytes() {
		if v != 0 {
			t.Fatalf("byte %d not zero after Zero(), got %#x", i, v)
		}
	}
}

func TestAdviseRandomDoesNotError(t *testing.T) {
	r, err := New(4096)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Free()
	if err := r.AdviseRandom(); err != nil {
		t.Fatalf("AdviseRandom: %v", err)
	}
}

func TestFreeThenReuseIsRejectedByLength(t *testing.T) {
	r, err := New(4096)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("Len() after Free() = %d, want 0", r.Len())
	}
}
