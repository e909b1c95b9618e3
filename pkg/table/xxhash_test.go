package table_test

import (
	"testing"

	"github.com/Voskan/hashcons/pkg/table"
)

func TestXXHashIsDeterministic(t *testing.T) {
	h1 := table.XXHash(1, 2, 3)
	h2 := table.XXHash(1, 2, 3)
	if h1 != h2 {
		t.Fatalf("XXHash not deterministic: %d != %d", h1, h2)
	}
}

func TestLookupCustomWithXXHash(t *testing.T) {
	tbl := newTestTable(t)
	tbl.SetCustom(table.XXHash, nil)

	idx1, created1, err := tbl.LookupCustom(11, 22)
	if err != nil {
		t.Fatalf("LookupCustom: %v", err)
	}
	if !created1 {
		t.Fatal("expected created=true on first lookup")
	}

	idx2, created2, err := tbl.LookupCustom(11, 22)
	if err != nil {
		t.Fatalf("LookupCustom: %v", err)
	}
	if created2 || idx1 != idx2 {
		t.Fatalf("expected a stable hit: idx1=%d created2=%v idx2=%d", idx1, created2, idx2)
	}
}
