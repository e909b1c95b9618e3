// Command hashcons-inspect drives a synthetic workload against a table and
// prints its resulting snapshot, useful for eyeballing occupancy and probe
// exhaustion under load without wiring a whole service.
//
// © 2025 hashcons authors. MIT License.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/Voskan/hashcons/internal/hashing"
	"github.com/Voskan/hashcons/pkg/table"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut *os.File) int {
	fs := flag.NewFlagSet("hashcons-inspect", flag.ContinueOnError)
	initialSize := fs.Uint64("initial-size", 1<<16, "initial table_size")
	maxSize := fs.Uint64("max-size", 1<<24, "max_size (virtual reservation)")
	count := fs.Uint64("count", 1<<20, "number of synthetic (a,b) pairs to insert")
	seed := fs.Uint64("seed", hashing.OffsetBasis, "seed for the synthetic key generator")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 2
	}

	tbl, err := table.New(*initialSize, *maxSize)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	defer tbl.Close()

	h := *seed
	var created, found uint64
	for i := uint64(0); i < *count; i++ {
		h = hashing.Mix(h, i, *seed)
		a, b := h, hashing.Mix(h, *seed, i)
		_, wasCreated, err := tbl.Lookup(a, b)
		if err != nil {
			fmt.Fprintln(errOut, "lookup failed:", err)
			break
		}
		if wasCreated {
			created++
		} else {
			found++
		}
	}

	snap := tbl.Snapshot()
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return reportErr(enc.Encode(map[string]any{
		"snapshot": snap,
		"created":  created,
		"found":    found,
	}), errOut)
}

func reportErr(err error, errOut *os.File) int {
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	return 0
}
