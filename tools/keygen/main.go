// Command keygen writes a newline-delimited dataset of "a b" uint64 pairs to
// stdout, for feeding into benchmarks or cmd/hashcons-inspect's workloads.
// Distribution defaults to uniform; --zipf skews toward key reuse, which
// exercises the "found, not created" path of Lookup more heavily.
//
// © 2025 hashcons authors. MIT License.
package main

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"

	flag "github.com/spf13/pflag"
)

func main() {
	count := flag.Uint64("count", 1<<20, "number of pairs to generate")
	seed := flag.Int64("seed", 1, "PRNG seed")
	zipf := flag.Bool("zipf", false, "skew toward a small hot set of keys instead of uniform random")
	domain := flag.Uint64("domain", 1<<20, "size of the key domain each component is drawn from")
	flag.Parse()

	r := rand.New(rand.NewSource(*seed))
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	if *zipf {
		z := rand.NewZipf(r, 1.5, 1, *domain-1)
		for i := uint64(0); i < *count; i++ {
			fmt.Fprintf(w, "%d %d\n", z.Uint64(), z.Uint64())
		}
		return
	}

	for i := uint64(0); i < *count; i++ {
		a := r.Uint64() % *domain
		b := r.Uint64() % *domain
		fmt.Fprintf(w, "%d %d\n", a, b)
	}
}
