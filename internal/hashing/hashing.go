// Package hashing implements the default mixer and the directory slot's
// tag/index packing used by the table's data model. It is a small,
// dependency-free package so both internal/directory and pkg/table can
// import it without a cycle: two independent packages (directory, and the
// public custom-hash surface) both need the same mixer.
//
// © 2025 hashcons authors. MIT License.
package hashing

const (
	// OffsetBasis is S0, the FNV-style seed §4.1 mandates for the default
	// mixer. Exported so a custom HashFunc can reuse it as its own seed.
	OffsetBasis uint64 = 14695981039346656037
	// prime is P in the mixing formula.
	prime uint64 = 1099511628211

	// tagBits is the width of the fast-reject tag stored in a directory
	// slot's high bits.
	tagBits = 20
	// indexBits is the width of the payload index stored in a directory
	// slot's low bits.
	indexBits = 44
	indexMask = (uint64(1) << indexBits) - 1
)

func rotl(x uint64, k uint) uint64 {
	return (x << k) | (x >> (64 - k))
}

// Mix implements the default mixer from §4.1:
//
//	h = S ⊕ a ; h = rotl(h,47) ; h = h * P
//	h = h ⊕ b ; h = rotl(h,31) ; h = h * P
//	return h ⊕ (h >> 32)
func Mix(seed, a, b uint64) uint64 {
	h := seed ^ a
	h = rotl(h, 47)
	h *= prime
	h ^= b
	h = rotl(h, 31)
	h *= prime
	return h ^ (h >> 32)
}

// Default hashes (a,b) with the offset basis seed, the table's built-in
// mixer used whenever no custom HashFunc is registered.
func Default(a, b uint64) uint64 {
	return Mix(OffsetBasis, a, b)
}

// Remix re-mixes a hash that has already been probed through a full cache
// line without a match, per §4.1: "the hash is re-mixed (same mixer, fed its
// previous output as seed) and the probe restarts at the new starting
// line." Feeding h as seed and as both operands keeps the remix a pure
// function of h alone, consistent with there being no fresh (a,b) to mix at
// this point.
func Remix(h uint64) uint64 {
	return Mix(h, h, h)
}

// Tag returns the fast-reject tag stored in a directory slot: the high
// tagBits bits of the 64-bit hash.
func Tag(h uint64) uint64 {
	return h >> (64 - tagBits)
}

// PackSlot builds the 64-bit directory word tag<<44 | index. The caller must
// have already reserved index values 0 and 1 so a published slot is never
// the zero sentinel.
func PackSlot(tag, index uint64) uint64 {
	return (tag << indexBits) | (index & indexMask)
}

// UnpackSlot splits a non-zero directory word back into its tag and index.
func UnpackSlot(word uint64) (tag, index uint64) {
	return word >> indexBits, word & indexMask
}
