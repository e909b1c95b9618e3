package table

// HashFunc is the optional client-supplied mixer named in §6: hash_cb(a, b,
// seed) -> u64. Registered via SetCustom/WithCustom and used by
// LookupCustom and by Rehash for slots tagged custom in bitmap4.
type HashFunc func(a, b, seed uint64) uint64

// EqualFunc is the optional client-supplied equality named in §6:
// equals_cb(a1, b1, a2, b2) -> bool.
type EqualFunc func(a1, b1, a2, b2 uint64) bool

// DeadFunc is invoked during the notify-dead sweep for a slot that died in
// the last GC cycle and had requested notification. Returning true
// resurrects the slot (§6: "true resurrects").
type DeadFunc func(index uint64) bool
