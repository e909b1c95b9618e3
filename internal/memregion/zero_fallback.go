//go:build unix && !linux

package memregion

// remapFixed is unavailable on this platform's x/sys/unix surface (no
// portable MAP_FIXED raw-syscall path is exposed uniformly across the BSDs
// and Darwin here); Region.Zero falls back to the memset path. This is
// exactly the fallback the design notes anticipate for "a runtime without
// fixed-address anonymous remap."
func (r *Region) remapFixed() bool { return false }
