package probe

// CommPrefixMax is the longest comm prefix the kernel stage can compare.
// The kernel truncates comm to 15 bytes plus a NUL, which is why the
// coarse filter matches a prefix rather than the full name.
const CommPrefixMax = 15

// filterSpecSize is the wire size of FilterSpec in the filter map.
const filterSpecSize = 24

// FilterSpec is the read-only coarse filter consulted by the probe
// program. It is written into the filter map once, before the program is
// attached, and never rewritten.
type FilterSpec struct {
	// CommPrefix is the NUL-padded comm prefix to match.
	CommPrefix [CommPrefixMax]byte
	// CommPrefixLen is the number of significant prefix bytes.
	CommPrefixLen uint8
	// UID is the uid to match when UIDSet is nonzero.
	UID uint32
	// UIDSet selects whether the uid predicate applies.
	UIDSet uint32
}

// NewFilterSpec builds the kernel-side filter. The prefix is truncated to
// CommPrefixMax bytes; a nil uid disables the uid predicate.
func NewFilterSpec(commPrefix []byte, uid *uint32) FilterSpec {
	var fs FilterSpec
	fs.CommPrefixLen = uint8(copy(fs.CommPrefix[:], commPrefix))
	if uid != nil {
		fs.UID = *uid
		fs.UIDSet = 1
	}
	return fs
}
