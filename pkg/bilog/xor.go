package bilog

// xorBytes XORs a and b position-wise, treating the shorter slice as
// zero-padded out to the longer one's length. This is the byte-level
// primitive behind the reversible write and xattr value records (spec.md
// §4.6); the integer uid/gid/mode/timestamp fields of chown/chmod/utimens
// records are XORed directly with ^.
func xorBytes(a, b []byte) []byte {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		var av, bv byte
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		out[i] = av ^ bv
	}
	return out
}
