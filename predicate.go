package diskmask

// Inside reports whether the lattice point (x, y) lies strictly inside the
// disk of radius size-1. The test is the discrete inequality
// x²+y² < (size-1)² with exact unsigned arithmetic; points exactly on the
// radius are excluded.
//
// Size values of 0 and 1 mark nothing inside. This is an explicit clamp,
// not unsigned wraparound: in 32-bit arithmetic size-1 would underflow to
// a huge threshold that marks every point inside.
//
// This scalar form is the oracle the CPU classifier runs per point and the
// reference every other backend must match bit for bit. The uint64 squares
// make it exact for any uint32 input, beyond the MaxSize bound the 32-bit
// kernel needs.
func Inside(x, y, size uint32) bool {
	if size <= 1 {
		return false
	}
	r := uint64(size - 1)
	return uint64(x)*uint64(x)+uint64(y)*uint64(y) < r*r
}
