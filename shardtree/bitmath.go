package shardtree

import "math/bits"

// setBitLevels returns the 0-based levels at which n has a set bit, in
// ascending order. This is the same counting identity mmr/bits.go leans on
// for peak enumeration (bits.OnesCount64), adapted here to enumerate
// pending-ommer levels rather than MMR peaks: after n leaves have been
// appended to a fixed-arity binary counter, there are exactly
// popcount(n) completed-but-unpromoted subtrees, one per set bit.
func setBitLevels(n uint64) []uint8 {
	levels := make([]uint8, 0, bits.OnesCount64(n))
	for l := uint8(0); n != 0; l++ {
		if n&1 == 1 {
			levels = append(levels, l)
		}
		n >>= 1
	}
	return levels
}

// ommerCount reports how many ommer hashes a frontier at the given position
// carries: popcount(position), per the wire format in spec.md §6.
func ommerCount(position uint64) int {
	return bits.OnesCount64(position)
}

// bitLength64 is BitLength64 from the teacher's mmr/bits.go. Nothing in
// this package calls it; the frontier's level bitvector is sized from the
// tree depth.
func bitLength64(n uint64) int {
	return bits.Len64(n)
}
