package shardtree

import (
	"encoding/binary"
	"fmt"

	"github.com/forestrie/shieldsync/synerr"
)

// Frontier is the minimal state a server needs to hand a client so it can
// resume append-only construction of a commitment tree without replaying
// its full history (spec.md §6). Count is the number of leaves already
// inserted (0 = empty tree); Leaf is the most recently inserted leaf's raw
// hash when Count is odd (Tree.Frontier leaves it zero when Count is even);
// Ommers holds one completed-subtree hash per set bit of Count, in
// ascending level order.
type Frontier struct {
	Count  uint64
	Leaf   H
	Ommers []H
}

// IsEmpty reports whether the frontier represents a tree with no leaves.
func (f Frontier) IsEmpty() bool { return f.Count == 0 }

// EncodeFrontierV0 serializes f per spec.md §6's wire format: an 8-byte
// big-endian leaf count, an optional 32-byte leaf hash (present iff
// Count > 0), a bitvector of depth bits marking which levels carry an
// ommer, and exactly popcount(Count) 32-byte ommer hashes in ascending
// level order.
func EncodeFrontierV0(f Frontier, depth uint8) ([]byte, error) {
	if f.Count > uint64(1)<<depth {
		return nil, fmt.Errorf("frontier count %d exceeds tree capacity 2^%d: %w", f.Count, depth, synerr.MalformedCompactRecord)
	}
	levels := setBitLevels(f.Count)
	if len(levels) != len(f.Ommers) {
		return nil, fmt.Errorf("frontier carries %d ommers, want %d for count %d: %w", len(f.Ommers), len(levels), f.Count, synerr.MalformedCompactRecord)
	}

	bitvecLen := (int(depth) + 7) / 8
	out := make([]byte, 0, 8+1+32+bitvecLen+32*len(levels))

	var countBuf [8]byte
	binary.BigEndian.PutUint64(countBuf[:], f.Count)
	out = append(out, countBuf[:]...)

	if f.Count == 0 {
		return out, nil
	}
	out = append(out, f.Leaf[:]...)

	bitvec := make([]byte, bitvecLen)
	for _, l := range levels {
		bitvec[l/8] |= 1 << (l % 8)
	}
	out = append(out, bitvec...)
	for _, o := range f.Ommers {
		out = append(out, o[:]...)
	}
	return out, nil
}

// DecodeFrontierV0 parses the wire format EncodeFrontierV0 produces. An
// empty byte slice is not a valid encoding (use Frontier{} directly for the
// empty case); a present-but-empty-tree frontier is encoded as the 8-byte
// zero count with no further bytes.
func DecodeFrontierV0(b []byte, depth uint8) (Frontier, error) {
	if len(b) < 8 {
		return Frontier{}, fmt.Errorf("frontier: short count field (%d bytes): %w", len(b), synerr.MalformedCompactRecord)
	}
	count := binary.BigEndian.Uint64(b[:8])
	b = b[8:]
	if count > uint64(1)<<depth {
		return Frontier{}, fmt.Errorf("frontier count %d exceeds tree capacity 2^%d: %w", count, depth, synerr.MalformedCompactRecord)
	}
	if count == 0 {
		return Frontier{Count: 0}, nil
	}

	if len(b) < 32 {
		return Frontier{}, fmt.Errorf("frontier: short leaf field: %w", synerr.MalformedCompactRecord)
	}
	var leaf H
	copy(leaf[:], b[:32])
	b = b[32:]

	bitvecLen := (int(depth) + 7) / 8
	if len(b) < bitvecLen {
		return Frontier{}, fmt.Errorf("frontier: short level bitvector: %w", synerr.MalformedCompactRecord)
	}
	bitvec := b[:bitvecLen]
	b = b[bitvecLen:]

	levels := setBitLevels(count)
	want := len(levels)
	if len(b) != 32*want {
		return Frontier{}, fmt.Errorf("frontier: got %d ommer bytes, want %d for count %d: %w", len(b), 32*want, count, synerr.MalformedCompactRecord)
	}
	for _, l := range levels {
		if bitvec[l/8]&(1<<(l%8)) == 0 {
			return Frontier{}, fmt.Errorf("frontier: level bitvector missing set bit for level %d implied by count %d: %w", l, count, synerr.MalformedCompactRecord)
		}
	}

	ommers := make([]H, want)
	for i := range ommers {
		copy(ommers[i][:], b[:32])
		b = b[32:]
	}
	return Frontier{Count: count, Leaf: leaf, Ommers: ommers}, nil
}
