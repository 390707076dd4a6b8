package shardtree

import (
	"fmt"

	"github.com/forestrie/shieldsync/poolcrypto"
	"github.com/forestrie/shieldsync/synerr"
)

// Checkpoint records the tree's state at a named height. This engine only
// ever installs one, at bootstrap; spec.md §4.5 allows more but this
// deployment's checkpoint budget is 1.
type Checkpoint struct {
	ID       uint64
	IsMarked bool
	Position uint64
	Root     H
}

// mark tracks a Marked leaf's authentication path while it is still being
// filled in by later appends.
type mark struct {
	position uint64
	cur      H
	level    uint8
	path     []H
}

// Tree is a pool's incremental commitment tree. It holds only the pending
// per-level ommer state and any in-flight marked-leaf paths, never the
// full leaf set.
type Tree struct {
	params      poolcrypto.Params
	position    uint64
	ommers      map[uint8]H
	marks       map[uint64]*mark
	completed   map[uint64][]H // finished authentication paths, by position
	checkpoints []Checkpoint
}

// New returns an empty tree for the given pool parameters.
func New(params poolcrypto.Params) *Tree {
	return &Tree{
		params:    params,
		ommers:    make(map[uint8]H),
		marks:     make(map[uint64]*mark),
		completed: make(map[uint64][]H),
	}
}

// Position reports the next insertion position (the number of leaves
// absorbed so far).
func (t *Tree) Position() uint64 { return t.position }

// Frontier snapshots the tree's current state in the form spec.md §6's
// wire format encodes, suitable for handing to a resuming client.
func (t *Tree) Frontier() Frontier {
	levels := setBitLevels(t.position)
	ommers := make([]H, len(levels))
	for i, l := range levels {
		ommers[i] = t.ommers[l]
	}
	// Leaf is only meaningfully "the raw last-inserted leaf" when it has
	// not yet been promoted past level 0 (bit 0 of position set); once
	// promoted, the wire format's Option<leaf_hash> carries no
	// information this tree doesn't already have in Ommers, so the zero
	// value is encoded.
	var leaf H
	if v, ok := t.ommers[0]; ok {
		leaf = v
	}
	return Frontier{Count: t.position, Leaf: leaf, Ommers: ommers}
}

// Root computes H_p, the tree's root at the current position, padding
// every not-yet-inserted subtree with the pool's EmptyRoot.
func (t *Tree) Root() H {
	hasher := t.params.Hasher
	var cur H
	have := false
	for l := uint8(0); l < t.params.Depth; l++ {
		bit := (t.position >> l) & 1
		switch {
		case bit == 1 && have:
			cur = hasher.Combine(l, t.ommers[l], cur)
		case bit == 1 && !have:
			cur = hasher.Combine(l, t.ommers[l], hasher.EmptyRoot(l))
			have = true
		case bit == 0 && have:
			cur = hasher.Combine(l, cur, hasher.EmptyRoot(l))
		default:
			cur = hasher.EmptyRoot(l + 1)
		}
	}
	return cur
}

// AuthPath is a marked leaf's authentication path: one sibling hash per
// tree level, ascending from the leaf.
type AuthPath struct {
	Position uint64
	Siblings []H
}

// Witness returns the authentication path for a previously-marked leaf at
// position. checkpointDepth must be 0: this engine's checkpoint budget is
// 1 (the bootstrap checkpoint), so deeper historical witnesses are out of
// scope (spec.md §4.5 design note).
func (t *Tree) Witness(position uint64, checkpointDepth int) (AuthPath, error) {
	if checkpointDepth != 0 {
		return AuthPath{}, fmt.Errorf("witness: checkpoint depth %d unsupported, only 0 is: %w", checkpointDepth, synerr.ConfigInvalid)
	}
	path, ok := t.completed[position]
	if !ok {
		if m, inFlight := t.marks[position]; inFlight {
			path = t.padPath(m)
		} else {
			return AuthPath{}, fmt.Errorf("witness: position %d was never marked", position)
		}
	}
	return AuthPath{Position: position, Siblings: path}, nil
}

// padPath fills the unresolved tail of an in-flight mark's path with the
// pool's EmptyRoot, valid because contiguous left-to-right insertion means
// any block not yet resolved at this point is entirely uncommitted.
func (t *Tree) padPath(m *mark) []H {
	path := make([]H, t.params.Depth)
	copy(path, m.path[:m.level])
	for l := m.level; l < t.params.Depth; l++ {
		path[l] = t.params.Hasher.EmptyRoot(l)
	}
	return path
}

// VerifyWitness recomputes a root from leaf, path and position and reports
// whether it equals want, per spec.md §8 P9.
func VerifyWitness(hasher poolcrypto.Hasher, leaf H, path AuthPath, depth uint8, want H) bool {
	cur := leaf
	for l := uint8(0); l < depth; l++ {
		bit := (path.Position >> l) & 1
		if bit == 1 {
			cur = hasher.Combine(l, path.Siblings[l], cur)
		} else {
			cur = hasher.Combine(l, cur, path.Siblings[l])
		}
	}
	return cur == want
}

// absorb feeds one completed, aligned block of size 2^level starting at
// blockStart into the tree's pending-ommer chain, per the standard
// append-only binary-counter algorithm: while the block about to receive
// value is itself a "right" block at its level (i.e. a left sibling is
// already pending), combine upward; otherwise park it as the new pending
// ommer at that level.
func (t *Tree) absorb(level uint8, value H, blockStart uint64) {
	hasher := t.params.Hasher
	cur := value
	lvl := level
	blockIdx := blockStart >> lvl
	for blockIdx&1 == 1 {
		sibling := t.ommers[lvl]
		t.resolveMarksAt(lvl, sibling, cur, blockStart)
		cur = hasher.Combine(lvl, sibling, cur)
		delete(t.ommers, lvl)
		lvl++
		blockIdx >>= 1
		blockStart = (blockStart >> lvl) << lvl
	}
	t.ommers[lvl] = cur
}

// resolveMarksAt advances every in-flight mark whose pending block sits at
// lvl and borders the (sibling, cur) pair about to combine. A mark's own
// block is exactly one of these two operands, determined by whether its
// position falls inside the newly-arriving block [newBlockStart,
// newBlockStart+2^lvl) or the earlier-queued sibling block.
func (t *Tree) resolveMarksAt(lvl uint8, sibling, cur H, newBlockStart uint64) {
	if len(t.marks) == 0 {
		return
	}
	hasher := t.params.Hasher
	blockSize := uint64(1) << lvl
	for pos, m := range t.marks {
		if m.level != lvl {
			continue
		}
		if pos >= newBlockStart && pos < newBlockStart+blockSize {
			m.path[lvl] = sibling
			m.cur = hasher.Combine(lvl, sibling, m.cur)
		} else {
			m.path[lvl] = cur
			m.cur = hasher.Combine(lvl, m.cur, cur)
		}
		m.level = lvl + 1
		if m.level == t.params.Depth {
			full := make([]H, t.params.Depth)
			copy(full, m.path)
			t.completed[pos] = full
			delete(t.marks, pos)
		}
	}
}

// appendOne absorbs a single leaf at the tree's current position, the
// sequential path used for the unaligned prefix of an Extend call and for
// every leaf of a chunk build.
func (t *Tree) appendOne(commitment H, retention Retention) {
	pos := t.position
	if retention.Marked {
		t.marks[pos] = &mark{
			position: pos,
			cur:      commitment,
			level:    0,
			path:     make([]H, t.params.Depth),
		}
	}
	t.absorb(0, commitment, pos)
	t.position = pos + 1
}
