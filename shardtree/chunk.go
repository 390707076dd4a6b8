package shardtree

import (
	"context"

	"github.com/forestrie/shieldsync/poolcrypto"
	"github.com/forestrie/shieldsync/workerpool"
)

// ChunkSize is the number of leaves each parallel build worker absorbs
// before its result is handed to the sequential splice step (spec.md
// §4.5). It must be a power of two so a full chunk always collapses to a
// single ommer at chunkHeight.
const ChunkSize = 1024

const chunkHeight = 10 // log2(ChunkSize)

// builtChunk is the result of building one chunk of leaves in isolation,
// ready to be spliced into the owning tree on the sequential path.
type builtChunk struct {
	start      uint64
	length     int
	full       bool // length == ChunkSize
	root       H    // valid iff full
	ommers     map[uint8]H
	localMarks map[uint64]*mark
}

// buildChunkTree absorbs leaves into a throwaway tree rooted at local
// position 0. Because the chunk always starts at a ChunkSize-aligned
// global position, the low chunkHeight bits of the global position equal
// the local index, so combine decisions made against local positions are
// identical to the ones the main tree would make — this is what lets the
// build run without any knowledge of the main tree's state.
func buildChunkTree(params poolcrypto.Params, start uint64, leaves []LeafInput) *builtChunk {
	t2 := New(params)
	for _, l := range leaves {
		t2.appendOne(l.Commitment, l.Retention)
	}
	bc := &builtChunk{
		start:      start,
		length:     len(leaves),
		full:       len(leaves) == ChunkSize,
		localMarks: t2.marks,
	}
	if bc.full {
		bc.root = t2.ommers[chunkHeight]
	} else {
		bc.ommers = t2.ommers
	}
	return bc
}

// spliceChunk absorbs a chunk built by buildChunkTree into t, sequentially.
func (t *Tree) spliceChunk(bc *builtChunk) {
	for localPos, m := range bc.localMarks {
		m.position = bc.start + localPos
		t.marks[m.position] = m
	}
	if bc.full {
		t.absorb(chunkHeight, bc.root, bc.start)
		t.position = bc.start + uint64(bc.length)
		return
	}
	// Partial (trailing) chunk: its own pending ommers are, level for
	// level, exactly what the main tree's would be had the leaves been
	// appended one at a time, since entering any ChunkSize-aligned
	// boundary the main tree's ommers below chunkHeight are empty.
	for lvl, h := range bc.ommers {
		t.ommers[lvl] = h
	}
	t.position = bc.start + uint64(bc.length)
}

// Extend absorbs leaves (already in canonical leaf order, starting at the
// tree's current position) into the tree, building ChunkSize-sized chunks
// in parallel on pool and splicing them in order sequentially (spec.md
// §4.5 steps 2-3). Any unaligned prefix shorter than ChunkSize is absorbed
// directly so every chunk handed to the pool starts ChunkSize-aligned.
func (t *Tree) Extend(ctx context.Context, pool workerpool.Pool, leaves []LeafInput) error {
	if len(leaves) == 0 {
		return nil
	}
	base := t.position
	firstLen := uint64(ChunkSize) - (base % ChunkSize)
	if firstLen == ChunkSize {
		firstLen = 0
	}
	if firstLen > uint64(len(leaves)) {
		firstLen = uint64(len(leaves))
	}
	for _, l := range leaves[:firstLen] {
		t.appendOne(l.Commitment, l.Retention)
	}
	rest := leaves[firstLen:]
	if len(rest) == 0 {
		return nil
	}

	numChunks := (len(rest) + ChunkSize - 1) / ChunkSize
	built := make([]*builtChunk, numChunks)
	chunkBase := base + firstLen
	err := pool.Run(ctx, numChunks, func(_ context.Context, i int) error {
		lo := i * ChunkSize
		hi := lo + ChunkSize
		if hi > len(rest) {
			hi = len(rest)
		}
		built[i] = buildChunkTree(t.params, chunkBase+uint64(lo), rest[lo:hi])
		return nil
	})
	if err != nil {
		return err
	}

	for _, bc := range built {
		t.spliceChunk(bc)
	}
	return nil
}
