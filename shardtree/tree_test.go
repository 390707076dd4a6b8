package shardtree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forestrie/shieldsync/poolcrypto"
	"github.com/forestrie/shieldsync/poolcrypto/testkit"
	"github.com/forestrie/shieldsync/synerr"
	"github.com/forestrie/shieldsync/workerpool"
)

func testParams(depth uint8) poolcrypto.Params {
	return poolcrypto.Params{
		Pool:        poolcrypto.PoolA,
		Depth:       depth,
		ShardHeight: depth / 2,
		Hasher:      testkit.SHA256Hasher{},
	}
}

func leafAt(i int) H {
	var h H
	h[0] = byte(i)
	h[1] = byte(i >> 8)
	return h
}

// TestExtendSequentialVsChunked asserts P4 (batch invariance): splitting
// the same leaf sequence across several Extend calls of different sizes
// must produce the same root as absorbing it one leaf at a time.
func TestExtendSequentialVsChunked(t *testing.T) {
	const n = 2500 // three uneven calls: each ends in a partial chunk, the last two start with an aligning prefix
	params := testParams(16)

	leaves := make([]LeafInput, n)
	for i := range leaves {
		leaves[i] = LeafInput{Commitment: leafAt(i)}
	}

	reference := New(params)
	for _, l := range leaves {
		reference.appendOne(l.Commitment, l.Retention)
	}

	chunked := New(params)
	pool := workerpool.New(4)
	require.NoError(t, chunked.Extend(context.Background(), pool, leaves[:777]))
	require.NoError(t, chunked.Extend(context.Background(), pool, leaves[777:1600]))
	require.NoError(t, chunked.Extend(context.Background(), pool, leaves[1600:]))

	require.Equal(t, reference.Position(), chunked.Position())
	require.Equal(t, reference.Root(), chunked.Root())
}

// TestExtendPositionMonotone asserts P3: position strictly increases by
// exactly the number of leaves absorbed, batch after batch.
func TestExtendPositionMonotone(t *testing.T) {
	params := testParams(12)
	tree := New(params)
	pool := workerpool.New(2)

	var total uint64
	for _, batch := range [][]int{{0, 500}, {500, 900}, {900, 4000}} {
		n := batch[1] - batch[0]
		leaves := make([]LeafInput, n)
		for i := range leaves {
			leaves[i] = LeafInput{Commitment: leafAt(batch[0] + i)}
		}
		before := tree.Position()
		require.NoError(t, tree.Extend(context.Background(), pool, leaves))
		require.Equal(t, before+uint64(n), tree.Position())
		total += uint64(n)
	}
	require.Equal(t, total, tree.Position())
}

// TestBootstrapThenExtendAgreesWithFreshBuild asserts P1: a tree bootstrapped
// from another tree's frontier and then extended with the remaining leaves
// reaches the same root as building the whole sequence from scratch.
func TestBootstrapThenExtendAgreesWithFreshBuild(t *testing.T) {
	params := testParams(14)
	pool := workerpool.New(3)

	all := make([]LeafInput, 3000)
	for i := range all {
		all[i] = LeafInput{Commitment: leafAt(i)}
	}

	fromScratch := New(params)
	require.NoError(t, fromScratch.Extend(context.Background(), pool, all))

	prefix := New(params)
	require.NoError(t, prefix.Extend(context.Background(), pool, all[:1200]))
	wire, err := EncodeFrontierV0(prefix.Frontier(), params.Depth)
	require.NoError(t, err)

	resumed, next, err := Bootstrap(params, 100, wire, true)
	require.NoError(t, err)
	require.Equal(t, uint64(1200), next)
	require.NoError(t, resumed.Extend(context.Background(), pool, all[1200:]))

	require.Equal(t, fromScratch.Root(), resumed.Root())
}

// TestMissingFrontierIsFatal asserts bootstrap reports MissingFrontier,
// not an empty tree, when the server supplies no tree state at all.
func TestMissingFrontierIsFatal(t *testing.T) {
	params := testParams(8)
	_, _, err := Bootstrap(params, 1, nil, false)
	require.ErrorIs(t, err, synerr.MissingFrontier)
}

// TestWitnessSoundness asserts P9: a marked leaf's authentication path,
// recombined with the leaf itself, reproduces the tree's root — both when
// the witness resolves entirely from real siblings and when part of it is
// padded with EmptyRoot because no later leaf has arrived yet.
func TestWitnessSoundness(t *testing.T) {
	params := testParams(10)
	pool := workerpool.New(2)
	tree := New(params)

	leaves := make([]LeafInput, 50)
	markedAt := 7
	for i := range leaves {
		r := Retention{}
		if i == markedAt {
			r = Marked
		}
		leaves[i] = LeafInput{Commitment: leafAt(i), Retention: r}
	}
	require.NoError(t, tree.Extend(context.Background(), pool, leaves))

	path, err := tree.Witness(uint64(markedAt), 0)
	require.NoError(t, err)
	require.True(t, VerifyWitness(params.Hasher, leafAt(markedAt), path, params.Depth, tree.Root()))
}
