package orchestrator

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forestrie/shieldsync/compact"
	"github.com/forestrie/shieldsync/lwd"
	"github.com/forestrie/shieldsync/lwd/fake"
	"github.com/forestrie/shieldsync/memorecover"
	"github.com/forestrie/shieldsync/poolcrypto"
	"github.com/forestrie/shieldsync/poolcrypto/testkit"
	"github.com/forestrie/shieldsync/shardtree"
	"github.com/forestrie/shieldsync/synerr"
	"github.com/forestrie/shieldsync/workerpool"
)

const testDepth = 8

func testParams(pool poolcrypto.Pool) poolcrypto.Params {
	return poolcrypto.Params{Pool: pool, Depth: testDepth, ShardHeight: testDepth / 2, CiphertextSize: 52, Hasher: testkit.SHA256Hasher{}}
}

func encodeEmptyFrontier(t *testing.T) []byte {
	t.Helper()
	wire, err := shardtree.EncodeFrontierV0(shardtree.Frontier{}, testDepth)
	require.NoError(t, err)
	return wire
}

// oneOutputBlock builds a single-transaction block carrying one output and
// one action, so both pools absorb exactly one commitment per height.
func oneOutputBlock(height uint64) compact.Block {
	var out compact.Output
	var act compact.Action
	out.Cmu[0] = byte(height)
	act.Cmx[0] = byte(height)
	return compact.Block{
		Height: height,
		Vtx: []compact.Tx{
			{Index: 0, Outputs: []compact.Output{out}, Actions: []compact.Action{act}},
		},
	}
}

// replayReference builds a throwaway tree over the same leaves
// oneOutputBlock produces for [start, end), independent of the
// orchestrator, returning both the resulting root and its frontier wire
// bytes so tests can assert against what a correct run must produce and
// script the fake server's end-height response.
func replayReference(t *testing.T, pool poolcrypto.Pool, start, end uint64) (root shardtree.H, wire []byte) {
	t.Helper()
	tree := shardtree.New(testParams(pool))
	var leaves []shardtree.LeafInput
	for h := start; h < end; h++ {
		var commitment poolcrypto.Hash
		commitment[0] = byte(h)
		leaves = append(leaves, shardtree.LeafInput{Commitment: commitment})
	}
	require.NoError(t, tree.Extend(context.Background(), workerpool.New(1), leaves))
	wire, err := shardtree.EncodeFrontierV0(tree.Frontier(), testDepth)
	require.NoError(t, err)
	return tree.Root(), wire
}

func newTestOrchestrator(client *fake.Client) *Orchestrator {
	return &Orchestrator{
		Client:    client,
		Pool:      workerpool.New(2),
		BatchSize: 4,
		PoolA:     &PoolEngine{Params: testParams(poolcrypto.PoolA), Decryptor: testkit.DummyDecryptor{}},
		PoolB:     &PoolEngine{Params: testParams(poolcrypto.PoolB), Decryptor: testkit.DummyDecryptor{}},
	}
}

func TestRunVerifiesRootOnMatch(t *testing.T) {
	client := fake.New()
	for h := uint64(1); h < 11; h++ {
		client.Blocks[h] = oneOutputBlock(h)
	}
	client.TreeStates[0] = lwd.TreeState{Present: true, SaplingTree: encodeEmptyFrontier(t), OrchardTree: encodeEmptyFrontier(t)}

	wantA, wireA := replayReference(t, poolcrypto.PoolA, 1, 11)
	wantB, wireB := replayReference(t, poolcrypto.PoolB, 1, 11)
	client.TreeStates[11] = lwd.TreeState{Present: true, SaplingTree: wireB, OrchardTree: wireA}

	orch := newTestOrchestrator(client)
	require.NoError(t, orch.Bootstrap(context.Background(), 0))

	report, err := orch.Run(context.Background(), 1, 11)
	require.NoError(t, err)
	require.Equal(t, wantA, report.PoolA.FinalRoot)
	require.Equal(t, wantB, report.PoolB.FinalRoot)
}

func TestRunFailsOnRootMismatch(t *testing.T) {
	client := fake.New()
	for h := uint64(1); h < 11; h++ {
		client.Blocks[h] = oneOutputBlock(h)
	}
	client.TreeStates[0] = lwd.TreeState{Present: true, SaplingTree: encodeEmptyFrontier(t), OrchardTree: encodeEmptyFrontier(t)}
	// A frontier claiming an empty tree at height 11 diverges from what
	// ten real leaves must produce.
	client.TreeStates[11] = lwd.TreeState{Present: true, SaplingTree: encodeEmptyFrontier(t), OrchardTree: encodeEmptyFrontier(t)}

	orch := newTestOrchestrator(client)
	require.NoError(t, orch.Bootstrap(context.Background(), 0))

	_, err := orch.Run(context.Background(), 1, 11)
	require.ErrorIs(t, err, synerr.RootMismatch)
}

func TestRunFailsWhenEndFrontierAbsent(t *testing.T) {
	client := fake.New()
	for h := uint64(1); h < 11; h++ {
		client.Blocks[h] = oneOutputBlock(h)
	}
	client.TreeStates[0] = lwd.TreeState{Present: true, SaplingTree: encodeEmptyFrontier(t), OrchardTree: encodeEmptyFrontier(t)}
	// No TreeStates entry at height 11: the fake client reports Present=false.

	orch := newTestOrchestrator(client)
	require.NoError(t, orch.Bootstrap(context.Background(), 0))

	_, err := orch.Run(context.Background(), 1, 11)
	require.ErrorIs(t, err, synerr.RootUnverifiable)
}

// identityLocator treats the raw transaction as the full ciphertext
// directly, ignoring bundleIndex: this test only ever stores one output
// per transaction, so there is nothing to index into.
func identityLocator(rawTx []byte, _ int) ([]byte, [32]byte, error) {
	return rawTx, [32]byte{}, nil
}

func TestRunRecoversMemosForHits(t *testing.T) {
	const height = uint64(5)
	marker := uint64(0xC0FFEE)

	var ciphertext [52]byte
	binary.BigEndian.PutUint64(ciphertext[:8], marker)
	txid := [32]byte{42}
	var out compact.Output
	out.Cmu[0] = byte(height)
	out.Ciphertext = ciphertext

	client := fake.New()
	client.Blocks[height] = compact.Block{
		Height: height,
		Vtx: []compact.Tx{
			{Index: 0, Txid: txid, Outputs: []compact.Output{out}},
		},
	}
	var fullCiphertext [64]byte
	binary.BigEndian.PutUint64(fullCiphertext[:8], marker)
	client.Transactions[txid] = fullCiphertext[:]

	client.TreeStates[height-1] = lwd.TreeState{Present: true, SaplingTree: encodeEmptyFrontier(t), OrchardTree: encodeEmptyFrontier(t)}
	_, wireB := replayReference(t, poolcrypto.PoolB, height, height+1)
	client.TreeStates[height+1] = lwd.TreeState{Present: true, SaplingTree: wireB, OrchardTree: encodeEmptyFrontier(t)}

	ivk := testkit.DummyIVK{Marker: marker}
	orch := &Orchestrator{
		Client: client,
		Pool:   workerpool.New(2),
		PoolB: &PoolEngine{
			Params:        testParams(poolcrypto.PoolB),
			Decryptor:     testkit.DummyDecryptor{},
			IVKs:          []poolcrypto.PreparedIVK{ivk.Prepare()},
			FullDecryptor: testkit.DummyDecryptor{},
			LocateBundle:  memorecover.BundleLocator(identityLocator),
		},
	}
	require.NoError(t, orch.Bootstrap(context.Background(), height-1))

	report, err := orch.Run(context.Background(), height, height+1)
	require.NoError(t, err)
	require.Len(t, report.PoolB.Hits, 1)
	require.Len(t, report.PoolB.Recovered, 1)
	require.Equal(t, txid, report.PoolB.Recovered[0].Hit.Txid)
}
