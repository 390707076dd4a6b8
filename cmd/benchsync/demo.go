package main

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"github.com/forestrie/shieldsync/compact"
	"github.com/forestrie/shieldsync/config"
	"github.com/forestrie/shieldsync/lwd"
	"github.com/forestrie/shieldsync/lwd/fake"
	"github.com/forestrie/shieldsync/shardtree"
	"github.com/forestrie/shieldsync/workerpool"
)

// demoMarker is the DummyIVK marker demoClient's planted output and action
// match, so --demo runs always produce exactly one hit per synced pool.
const demoMarker = 0xC0FFEE

// demoClient builds an in-process fake populated with deterministic
// synthetic blocks covering params's range, so benchsync can be exercised
// without a live lightwalletd. One output and one action per block are
// real leaves; a single block partway through the range carries an output
// and an action matching demoMarker.
func demoClient(params *config.Params) lwd.Client {
	c := fake.New()
	plantedHeight := params.StartBlock + (params.EndBlock-params.StartBlock)/2
	for h := params.StartBlock; h < params.EndBlock; h++ {
		c.Blocks[h] = compact.Block{
			Height: h,
			Vtx: []compact.Tx{
				{
					Index:   0,
					Txid:    syntheticTxid(h),
					Outputs: []compact.Output{syntheticOutput(h, h == plantedHeight)},
					Actions: []compact.Action{syntheticAction(h, h == plantedHeight)},
				},
			},
		}
	}
	c.Latest = params.EndBlock - 1

	emptyFrontier, err := shardtree.EncodeFrontierV0(shardtree.Frontier{}, treeDepth)
	if err != nil {
		panic("demo: encoding an empty frontier cannot fail: " + err.Error())
	}
	c.TreeStates[params.StartBlock-1] = lwd.TreeState{
		Height:      params.StartBlock - 1,
		SaplingTree: emptyFrontier,
		OrchardTree: emptyFrontier,
		Present:     true,
	}

	saplingEnd, orchardEnd := demoEndFrontiers(params)
	c.TreeStates[params.EndBlock] = lwd.TreeState{
		Height:      params.EndBlock,
		SaplingTree: saplingEnd,
		OrchardTree: orchardEnd,
		Present:     true,
	}
	return c
}

// demoEndFrontiers independently replays the same synthetic leaves demo's
// blocks carry into a pair of throwaway trees (starting from the empty
// frontier demoClient bootstraps from), so the fake server can answer
// GetTreeState at params.EndBlock with the frontier a correct sync run
// must reproduce, letting --demo runs exercise root verification too.
func demoEndFrontiers(params *config.Params) (sapling, orchard []byte) {
	saplingTree := shardtree.New(saplingParams())
	orchardTree := shardtree.New(orchardParams())
	pool := workerpool.New(1)
	ctx := context.Background()

	var outLeaves, actLeaves []shardtree.LeafInput
	for h := params.StartBlock; h < params.EndBlock; h++ {
		out := syntheticOutput(h, h == params.StartBlock+(params.EndBlock-params.StartBlock)/2)
		act := syntheticAction(h, h == params.StartBlock+(params.EndBlock-params.StartBlock)/2)
		outLeaves = append(outLeaves, shardtree.LeafInput{Commitment: out.Commitment()})
		actLeaves = append(actLeaves, shardtree.LeafInput{Commitment: act.Commitment()})
	}
	if err := saplingTree.Extend(ctx, pool, outLeaves); err != nil {
		panic("demo: replaying synthetic leaves cannot fail: " + err.Error())
	}
	if err := orchardTree.Extend(ctx, pool, actLeaves); err != nil {
		panic("demo: replaying synthetic leaves cannot fail: " + err.Error())
	}

	saplingWire, err := shardtree.EncodeFrontierV0(saplingTree.Frontier(), treeDepth)
	if err != nil {
		panic("demo: encoding the sapling end frontier cannot fail: " + err.Error())
	}
	orchardWire, err := shardtree.EncodeFrontierV0(orchardTree.Frontier(), treeDepth)
	if err != nil {
		panic("demo: encoding the orchard end frontier cannot fail: " + err.Error())
	}
	return saplingWire, orchardWire
}

func syntheticTxid(height uint64) [32]byte {
	var in [8]byte
	binary.BigEndian.PutUint64(in[:], height)
	return sha256.Sum256(in[:])
}

func syntheticOutput(height uint64, planted bool) compact.Output {
	var out compact.Output
	copy(out.Cmu[:], deriveHash("cmu", height))
	copy(out.EphemeralKey[:], deriveHash("eph-b", height))
	if planted {
		binary.BigEndian.PutUint64(out.Ciphertext[:8], demoMarker)
	}
	return out
}

func syntheticAction(height uint64, planted bool) compact.Action {
	var act compact.Action
	copy(act.Cmx[:], deriveHash("cmx", height))
	copy(act.Nullifier[:], deriveHash("nf", height))
	copy(act.EphemeralKey[:], deriveHash("eph-a", height))
	if planted {
		binary.BigEndian.PutUint64(act.Ciphertext[:8], demoMarker)
	}
	return act
}

func deriveHash(label string, height uint64) []byte {
	h := sha256.New()
	h.Write([]byte(label))
	var in [8]byte
	binary.BigEndian.PutUint64(in[:], height)
	h.Write(in[:])
	sum := h.Sum(nil)
	return sum
}
