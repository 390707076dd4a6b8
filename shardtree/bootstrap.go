package shardtree

import (
	"fmt"

	"github.com/forestrie/shieldsync/poolcrypto"
	"github.com/forestrie/shieldsync/synerr"
)

// Bootstrap installs a server-supplied frontier as a new tree's starting
// state and records it as an unmarked checkpoint at height (spec.md §4.5).
// present distinguishes "the server answered with an empty tree" (a valid
// Frontier{} at Count 0) from "the server had nothing to say at all",
// which is MissingFrontier and fatal at bootstrap.
func Bootstrap(params poolcrypto.Params, height uint64, wire []byte, present bool) (*Tree, uint64, error) {
	if !present {
		return nil, 0, synerr.MissingFrontier
	}
	fr, err := DecodeFrontierV0(wire, params.Depth)
	if err != nil {
		return nil, 0, err
	}
	t := New(params)
	t.position = fr.Count
	levels := setBitLevels(fr.Count)
	if len(levels) != len(fr.Ommers) {
		return nil, 0, fmt.Errorf("bootstrap: frontier carries %d ommers, want %d: %w", len(fr.Ommers), len(levels), synerr.MalformedCompactRecord)
	}
	for i, l := range levels {
		t.ommers[l] = fr.Ommers[i]
	}
	t.checkpoints = append(t.checkpoints, Checkpoint{
		ID:       height,
		IsMarked: false,
		Position: t.position,
		Root:     t.Root(),
	})
	return t, t.position, nil
}
