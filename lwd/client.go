// Package lwd is the client for the four light-client server RPCs the sync
// engine depends on (spec.md §5): a streaming compact-block range fetch,
// tree-state lookup for frontier bootstrap, latest-block polling, and full
// transaction recovery for memo decryption.
package lwd

import (
	"context"

	"github.com/forestrie/shieldsync/compact"
)

// TreeState is the server's answer to GetTreeState: the hex-free wire bytes
// of a pool's frontier at a given height, or Present=false if the server
// holds no tree state for that height at all (spec.md §4.5 MissingFrontier).
type TreeState struct {
	Height      uint64
	SaplingTree []byte // Pool-B frontier wire bytes (may be empty+Present if genesis)
	OrchardTree []byte // Pool-A frontier wire bytes
	Present     bool
}

// Client is the light-client server surface the sync engine drives. A
// single Client is shared across a run; GetBlockRange may be called
// repeatedly by the reconnect loop in blockrange.Stream.
type Client interface {
	// GetBlockRange streams compact blocks for [start, end) in height
	// order, invoking recv for each one. It returns when the stream ends
	// (either exhausted or recv/context returned an error) or ctx is
	// canceled.
	GetBlockRange(ctx context.Context, start, end uint64, recv func(compact.Block) error) error
	GetTreeState(ctx context.Context, height uint64) (TreeState, error)
	GetLatestBlock(ctx context.Context) (uint64, error)
	GetTransaction(ctx context.Context, txid [32]byte) ([]byte, error)
}
