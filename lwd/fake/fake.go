// Package fake provides an in-memory lwd.Client for tests that never needs
// a real light-client server or network connection.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/forestrie/shieldsync/compact"
	"github.com/forestrie/shieldsync/lwd"
	"github.com/forestrie/shieldsync/synerr"
)

// Client is a scripted, in-memory implementation of lwd.Client.
type Client struct {
	mu sync.Mutex

	Blocks       map[uint64]compact.Block
	Latest       uint64
	TreeStates   map[uint64]lwd.TreeState
	Transactions map[[32]byte][]byte

	// FailAfter, if > 0, makes GetBlockRange return a TransportTransient
	// error after delivering this many blocks on its next call, then reset
	// itself — simulating a single mid-stream disconnect for blockrange's
	// reconnect tests.
	FailAfter int
}

// New returns an empty fake client.
func New() *Client {
	return &Client{
		Blocks:       make(map[uint64]compact.Block),
		TreeStates:   make(map[uint64]lwd.TreeState),
		Transactions: make(map[[32]byte][]byte),
	}
}

func (c *Client) GetBlockRange(ctx context.Context, start, end uint64, recv func(compact.Block) error) error {
	c.mu.Lock()
	failAfter := c.FailAfter
	c.FailAfter = 0
	c.mu.Unlock()

	delivered := 0
	for h := start; h < end; h++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		blk, ok := c.Blocks[h]
		if !ok {
			return fmt.Errorf("fake lwd: no block at height %d: %w", h, synerr.TransportFatal)
		}
		if err := recv(blk); err != nil {
			return err
		}
		delivered++
		if failAfter > 0 && delivered == failAfter {
			return fmt.Errorf("fake lwd: simulated disconnect after %d blocks: %w", delivered, synerr.TransportTransient)
		}
	}
	return nil
}

func (c *Client) GetTreeState(ctx context.Context, height uint64) (lwd.TreeState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, ok := c.TreeStates[height]
	if !ok {
		return lwd.TreeState{Height: height, Present: false}, nil
	}
	return ts, nil
}

func (c *Client) GetLatestBlock(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Latest, nil
}

func (c *Client) GetTransaction(ctx context.Context, txid [32]byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, ok := c.Transactions[txid]
	if !ok {
		return nil, fmt.Errorf("fake lwd: no transaction %x: %w", txid, synerr.TransportFatal)
	}
	return tx, nil
}

var _ lwd.Client = (*Client)(nil)
