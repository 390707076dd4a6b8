// Package batchextract groups a contiguous run of compact blocks into
// soft-sized batches and decomposes each into the per-pool leaf sequences
// C4 and C5 consume (spec.md §4.3, C3).
package batchextract

import (
	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/forestrie/shieldsync/compact"
	"github.com/forestrie/shieldsync/poolcrypto"
)

// Item is one output or action reduced to what trial decryption and tree
// insertion need. Spam-flagged items still carry their Commitment (the
// tree absorbs every commitment unconditionally) but leave CompactInput
// zero-valued, since spec.md §9 resolves the spam filter to apply to
// trial decryption only.
type Item struct {
	Height  uint64
	TxIndex uint64
	Txid    [32]byte
	// Index is this item's position within its transaction's own output
	// or action list (not the combined per-pool batch position), the
	// bundleIndex C7's memo recovery needs to locate it in the full
	// transaction.
	Index        int
	Commitment   poolcrypto.Hash
	CompactInput poolcrypto.CompactInput
	Spam         bool
}

// Batch is one soft-sized group of leaves, in canonical per-pool order,
// spanning [StartHeight, EndHeight).
type Batch struct {
	StartHeight uint64
	EndHeight   uint64
	PoolBItems  []Item // outputs
	PoolAItems  []Item // actions
}

// OutputDomainFunc constructs the note-encryption domain for a Pool-B
// output. ActionDomainFunc does the same for a Pool-A action. Both are
// external-collaborator concerns (poolcrypto.Domain is opaque here).
type (
	OutputDomainFunc func(compact.Output) poolcrypto.Domain
	ActionDomainFunc func(compact.Action) poolcrypto.Domain
)

// Extractor groups and filters compact blocks into Batches.
type Extractor struct {
	// TargetBatchSize is the soft number of leaves (summed across both
	// pools) a batch aims for; a batch only ever closes on a block
	// boundary, so it may exceed the target when a single block is large.
	TargetBatchSize int
	// SpamThreshold flags a pool's side of a transaction as spam once its
	// own item count exceeds it. Each pool is judged independently
	// (spec.md §4.3, P7): a transaction with many actions and few outputs
	// may skip Pool-A decryption while Pool-B proceeds normally, and vice
	// versa. Zero disables the filter.
	SpamThreshold int
	Log           logger.Logger
}

func (e *Extractor) isActionSpam(tx compact.Tx) bool {
	if e.SpamThreshold <= 0 {
		return false
	}
	return len(tx.Actions) > e.SpamThreshold
}

func (e *Extractor) isOutputSpam(tx compact.Tx) bool {
	if e.SpamThreshold <= 0 {
		return false
	}
	return len(tx.Outputs) > e.SpamThreshold
}

// Extract partitions blocks (already in ascending, contiguous height
// order) into Batches.
func (e *Extractor) Extract(blocks []compact.Block, outDomain OutputDomainFunc, actDomain ActionDomainFunc) []Batch {
	var batches []Batch
	var cur Batch
	leaves := 0

	flush := func() {
		if leaves == 0 {
			return
		}
		batches = append(batches, cur)
		cur = Batch{}
		leaves = 0
	}

	for _, blk := range blocks {
		if leaves == 0 {
			cur.StartHeight = blk.Height
		}
		cur.EndHeight = blk.Height + 1

		for _, tx := range blk.Vtx {
			outSpam := e.isOutputSpam(tx)
			actSpam := e.isActionSpam(tx)
			if outSpam && e.Log != nil {
				e.Log.Infof("batchextract: SpamSkip pool=B tx %x at height %d: %d outputs", tx.Txid, blk.Height, len(tx.Outputs))
			}
			if actSpam && e.Log != nil {
				e.Log.Infof("batchextract: SpamSkip pool=A tx %x at height %d: %d actions", tx.Txid, blk.Height, len(tx.Actions))
			}
			for oi, out := range tx.Outputs {
				item := Item{Height: blk.Height, TxIndex: tx.Index, Txid: tx.Txid, Index: oi, Commitment: out.Commitment(), Spam: outSpam}
				if !outSpam {
					item.CompactInput = out.ToCompactInput(outDomain(out))
				}
				cur.PoolBItems = append(cur.PoolBItems, item)
				leaves++
			}
			for ai, act := range tx.Actions {
				item := Item{Height: blk.Height, TxIndex: tx.Index, Txid: tx.Txid, Index: ai, Commitment: act.Commitment(), Spam: actSpam}
				if !actSpam {
					item.CompactInput = act.ToCompactInput(actDomain(act))
				}
				cur.PoolAItems = append(cur.PoolAItems, item)
				leaves++
			}
		}

		if leaves >= e.TargetBatchSize {
			flush()
		}
	}
	flush()
	return batches
}
