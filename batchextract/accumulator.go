package batchextract

import "github.com/forestrie/shieldsync/compact"

// Accumulator is the streaming counterpart to Extractor.Extract: it
// accepts one compact block at a time (as blockrange.Stream delivers
// them) and yields a Batch each time the soft target is reached, without
// needing the full block range materialized up front.
type Accumulator struct {
	Extractor
	cur    Batch
	leaves int
}

// Add appends one block's items to the in-progress batch. It returns the
// completed Batch and true once the soft target is reached.
func (a *Accumulator) Add(blk compact.Block, outDomain OutputDomainFunc, actDomain ActionDomainFunc) (Batch, bool) {
	if a.leaves == 0 {
		a.cur.StartHeight = blk.Height
	}
	a.cur.EndHeight = blk.Height + 1

	for _, tx := range blk.Vtx {
		outSpam := a.isOutputSpam(tx)
		actSpam := a.isActionSpam(tx)
		if outSpam && a.Log != nil {
			a.Log.Infof("batchextract: SpamSkip pool=B tx %x at height %d: %d outputs", tx.Txid, blk.Height, len(tx.Outputs))
		}
		if actSpam && a.Log != nil {
			a.Log.Infof("batchextract: SpamSkip pool=A tx %x at height %d: %d actions", tx.Txid, blk.Height, len(tx.Actions))
		}
		for oi, out := range tx.Outputs {
			item := Item{Height: blk.Height, TxIndex: tx.Index, Txid: tx.Txid, Index: oi, Commitment: out.Commitment(), Spam: outSpam}
			if !outSpam {
				item.CompactInput = out.ToCompactInput(outDomain(out))
			}
			a.cur.PoolBItems = append(a.cur.PoolBItems, item)
			a.leaves++
		}
		for ai, act := range tx.Actions {
			item := Item{Height: blk.Height, TxIndex: tx.Index, Txid: tx.Txid, Index: ai, Commitment: act.Commitment(), Spam: actSpam}
			if !actSpam {
				item.CompactInput = act.ToCompactInput(actDomain(act))
			}
			a.cur.PoolAItems = append(a.cur.PoolAItems, item)
			a.leaves++
		}
	}

	if a.leaves >= a.TargetBatchSize {
		return a.take()
	}
	return Batch{}, false
}

// Flush returns whatever partial batch remains buffered, if any.
func (a *Accumulator) Flush() (Batch, bool) {
	if a.leaves == 0 {
		return Batch{}, false
	}
	return a.take()
}

func (a *Accumulator) take() (Batch, bool) {
	b := a.cur
	a.cur = Batch{}
	a.leaves = 0
	return b, true
}
