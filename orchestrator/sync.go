// Package orchestrator wires the streaming block fetch, batch extraction,
// trial decryption and tree maintenance stages into the single end-to-end
// sync operation spec.md §4.6 (C6) describes.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/datatrails/go-datatrails-common/logger"
	"golang.org/x/sync/errgroup"

	"github.com/forestrie/shieldsync/batchextract"
	"github.com/forestrie/shieldsync/blockrange"
	"github.com/forestrie/shieldsync/compact"
	"github.com/forestrie/shieldsync/lwd"
	"github.com/forestrie/shieldsync/memorecover"
	"github.com/forestrie/shieldsync/poolcrypto"
	"github.com/forestrie/shieldsync/shardtree"
	"github.com/forestrie/shieldsync/synerr"
	"github.com/forestrie/shieldsync/trialdecrypt"
	"github.com/forestrie/shieldsync/workerpool"
)

// PoolEngine bundles one pool's cryptographic collaborators and tree
// state. A sync run may drive one or both pools concurrently.
type PoolEngine struct {
	Params       poolcrypto.Params
	Decryptor    poolcrypto.BatchDecryptor
	IVKs         []poolcrypto.PreparedIVK
	OutputDomain batchextract.OutputDomainFunc // set for Pool-B
	ActionDomain batchextract.ActionDomainFunc // set for Pool-A

	// MarkPosition reports whether the leaf at position should retain a
	// full authentication path. Nil means no leaf is ever marked.
	MarkPosition func(position uint64) bool

	// FullDecryptor and LocateBundle enable C7 memo recovery for this
	// pool's hits. Both nil (the default) skips recovery entirely.
	FullDecryptor poolcrypto.FullDecryptor
	LocateBundle  memorecover.BundleLocator

	tree *shardtree.Tree
}

// Orchestrator drives one end-to-end sync run.
type Orchestrator struct {
	Client       lwd.Client
	Pool         workerpool.Pool
	BatchSize    int
	TrialDecrypt trialdecrypt.Engine
	Log          logger.Logger

	PoolA *PoolEngine
	PoolB *PoolEngine
}

func (o *Orchestrator) stream() *blockrange.Stream {
	return blockrange.New(o.Client, o.Log)
}

// Bootstrap fetches the frontier for every active pool at height and
// installs it as each pool's starting tree state (spec.md §4.5).
func (o *Orchestrator) Bootstrap(ctx context.Context, height uint64) error {
	ts, err := o.Client.GetTreeState(ctx, height)
	if err != nil {
		return err
	}
	if o.PoolA != nil {
		t, _, err := shardtree.Bootstrap(o.PoolA.Params, height, ts.OrchardTree, ts.Present)
		if err != nil {
			return err
		}
		o.PoolA.tree = t
	}
	if o.PoolB != nil {
		t, _, err := shardtree.Bootstrap(o.PoolB.Params, height, ts.SaplingTree, ts.Present)
		if err != nil {
			return err
		}
		o.PoolB.tree = t
	}
	return nil
}

// Run syncs [start, end) and returns a Report summarizing the result. Each
// batch is trial-decrypted and absorbed into the tree before the next
// batch is requested, giving the pipeline the one-batch-in-flight
// backpressure spec.md §4.6 calls for.
func (o *Orchestrator) Run(ctx context.Context, start, end uint64) (*Report, error) {
	if o.PoolA == nil && o.PoolB == nil {
		return nil, synerr.ConfigInvalid
	}
	begin := time.Now()
	report := &Report{StartHeight: start, EndHeight: end}
	if o.PoolA != nil {
		report.PoolA = &PoolReport{Pool: poolcrypto.PoolA}
	}
	if o.PoolB != nil {
		report.PoolB = &PoolReport{Pool: poolcrypto.PoolB}
	}

	extractor := batchextract.Extractor{TargetBatchSize: o.batchSize(), Log: o.Log}
	acc := &batchextract.Accumulator{Extractor: extractor}

	outDomain := batchextract.OutputDomainFunc(func(compact.Output) poolcrypto.Domain { return nil })
	actDomain := batchextract.ActionDomainFunc(func(compact.Action) poolcrypto.Domain { return nil })
	if o.PoolB != nil && o.PoolB.OutputDomain != nil {
		outDomain = o.PoolB.OutputDomain
	}
	if o.PoolA != nil && o.PoolA.ActionDomain != nil {
		actDomain = o.PoolA.ActionDomain
	}

	processBatch := func(batch batchextract.Batch) error {
		return o.processBatch(ctx, batch, report)
	}

	err := o.stream().Run(ctx, start, end, func(blk compact.Block) error {
		if batch, ready := acc.Add(blk, outDomain, actDomain); ready {
			return processBatch(batch)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if batch, ok := acc.Flush(); ok {
		if err := processBatch(batch); err != nil {
			return nil, err
		}
	}

	if err := o.verifyRoots(ctx, end); err != nil {
		return nil, err
	}

	if o.PoolA != nil {
		report.PoolA.FinalPosition = o.PoolA.tree.Position()
		report.PoolA.FinalRoot = o.PoolA.tree.Root()
	}
	if o.PoolB != nil {
		report.PoolB.FinalPosition = o.PoolB.tree.Position()
		report.PoolB.FinalRoot = o.PoolB.tree.Root()
	}
	report.Elapsed = time.Since(begin)
	return report, nil
}

// verifyRoots fetches the server's frontier for every active pool at end
// and confirms it matches the root each pool's tree computed, per spec.md
// §4.5/§4.6 (P1). A missing end-height frontier is RootUnverifiable,
// distinct from the bootstrap-time MissingFrontier; a present but
// divergent frontier is RootMismatch. Both are fatal and abort the run.
func (o *Orchestrator) verifyRoots(ctx context.Context, end uint64) error {
	ts, err := o.Client.GetTreeState(ctx, end)
	if err != nil {
		return err
	}
	if !ts.Present {
		return fmt.Errorf("orchestrator: no server frontier at height %d: %w", end, synerr.RootUnverifiable)
	}
	if o.PoolA != nil {
		if err := verifyPoolRoot(o.PoolA, end, ts.OrchardTree); err != nil {
			return err
		}
	}
	if o.PoolB != nil {
		if err := verifyPoolRoot(o.PoolB, end, ts.SaplingTree); err != nil {
			return err
		}
	}
	return nil
}

func verifyPoolRoot(engine *PoolEngine, end uint64, wire []byte) error {
	serverTree, _, err := shardtree.Bootstrap(engine.Params, end, wire, true)
	if err != nil {
		return err
	}
	want := serverTree.Root()
	got := engine.tree.Root()
	if want != got {
		return synerr.NewRootMismatch(engine.Params.Pool.String(), want[:], got[:])
	}
	return nil
}

func (o *Orchestrator) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return 4096
}

// processBatch dispatches a batch to both pools concurrently (spec.md
// §4.6: C6 wires C2→C3→(C4‖C5) per pool and awaits both before the next
// batch), so Pool-A and Pool-B never wait on each other.
func (o *Orchestrator) processBatch(ctx context.Context, batch batchextract.Batch, report *Report) error {
	g, gctx := errgroup.WithContext(ctx)
	if o.PoolA != nil {
		g.Go(func() error {
			return o.processPool(gctx, o.PoolA, report.PoolA, batch.PoolAItems)
		})
	}
	if o.PoolB != nil {
		g.Go(func() error {
			return o.processPool(gctx, o.PoolB, report.PoolB, batch.PoolBItems)
		})
	}
	return g.Wait()
}

// processPool runs one pool's trial decryption (C4) and tree extension
// (C5) concurrently over the same batch, since the leaf sequence fed to
// Extend depends only on items, never on the decryption result. Once both
// finish, any hits are handed to C7 for memo recovery.
func (o *Orchestrator) processPool(ctx context.Context, engine *PoolEngine, pr *PoolReport, items []batchextract.Item) error {
	pr.TotalLeaves += len(items)
	for _, it := range items {
		if it.Spam {
			pr.SpamSkipped++
		}
	}

	leaves := make([]shardtree.LeafInput, len(items))
	base := engine.tree.Position()
	for i, it := range items {
		retention := shardtree.Ephemeral
		if engine.MarkPosition != nil && engine.MarkPosition(base+uint64(i)) {
			retention = shardtree.Marked
		}
		leaves[i] = shardtree.LeafInput{Commitment: it.Commitment, Retention: retention}
	}

	var hits []trialdecrypt.Hit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := o.TrialDecrypt.Decrypt(gctx, o.Pool, engine.Decryptor, engine.IVKs, items)
		if err != nil {
			return err
		}
		hits = h
		return nil
	})
	g.Go(func() error {
		return engine.tree.Extend(gctx, o.Pool, leaves)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	pr.Hits = append(pr.Hits, hits...)

	o.recoverMemos(ctx, engine, pr, hits)
	return nil
}

// recoverMemos runs C7 over hits when the pool is configured for it.
// Individual recovery failures are skipped, never fatal (spec.md §4.7).
// recoverer.Recover logs MemoDecryptFailure; a failed transaction fetch is
// skipped without a log line.
func (o *Orchestrator) recoverMemos(ctx context.Context, engine *PoolEngine, pr *PoolReport, hits []trialdecrypt.Hit) {
	if engine.FullDecryptor == nil || engine.LocateBundle == nil {
		return
	}
	recoverer := &memorecover.Recoverer{
		Client:    o.Client,
		Decryptor: engine.FullDecryptor,
		Locate:    engine.LocateBundle,
		Log:       o.Log,
	}
	for _, hit := range hits {
		rec, err := recoverer.Recover(ctx, poolcrypto.PreparedIVK(hit.Note.Recipient), nil, hit, hit.Index)
		if err != nil {
			continue
		}
		pr.Recovered = append(pr.Recovered, *rec)
	}
}
