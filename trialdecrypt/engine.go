// Package trialdecrypt dispatches batched compact-note trial decryption
// across the CPU pool and reassembles the per-chunk results in original
// order (spec.md §4.4, C4).
package trialdecrypt

import (
	"context"

	"github.com/forestrie/shieldsync/batchextract"
	"github.com/forestrie/shieldsync/poolcrypto"
	"github.com/forestrie/shieldsync/workerpool"
)

// Hit is a successful trial decryption, paired back with the compact
// record it came from.
type Hit struct {
	Height  uint64
	TxIndex uint64
	Txid    [32]byte
	// Index is the hit's position within its transaction's own output or
	// action list, carried through from batchextract.Item.Index so C7 can
	// locate the matching bundle entry in the full transaction.
	Index      int
	Commitment poolcrypto.Hash
	Note       poolcrypto.DecryptedNote
}

// Engine dispatches TryDecryptCompact calls across a workerpool.Pool.
type Engine struct {
	// ChunkSize is the number of items each worker decrypts in one
	// TryDecryptCompact call. Defaults to 256 if unset.
	ChunkSize int
}

const defaultChunkSize = 256

// Decrypt trial-decrypts every non-spam item in items against ivks,
// returning the hits in the same relative order items appeared in
// (spec.md §8 P6: decryption soundness does not depend on chunk
// boundaries). Spam-flagged items (batchextract.Item.Spam) are skipped
// entirely, per spec.md §9's resolution that the spam filter governs
// trial decryption only.
func (e *Engine) Decrypt(ctx context.Context, pool workerpool.Pool, decryptor poolcrypto.BatchDecryptor, ivks []poolcrypto.PreparedIVK, items []batchextract.Item) ([]Hit, error) {
	candidates := make([]batchextract.Item, 0, len(items))
	for _, it := range items {
		if !it.Spam {
			candidates = append(candidates, it)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	chunkSize := e.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	numChunks := (len(candidates) + chunkSize - 1) / chunkSize
	perChunk := make([][]Hit, numChunks)

	err := pool.Run(ctx, numChunks, func(_ context.Context, i int) error {
		lo := i * chunkSize
		hi := lo + chunkSize
		if hi > len(candidates) {
			hi = len(candidates)
		}
		chunk := candidates[lo:hi]

		inputs := make([]poolcrypto.CompactInput, len(chunk))
		for j, it := range chunk {
			inputs[j] = it.CompactInput
		}
		notes := decryptor.TryDecryptCompact(ivks, inputs)

		var hits []Hit
		for j, note := range notes {
			if note == nil {
				continue
			}
			hits = append(hits, Hit{
				Height:     chunk[j].Height,
				TxIndex:    chunk[j].TxIndex,
				Txid:       chunk[j].Txid,
				Index:      chunk[j].Index,
				Commitment: chunk[j].Commitment,
				Note:       *note,
			})
		}
		perChunk[i] = hits
		return nil
	})
	if err != nil {
		return nil, err
	}

	var all []Hit
	for _, hits := range perChunk {
		all = append(all, hits...)
	}
	return all, nil
}
