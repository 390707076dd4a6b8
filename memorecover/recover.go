// Package memorecover implements C7: recovering the memo field a compact
// trial decryption cannot reach, by fetching the full transaction and
// re-running decryption against its complete ciphertext (spec.md §4.7).
// A compact output/action's 52-byte ciphertext is too short to carry the
// 512-byte memo; only the full transaction has it.
package memorecover

import (
	"context"
	"fmt"

	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/forestrie/shieldsync/lwd"
	"github.com/forestrie/shieldsync/poolcrypto"
	"github.com/forestrie/shieldsync/synerr"
	"github.com/forestrie/shieldsync/trialdecrypt"
)

// BundleLocator locates the full ciphertext and ephemeral key for one
// output/action within a raw full transaction, given the index it held
// within the compact transaction's bundle. Parsing a pool's full
// transaction format is an external-collaborator concern, like the rest
// of poolcrypto.
type BundleLocator func(rawTx []byte, bundleIndex int) (fullCiphertext []byte, ephemeralKey [32]byte, err error)

// Recoverer fetches full transactions and re-derives memos for compact
// hits trialdecrypt.Engine produced.
type Recoverer struct {
	Client    lwd.Client
	Decryptor poolcrypto.FullDecryptor
	Locate    BundleLocator
	Log       logger.Logger
}

// Recovered pairs a compact hit with its recovered memo.
type Recovered struct {
	Hit  trialdecrypt.Hit
	Memo poolcrypto.Memo
}

// Recover fetches hit's full transaction and re-decrypts the memo at
// bundleIndex. A MemoDecryptFailure is logged and returned as an error but
// never panics; callers should continue processing remaining hits rather
// than abort the run on one failure (spec.md §4.7).
func (r *Recoverer) Recover(ctx context.Context, ivk poolcrypto.PreparedIVK, domain poolcrypto.Domain, hit trialdecrypt.Hit, bundleIndex int) (*Recovered, error) {
	raw, err := r.Client.GetTransaction(ctx, hit.Txid)
	if err != nil {
		return nil, err
	}

	fullCiphertext, ephemeralKey, err := r.Locate(raw, bundleIndex)
	if err != nil {
		return nil, r.fail(hit, err)
	}

	note, ok := r.Decryptor.TryDecryptFull(ivk, domain, fullCiphertext, ephemeralKey)
	if !ok {
		return nil, r.fail(hit, fmt.Errorf("full decryption did not reproduce the compact hit"))
	}
	return &Recovered{Hit: hit, Memo: note.Memo}, nil
}

func (r *Recoverer) fail(hit trialdecrypt.Hit, cause error) error {
	err := fmt.Errorf("memorecover: txid %x: %v: %w", hit.Txid, cause, synerr.MemoDecryptFailure)
	if r.Log != nil {
		r.Log.Infof("memorecover: MemoDecryptFailure txid=%x height=%d: %v", hit.Txid, hit.Height, err)
	}
	return err
}
