// Package compact defines the wire schema and in-memory types for compact
// blocks (spec.md §6) and their fallible conversion into the cryptographic
// primitives poolcrypto consumes (spec.md §4.1).
package compact

import (
	"fmt"

	"github.com/forestrie/shieldsync/poolcrypto"
	"github.com/forestrie/shieldsync/synerr"
)

// Block is a compact block: a block reduced to the fields necessary for
// trial decryption and tree maintenance. Ordering of Vtx within a block,
// and of Outputs/Actions within a transaction, is part of the canonical
// leaf order (spec.md §3).
type Block struct {
	Height uint64
	Vtx    []Tx
}

// Tx is a compact transaction.
type Tx struct {
	Index   uint64
	Txid    [32]byte
	Spends  []Spend
	Outputs []Output // Pool-B
	Actions []Action // Pool-A
}

// Spend is a compact Sapling-analog spend (Pool-B nullifier reveal). The
// engine does not trial-decrypt spends; they are carried through only
// because spec.md §6's wire schema defines them on CompactTx.
type Spend struct {
	Nullifier [32]byte
}

// Output is a compact Pool-B output.
type Output struct {
	Cmu          [32]byte
	EphemeralKey [32]byte
	Ciphertext   [52]byte
}

// Action is a compact Pool-A action.
type Action struct {
	Nullifier    [32]byte
	Cmx          [32]byte
	EphemeralKey [32]byte
	Ciphertext   [52]byte
}

// Commitment returns the tree leaf value this output contributes: cmu for
// Pool-B.
func (o Output) Commitment() poolcrypto.Hash { return poolcrypto.Hash(o.Cmu) }

// Commitment returns the tree leaf value this action contributes: cmx for
// Pool-A.
func (a Action) Commitment() poolcrypto.Hash { return poolcrypto.Hash(a.Cmx) }

// ToCompactInput converts an Output into the form poolcrypto's batched
// decryptor consumes, tagging it with domain (constructed by the caller,
// since domain construction is pool-specific external-collaborator logic).
func (o Output) ToCompactInput(domain poolcrypto.Domain) poolcrypto.CompactInput {
	return poolcrypto.CompactInput{
		Domain:       domain,
		EphemeralKey: o.EphemeralKey,
		Ciphertext:   o.Ciphertext[:],
		Commitment:   o.Commitment(),
	}
}

// ToCompactInput converts an Action into the form poolcrypto's batched
// decryptor consumes.
func (a Action) ToCompactInput(domain poolcrypto.Domain) poolcrypto.CompactInput {
	return poolcrypto.CompactInput{
		Domain:       domain,
		EphemeralKey: a.EphemeralKey,
		Ciphertext:   a.Ciphertext[:],
		Commitment:   a.Commitment(),
	}
}

// malformed builds a synerr.MalformedCompactRecord wrapping the offending
// field and its actual/expected length.
func malformed(field string, got, want int) error {
	return fmt.Errorf("%s: got %d bytes, want %d: %w", field, got, want, synerr.MalformedCompactRecord)
}
