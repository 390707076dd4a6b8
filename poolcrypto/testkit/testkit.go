// Package testkit provides a deterministic, non-cryptographic reference
// implementation of the poolcrypto interfaces for use in this module's own
// tests and cmd/benchsync's self-contained demo mode. It is not suitable
// for production use: SHA256Hasher has none of the algebraic properties a
// real note-commitment hash needs, and DummyIVK matches compact ciphertexts
// by an embedded marker rather than performing any key exchange.
package testkit

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"

	"github.com/forestrie/shieldsync/poolcrypto"
)

// SHA256Hasher combines child hashes with a level-domain-separated SHA-256,
// standing in for a pool's real Pedersen/Poseidon-style commitment hash.
type SHA256Hasher struct{}

var _ poolcrypto.Hasher = SHA256Hasher{}

func (SHA256Hasher) Combine(level uint8, left, right poolcrypto.Hash) poolcrypto.Hash {
	h := sha256.New()
	h.Write([]byte{level})
	h.Write(left[:])
	h.Write(right[:])
	var out poolcrypto.Hash
	copy(out[:], h.Sum(nil))
	return out
}

func (SHA256Hasher) EmptyRoot(level uint8) poolcrypto.Hash {
	h := sha256.New()
	h.Write([]byte("empty"))
	h.Write([]byte{level})
	var out poolcrypto.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// DummyIVK recognizes ciphertexts whose first 8 bytes equal its Marker,
// standing in for real incoming-viewing-key trial decryption.
type DummyIVK struct {
	Marker uint64
}

func (k DummyIVK) Prepare() poolcrypto.PreparedIVK { return k }

// DummyDecryptor implements poolcrypto.BatchDecryptor and
// poolcrypto.FullDecryptor against DummyIVK-marked ciphertexts.
type DummyDecryptor struct{}

var _ poolcrypto.BatchDecryptor = DummyDecryptor{}
var _ poolcrypto.FullDecryptor = DummyDecryptor{}

func (DummyDecryptor) TryDecryptCompact(ivks []poolcrypto.PreparedIVK, outputs []poolcrypto.CompactInput) []*poolcrypto.DecryptedNote {
	out := make([]*poolcrypto.DecryptedNote, len(outputs))
	for i, o := range outputs {
		if len(o.Ciphertext) < 8 {
			continue
		}
		marker := binary.BigEndian.Uint64(o.Ciphertext[:8])
		for _, prepared := range ivks {
			ivk, ok := prepared.(DummyIVK)
			if !ok {
				continue
			}
			if ivk.Marker == marker {
				var memo poolcrypto.Memo
				copy(memo[:], bytes.Repeat([]byte{0xAB}, len(memo)))
				out[i] = &poolcrypto.DecryptedNote{
					Note:      o.Commitment,
					Recipient: ivk,
					Memo:      memo,
				}
				break
			}
		}
	}
	return out
}

func (DummyDecryptor) TryDecryptFull(ivk poolcrypto.PreparedIVK, _ poolcrypto.Domain, fullCiphertext []byte, _ [32]byte) (poolcrypto.DecryptedNote, bool) {
	dIvk, ok := ivk.(DummyIVK)
	if !ok || len(fullCiphertext) < 8 {
		return poolcrypto.DecryptedNote{}, false
	}
	marker := binary.BigEndian.Uint64(fullCiphertext[:8])
	if marker != dIvk.Marker {
		return poolcrypto.DecryptedNote{}, false
	}
	var memo poolcrypto.Memo
	copy(memo[:], bytes.Repeat([]byte{0xAB}, len(memo)))
	return poolcrypto.DecryptedNote{Note: nil, Recipient: dIvk, Memo: memo}, true
}
