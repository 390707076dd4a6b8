package trialdecrypt

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forestrie/shieldsync/batchextract"
	"github.com/forestrie/shieldsync/poolcrypto"
	"github.com/forestrie/shieldsync/poolcrypto/testkit"
	"github.com/forestrie/shieldsync/workerpool"
)

func itemWithMarker(height uint64, marker uint64) batchextract.Item {
	var ct [52]byte
	binary.BigEndian.PutUint64(ct[:8], marker)
	return batchextract.Item{
		Height: height,
		Commitment: poolcrypto.Hash{byte(height)},
		CompactInput: poolcrypto.CompactInput{
			Ciphertext: ct[:],
			Commitment: poolcrypto.Hash{byte(height)},
		},
	}
}

// TestDecryptPreservesOrderAcrossChunks asserts P6: hits come back in the
// same relative order their items were submitted, regardless of how many
// chunks the engine split the batch into.
func TestDecryptPreservesOrderAcrossChunks(t *testing.T) {
	const want = 0xC0FFEE
	items := make([]batchextract.Item, 0, 20)
	var wantHeights []uint64
	for h := uint64(0); h < 20; h++ {
		marker := uint64(0xDEAD)
		if h%3 == 0 {
			marker = want
			wantHeights = append(wantHeights, h)
		}
		items = append(items, itemWithMarker(h, marker))
	}

	e := Engine{ChunkSize: 4}
	hits, err := e.Decrypt(context.Background(), workerpool.New(3), testkit.DummyDecryptor{},
		[]poolcrypto.PreparedIVK{testkit.DummyIVK{Marker: want}}, items)
	require.NoError(t, err)

	var gotHeights []uint64
	for _, h := range hits {
		gotHeights = append(gotHeights, h.Height)
	}
	require.Equal(t, wantHeights, gotHeights)
}

func TestDecryptSkipsSpamItems(t *testing.T) {
	items := []batchextract.Item{
		itemWithMarker(0, 0xC0FFEE),
	}
	items[0].Spam = true

	e := Engine{}
	hits, err := e.Decrypt(context.Background(), workerpool.New(1), testkit.DummyDecryptor{},
		[]poolcrypto.PreparedIVK{testkit.DummyIVK{Marker: 0xC0FFEE}}, items)
	require.NoError(t, err)
	require.Empty(t, hits)
}
