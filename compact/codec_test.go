package compact

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/forestrie/shieldsync/synerr"
)

func sampleBlock() Block {
	return Block{
		Height: 1702104,
		Vtx: []Tx{
			{
				Index: 0,
				Txid:  [32]byte{1, 2, 3},
				Outputs: []Output{
					{Cmu: [32]byte{4}, EphemeralKey: [32]byte{5}, Ciphertext: [52]byte{6}},
				},
				Actions: []Action{
					{Nullifier: [32]byte{7}, Cmx: [32]byte{8}, EphemeralKey: [32]byte{9}, Ciphertext: [52]byte{10}},
				},
			},
			{
				Index:   1,
				Txid:    [32]byte{11},
				Outputs: []Output{{Cmu: [32]byte{12}}},
			},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := sampleBlock()
	wire := EncodeBlock(want)
	got, err := DecodeBlock(wire)
	require.NoError(t, err)
	require.Equal(t, want.Height, got.Height)
	require.Len(t, got.Vtx, 2)
	require.Equal(t, want.Vtx[0].Txid, got.Vtx[0].Txid)
	require.Equal(t, want.Vtx[0].Outputs, got.Vtx[0].Outputs)
	require.Equal(t, want.Vtx[0].Actions, got.Vtx[0].Actions)
	require.Equal(t, want.Vtx[1].Outputs, got.Vtx[1].Outputs)
}

// TestDecodeBlockTruncatedCiphertextIsMalformed builds a compact block by
// hand with an output ciphertext field shorter than 52 bytes, simulating
// the truncation fault from spec.md S6, and asserts it is rejected as
// MalformedCompactRecord rather than silently accepted or panicking.
func TestDecodeBlockTruncatedCiphertextIsMalformed(t *testing.T) {
	var out []byte
	out = protowire.AppendTag(out, 1, protowire.BytesType)
	out = protowire.AppendBytes(out, make([]byte, 32))
	out = protowire.AppendTag(out, 2, protowire.BytesType)
	out = protowire.AppendBytes(out, make([]byte, 32))
	out = protowire.AppendTag(out, 3, protowire.BytesType)
	out = protowire.AppendBytes(out, make([]byte, 40)) // truncated ciphertext

	var tx []byte
	tx = protowire.AppendTag(tx, 2, protowire.BytesType)
	tx = protowire.AppendBytes(tx, make([]byte, 32))
	tx = protowire.AppendTag(tx, 5, protowire.BytesType)
	tx = protowire.AppendBytes(tx, out)

	var block []byte
	block = protowire.AppendTag(block, 1, protowire.VarintType)
	block = protowire.AppendVarint(block, 100)
	block = protowire.AppendTag(block, 6, protowire.BytesType)
	block = protowire.AppendBytes(block, tx)

	_, err := DecodeBlock(block)
	require.Error(t, err)
	require.True(t, errors.Is(err, synerr.MalformedCompactRecord))
}

func TestDecodeBlockSkipsUnknownFields(t *testing.T) {
	var block []byte
	block = protowire.AppendTag(block, 1, protowire.VarintType)
	block = protowire.AppendVarint(block, 7)
	block = protowire.AppendTag(block, 7, protowire.BytesType) // chain_metadata, unmodeled
	block = protowire.AppendBytes(block, []byte("ignored"))

	got, err := DecodeBlock(block)
	require.NoError(t, err)
	require.Equal(t, uint64(7), got.Height)
	require.Empty(t, got.Vtx)
}
