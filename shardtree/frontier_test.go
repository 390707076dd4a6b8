package shardtree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forestrie/shieldsync/synerr"
)

func TestFrontierEncodeDecodeRoundTrip(t *testing.T) {
	const depth = 20
	fr := Frontier{
		Count:  0b10110,
		Leaf:   leafAt(99),
		Ommers: []H{leafAt(1), leafAt(2), leafAt(3)},
	}
	wire, err := EncodeFrontierV0(fr, depth)
	require.NoError(t, err)

	got, err := DecodeFrontierV0(wire, depth)
	require.NoError(t, err)
	require.Equal(t, fr, got)
}

func TestFrontierEncodeEmptyIsEightZeroBytes(t *testing.T) {
	wire, err := EncodeFrontierV0(Frontier{}, 10)
	require.NoError(t, err)
	require.Len(t, wire, 8)

	got, err := DecodeFrontierV0(wire, 10)
	require.NoError(t, err)
	require.True(t, got.IsEmpty())
}

func TestFrontierRejectsPositionBeyondCapacity(t *testing.T) {
	const depth = 4 // capacity 16
	fr := Frontier{Count: 17, Leaf: leafAt(1), Ommers: []H{leafAt(1)}}
	_, err := EncodeFrontierV0(fr, depth)
	require.ErrorIs(t, err, synerr.MalformedCompactRecord)
}

func TestFrontierDecodeRejectsOmmerCountMismatch(t *testing.T) {
	const depth = 20
	fr := Frontier{Count: 0b101, Leaf: leafAt(1), Ommers: []H{leafAt(1), leafAt(2)}}
	wire, err := EncodeFrontierV0(fr, depth)
	require.NoError(t, err)

	// Truncate one ommer off the end.
	corrupted := wire[:len(wire)-32]
	_, err = DecodeFrontierV0(corrupted, depth)
	require.ErrorIs(t, err, synerr.MalformedCompactRecord)
}
