package lwd

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/forestrie/shieldsync/synerr"
)

// Request/response message shapes for the four RPCs. These are hand-rolled
// the same way compact.DecodeBlock is (spec.md §6): field numbers are
// fixed, unknown fields are skipped.

func encodeBlockRangeRequest(start, end uint64) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, start)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, end)
	return b
}

func encodeHeightRequest(height uint64) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, height)
	return b
}

func encodeTxidRequest(txid [32]byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, txid[:])
	return b
}

// decodeTreeState parses a GetTreeState response: 1=height varint,
// 2=sapling_tree bytes, 3=orchard_tree bytes.
func decodeTreeState(b []byte) (TreeState, error) {
	var ts TreeState
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return TreeState{}, fmt.Errorf("tree state: bad tag: %w", synerr.MalformedCompactRecord)
		}
		b = b[n:]
		switch num {
		case 1:
			v, n, err := protowire.ConsumeVarint(b)
			if err != nil {
				return TreeState{}, fmt.Errorf("tree state: height: %w: %w", err, synerr.MalformedCompactRecord)
			}
			ts.Height = v
			b = b[n:]
		case 2:
			v, n, err := protowire.ConsumeBytes(b)
			if err != nil {
				return TreeState{}, fmt.Errorf("tree state: sapling_tree: %w: %w", err, synerr.MalformedCompactRecord)
			}
			ts.SaplingTree = append([]byte(nil), v...)
			b = b[n:]
		case 3:
			v, n, err := protowire.ConsumeBytes(b)
			if err != nil {
				return TreeState{}, fmt.Errorf("tree state: orchard_tree: %w: %w", err, synerr.MalformedCompactRecord)
			}
			ts.OrchardTree = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return TreeState{}, fmt.Errorf("tree state: bad field value: %w", synerr.MalformedCompactRecord)
			}
			b = b[n:]
		}
	}
	ts.Present = true
	return ts, nil
}

// decodeLatestBlock parses a GetLatestBlock response: 1=height varint.
func decodeLatestBlock(b []byte) (uint64, error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return 0, fmt.Errorf("latest block: bad tag: %w", synerr.MalformedCompactRecord)
		}
		b = b[n:]
		if num == 1 {
			v, n, err := protowire.ConsumeVarint(b)
			if err != nil {
				return 0, fmt.Errorf("latest block: height: %w: %w", err, synerr.MalformedCompactRecord)
			}
			return v, nil
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return 0, fmt.Errorf("latest block: bad field value: %w", synerr.MalformedCompactRecord)
		}
		b = b[n:]
	}
	return 0, fmt.Errorf("latest block: missing height field: %w", synerr.MalformedCompactRecord)
}
