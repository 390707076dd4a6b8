package compact

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/forestrie/shieldsync/synerr"
)

// DecodeBlock parses a length-delimited CompactBlock message per the wire
// schema in spec.md §6. Field numbers are normative; unknown fields are
// skipped so the decoder tolerates forward-compatible additions.
func DecodeBlock(b []byte) (Block, error) {
	var blk Block
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Block{}, fmt.Errorf("compact block: bad tag: %w", synerr.MalformedCompactRecord)
		}
		b = b[n:]
		switch num {
		case 1: // height
			v, n, err := protowire.ConsumeVarint(b)
			if err != nil {
				return Block{}, wrapConsume("compact block: height", err)
			}
			blk.Height = v
			b = b[n:]
		case 6: // vtx, repeated message
			msg, n, err := protowire.ConsumeBytes(b)
			if err != nil {
				return Block{}, wrapConsume("compact block: vtx", err)
			}
			tx, err := decodeTx(msg)
			if err != nil {
				return Block{}, err
			}
			blk.Vtx = append(blk.Vtx, tx)
			b = b[n:]
		default:
			n, err := skipField(typ, b)
			if err != nil {
				return Block{}, err
			}
			b = b[n:]
		}
	}
	return blk, nil
}

func decodeTx(b []byte) (Tx, error) {
	var tx Tx
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Tx{}, fmt.Errorf("compact tx: bad tag: %w", synerr.MalformedCompactRecord)
		}
		b = b[n:]
		switch num {
		case 1: // index
			v, n, err := protowire.ConsumeVarint(b)
			if err != nil {
				return Tx{}, wrapConsume("compact tx: index", err)
			}
			tx.Index = v
			b = b[n:]
		case 2: // hash (txid)
			v, n, err := protowire.ConsumeBytes(b)
			if err != nil {
				return Tx{}, wrapConsume("compact tx: hash", err)
			}
			if len(v) != 32 {
				return Tx{}, malformed("compact tx: hash", len(v), 32)
			}
			copy(tx.Txid[:], v)
			b = b[n:]
		case 4: // spends, repeated message
			msg, n, err := protowire.ConsumeBytes(b)
			if err != nil {
				return Tx{}, wrapConsume("compact tx: spend", err)
			}
			sp, err := decodeSpend(msg)
			if err != nil {
				return Tx{}, err
			}
			tx.Spends = append(tx.Spends, sp)
			b = b[n:]
		case 5: // outputs, repeated message
			msg, n, err := protowire.ConsumeBytes(b)
			if err != nil {
				return Tx{}, wrapConsume("compact tx: output", err)
			}
			out, err := decodeOutput(msg)
			if err != nil {
				return Tx{}, err
			}
			tx.Outputs = append(tx.Outputs, out)
			b = b[n:]
		case 6: // actions, repeated message
			msg, n, err := protowire.ConsumeBytes(b)
			if err != nil {
				return Tx{}, wrapConsume("compact tx: action", err)
			}
			act, err := decodeAction(msg)
			if err != nil {
				return Tx{}, err
			}
			tx.Actions = append(tx.Actions, act)
			b = b[n:]
		default:
			n, err := skipField(typ, b)
			if err != nil {
				return Tx{}, err
			}
			b = b[n:]
		}
	}
	return tx, nil
}

func decodeSpend(b []byte) (Spend, error) {
	var sp Spend
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Spend{}, fmt.Errorf("compact spend: bad tag: %w", synerr.MalformedCompactRecord)
		}
		b = b[n:]
		if num == 1 {
			v, n, err := protowire.ConsumeBytes(b)
			if err != nil {
				return Spend{}, wrapConsume("compact spend: nullifier", err)
			}
			if len(v) != 32 {
				return Spend{}, malformed("compact spend: nullifier", len(v), 32)
			}
			copy(sp.Nullifier[:], v)
			b = b[n:]
			continue
		}
		n, err := skipField(typ, b)
		if err != nil {
			return Spend{}, err
		}
		b = b[n:]
	}
	return sp, nil
}

func decodeOutput(b []byte) (Output, error) {
	var out Output
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Output{}, fmt.Errorf("compact output: bad tag: %w", synerr.MalformedCompactRecord)
		}
		b = b[n:]
		switch num {
		case 1: // cmu
			v, n, err := protowire.ConsumeBytes(b)
			if err != nil {
				return Output{}, wrapConsume("compact output: cmu", err)
			}
			if len(v) != 32 {
				return Output{}, malformed("compact output: cmu", len(v), 32)
			}
			copy(out.Cmu[:], v)
			b = b[n:]
		case 2: // ephemeralKey
			v, n, err := protowire.ConsumeBytes(b)
			if err != nil {
				return Output{}, wrapConsume("compact output: ephemeralKey", err)
			}
			if len(v) != 32 {
				return Output{}, malformed("compact output: ephemeralKey", len(v), 32)
			}
			copy(out.EphemeralKey[:], v)
			b = b[n:]
		case 3: // ciphertext
			v, n, err := protowire.ConsumeBytes(b)
			if err != nil {
				return Output{}, wrapConsume("compact output: ciphertext", err)
			}
			if len(v) != 52 {
				return Output{}, malformed("compact output: ciphertext", len(v), 52)
			}
			copy(out.Ciphertext[:], v)
			b = b[n:]
		default:
			n, err := skipField(typ, b)
			if err != nil {
				return Output{}, err
			}
			b = b[n:]
		}
	}
	return out, nil
}

func decodeAction(b []byte) (Action, error) {
	var act Action
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Action{}, fmt.Errorf("compact action: bad tag: %w", synerr.MalformedCompactRecord)
		}
		b = b[n:]
		switch num {
		case 1: // nullifier
			v, n, err := protowire.ConsumeBytes(b)
			if err != nil {
				return Action{}, wrapConsume("compact action: nullifier", err)
			}
			if len(v) != 32 {
				return Action{}, malformed("compact action: nullifier", len(v), 32)
			}
			copy(act.Nullifier[:], v)
			b = b[n:]
		case 2: // cmx
			v, n, err := protowire.ConsumeBytes(b)
			if err != nil {
				return Action{}, wrapConsume("compact action: cmx", err)
			}
			if len(v) != 32 {
				return Action{}, malformed("compact action: cmx", len(v), 32)
			}
			copy(act.Cmx[:], v)
			b = b[n:]
		case 3: // ephemeralKey
			v, n, err := protowire.ConsumeBytes(b)
			if err != nil {
				return Action{}, wrapConsume("compact action: ephemeralKey", err)
			}
			if len(v) != 32 {
				return Action{}, malformed("compact action: ephemeralKey", len(v), 32)
			}
			copy(act.EphemeralKey[:], v)
			b = b[n:]
		case 4: // ciphertext
			v, n, err := protowire.ConsumeBytes(b)
			if err != nil {
				return Action{}, wrapConsume("compact action: ciphertext", err)
			}
			if len(v) != 52 {
				return Action{}, malformed("compact action: ciphertext", len(v), 52)
			}
			copy(act.Ciphertext[:], v)
			b = b[n:]
		default:
			n, err := skipField(typ, b)
			if err != nil {
				return Action{}, err
			}
			b = b[n:]
		}
	}
	return act, nil
}

func skipField(typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(0, typ, b)
	if n < 0 {
		return 0, fmt.Errorf("compact: bad field value: %w", synerr.MalformedCompactRecord)
	}
	return n, nil
}

func wrapConsume(field string, err error) error {
	return fmt.Errorf("%s: %w: %w", field, err, synerr.MalformedCompactRecord)
}

// EncodeBlock is the inverse of DecodeBlock, used by test fixtures and the
// fake lwd.Client to construct wire-format blocks without depending on a
// real lightwalletd server.
func EncodeBlock(blk Block) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, blk.Height)
	for _, tx := range blk.Vtx {
		b = protowire.AppendTag(b, 6, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeTx(tx))
	}
	return b
}

func encodeTx(tx Tx) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, tx.Index)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, tx.Txid[:])
	for _, sp := range tx.Spends {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeSpend(sp))
	}
	for _, out := range tx.Outputs {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeOutput(out))
	}
	for _, act := range tx.Actions {
		b = protowire.AppendTag(b, 6, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeAction(act))
	}
	return b
}

func encodeSpend(sp Spend) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, sp.Nullifier[:])
	return b
}

func encodeOutput(out Output) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, out.Cmu[:])
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, out.EphemeralKey[:])
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, out.Ciphertext[:])
	return b
}

func encodeAction(act Action) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, act.Nullifier[:])
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, act.Cmx[:])
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, act.EphemeralKey[:])
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendBytes(b, act.Ciphertext[:])
	return b
}
