package consensus

// witMarker/witFlag are the two bytes Bitcoin's segwit serialization
// inserts immediately after Version to signal "witness form follows".
const (
	witMarker = 0x00
	witFlag   = 0x01
)

// Txid computes the canonical, non-witness identification hash: the
// double-SHA-256 of Write(tx, withWitness=false).
func Txid(tx *Tx) H256 {
	return H256(Crypto.Hash256(writeTx(tx, false)))
}

// Wtxid computes the witness identification hash. For a witness-free tx
// it is identical to Txid; otherwise it double-SHA-256-hashes the witness
// serialization.
func Wtxid(tx *Tx) H256 {
	if !tx.HasWitness() {
		return Txid(tx)
	}
	return H256(Crypto.Hash256(writeTx(tx, true)))
}

// Write serializes tx, emitting the witness form iff any input carries a
// non-empty witness stack (spec §4.1.1).
func Write(tx *Tx) []byte {
	return writeTx(tx, tx.HasWitness())
}

func writeTx(tx *Tx, witness bool) []byte {
	out := make([]byte, 0, 256)
	out = AppendU32le(out, tx.Version)
	if witness {
		out = append(out, witMarker, witFlag)
	}
	out = AppendCompactSize(out, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		out = append(out, in.Prevout.Hash[:]...)
		out = AppendU32le(out, in.Prevout.Index)
		out = AppendCompactSize(out, uint64(len(in.Script)))
		out = append(out, in.Script...)
		out = AppendU32le(out, in.Sequence)
	}
	out = AppendCompactSize(out, uint64(len(tx.Outputs)))
	for _, o := range tx.Outputs {
		out = AppendU64le(out, uint64(o.Value))
		out = AppendCompactSize(out, uint64(len(o.Script)))
		out = append(out, o.Script...)
	}
	if witness {
		for _, in := range tx.Inputs {
			out = AppendCompactSize(out, uint64(len(in.Witness)))
			for _, item := range in.Witness {
				out = AppendCompactSize(out, uint64(len(item)))
				out = append(out, item...)
			}
		}
	}
	out = AppendU32le(out, tx.Locktime)
	return out
}

// Read parses a transaction in either serialization form, recognized by
// the marker/flag pair 0x00 0x01 immediately following Version (spec
// §4.1.1). Any other non-zero byte in the marker position is a parse
// error; a tx with zero inputs and non-zero outputs is rejected as
// unrepresentable in witness form while preserving txid.
func Read(b []byte) (*Tx, int, error) {
	off := 0
	tx := &Tx{}

	v, err := readU32le(b, &off)
	if err != nil {
		return nil, 0, err
	}
	tx.Version = v

	witness := false
	save := off
	if maybeMarker, perr := readU8(b, &off); perr == nil && maybeMarker == witMarker {
		flag, ferr := readU8(b, &off)
		if ferr != nil {
			return nil, 0, ferr
		}
		if flag == 0 {
			return nil, 0, txerr(ErrParse, "zero flag byte after witness marker")
		}
		if flag != witFlag {
			return nil, 0, txerr(ErrParse, "unsupported non-zero witness flag")
		}
		witness = true
	} else {
		off = save
	}

	nIn, err := readCompactSizeInt(b, &off)
	if err != nil {
		return nil, 0, err
	}
	tx.Inputs = make([]Input, nIn)
	for i := 0; i < nIn; i++ {
		hashBytes, err := readBytes(b, &off, 32)
		if err != nil {
			return nil, 0, err
		}
		var h H256
		copy(h[:], hashBytes)
		index, err := readU32le(b, &off)
		if err != nil {
			return nil, 0, err
		}
		scriptLen, err := readCompactSizeInt(b, &off)
		if err != nil {
			return nil, 0, err
		}
		script, err := readBytes(b, &off, scriptLen)
		if err != nil {
			return nil, 0, err
		}
		seq, err := readU32le(b, &off)
		if err != nil {
			return nil, 0, err
		}
		tx.Inputs[i] = Input{
			Prevout:  Outpoint{Hash: h, Index: index},
			Script:   append([]byte(nil), script...),
			Sequence: seq,
		}
	}

	nOut, err := readCompactSizeInt(b, &off)
	if err != nil {
		return nil, 0, err
	}
	if nIn == 0 && nOut != 0 {
		return nil, 0, txerr(ErrParse, "zero inputs with non-zero outputs is unrepresentable in witness form")
	}
	tx.Outputs = make([]Output, nOut)
	for i := 0; i < nOut; i++ {
		val, err := readU64le(b, &off)
		if err != nil {
			return nil, 0, err
		}
		scriptLen, err := readCompactSizeInt(b, &off)
		if err != nil {
			return nil, 0, err
		}
		script, err := readBytes(b, &off, scriptLen)
		if err != nil {
			return nil, 0, err
		}
		tx.Outputs[i] = Output{Value: int64(val), Script: append([]byte(nil), script...)}
	}

	if witness {
		for i := 0; i < nIn; i++ {
			nItems, err := readCompactSizeInt(b, &off)
			if err != nil {
				return nil, 0, err
			}
			items := make([][]byte, nItems)
			for j := 0; j < nItems; j++ {
				itemLen, err := readCompactSizeInt(b, &off)
				if err != nil {
					return nil, 0, err
				}
				item, err := readBytes(b, &off, itemLen)
				if err != nil {
					return nil, 0, err
				}
				items[j] = append([]byte(nil), item...)
			}
			tx.Inputs[i].Witness = items
		}
	}

	lt, err := readU32le(b, &off)
	if err != nil {
		return nil, 0, err
	}
	tx.Locktime = lt

	return tx, off, nil
}

func readCompactSizeInt(b []byte, off *int) (int, error) {
	v, _, err := readCompactSize(b, off)
	if err != nil {
		return 0, err
	}
	return toIntLen(v, "compactsize")
}
