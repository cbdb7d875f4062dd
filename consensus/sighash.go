package consensus

// opCodeSeparator is the legacy script opcode sighash v0 strips from the
// previous output's script before hashing (spec §4.1.3 step 2).
const opCodeSeparator = 0xab

// stripCodeSeparators removes every OP_CODESEPARATOR byte from s. It does
// not otherwise parse the script; this mirrors the reference
// implementation's naive byte-level strip rather than a push-data-aware
// scan, which is also what real sighash v0 computation requires (data
// pushes that merely contain the byte 0xab are never present in a valid
// script at the position a bare opcode would occupy, since this package
// never evaluates push-data lengths here — the caller's script engine is
// responsible for script validity).
func stripCodeSeparators(s []byte) []byte {
	out := make([]byte, 0, len(s))
	for _, b := range s {
		if b == opCodeSeparator {
			continue
		}
		out = append(out, b)
	}
	return out
}

// SighashV0 computes the legacy (pre-segwit) sighash digest for input i of
// tx against prevScript, under sighash type t (spec §4.1.3).
func SighashV0(tx *Tx, i int, prevScript []byte, t uint32) (H256, error) {
	if tx == nil || i < 0 || i >= len(tx.Inputs) {
		return H256{}, txerr(ErrSighashInput, "sighash v0: input index out of range")
	}

	base := t & sighashBaseMask
	if base == SighashSingle && i >= len(tx.Outputs) {
		var out H256
		out[0] = 0x01
		return out, nil
	}

	anyoneCanPay := t&SighashAnyoneCanPay != 0
	strippedScript := stripCodeSeparators(prevScript)

	copyTx := Tx{
		Version:  tx.Version,
		Locktime: tx.Locktime,
	}

	if anyoneCanPay {
		copyTx.Inputs = []Input{{
			Prevout:  tx.Inputs[i].Prevout,
			Script:   strippedScript,
			Sequence: tx.Inputs[i].Sequence,
		}}
	} else {
		copyTx.Inputs = make([]Input, len(tx.Inputs))
		for j, in := range tx.Inputs {
			if j == i {
				copyTx.Inputs[j] = Input{Prevout: in.Prevout, Script: strippedScript, Sequence: in.Sequence}
				continue
			}
			seq := in.Sequence
			if base == SighashNone || base == SighashSingle {
				seq = 0
			}
			copyTx.Inputs[j] = Input{Prevout: in.Prevout, Script: nil, Sequence: seq}
		}
	}

	switch base {
	case SighashNone:
		copyTx.Outputs = nil
	case SighashSingle:
		copyTx.Outputs = make([]Output, i+1)
		for j := 0; j < i; j++ {
			copyTx.Outputs[j] = Output{Value: -1, Script: nil}
		}
		copyTx.Outputs[i] = tx.Outputs[i]
	default:
		copyTx.Outputs = tx.Outputs
	}

	preimage := writeTx(&copyTx, false)
	preimage = AppendU32le(preimage, t)

	return H256(Crypto.Hash256(preimage)), nil
}

// SighashCache memoizes the three per-tx BIP143 aggregate hashes across
// multiple input-index calls to SighashV1. It must not be reused across
// distinct Tx values; a fresh cache belongs to exactly one tx.
type SighashCache struct {
	prevouts  H256
	hasPrev   bool
	sequences H256
	hasSeq    bool
	outputs   H256
	hasOut    bool
}

func (c *SighashCache) hashPrevouts(tx *Tx) H256 {
	if c != nil && c.hasPrev {
		return c.prevouts
	}
	buf := make([]byte, 0, len(tx.Inputs)*36)
	for _, in := range tx.Inputs {
		buf = append(buf, in.Prevout.Hash[:]...)
		buf = AppendU32le(buf, in.Prevout.Index)
	}
	h := H256(Crypto.Hash256(buf))
	if c != nil {
		c.prevouts, c.hasPrev = h, true
	}
	return h
}

func (c *SighashCache) hashSequences(tx *Tx) H256 {
	if c != nil && c.hasSeq {
		return c.sequences
	}
	buf := make([]byte, 0, len(tx.Inputs)*4)
	for _, in := range tx.Inputs {
		buf = AppendU32le(buf, in.Sequence)
	}
	h := H256(Crypto.Hash256(buf))
	if c != nil {
		c.sequences, c.hasSeq = h, true
	}
	return h
}

func (c *SighashCache) hashOutputs(tx *Tx) H256 {
	if c != nil && c.hasOut {
		return c.outputs
	}
	buf := make([]byte, 0, len(tx.Outputs)*64)
	for _, o := range tx.Outputs {
		buf = AppendU64le(buf, uint64(o.Value))
		buf = AppendCompactSize(buf, uint64(len(o.Script)))
		buf = append(buf, o.Script...)
	}
	h := H256(Crypto.Hash256(buf))
	if c != nil {
		c.outputs, c.hasOut = h, true
	}
	return h
}

// SighashV1 computes the BIP143 segwit sighash digest for input i of tx,
// given the prevout's script and value, under sighash type t (spec
// §4.1.4). cache may be nil; passing the same cache across inputs of the
// same tx avoids recomputing the three aggregate hashes.
func SighashV1(tx *Tx, i int, prevScript []byte, value int64, t uint32, cache *SighashCache) (H256, error) {
	if tx == nil || i < 0 || i >= len(tx.Inputs) {
		return H256{}, txerr(ErrSighashInput, "sighash v1: input index out of range")
	}

	base := t & sighashBaseMask
	anyoneCanPay := t&SighashAnyoneCanPay != 0

	var hashPrevouts, hashSequences H256
	if !anyoneCanPay {
		hashPrevouts = cache.hashPrevouts(tx)
		if base != SighashSingle && base != SighashNone {
			hashSequences = cache.hashSequences(tx)
		}
	}

	var hashOutputs H256
	switch {
	case base != SighashSingle && base != SighashNone:
		hashOutputs = cache.hashOutputs(tx)
	case base == SighashSingle && i < len(tx.Outputs):
		o := tx.Outputs[i]
		buf := AppendU64le(nil, uint64(o.Value))
		buf = AppendCompactSize(buf, uint64(len(o.Script)))
		buf = append(buf, o.Script...)
		hashOutputs = H256(Crypto.Hash256(buf))
	}

	in := tx.Inputs[i]

	preimage := make([]byte, 0, 200)
	preimage = AppendU32le(preimage, tx.Version)
	preimage = append(preimage, hashPrevouts[:]...)
	preimage = append(preimage, hashSequences[:]...)
	preimage = append(preimage, in.Prevout.Hash[:]...)
	preimage = AppendU32le(preimage, in.Prevout.Index)
	preimage = AppendCompactSize(preimage, uint64(len(prevScript)))
	preimage = append(preimage, prevScript...)
	preimage = AppendU64le(preimage, uint64(value))
	preimage = AppendU32le(preimage, in.Sequence)
	preimage = append(preimage, hashOutputs[:]...)
	preimage = AppendU32le(preimage, tx.Locktime)
	preimage = AppendU32le(preimage, t)

	return H256(Crypto.Hash256(preimage)), nil
}
