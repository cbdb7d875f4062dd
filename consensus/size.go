package consensus

// BaseSize returns the length of the non-witness serialization.
func BaseSize(tx *Tx) int {
	return len(writeTx(tx, false))
}

// WitnessSize returns 2 (marker+flag) plus the total length of every
// input's witness stack, or 0 for a witness-free tx.
func WitnessSize(tx *Tx) int {
	if !tx.HasWitness() {
		return 0
	}
	n := 2
	for _, in := range tx.Inputs {
		n += len(EncodeCompactSize(uint64(len(in.Witness))))
		for _, item := range in.Witness {
			n += len(EncodeCompactSize(uint64(len(item)))) + len(item)
		}
	}
	return n
}

// Weight is base*4 + witness, per BIP-141.
func Weight(tx *Tx) int {
	return BaseSize(tx)*4 + WitnessSize(tx)
}

// VSize is the weight rounded up to the nearest whole vbyte.
func VSize(tx *Tx) int {
	w := Weight(tx)
	return (w + 3) / 4
}

// SigopsSize folds a legacy sigop count into the weight-denominated size
// Bitcoin Core uses for block-size accounting: ceil(max(weight,
// sigops*BytesPerSigop)/4).
func SigopsSize(tx *Tx, sigops int) int {
	w := Weight(tx)
	scaled := sigops * BytesPerSigop
	if scaled > w {
		w = scaled
	}
	return (w + 3) / 4
}
