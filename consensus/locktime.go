package consensus

// IsFinal reports whether tx is final at height h / median-time t (spec
// §4.1.7): locktime of zero, a locktime already passed (below h, or below
// t for a time-based locktime), or every input
// opting out of relative/absolute locktime via a max sequence number.
func IsFinal(tx *Tx, h uint32, t uint32) bool {
	if tx.Locktime == 0 {
		return true
	}
	threshold := h
	if tx.Locktime >= LocktimeThreshold {
		threshold = t
	}
	if tx.Locktime < threshold {
		return true
	}
	for _, in := range tx.Inputs {
		if in.Sequence != MaxTxInSequence {
			return false
		}
	}
	return true
}

// VerifyLocktime checks input i's opt-in to tx.Locktime against p, which
// must share its domain (block-height vs. unix-time) with tx.Locktime.
func VerifyLocktime(tx *Tx, i int, p uint32) bool {
	if i < 0 || i >= len(tx.Inputs) {
		return false
	}
	sameDomain := (tx.Locktime < LocktimeThreshold) == (p < LocktimeThreshold)
	if !sameDomain {
		return false
	}
	if p > tx.Locktime {
		return false
	}
	return tx.Inputs[i].Sequence != MaxTxInSequence
}

// VerifySequence checks input i's sequence against a BIP68-style relative
// locktime p, encoded with the same disable/type/mask bit layout as the
// input's own Sequence field (spec §4.1.7).
func VerifySequence(tx *Tx, i int, p uint32) bool {
	if p&SequenceLockDisableFlag != 0 {
		return true
	}
	if tx.Version < 2 {
		return false
	}
	if i < 0 || i >= len(tx.Inputs) {
		return false
	}
	seq := tx.Inputs[i].Sequence
	if seq&SequenceLockDisableFlag != 0 {
		return false
	}
	if (seq & SequenceLockTypeFlag) != (p & SequenceLockTypeFlag) {
		return false
	}
	return (p & SequenceLockMask) <= (seq & SequenceLockMask)
}
