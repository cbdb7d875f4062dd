package consensus

// CheckSanity validates tx in isolation, without reference to the UTXO
// set (spec §4.1.6). A non-nil error is always a *TxError of kind
// ErrConsensusReject carrying the ban score the caller's peer-scoring
// collaborator should apply.
func CheckSanity(tx *Tx) error {
	if len(tx.Inputs) == 0 {
		return reject(100, "tx has no inputs")
	}
	if len(tx.Outputs) == 0 {
		return reject(100, "tx has no outputs")
	}
	if BaseSize(tx) > MaxBlockSize {
		return reject(100, "tx base size exceeds MaxBlockSize")
	}

	var total int64
	for _, o := range tx.Outputs {
		if o.Value < 0 || o.Value > MaxMoney {
			return reject(100, "output value out of range")
		}
		sum, err := addInt64(total, o.Value)
		if err != nil || sum > MaxMoney {
			return reject(100, "output value sum overflows MaxMoney")
		}
		total = sum
	}

	seen := make(map[Outpoint]struct{}, len(tx.Inputs))
	for _, in := range tx.Inputs {
		if _, dup := seen[in.Prevout]; dup {
			return reject(100, "duplicate outpoint across inputs")
		}
		seen[in.Prevout] = struct{}{}
	}

	if tx.IsCoinbase() {
		l := len(tx.Inputs[0].Script)
		if l < 2 || l > 100 {
			return reject(100, "coinbase script length out of range [2,100]")
		}
	} else {
		for _, in := range tx.Inputs {
			if in.Prevout.IsNull() {
				return reject(10, "non-coinbase tx has a null prevout")
			}
		}
	}

	return nil
}

// CheckInputs validates tx's inputs against view at the given spend
// height (spec §4.1.6). Missing or immature inputs are recoverable
// (score 0, caller may retry once the coin arrives); everything else is
// a hard consensus rejection.
func CheckInputs(tx *Tx, view View, height uint32) (fee int64, err error) {
	if tx.IsCoinbase() {
		return 0, nil
	}

	var totalIn int64
	for _, in := range tx.Inputs {
		coin, ok := view.ResolveCoin(in.Prevout)
		if !ok {
			return 0, reject(0, "missing or already-spent input %s:%d", in.Prevout.Hash, in.Prevout.Index)
		}
		if coin.Coinbase && height-coin.Height < CoinbaseMaturity {
			return 0, reject(0, "coinbase spend before maturity")
		}
		if coin.Output.Value < 0 || coin.Output.Value > MaxMoney {
			return 0, reject(100, "coin value out of range")
		}
		sum, oerr := addInt64(totalIn, coin.Output.Value)
		if oerr != nil || sum > MaxMoney {
			return 0, reject(100, "input value sum overflows MaxMoney")
		}
		totalIn = sum
	}

	var totalOut int64
	for _, o := range tx.Outputs {
		sum, oerr := addInt64(totalOut, o.Value)
		if oerr != nil {
			return 0, reject(100, "output value sum overflow")
		}
		totalOut = sum
	}

	if totalOut > totalIn {
		return 0, reject(100, "outputs exceed inputs")
	}

	fee = totalIn - totalOut
	if fee < 0 || fee > MaxMoney {
		return 0, reject(100, "fee out of range")
	}

	return fee, nil
}
