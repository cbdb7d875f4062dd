package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckSanityRejectsEmptyInputs(t *testing.T) {
	tx := &Tx{Outputs: []Output{{Value: 1}}}
	err := CheckSanity(tx)
	require.Error(t, err)
	require.Equal(t, 100, err.(*TxError).BanScore)
}

func TestCheckSanityRejectsDuplicateOutpoint(t *testing.T) {
	o := Outpoint{Hash: H256{1}, Index: 0}
	tx := &Tx{
		Inputs:  []Input{{Prevout: o}, {Prevout: o}},
		Outputs: []Output{{Value: 1}},
	}
	require.Error(t, CheckSanity(tx))
}

func TestCheckSanityRejectsOutOfRangeValue(t *testing.T) {
	tx := &Tx{
		Inputs:  []Input{{Prevout: Outpoint{Hash: H256{1}}}},
		Outputs: []Output{{Value: MaxMoney + 1}},
	}
	require.Error(t, CheckSanity(tx))
}

func TestCheckSanityAcceptsOrdinaryTx(t *testing.T) {
	tx := sampleTx(false)
	require.NoError(t, CheckSanity(tx))
}

func TestCheckInputsMissingCoinIsRecoverable(t *testing.T) {
	tx := sampleTx(false)
	view := NewMapView()
	_, err := CheckInputs(tx, view, 100)
	require.Error(t, err)
	te := err.(*TxError)
	require.Equal(t, 0, te.BanScore)
}

func TestCheckInputsImmatureCoinbase(t *testing.T) {
	tx := sampleTx(false)
	view := NewMapView()
	view.AddCoin(tx.Inputs[0].Prevout, Coin{Output: Output{Value: 10000}, Height: 100, Coinbase: true})
	_, err := CheckInputs(tx, view, 150)
	require.Error(t, err)
}

func TestCheckInputsComputesFee(t *testing.T) {
	tx := sampleTx(false)
	view := NewMapView()
	view.AddCoin(tx.Inputs[0].Prevout, Coin{Output: Output{Value: 6000}, Height: 1})
	fee, err := CheckInputs(tx, view, 200)
	require.NoError(t, err)
	require.Equal(t, int64(1000), fee)
}

func TestCheckInputsRejectsOutputsExceedInputs(t *testing.T) {
	tx := sampleTx(false)
	view := NewMapView()
	view.AddCoin(tx.Inputs[0].Prevout, Coin{Output: Output{Value: 10}, Height: 1})
	_, err := CheckInputs(tx, view, 200)
	require.Error(t, err)
	require.Equal(t, 100, err.(*TxError).BanScore)
}
