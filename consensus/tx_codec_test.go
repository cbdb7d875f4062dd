package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleTx(witness bool) *Tx {
	tx := &Tx{
		Version: 2,
		Inputs: []Input{
			{Prevout: Outpoint{Hash: H256{1}, Index: 0}, Script: []byte{0x51}, Sequence: 0xffffffff},
		},
		Outputs: []Output{
			{Value: 5000, Script: []byte{0x76, 0xa9, 20, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 0x88, 0xac}},
		},
		Locktime: 0,
	}
	if witness {
		tx.Inputs[0].Witness = [][]byte{{0xde, 0xad}, {0xbe, 0xef}}
	}
	return tx
}

func TestReadWriteRoundTrip(t *testing.T) {
	for _, witness := range []bool{false, true} {
		tx := sampleTx(witness)
		encoded := Write(tx)
		decoded, n, err := Read(encoded)
		require.NoError(t, err)
		require.Equal(t, len(encoded), n)
		require.Equal(t, tx.Version, decoded.Version)
		require.Equal(t, tx.Locktime, decoded.Locktime)
		require.Equal(t, len(tx.Inputs), len(decoded.Inputs))
		require.Equal(t, tx.Inputs[0].Prevout, decoded.Inputs[0].Prevout)
		require.Equal(t, tx.Inputs[0].Script, decoded.Inputs[0].Script)
		require.Equal(t, tx.Inputs[0].Witness, decoded.Inputs[0].Witness)
		require.Equal(t, tx.Outputs, decoded.Outputs)
	}
}

func TestTxidWtxidEquivalence(t *testing.T) {
	witnessFree := sampleTx(false)
	require.Equal(t, Txid(witnessFree), Wtxid(witnessFree))

	withWitness := sampleTx(true)
	require.NotEqual(t, Txid(withWitness), Wtxid(withWitness))
}

func TestReadRejectsBadWitnessFlag(t *testing.T) {
	tx := sampleTx(true)
	encoded := Write(tx)
	// Corrupt the flag byte (index 5: version(4) + marker(1)).
	encoded[5] = 0x02
	_, _, err := Read(encoded)
	require.Error(t, err)
}

func TestReadRejectsZeroInputsNonZeroOutputsWithoutWitness(t *testing.T) {
	// version(4) + 0 inputs + 1 output + locktime, no marker/flag.
	buf := AppendU32le(nil, 2)
	buf = AppendCompactSize(buf, 0)
	buf = AppendCompactSize(buf, 1)
	buf = AppendU64le(buf, 1000)
	buf = AppendCompactSize(buf, 0)
	buf = AppendU32le(buf, 0)
	_, _, err := Read(buf)
	require.Error(t, err)
}
