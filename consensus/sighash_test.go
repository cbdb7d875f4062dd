package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSighashV0SingleBugQuirk(t *testing.T) {
	tx := &Tx{
		Version: 1,
		Inputs: []Input{
			{Prevout: Outpoint{Hash: H256{1}, Index: 0}, Sequence: 0xffffffff},
		},
		Outputs: nil, // zero outputs: SINGLE at index 0 has no matching output.
	}
	digest, err := SighashV0(tx, 0, []byte{0x51}, SighashSingle)
	require.NoError(t, err)
	want := H256{0x01}
	require.Equal(t, want, digest)
}

func TestSighashV0Deterministic(t *testing.T) {
	tx := sampleTx(false)
	d1, err := SighashV0(tx, 0, tx.Outputs[0].Script, SighashAll)
	require.NoError(t, err)
	d2, err := SighashV0(tx, 0, tx.Outputs[0].Script, SighashAll)
	require.NoError(t, err)
	require.Equal(t, d1, d2)
}

func TestSighashV1CacheConsistentWithUncached(t *testing.T) {
	tx := sampleTx(true)
	cache := &SighashCache{}
	d1, err := SighashV1(tx, 0, tx.Outputs[0].Script, 5000, SighashAll, cache)
	require.NoError(t, err)
	d2, err := SighashV1(tx, 0, tx.Outputs[0].Script, 5000, SighashAll, nil)
	require.NoError(t, err)
	require.Equal(t, d1, d2)
}

func TestSighashV0OutOfRangeInput(t *testing.T) {
	tx := sampleTx(false)
	_, err := SighashV0(tx, 5, nil, SighashAll)
	require.Error(t, err)
}
