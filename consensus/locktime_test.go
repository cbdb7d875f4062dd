package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsFinalZeroLocktime(t *testing.T) {
	tx := &Tx{Locktime: 0}
	require.True(t, IsFinal(tx, 100, 1000))
}

func TestIsFinalAllMaxSequence(t *testing.T) {
	tx := &Tx{
		Locktime: 500,
		Inputs:   []Input{{Sequence: MaxTxInSequence}},
	}
	require.True(t, IsFinal(tx, 100, 1000))
}

func TestIsFinalNotYetReached(t *testing.T) {
	tx := &Tx{
		Locktime: 500,
		Inputs:   []Input{{Sequence: 0}},
	}
	require.False(t, IsFinal(tx, 100, 1000))
	require.True(t, IsFinal(tx, 600, 1000))
}

func TestVerifySequenceDisableFlag(t *testing.T) {
	tx := &Tx{Version: 2, Inputs: []Input{{Sequence: 5}}}
	require.True(t, VerifySequence(tx, 0, SequenceLockDisableFlag))
}

func TestVerifySequenceRequiresV2(t *testing.T) {
	tx := &Tx{Version: 1, Inputs: []Input{{Sequence: 5}}}
	require.False(t, VerifySequence(tx, 0, 5))
}

func TestVerifySequenceMaskComparison(t *testing.T) {
	tx := &Tx{Version: 2, Inputs: []Input{{Sequence: 10}}}
	require.True(t, VerifySequence(tx, 0, 5))
	require.False(t, VerifySequence(tx, 0, 20))
}
