package store

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/LinuXperia/mako/consensus"
)

func testGenesis() GenesisParams {
	return MainNetGenesis()
}

func openTestStore(t *testing.T) (*ChainStore, string) {
	t.Helper()
	dir := t.TempDir()
	cs, err := Open(dir, testGenesis(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return cs, dir
}

func TestOpenBootstrapsGenesis(t *testing.T) {
	cs, _ := openTestStore(t)
	defer cs.Close()

	tip, ok := cs.Tip()
	require.True(t, ok)
	require.Equal(t, uint32(0), tip.Height)
	require.Equal(t, "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f", tip.Hash.String())
	require.Equal(t, uint32(0), cs.Height())

	at0, ok := cs.EntryAtHeight(0)
	require.True(t, ok)
	require.Equal(t, tip.Hash, at0.Hash)

	block, err := cs.ReadBlock(tip)
	require.NoError(t, err)
	require.Len(t, block.Txs, 1)
	require.True(t, block.Txs[0].IsCoinbase())
}

// childBlock builds a single-coinbase block extending parent, paying its
// subsidy to a fresh, unspendable-but-well-formed output script so tests
// don't need real signing to exercise Connect's coin-set bookkeeping.
func childBlock(parent consensus.H256, height uint32, nonce uint32) *consensus.Block {
	coinbase := consensus.Tx{
		Version: 1,
		Inputs: []consensus.Input{{
			Prevout:  consensus.Outpoint{Hash: consensus.H256{}, Index: consensus.NullVout},
			Script:   []byte{0x01, byte(height)},
			Sequence: consensus.MaxTxInSequence,
		}},
		Outputs: []consensus.Output{{
			Value:  50 * 100_000_000,
			Script: []byte{0x51}, // OP_TRUE-ish placeholder script, never evaluated by these tests
		}},
	}
	return &consensus.Block{
		Header: consensus.BlockHeader{
			Version:   1,
			PrevBlock: parent,
			Time:      1231006505 + height*600,
			Bits:      0x1d00ffff,
			Nonce:     nonce,
		},
		Txs: []consensus.Tx{coinbase},
	}
}

func TestConnectAppendsTipAndCoin(t *testing.T) {
	cs, _ := openTestStore(t)
	defer cs.Close()

	genesis, _ := cs.Tip()
	b1 := childBlock(genesis.Hash, 1, 1)

	view := consensus.NewMapView()
	txid := consensus.Txid(&b1.Txs[0])
	view.Set(consensus.Outpoint{Hash: txid, Index: 0}, consensus.Coin{
		Output: b1.Txs[0].Outputs[0], Height: 1, Coinbase: true,
	})

	work := big.NewInt(1)
	entry, err := cs.Connect(b1, new(big.Int).Add(genesis.Chainwork, work), view)
	require.NoError(t, err)
	require.Equal(t, uint32(1), entry.Height)

	tip, _ := cs.Tip()
	require.Equal(t, entry.Hash, tip.Hash)
	require.Equal(t, uint32(1), cs.Height())

	spendView := consensus.NewMapView()
	resolved, err := cs.Spend(spendView, &consensus.Tx{
		Inputs: []consensus.Input{{Prevout: consensus.Outpoint{Hash: txid, Index: 0}}},
	})
	require.NoError(t, err)
	require.True(t, resolved[0])
}

func TestReorgSideChainReconnectDisconnect(t *testing.T) {
	cs, _ := openTestStore(t)
	defer cs.Close()

	genesis, _ := cs.Tip()

	// Main chain: genesis -> a1.
	a1 := childBlock(genesis.Hash, 1, 1)
	a1View := consensus.NewMapView()
	a1Entry, err := cs.Connect(a1, big.NewInt(2), a1View)
	require.NoError(t, err)

	// Competing side-chain block at the same height, saved but not active.
	b1 := childBlock(genesis.Hash, 1, 2)
	b1Entry, err := cs.SaveSideChain(b1, big.NewInt(3))
	require.NoError(t, err)
	require.NotEqual(t, a1Entry.Hash, b1Entry.Hash)

	tip, _ := cs.Tip()
	require.Equal(t, a1Entry.Hash, tip.Hash, "side-chain save must not move the tip")
	require.Equal(t, uint32(1), cs.Height())

	// Reorg: disconnect a1, then reconnect b1.
	disconnectedView, err := cs.Disconnect()
	require.NoError(t, err)
	require.NotNil(t, disconnectedView)

	tip, _ = cs.Tip()
	require.Equal(t, genesis.Hash, tip.Hash)
	require.Equal(t, uint32(0), cs.Height())

	b1View := consensus.NewMapView()
	reconnected, err := cs.Reconnect(b1Entry.Hash, b1, b1View)
	require.NoError(t, err)
	require.Equal(t, uint32(1), reconnected.Height)

	tip, _ = cs.Tip()
	require.Equal(t, b1Entry.Hash, tip.Hash)

	// a1 is still indexed (as a side-chain entry now) even though inactive.
	stale, ok := cs.EntryByHash(a1Entry.Hash)
	require.True(t, ok)
	require.Equal(t, uint32(1), stale.Height)
}

func TestDisconnectRejectsGenesis(t *testing.T) {
	cs, _ := openTestStore(t)
	defer cs.Close()

	_, err := cs.Disconnect()
	require.Error(t, err)
}

// fixedClock lets tests force the "always fsync" branch of shouldSync
// deterministically instead of depending on the wall clock.
type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestReopenToleratesTrailingUncommittedBytes(t *testing.T) {
	cs, dir := openTestStore(t)
	genesis, _ := cs.Tip()

	b1 := childBlock(genesis.Hash, 1, 7)
	view := consensus.NewMapView()
	entry, err := cs.Connect(b1, big.NewInt(2), view)
	require.NoError(t, err)
	require.NoError(t, cs.Close())

	// Simulate a crash that left bytes on disk past the last committed
	// watermark (spec §8 S6): append garbage to the active block file. Open
	// must treat this as harmless trailing data, not a fatal inconsistency.
	chainDir := ChainDir(dir, testGenesis().ChainIDHex)
	path := blockFilePath(filepath.Join(chainDir, "blocks"), entry.BlockFile)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o600)
	require.NoError(t, err)
	_, err = f.Write([]byte{0xde, 0xad, 0xbe, 0xef})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reopened, err := Open(dir, testGenesis(), zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	tip, ok := reopened.Tip()
	require.True(t, ok)
	require.Equal(t, entry.Hash, tip.Hash)
	require.Equal(t, uint32(1), tip.Height)
}

func TestOpenFatalsOnTruncatedBlockFile(t *testing.T) {
	cs, dir := openTestStore(t)
	genesis, _ := cs.Tip()
	b1 := childBlock(genesis.Hash, 1, 9)
	view := consensus.NewMapView()
	_, err := cs.Connect(b1, big.NewInt(2), view)
	require.NoError(t, err)
	require.NoError(t, cs.Close())

	chainDir := ChainDir(dir, testGenesis().ChainIDHex)
	path := blockFilePath(filepath.Join(chainDir, "blocks"), 0)
	require.NoError(t, os.Truncate(path, 4))

	_, err = Open(dir, testGenesis(), zap.NewNop())
	require.Error(t, err)
}
