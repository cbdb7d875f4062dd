package store

import (
	"encoding/hex"
	"math/big"

	"github.com/LinuXperia/mako/consensus"
)

// GenesisParams names the network-specific constants ChainStore.Open needs
// to bootstrap an empty chain directory (spec §4.3.1 step 7): the genesis
// block itself, and a chain identifier used only for the on-disk directory
// layout (datadir/chains/<chain_id_hex>/, grounded on the teacher's own
// multi-chain-directory storage model).
type GenesisParams struct {
	Name        string
	ChainIDHex  string
	Block       consensus.Block
	InitialWork *big.Int // chainwork of the genesis block itself
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic("store: invalid genesis hex literal: " + err.Error())
	}
	return b
}

func mustH256(s string) consensus.H256 {
	b := mustHex(s)
	if len(b) != 32 {
		panic("store: genesis hash literal must be 32 bytes")
	}
	var h consensus.H256
	// The literal below is written in the conventional big-endian display
	// order; H256 stores little-endian wire order, so reverse on load.
	for i, v := range b {
		h[31-i] = v
	}
	return h
}

// MainNetGenesis reconstructs the historical Bitcoin mainnet genesis block
// byte-for-byte (spec S1): one coinbase transaction paying 50 BTC to
// Satoshi Nakamoto's well-known genesis pubkey, timestamped with the
// Times headline embedded in its scriptSig. BlockHash of the returned
// block is 000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f.
func MainNetGenesis() GenesisParams {
	coinbaseScript := mustHex("04ffff001d0104455468652054696d65732030332f4a616e2f32303039204368616e63656c6c6f72206f6e206272696e6b206f66207365636f6e64206261696c6f757420666f722062616e6b73")
	outputScript := mustHex("4104678afdb0fe5548271967f1a67130b7105cd6a828e03909a67962e0ea1f61deb649f6bc3f4cef38c4f35504e51ec112de5c384df7ba0b8d578a4c702b6bf11d5fac")

	coinbase := consensus.Tx{
		Version: 1,
		Inputs: []consensus.Input{{
			Prevout:  consensus.Outpoint{Hash: consensus.H256{}, Index: consensus.NullVout},
			Script:   coinbaseScript,
			Sequence: consensus.MaxTxInSequence,
		}},
		Outputs: []consensus.Output{{
			Value:  50 * 100_000_000,
			Script: outputScript,
		}},
		Locktime: 0,
	}

	header := consensus.BlockHeader{
		Version:    1,
		PrevBlock:  consensus.H256{},
		MerkleRoot: mustH256("4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"),
		Time:       1231006505,
		Bits:       0x1d00ffff,
		Nonce:      2083236893,
	}

	work, err := WorkFromBits(header.Bits)
	if err != nil {
		panic("store: genesis work: " + err.Error())
	}

	return GenesisParams{
		Name:       "mainnet",
		ChainIDHex: "f9beb4d9",
		Block: consensus.Block{
			Header: header,
			Txs:    []consensus.Tx{coinbase},
		},
		InitialWork: work,
	}
}
