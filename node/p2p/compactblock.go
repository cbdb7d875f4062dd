// Package p2p implements the BIP-152 compact block reconstruction state
// machine (CompactBlockCodec): sender-side construction of a CompactBlock
// from a full block, and receiver-side setup / request / fill / finalize
// against a peer's short-ID list and follow-up BlockTxn response.
package p2p

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/LinuXperia/mako/consensus"
)

// ShortIDBytes is the wire width of one BIP-152 short transaction ID.
const ShortIDBytes = 6

// ShortID is a 48-bit SipHash-2-4 fingerprint of a transaction's (w)txid
// under a per-block key (spec §4.2.1).
type ShortID uint64

func (s ShortID) wireBytes() [ShortIDBytes]byte {
	var out [ShortIDBytes]byte
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(s))
	copy(out[:4], tmp[:4])
	copy(out[4:], tmp[4:6])
	return out
}

func shortIDFromWire(b [ShortIDBytes]byte) ShortID {
	var tmp [8]byte
	copy(tmp[:4], b[:4])
	copy(tmp[4:6], b[4:])
	return ShortID(binary.LittleEndian.Uint64(tmp[:]))
}

// PrefilledTx wraps a transaction the sender chose to include inline in a
// CompactBlock, carrying its wire-encoded position delta rather than an
// absolute index (the absolute position is a property of the codec
// exchange, not of the transaction itself — see the design note on
// keeping this field out of the canonical Tx model).
type PrefilledTx struct {
	Delta uint64
	Tx    consensus.Tx
}

// CompactBlock is the BIP-152 `cmpctblock` payload.
type CompactBlock struct {
	Header    consensus.BlockHeader
	KeyNonce  uint64
	IDs       []ShortID
	Prefilled []PrefilledTx
}

// sipKey derives the 128-bit SipHash key from the block header and the
// chosen key nonce (spec §4.2.1): SHA-256(header ‖ key_nonce_le),
// truncated to the first 16 bytes, split into two little-endian uint64s.
func sipKey(header consensus.BlockHeader, nonce uint64) (k0, k1 uint64) {
	buf := consensus.WriteHeader(header)
	var nonceBytes [8]byte
	binary.LittleEndian.PutUint64(nonceBytes[:], nonce)
	buf = append(buf, nonceBytes[:]...)
	digest := consensus.Crypto.SHA256(buf)
	k0 = binary.LittleEndian.Uint64(digest[0:8])
	k1 = binary.LittleEndian.Uint64(digest[8:16])
	return
}

func shortIDFor(header consensus.BlockHeader, nonce uint64, hash consensus.H256) ShortID {
	k0, k1 := sipKey(header, nonce)
	return ShortID(consensus.Crypto.SipHash24(k0, k1, hash[:]) & 0xffffffffffff)
}

// BuildCompactBlock constructs the sender-side CompactBlock for block
// (spec §4.2.2): the coinbase is always prefilled; every other
// transaction is represented by its short ID (wtxid-keyed when it
// carries a witness, txid-keyed otherwise).
func BuildCompactBlock(block *consensus.Block) (*CompactBlock, error) {
	if len(block.Txs) == 0 {
		return nil, fmt.Errorf("p2p: cannot build compact block from empty tx list")
	}
	var nonceBytes [8]byte
	if _, err := rand.Read(nonceBytes[:]); err != nil {
		return nil, fmt.Errorf("p2p: reading key nonce: %w", err)
	}
	nonce := binary.LittleEndian.Uint64(nonceBytes[:])

	cb := &CompactBlock{
		Header:   block.Header,
		KeyNonce: nonce,
		Prefilled: []PrefilledTx{
			{Delta: 0, Tx: block.Txs[0]},
		},
	}
	for _, tx := range block.Txs[1:] {
		var hash consensus.H256
		if tx.HasWitness() {
			hash = consensus.Wtxid(&tx)
		} else {
			hash = consensus.Txid(&tx)
		}
		cb.IDs = append(cb.IDs, shortIDFor(block.Header, nonce, hash))
	}
	return cb, nil
}

// Encode serializes cb to its BIP-152 wire form.
func Encode(cb *CompactBlock) []byte {
	out := consensus.WriteHeader(cb.Header)
	var nonceBytes [8]byte
	binary.LittleEndian.PutUint64(nonceBytes[:], cb.KeyNonce)
	out = append(out, nonceBytes[:]...)
	out = append(out, encodeCompactSize(uint64(len(cb.IDs)))...)
	for _, id := range cb.IDs {
		wire := id.wireBytes()
		out = append(out, wire[:]...)
	}
	out = append(out, encodeCompactSize(uint64(len(cb.Prefilled)))...)
	for _, p := range cb.Prefilled {
		out = append(out, encodeCompactSize(p.Delta)...)
		out = append(out, consensus.Write(&p.Tx)...)
	}
	return out
}

// Decode parses a CompactBlock from its wire form.
func Decode(b []byte) (*CompactBlock, error) {
	if len(b) < consensus.HeaderSize+8 {
		return nil, fmt.Errorf("p2p: cmpctblock: short payload")
	}
	header, err := consensus.ReadHeader(b[:consensus.HeaderSize])
	if err != nil {
		return nil, err
	}
	off := consensus.HeaderSize
	nonce := binary.LittleEndian.Uint64(b[off : off+8])
	off += 8

	nIDs, used, err := readCompactSize(b[off:])
	if err != nil {
		return nil, err
	}
	off += used
	ids := make([]ShortID, 0, nIDs)
	for i := uint64(0); i < nIDs; i++ {
		if off+ShortIDBytes > len(b) {
			return nil, fmt.Errorf("p2p: cmpctblock: short id list truncated")
		}
		var wire [ShortIDBytes]byte
		copy(wire[:], b[off:off+ShortIDBytes])
		off += ShortIDBytes
		ids = append(ids, shortIDFromWire(wire))
	}

	nPrefilled, used, err := readCompactSize(b[off:])
	if err != nil {
		return nil, err
	}
	off += used
	prefilled := make([]PrefilledTx, 0, nPrefilled)
	for i := uint64(0); i < nPrefilled; i++ {
		delta, used, err := readCompactSize(b[off:])
		if err != nil {
			return nil, err
		}
		off += used
		tx, n, err := consensus.Read(b[off:])
		if err != nil {
			return nil, err
		}
		off += n
		prefilled = append(prefilled, PrefilledTx{Delta: delta, Tx: *tx})
	}
	if off != len(b) {
		return nil, fmt.Errorf("p2p: cmpctblock: trailing bytes")
	}
	return &CompactBlock{Header: header, KeyNonce: nonce, IDs: ids, Prefilled: prefilled}, nil
}

// GetBlockTxn is the BIP-152 `getblocktxn` payload: a request for the
// still-missing transactions at the given absolute positions.
type GetBlockTxn struct {
	BlockHash consensus.H256
	Indexes   []int
}

// EncodeGetBlockTxn serializes g, delta-encoding Indexes per spec §4.2.4.
func EncodeGetBlockTxn(g GetBlockTxn) []byte {
	out := append([]byte(nil), g.BlockHash[:]...)
	out = append(out, encodeCompactSize(uint64(len(g.Indexes)))...)
	var prev int
	for i, idx := range g.Indexes {
		if i == 0 {
			out = append(out, encodeCompactSize(uint64(idx))...)
		} else {
			out = append(out, encodeCompactSize(uint64(idx-prev-1))...)
		}
		prev = idx
	}
	return out
}

// DecodeGetBlockTxn parses a getblocktxn payload, inverting the
// differential index encoding. Any absolute value over 0xFFFF is a parse
// error (spec §4.2.4).
func DecodeGetBlockTxn(b []byte) (*GetBlockTxn, error) {
	if len(b) < 32+1 {
		return nil, fmt.Errorf("p2p: getblocktxn: short payload")
	}
	var hash consensus.H256
	copy(hash[:], b[:32])
	off := 32
	n, used, err := readCompactSize(b[off:])
	if err != nil {
		return nil, err
	}
	off += used
	indexes := make([]int, 0, n)
	var prev uint64
	for i := uint64(0); i < n; i++ {
		delta, used, err := readCompactSize(b[off:])
		if err != nil {
			return nil, err
		}
		off += used
		var abs uint64
		if i == 0 {
			abs = delta
		} else {
			abs = prev + 1 + delta
		}
		if abs > 0xffff {
			return nil, fmt.Errorf("p2p: getblocktxn: index out of range")
		}
		prev = abs
		indexes = append(indexes, int(abs))
	}
	if off != len(b) {
		return nil, fmt.Errorf("p2p: getblocktxn: trailing bytes")
	}
	return &GetBlockTxn{BlockHash: hash, Indexes: indexes}, nil
}

// BlockTxn is the BIP-152 `blocktxn` payload: the literal transactions a
// peer requested via GetBlockTxn, in the order requested.
type BlockTxn struct {
	BlockHash consensus.H256
	Txs       []consensus.Tx
}

func EncodeBlockTxn(bt BlockTxn) []byte {
	out := append([]byte(nil), bt.BlockHash[:]...)
	out = append(out, encodeCompactSize(uint64(len(bt.Txs)))...)
	for i := range bt.Txs {
		out = append(out, consensus.Write(&bt.Txs[i])...)
	}
	return out
}

func DecodeBlockTxn(b []byte) (*BlockTxn, error) {
	if len(b) < 32+1 {
		return nil, fmt.Errorf("p2p: blocktxn: short payload")
	}
	var hash consensus.H256
	copy(hash[:], b[:32])
	off := 32
	n, used, err := readCompactSize(b[off:])
	if err != nil {
		return nil, err
	}
	off += used
	txs := make([]consensus.Tx, 0, n)
	for i := uint64(0); i < n; i++ {
		tx, used, err := consensus.Read(b[off:])
		if err != nil {
			return nil, err
		}
		off += used
		txs = append(txs, *tx)
	}
	if off != len(b) {
		return nil, fmt.Errorf("p2p: blocktxn: trailing bytes")
	}
	return &BlockTxn{BlockHash: hash, Txs: txs}, nil
}
