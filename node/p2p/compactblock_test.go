package p2p

import (
	"testing"

	"github.com/LinuXperia/mako/consensus"
)

func sampleBlock(t *testing.T, nTxs int) *consensus.Block {
	t.Helper()
	coinbase := consensus.Tx{
		Version: 1,
		Inputs: []consensus.Input{
			{Prevout: consensus.Outpoint{Index: consensus.NullVout}, Script: []byte{0x01, 0x00}, Sequence: consensus.MaxTxInSequence},
		},
		Outputs: []consensus.Output{{Value: 5_000_000_000, Script: []byte{0x51}}},
	}
	txs := []consensus.Tx{coinbase}
	for i := 1; i < nTxs; i++ {
		txs = append(txs, consensus.Tx{
			Version: 1,
			Inputs: []consensus.Input{
				{Prevout: consensus.Outpoint{Hash: consensus.H256{byte(i)}, Index: uint32(i)}, Sequence: consensus.MaxTxInSequence},
			},
			Outputs: []consensus.Output{{Value: int64(1000 + i), Script: []byte{0x51}}},
		})
	}
	header := consensus.BlockHeader{Version: 1, Time: 1700000000, Bits: 0x1d00ffff}
	return &consensus.Block{Header: header, Txs: txs}
}

// TestCompactRoundTrip covers the "compact round-trip" scenario: build a
// compact block from a full block, encode/decode it, and reconstruct the
// identical block using only the prefilled coinbase and a pool lookup
// keyed by short id.
func TestCompactRoundTrip(t *testing.T) {
	block := sampleBlock(t, 5)

	cb, err := BuildCompactBlock(block)
	if err != nil {
		t.Fatalf("BuildCompactBlock: %v", err)
	}
	wire := Encode(cb)
	decoded, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	r, status, err := NewReconstructor(decoded)
	if err != nil {
		t.Fatalf("NewReconstructor: %v (status=%d)", err, status)
	}
	if status != StatusOK {
		t.Fatalf("status=%d, want StatusOK", status)
	}
	if r.Done() {
		t.Fatalf("reconstructor should not be done before filling non-prefilled txs")
	}

	byID := make(map[ShortID]*consensus.Tx)
	for _, tx := range block.Txs[1:] {
		tx := tx
		hash := consensus.Txid(&tx)
		if tx.HasWitness() {
			hash = consensus.Wtxid(&tx)
		}
		id := shortIDFor(decoded.Header, decoded.KeyNonce, hash)
		byID[id] = &tx
	}
	r.FillFromPool(func(id ShortID) (*consensus.Tx, bool) {
		tx, ok := byID[id]
		return tx, ok
	})
	if !r.Done() {
		t.Fatalf("reconstructor should be done after pool fill")
	}

	got, err := r.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(got.Txs) != len(block.Txs) {
		t.Fatalf("got %d txs, want %d", len(got.Txs), len(block.Txs))
	}
	for i := range block.Txs {
		if consensus.Txid(&got.Txs[i]) != consensus.Txid(&block.Txs[i]) {
			t.Fatalf("tx %d mismatch after reconstruction", i)
		}
	}
}

// TestCompactRoundTripViaBlockTxn exercises the getblocktxn/blocktxn
// round trip when no local pool match is available.
func TestCompactRoundTripViaBlockTxn(t *testing.T) {
	block := sampleBlock(t, 4)
	cb, err := BuildCompactBlock(block)
	if err != nil {
		t.Fatalf("BuildCompactBlock: %v", err)
	}

	r, status, err := NewReconstructor(cb)
	if err != nil || status != StatusOK {
		t.Fatalf("NewReconstructor: %v (status=%d)", err, status)
	}

	req := r.BuildGetBlockTxn(consensus.HeaderHash(cb.Header))
	reqWire := EncodeGetBlockTxn(req)
	decodedReq, err := DecodeGetBlockTxn(reqWire)
	if err != nil {
		t.Fatalf("DecodeGetBlockTxn: %v", err)
	}
	if len(decodedReq.Indexes) != len(req.Indexes) {
		t.Fatalf("index count mismatch after wire round trip")
	}

	var resp BlockTxn
	resp.BlockHash = decodedReq.BlockHash
	for _, idx := range decodedReq.Indexes {
		resp.Txs = append(resp.Txs, block.Txs[idx])
	}
	respWire := EncodeBlockTxn(resp)
	decodedResp, err := DecodeBlockTxn(respWire)
	if err != nil {
		t.Fatalf("DecodeBlockTxn: %v", err)
	}

	status, err = r.Fill(decodedResp.Txs)
	if err != nil || status != StatusOK {
		t.Fatalf("Fill: %v (status=%d)", err, status)
	}
	got, err := r.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	for i := range block.Txs {
		if consensus.Txid(&got.Txs[i]) != consensus.Txid(&block.Txs[i]) {
			t.Fatalf("tx %d mismatch after blocktxn fill", i)
		}
	}
}

// TestFillIncompleteAndMalformed checks the distinct status codes for a
// short and a long blocktxn response.
func TestFillIncompleteAndMalformed(t *testing.T) {
	block := sampleBlock(t, 4)
	cb, err := BuildCompactBlock(block)
	if err != nil {
		t.Fatalf("BuildCompactBlock: %v", err)
	}
	r, _, err := NewReconstructor(cb)
	if err != nil {
		t.Fatalf("NewReconstructor: %v", err)
	}
	missing := r.MissingIndexes()
	if len(missing) == 0 {
		t.Fatalf("expected at least one missing position")
	}

	status, err := r.Fill(nil)
	if status != StatusIncomplete || err == nil {
		t.Fatalf("status=%d err=%v, want StatusIncomplete", status, err)
	}

	tooMany := make([]consensus.Tx, len(missing)+1)
	status, err = r.Fill(tooMany)
	if status != StatusMalformed || err == nil {
		t.Fatalf("status=%d err=%v, want StatusMalformed", status, err)
	}
}

// TestSiphashCollisionIsDistinctFromMalformed covers the BIP-152 edge
// case where two distinct transactions collide under the block's SipHash
// key: setup must report StatusSiphashCollision, never StatusMalformed.
func TestSiphashCollisionIsDistinctFromMalformed(t *testing.T) {
	header := consensus.BlockHeader{Version: 1, Time: 1700000000}
	cb := &CompactBlock{
		Header:   header,
		KeyNonce: 42,
		Prefilled: []PrefilledTx{
			{Delta: 0, Tx: consensus.Tx{Version: 1, Inputs: []consensus.Input{{Prevout: consensus.Outpoint{Index: consensus.NullVout}}}, Outputs: []consensus.Output{{Value: 1}}}},
		},
		IDs: []ShortID{7, 7},
	}

	_, status, err := NewReconstructor(cb)
	if err == nil {
		t.Fatalf("expected error for duplicate short id")
	}
	if status != StatusSiphashCollision {
		t.Fatalf("status=%d, want StatusSiphashCollision", status)
	}
}

func TestSetupRejectsZeroTransactions(t *testing.T) {
	cb := &CompactBlock{Header: consensus.BlockHeader{}}
	_, status, err := NewReconstructor(cb)
	if err == nil || status != StatusMalformed {
		t.Fatalf("status=%d err=%v, want StatusMalformed", status, err)
	}
}

func TestEncodeDecodeWireRoundTrip(t *testing.T) {
	block := sampleBlock(t, 3)
	cb, err := BuildCompactBlock(block)
	if err != nil {
		t.Fatalf("BuildCompactBlock: %v", err)
	}
	wire := Encode(cb)
	decoded, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.KeyNonce != cb.KeyNonce {
		t.Fatalf("nonce mismatch")
	}
	if len(decoded.IDs) != len(cb.IDs) {
		t.Fatalf("id count mismatch")
	}
	for i := range cb.IDs {
		if decoded.IDs[i] != cb.IDs[i] {
			t.Fatalf("id %d mismatch", i)
		}
	}
}
