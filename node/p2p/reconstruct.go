package p2p

import (
	"fmt"

	"github.com/LinuXperia/mako/consensus"
)

// ReconstructStatus reports the outcome of a reconstruction step.
type ReconstructStatus int

const (
	StatusOK ReconstructStatus = iota
	StatusIncomplete
	StatusMalformed
	StatusSiphashCollision
)

// Reconstructor drives the receiver side of BIP-152 compact block
// reconstruction (spec §4.2.3–§4.2.5): it places the sender's prefilled
// transactions, records short IDs at their assigned positions, and fills
// the remaining slots either from a local mempool lookup or a peer's
// BlockTxn response.
type Reconstructor struct {
	header    consensus.BlockHeader
	nonce     uint64
	avail     []*consensus.Tx
	idAt      map[ShortID]int // short id -> position, still missing
	idAtOrder []ShortID       // positions' ids, same order as avail slots that are id-backed
	filled    int
}

// NewReconstructor performs setup (spec §4.2.3): validates the declared
// transaction count, allocates the avail slots, places every prefilled
// transaction at its delta-derived position, and records each short ID's
// assigned position. A duplicate short ID is reported distinctly
// (StatusSiphashCollision) from a structurally malformed payload.
func NewReconstructor(cb *CompactBlock) (*Reconstructor, ReconstructStatus, error) {
	total := len(cb.Prefilled) + len(cb.IDs)
	if total == 0 {
		return nil, StatusMalformed, fmt.Errorf("p2p: compact block declares zero transactions")
	}
	if total > consensus.MaxBlockSize/10 {
		return nil, StatusMalformed, fmt.Errorf("p2p: compact block declares too many transactions (%d)", total)
	}
	if total > (consensus.MaxBlockSize-consensus.HeaderSize-1)/60 {
		return nil, StatusMalformed, fmt.Errorf("p2p: compact block transaction count exceeds anti-hashdos bound (%d)", total)
	}

	r := &Reconstructor{
		header: cb.Header,
		nonce:  cb.KeyNonce,
		avail:  make([]*consensus.Tx, total),
		idAt:   make(map[ShortID]int, len(cb.IDs)),
	}

	last := -1
	for _, p := range cb.Prefilled {
		last += int(p.Delta) + 1
		if last < 0 || last > 0xFFFF || last >= total {
			return nil, StatusMalformed, fmt.Errorf("p2p: prefilled tx position %d out of range [0,%d)", last, total)
		}
		if r.avail[last] != nil {
			return nil, StatusMalformed, fmt.Errorf("p2p: prefilled tx position %d already occupied", last)
		}
		tx := p.Tx
		r.avail[last] = &tx
		r.filled++
	}

	cursor := 0
	for _, id := range cb.IDs {
		for cursor < total && r.avail[cursor] != nil {
			cursor++
		}
		if cursor >= total {
			return nil, StatusMalformed, fmt.Errorf("p2p: more short ids than free positions")
		}
		if _, dup := r.idAt[id]; dup {
			return nil, StatusSiphashCollision, fmt.Errorf("p2p: duplicate short id %x", id)
		}
		r.idAt[id] = cursor
		cursor++
	}

	return r, StatusOK, nil
}

// Done reports whether every position has been filled.
func (r *Reconstructor) Done() bool { return r.filled == len(r.avail) }

// MissingIndexes returns the absolute positions still unfilled, in
// ascending order — the set BuildGetBlockTxn will request.
func (r *Reconstructor) MissingIndexes() []int {
	var out []int
	for i, tx := range r.avail {
		if tx == nil {
			out = append(out, i)
		}
	}
	return out
}

// BuildGetBlockTxn constructs the getblocktxn request for every position
// this reconstructor has not yet filled (spec §4.2.4).
func (r *Reconstructor) BuildGetBlockTxn(blockHash consensus.H256) GetBlockTxn {
	return GetBlockTxn{BlockHash: blockHash, Indexes: r.MissingIndexes()}
}

// FillFromPool attempts to resolve every still-missing short ID against a
// local transaction source (e.g. a mempool), without requiring a round
// trip to the sending peer. lookup is called once per still-missing short
// ID; whether that ID is matched against wtxids or txids is up to lookup.
func (r *Reconstructor) FillFromPool(lookup func(id ShortID) (*consensus.Tx, bool)) {
	for id, pos := range r.idAt {
		if r.avail[pos] != nil {
			delete(r.idAt, id)
			continue
		}
		tx, ok := lookup(id)
		if !ok {
			continue
		}
		r.avail[pos] = tx
		r.filled++
		delete(r.idAt, id)
	}
}

// Fill consumes a peer's BlockTxn response, placing txs into the
// remaining None slots left-to-right in missing-index order (spec
// §4.2.5). Fewer transactions than missing slots is StatusIncomplete;
// more is StatusMalformed.
func (r *Reconstructor) Fill(txs []consensus.Tx) (ReconstructStatus, error) {
	missing := r.MissingIndexes()
	if len(txs) < len(missing) {
		return StatusIncomplete, fmt.Errorf("p2p: blocktxn supplied %d transactions, need %d", len(txs), len(missing))
	}
	if len(txs) > len(missing) {
		return StatusMalformed, fmt.Errorf("p2p: blocktxn supplied %d transactions, expected %d", len(txs), len(missing))
	}
	for i, pos := range missing {
		tx := txs[i]
		r.avail[pos] = &tx
		r.filled++
	}
	r.idAt = map[ShortID]int{}
	return StatusOK, nil
}

// Finalize assembles the reconstructed block once every position is
// filled, transferring ownership of avail into the block's tx sequence.
func (r *Reconstructor) Finalize() (*consensus.Block, error) {
	if !r.Done() {
		return nil, fmt.Errorf("p2p: cannot finalize: %d of %d positions unfilled", len(r.avail)-r.filled, len(r.avail))
	}
	txs := make([]consensus.Tx, len(r.avail))
	for i, tx := range r.avail {
		txs[i] = *tx
	}
	r.avail = nil
	return &consensus.Block{Header: r.header, Txs: txs}, nil
}
