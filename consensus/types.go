package consensus

import (
	"github.com/LinuXperia/mako/crypto"
)

// Crypto is the provider backing every hash/signature primitive this
// package consumes. It is initialised to crypto.Std{}; tests may
// substitute an instrumented Provider, but it must never be left nil.
var Crypto crypto.Provider = crypto.Std{}

// H256 is a 32-byte hash, compared and hashed byte-for-byte. It is printed
// (by String) in the reversed, big-endian-looking form Bitcoin tooling
// expects, but stored and compared in its native little-endian byte order.
type H256 [32]byte

func (h H256) String() string {
	var rev [32]byte
	for i := range h {
		rev[i] = h[31-i]
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 64)
	for i, b := range rev {
		out[i*2] = hexdigits[b>>4]
		out[i*2+1] = hexdigits[b&0xf]
	}
	return string(out)
}

func (h H256) IsZero() bool { return h == H256{} }

// Outpoint identifies a previous transaction output. The null outpoint
// (all-zero txid, index 0xFFFFFFFF) marks a coinbase input.
type Outpoint struct {
	Hash  H256
	Index uint32
}

func (o Outpoint) IsNull() bool {
	return o.Hash.IsZero() && o.Index == NullVout
}

// Input is one transaction input.
type Input struct {
	Prevout  Outpoint
	Script   []byte
	Witness  [][]byte
	Sequence uint32
}

func (in Input) HasWitness() bool { return len(in.Witness) > 0 }

// Output is one transaction output. Value is validated against MaxMoney by
// CheckSanity/CheckInputs, not at construction time.
type Output struct {
	Value  int64
	Script []byte
}

// Tx is a parsed transaction. The CompactBlockCodec boundary's transient
// prefilled-position bookkeeping (spec §4.2, §9) lives on p2p.PrefilledTx,
// not here — it must never be part of the canonical wire form.
type Tx struct {
	Version  uint32
	Inputs   []Input
	Outputs  []Output
	Locktime uint32
}

// HasWitness reports whether any input carries a non-empty witness stack.
func (tx *Tx) HasWitness() bool {
	for _, in := range tx.Inputs {
		if in.HasWitness() {
			return true
		}
	}
	return false
}

// IsCoinbase reports whether tx is a coinbase transaction: exactly one
// input whose prevout is null.
func (tx *Tx) IsCoinbase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].Prevout.IsNull()
}

// BlockHeader is the fixed 80-byte block header.
type BlockHeader struct {
	Version    uint32
	PrevBlock  H256
	MerkleRoot H256
	Time       uint32
	Bits       uint32
	Nonce      uint32
}

// Block is a header plus its ordered transactions; Txs[0] is the coinbase.
type Block struct {
	Header BlockHeader
	Txs    []Tx
}

// Coin is a single UTXO record: the cloned output plus its provenance.
// Spent is a tombstone — ChainStore deletes rather than writes the row
// when it sees Spent == true in a View being committed.
type Coin struct {
	Output   Output
	Height   uint32
	Coinbase bool
	Spent    bool
}

// View is a duck-typed pending UTXO delta, exposing exactly the two
// operations ChainStore and TxEngine's CheckInputs need (spec §9): an
// iteration callback and a point lookup. ChainStore's in-memory view
// implementation and any test double both satisfy this interface.
type View interface {
	ForEachCoin(fn func(Outpoint, Coin) bool)
	ResolveCoin(o Outpoint) (Coin, bool)
}

// MapView is a simple in-memory View backed by a map, with an undo log of
// coins it has spent. It is what ChainStore hands TxEngine during
// CheckInputs and what CheckInputs itself mutates in place (spec §4.3.2,
// §4.3.4).
type MapView struct {
	coins map[Outpoint]Coin
	undo  []Coin
}

func NewMapView() *MapView {
	return &MapView{coins: make(map[Outpoint]Coin)}
}

func (v *MapView) ForEachCoin(fn func(Outpoint, Coin) bool) {
	for o, c := range v.coins {
		if !fn(o, c) {
			return
		}
	}
}

func (v *MapView) ResolveCoin(o Outpoint) (Coin, bool) {
	c, ok := v.coins[o]
	return c, ok
}

// AddCoin records a newly created, unspent coin.
func (v *MapView) AddCoin(o Outpoint, c Coin) {
	c.Spent = false
	v.coins[o] = c
}

// SpendCoin marks an existing coin as spent (tombstoned) and pushes its
// pre-spend value onto the undo stack. It is a no-op (returns false) if
// the coin is not present in this view.
func (v *MapView) SpendCoin(o Outpoint) (Coin, bool) {
	c, ok := v.coins[o]
	if !ok {
		return Coin{}, false
	}
	v.undo = append(v.undo, c)
	c.Spent = true
	v.coins[o] = c
	return c, true
}

// PopUndo pops the most recently spent coin (LIFO), used by disconnect to
// restore coins in reverse order (spec §4.3.4).
func (v *MapView) PopUndo() (Coin, bool) {
	n := len(v.undo)
	if n == 0 {
		return Coin{}, false
	}
	c := v.undo[n-1]
	v.undo = v.undo[:n-1]
	return c, true
}

func (v *MapView) UndoLen() int { return len(v.undo) }

func (v *MapView) Set(o Outpoint, c Coin) { v.coins[o] = c }

// UndoSnapshot returns a copy of the pending undo log in push order,
// without popping it. ChainStore uses this to persist the undo buffer on
// save while leaving the view itself untouched.
func (v *MapView) UndoSnapshot() []Coin {
	out := make([]Coin, len(v.undo))
	copy(out, v.undo)
	return out
}

// Tombstone marks o for deletion on commit regardless of whether it was
// previously present in this view — used by disconnect to remove coins
// created by a block being rolled back (spec §4.3.4).
func (v *MapView) Tombstone(o Outpoint) {
	v.coins[o] = Coin{Spent: true}
}
