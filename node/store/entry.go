package store

import (
	"math/big"

	"github.com/LinuXperia/mako/consensus"
)

// entryID indexes into the arena. noEntry is the "Option<Index>" absent
// value, standing in for a nil prev/next link without a reference cycle
// between Go pointers.
type entryID int32

const noEntry entryID = -1

// Entry is one block-index record: the header plus its position in the
// chain DAG and on-disk location of its block/undo bytes.
type Entry struct {
	Hash      consensus.H256
	Header    consensus.BlockHeader
	Height    uint32
	Chainwork *big.Int
	BlockFile int32
	BlockPos  int32 // -1 == not yet written
	UndoFile  int32
	UndoPos   int32 // -1 == not yet written (or no undo needed, e.g. genesis)

	Prev entryID
	Next entryID
}

// arena owns every Entry ever loaded or created; prev/next and the
// hashes/heights indices all reference records by id, never by Go
// pointer, so the DAG carries no reference cycles (spec §9).
type arena struct {
	entries []Entry
}

func (a *arena) add(e Entry) entryID {
	id := entryID(len(a.entries))
	a.entries = append(a.entries, e)
	return id
}

func (a *arena) get(id entryID) *Entry {
	if id == noEntry {
		return nil
	}
	return &a.entries[id]
}
