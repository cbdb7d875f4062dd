// Package store implements ChainStore: the durable block index and UTXO
// set behind a Bitcoin-style full node (spec §4.3). A single embedded
// key-value environment (go.etcd.io/bbolt, substituting for the reference
// implementation's LMDB) holds four buckets — meta, coin, index, tip —
// and append-only `blocks/<n>.dat` files carry the block and undo bytes
// those buckets point into.
package store

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/LinuXperia/mako/consensus"
)

var (
	metaBucket  = []byte("meta")
	coinBucket  = []byte("coin")
	indexBucket = []byte("index")
	tipBucket   = []byte("tip")

	metaFileKey = []byte{'F'}
	metaTipKey  = []byte{'R'}
)

// maxActiveFileSize is the rotation threshold for blocks/<n>.dat (spec
// §4.3.6): a write that would cross it rolls over to the next file number.
const maxActiveFileSize = 512 * 1024 * 1024

// Clock abstracts wall-clock time for the fsync policy (spec §4.3.7), so
// tests can simulate "clock unavailable" (Now returns the zero Time) or a
// block timestamp's relationship to now without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// EntrySummary is the externally visible projection of a block-index
// record: every field of Entry except the internal arena links (spec §9
// keeps prev/next as arena indices private to the package so the DAG
// carries no exported reference cycle).
type EntrySummary struct {
	Hash      consensus.H256
	Header    consensus.BlockHeader
	Height    uint32
	Chainwork *big.Int
	BlockFile int32
	BlockPos  int32
	UndoFile  int32
	UndoPos   int32
}

func summarize(e *Entry) EntrySummary {
	return EntrySummary{
		Hash:      e.Hash,
		Header:    e.Header,
		Height:    e.Height,
		Chainwork: new(big.Int).Set(e.Chainwork),
		BlockFile: e.BlockFile,
		BlockPos:  e.BlockPos,
		UndoFile:  e.UndoFile,
		UndoPos:   e.UndoPos,
	}
}

// ChainStore is the durable block index plus UTXO set for one chain. It is
// single-writer (spec §5): callers must serialize Connect/Reconnect/
// Disconnect against each other, though Spend may be called concurrently
// from helper goroutines since it only reads.
type ChainStore struct {
	dir       string
	blocksDir string

	db *bbolt.DB

	activeFile int32
	activePos  int32
	activeFD   *os.File

	readFDs map[int32]*os.File

	arena   arena
	hashes  map[consensus.H256]entryID
	heights []entryID
	head    entryID
	tail    entryID

	genesis    GenesisParams
	log        *zap.Logger
	clock      Clock
	scratch    []byte
	manifestOK bool
}

// Open opens (creating if absent) the chain store rooted at
// filepath.Join(datadir, "chains", genesis.ChainIDHex) (spec §4.3.1).
func Open(datadir string, genesis GenesisParams, log *zap.Logger) (*ChainStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dir := ChainDir(datadir, genesis.ChainIDHex)
	blocksDir := filepath.Join(dir, "blocks")
	if err := ensureDir(blocksDir); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(filepath.Join(dir, "chainstate.db"), 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open kv env: %w", err)
	}

	cs := &ChainStore{
		dir:       dir,
		blocksDir: blocksDir,
		db:        db,
		readFDs:   make(map[int32]*os.File),
		hashes:    make(map[consensus.H256]entryID),
		head:      noEntry,
		tail:      noEntry,
		genesis:   genesis,
		log:       log,
		clock:     systemClock{},
		scratch:   make([]byte, 4+consensus.MaxBlockSize),
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{metaBucket, coinBucket, indexBucket, tipBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("store: create bucket %s: %w", name, err)
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := cs.openActiveFile(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := cs.loadIndex(); err != nil {
		_ = cs.Close()
		return nil, err
	}

	if cs.tail == noEntry {
		if err := cs.bootstrapGenesis(); err != nil {
			_ = cs.Close()
			return nil, err
		}
	}

	return cs, nil
}

// Close releases the active file descriptor, every cached read-only
// descriptor, and the KV environment, in that order.
func (cs *ChainStore) Close() error {
	var firstErr error
	if cs.activeFD != nil {
		if err := cs.activeFD.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		cs.activeFD = nil
	}
	for file, fd := range cs.readFDs {
		if err := fd.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(cs.readFDs, file)
	}
	if cs.db != nil {
		if err := cs.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		cs.db = nil
	}
	return firstErr
}

func blockFilePath(blocksDir string, file int32) string {
	return filepath.Join(blocksDir, fmt.Sprintf("%d.dat", file))
}

// openActiveFile reads meta['F'] (defaulting to (0,0) when absent),
// opens blocks/<file>.dat for read-write, and checks the on-disk size is
// not smaller than the recorded watermark — smaller would mean committed
// data was lost, which is a Fatal invariant violation (spec §3). A file
// larger than the watermark is fine: those are uncommitted bytes from a
// write that crashed before its KV commit, and the watermark makes the
// logical view ignore them (spec §8 S6).
func (cs *ChainStore) openActiveFile() error {
	wm := fileWatermark{File: 0, Pos: 0}
	err := cs.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(metaBucket).Get(metaFileKey)
		if raw == nil {
			return nil
		}
		v, err := decodeWatermark(raw)
		if err != nil {
			return err
		}
		wm = v
		return nil
	})
	if err != nil {
		return err
	}

	path := blockFilePath(cs.blocksDir, wm.File)
	fd, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600) // #nosec G304 -- path built from validated datadir + internal file counter, never user input.
	if err != nil {
		return fmt.Errorf("store: open active block file: %w", err)
	}
	info, err := fd.Stat()
	if err != nil {
		_ = fd.Close()
		return fmt.Errorf("store: stat active block file: %w", err)
	}
	if info.Size() < int64(wm.Pos) {
		_ = fd.Close()
		return fmt.Errorf("store: fatal: active block file %s is %d bytes, shorter than committed watermark %d", path, info.Size(), wm.Pos)
	}

	cs.activeFile = wm.File
	cs.activePos = wm.Pos
	cs.activeFD = fd
	return nil
}

// loadIndex materializes every index-bucket record into the in-memory
// arena, links prev pointers by PrevBlock header field, then (if a tip is
// recorded) walks prev-links from the tip to genesis to build the
// heights vector and next pointers (spec §4.3.1 steps 4-6).
func (cs *ChainStore) loadIndex() error {
	type loaded struct {
		id entryID
		e  *Entry
	}
	var all []loaded

	if err := cs.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(indexBucket)
		return b.ForEach(func(k, v []byte) error {
			var hash consensus.H256
			copy(hash[:], k)
			e, err := decodeEntry(hash, v)
			if err != nil {
				return err
			}
			id := cs.arena.add(*e)
			cs.hashes[hash] = id
			all = append(all, loaded{id: id, e: cs.arena.get(id)})
			return nil
		})
	}); err != nil {
		return err
	}

	for _, l := range all {
		if prevID, ok := cs.hashes[l.e.Header.PrevBlock]; ok {
			l.e.Prev = prevID
		} else {
			l.e.Prev = noEntry
		}
	}

	var tipHash consensus.H256
	var hasTip bool
	if err := cs.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(metaBucket).Get(metaTipKey)
		if raw == nil {
			return nil
		}
		copy(tipHash[:], raw)
		hasTip = true
		return nil
	}); err != nil {
		return err
	}
	if !hasTip {
		return nil
	}

	tailID, ok := cs.hashes[tipHash]
	if !ok {
		return fmt.Errorf("store: fatal: recorded tip %s not present in index", tipHash)
	}

	var chain []entryID
	for cur := tailID; cur != noEntry; {
		chain = append(chain, cur)
		cur = cs.arena.get(cur).Prev
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	for i, id := range chain {
		if uint32(i) != cs.arena.get(id).Height {
			return fmt.Errorf("store: fatal: main chain entry at position %d has height %d", i, cs.arena.get(id).Height)
		}
		if i > 0 {
			cs.arena.get(chain[i-1]).Next = id
		}
	}
	cs.heights = chain
	cs.head = chain[0]
	cs.tail = tailID
	return nil
}

func (cs *ChainStore) bootstrapGenesis() error {
	var e Entry
	e.Hash = consensus.BlockHash(&cs.genesis.Block)
	e.Header = cs.genesis.Block.Header
	e.Height = 0
	e.Chainwork = new(big.Int).Set(cs.genesis.InitialWork)
	e.BlockFile, e.BlockPos = -1, -1
	e.UndoFile, e.UndoPos = -1, -1
	e.Prev, e.Next = noEntry, noEntry

	if _, err := cs.save(&e, &cs.genesis.Block, consensus.NewMapView()); err != nil {
		return fmt.Errorf("store: bootstrap genesis: %w", err)
	}
	return nil
}

// Tip returns the current main-chain tip. Ok is false for a store with no
// tip, which cannot happen once Open has returned successfully (genesis
// always establishes one).
func (cs *ChainStore) Tip() (EntrySummary, bool) {
	if cs.tail == noEntry {
		return EntrySummary{}, false
	}
	return summarize(cs.arena.get(cs.tail)), true
}

// Height is the tip's height, i.e. len(heights)-1.
func (cs *ChainStore) Height() uint32 {
	if len(cs.heights) == 0 {
		return 0
	}
	return uint32(len(cs.heights) - 1)
}

// EntryByHash looks up any indexed entry, main-chain or side-chain.
func (cs *ChainStore) EntryByHash(hash consensus.H256) (EntrySummary, bool) {
	id, ok := cs.hashes[hash]
	if !ok {
		return EntrySummary{}, false
	}
	return summarize(cs.arena.get(id)), true
}

// EntryAtHeight looks up the main-chain entry at the given height.
func (cs *ChainStore) EntryAtHeight(height uint32) (EntrySummary, bool) {
	if int(height) >= len(cs.heights) {
		return EntrySummary{}, false
	}
	return summarize(cs.arena.get(cs.heights[height])), true
}

func (cs *ChainStore) shouldSync(e *Entry) bool {
	now := cs.clock.Now()
	if now.IsZero() {
		return true
	}
	blockTime := time.Unix(int64(e.Header.Time), 0)
	if blockTime.After(now) {
		return true
	}
	if now.Sub(blockTime) <= 24*time.Hour {
		return true
	}
	return e.Height%1000 == 0
}

// allocAndWrite appends a length-prefixed record to the active block
// file, rotating to the next file number first if the write would cross
// maxActiveFileSize (spec §4.3.6). It returns the file number and byte
// offset the record's length prefix was written at.
func (cs *ChainStore) allocAndWrite(payload []byte, sync bool) (file int32, pos int32, err error) {
	recLen := int64(4 + len(payload))
	if int64(cs.activePos)+recLen > maxActiveFileSize {
		if err := cs.activeFD.Sync(); err != nil {
			return 0, 0, fmt.Errorf("store: fsync previous active file: %w", err)
		}
		if err := cs.activeFD.Close(); err != nil {
			return 0, 0, fmt.Errorf("store: close previous active file: %w", err)
		}
		delete(cs.readFDs, cs.activeFile)
		cs.activeFile++
		cs.activePos = 0
		fd, err := os.OpenFile(blockFilePath(cs.blocksDir, cs.activeFile), os.O_RDWR|os.O_CREATE, 0o600) // #nosec G304 -- internal rotation counter, not user input.
		if err != nil {
			return 0, 0, fmt.Errorf("store: open rotated block file: %w", err)
		}
		cs.activeFD = fd
	}

	buf := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[4:], payload)
	if _, err := cs.activeFD.WriteAt(buf, int64(cs.activePos)); err != nil {
		return 0, 0, fmt.Errorf("store: write block file record: %w", err)
	}
	if sync {
		if err := cs.activeFD.Sync(); err != nil {
			return 0, 0, fmt.Errorf("store: fsync block file: %w", err)
		}
	}

	file = cs.activeFile
	pos = cs.activePos
	cs.activePos += int32(recLen)
	return file, pos, nil
}

func (cs *ChainStore) readFileFD(file int32) (*os.File, error) {
	if fd, ok := cs.readFDs[file]; ok {
		return fd, nil
	}
	if file == cs.activeFile {
		cs.readFDs[file] = cs.activeFD
		return cs.activeFD, nil
	}
	fd, err := os.Open(blockFilePath(cs.blocksDir, file)) // #nosec G304 -- internal file counter, not user input.
	if err != nil {
		return nil, fmt.Errorf("store: open block file %d for read: %w", file, err)
	}
	cs.readFDs[file] = fd
	return fd, nil
}

// readRecord reads one length-prefixed record at (file,pos).
func (cs *ChainStore) readRecord(file, pos int32) ([]byte, error) {
	fd, err := cs.readFileFD(file)
	if err != nil {
		return nil, err
	}
	var lenBuf [4]byte
	if _, err := fd.ReadAt(lenBuf[:], int64(pos)); err != nil {
		return nil, fmt.Errorf("store: read record length at (%d,%d): %w", file, pos, err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	payload := make([]byte, n)
	if _, err := fd.ReadAt(payload, int64(pos)+4); err != nil && err != io.EOF {
		return nil, fmt.Errorf("store: read record payload at (%d,%d): %w", file, pos, err)
	}
	return payload, nil
}

// ReadBlock reads and parses the block bytes recorded at e's block
// position.
func (cs *ChainStore) ReadBlock(e EntrySummary) (*consensus.Block, error) {
	if e.BlockPos < 0 {
		return nil, fmt.Errorf("store: entry %s has no block on disk", e.Hash)
	}
	raw, err := cs.readRecord(e.BlockFile, e.BlockPos)
	if err != nil {
		return nil, err
	}
	block, _, err := consensus.ReadBlock(raw)
	return block, err
}

func (cs *ChainStore) readUndo(e *Entry) ([]consensus.Coin, error) {
	if e.UndoPos < 0 {
		return nil, nil
	}
	raw, err := cs.readRecord(e.UndoFile, e.UndoPos)
	if err != nil {
		return nil, err
	}
	return decodeUndoRecord(raw)
}

// save is the shared implementation backing Connect/SaveSideChain/
// Reconnect/bootstrapGenesis (spec §4.3.2): writes block bytes if not
// already on disk, applies the view's coin mutations and persists its
// undo log, updates meta/index/tip, and commits all of it in a single KV
// transaction. The in-memory arena/hashes/heights update happens only
// after that commit succeeds.
func (cs *ChainStore) save(e *Entry, block *consensus.Block, view *consensus.MapView) (EntrySummary, error) {
	sync := cs.shouldSync(e)

	if e.BlockPos == -1 {
		file, pos, err := cs.allocAndWrite(consensus.WriteBlock(block), sync)
		if err != nil {
			return EntrySummary{}, err
		}
		e.BlockFile, e.BlockPos = file, pos
	}

	if view != nil && e.Height > 0 {
		undo := view.UndoSnapshot()
		if len(undo) > 0 && e.UndoPos == -1 {
			file, pos, err := cs.allocAndWrite(encodeUndoRecord(undo), sync)
			if err != nil {
				return EntrySummary{}, err
			}
			e.UndoFile, e.UndoPos = file, pos
		}
	}

	err := cs.db.Update(func(tx *bbolt.Tx) error {
		coins := tx.Bucket(coinBucket)
		if view != nil && e.Height > 0 {
			var txErr error
			view.ForEachCoin(func(o consensus.Outpoint, c consensus.Coin) bool {
				key := encodeOutpointKey(o)
				if c.Spent {
					if err := coins.Delete(key); err != nil {
						txErr = err
						return false
					}
					return true
				}
				if err := coins.Put(key, encodeCoin(c)); err != nil {
					txErr = err
					return false
				}
				return true
			})
			if txErr != nil {
				return txErr
			}
		}

		if err := tx.Bucket(metaBucket).Put(metaFileKey, encodeWatermark(fileWatermark{File: cs.activeFile, Pos: cs.activePos})); err != nil {
			return err
		}

		encoded, err := encodeEntry(e)
		if err != nil {
			return err
		}
		if err := tx.Bucket(indexBucket).Put(e.Hash[:], encoded); err != nil {
			return err
		}

		tip := tx.Bucket(tipBucket)
		if e.Height > 0 {
			if err := tip.Delete(e.Header.PrevBlock[:]); err != nil {
				return err
			}
		}
		if err := tip.Put(e.Hash[:], []byte{1}); err != nil {
			return err
		}

		if view != nil {
			if err := tx.Bucket(metaBucket).Put(metaTipKey, e.Hash[:]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return EntrySummary{}, fmt.Errorf("store: save commit: %w", err)
	}

	cs.linkAfterCommit(e, view != nil)
	cs.writeManifest()
	cs.log.Debug("store: saved entry", zap.Stringer("hash", e.Hash), zap.Uint32("height", e.Height), zap.Bool("main_chain", view != nil))
	return summarize(e), nil
}

func (cs *ChainStore) linkAfterCommit(e *Entry, mainChain bool) {
	id, already := cs.hashes[e.Hash]
	if !already {
		id = cs.arena.add(*e)
		cs.hashes[e.Hash] = id
	} else {
		*cs.arena.get(id) = *e
	}
	if !mainChain {
		return
	}
	stored := cs.arena.get(id)
	if prevID, ok := cs.hashes[e.Header.PrevBlock]; ok {
		stored.Prev = prevID
		cs.arena.get(prevID).Next = id
	}
	if int(e.Height) != len(cs.heights) {
		panic(fmt.Sprintf("store: fatal: connecting height %d but heights has length %d", e.Height, len(cs.heights)))
	}
	cs.heights = append(cs.heights, id)
	cs.tail = id
	if e.Height == 0 {
		cs.head = id
	}
}

// writeManifest refreshes the operator-facing MANIFEST.json snapshot
// (manifest.go) from the current tip. It is a read-only convenience
// mirror of meta['R'] (plus the tip's height and chainwork; the file
// watermark in meta['F'] is not included) for tooling that wants chain status
// without opening the KV environment; failures are logged, not
// propagated, since the KV commit — not this file — is the source of
// truth (spec §7: only save/reconnect/disconnect's KV transaction is
// consensus-critical).
func (cs *ChainStore) writeManifest() {
	if cs.tail == noEntry {
		return
	}
	tip := cs.arena.get(cs.tail)
	m := &Manifest{
		SchemaVersion:           SchemaVersionV1,
		ChainIDHex:              cs.genesis.ChainIDHex,
		TipHashHex:              hex.EncodeToString(tip.Hash[:]),
		TipHeight:               uint64(tip.Height),
		TipCumulativeWorkDec:    tip.Chainwork.String(),
		LastAppliedBlockHashHex: hex.EncodeToString(tip.Hash[:]),
		LastAppliedHeight:       uint64(tip.Height),
	}
	if err := writeManifestAtomic(cs.dir, m); err != nil {
		cs.log.Warn("store: failed to refresh manifest", zap.Error(err))
		return
	}
	cs.manifestOK = true
}

// Connect appends a new tip on top of the current tail: a new block at
// height tail.height+1 (spec §4.3.2, testable property 4). view carries
// the coin-set delta CheckInputs produced while validating block.
func (cs *ChainStore) Connect(block *consensus.Block, chainwork *big.Int, view *consensus.MapView) (EntrySummary, error) {
	if cs.tail == noEntry {
		return EntrySummary{}, fmt.Errorf("store: cannot connect: no tip")
	}
	tail := cs.arena.get(cs.tail)
	hash := consensus.BlockHash(block)
	if block.Header.PrevBlock != tail.Hash {
		return EntrySummary{}, fmt.Errorf("store: connect: block's prev_block does not match current tip")
	}
	e := &Entry{
		Hash:      hash,
		Header:    block.Header,
		Height:    tail.Height + 1,
		Chainwork: chainwork,
		BlockFile: -1, BlockPos: -1,
		UndoFile: -1, UndoPos: -1,
		Prev: cs.tail, Next: noEntry,
	}
	return cs.save(e, block, view)
}

// SaveSideChain persists block as a non-main-chain entry: block bytes and
// index metadata are written, but the coin set and tip pointer are
// untouched (spec §4.3.2, "view is None"). block's prev_block must already
// be indexed (main chain or another side-chain entry).
func (cs *ChainStore) SaveSideChain(block *consensus.Block, chainwork *big.Int) (EntrySummary, error) {
	prevID, ok := cs.hashes[block.Header.PrevBlock]
	if !ok {
		return EntrySummary{}, fmt.Errorf("store: save side chain: prev block not indexed")
	}
	prev := cs.arena.get(prevID)
	hash := consensus.BlockHash(block)
	e := &Entry{
		Hash:      hash,
		Header:    block.Header,
		Height:    prev.Height + 1,
		Chainwork: chainwork,
		BlockFile: -1, BlockPos: -1,
		UndoFile: -1, UndoPos: -1,
		Prev: prevID, Next: noEntry,
	}
	return cs.save(e, block, nil)
}

// Reconnect re-applies a previously side-chain-saved entry during a
// reorganization (spec §4.3.3): block bytes are already on disk, so save
// skips the block write. An undo record is written when view carries one
// and the entry has none yet (always the case for an entry stored by
// SaveSideChain); the coin-set, meta, index and tip updates run as in save.
func (cs *ChainStore) Reconnect(hash consensus.H256, block *consensus.Block, view *consensus.MapView) (EntrySummary, error) {
	id, ok := cs.hashes[hash]
	if !ok {
		return EntrySummary{}, fmt.Errorf("store: reconnect: entry %s not indexed", hash)
	}
	e := cs.arena.get(id)
	if e.Prev == noEntry {
		return EntrySummary{}, fmt.Errorf("store: reconnect: entry %s has no prev link", hash)
	}
	if e.BlockPos == -1 {
		return EntrySummary{}, fmt.Errorf("store: reconnect: entry %s has no block on disk", hash)
	}
	return cs.save(e, block, view)
}

// Disconnect removes the current tip, restoring the coins it spent from
// its undo log and tombstoning the coins it created (spec §4.3.4). It
// returns the view it applied so the caller can re-apply it (or its
// inverse) while switching to another branch during a reorg.
func (cs *ChainStore) Disconnect() (*consensus.MapView, error) {
	if cs.tail == noEntry {
		return nil, fmt.Errorf("store: disconnect: no tip")
	}
	e := cs.arena.get(cs.tail)
	if e.Prev == noEntry {
		return nil, fmt.Errorf("store: disconnect: cannot disconnect genesis")
	}
	block, err := cs.ReadBlock(summarize(e))
	if err != nil {
		return nil, err
	}
	undo, err := cs.readUndo(e)
	if err != nil {
		return nil, err
	}

	view := consensus.NewMapView()
	undoStack := append([]consensus.Coin(nil), undo...)
	popUndo := func() (consensus.Coin, bool) {
		n := len(undoStack)
		if n == 0 {
			return consensus.Coin{}, false
		}
		c := undoStack[n-1]
		undoStack = undoStack[:n-1]
		return c, true
	}

	for ti := len(block.Txs) - 1; ti >= 0; ti-- {
		tx := block.Txs[ti]
		if !tx.IsCoinbase() {
			for ii := len(tx.Inputs) - 1; ii >= 0; ii-- {
				coin, ok := popUndo()
				if !ok {
					return nil, fmt.Errorf("store: disconnect: undo log exhausted before inputs")
				}
				view.Set(tx.Inputs[ii].Prevout, coin)
			}
		}
		txid := consensus.Txid(&tx)
		for vout := range tx.Outputs {
			view.Tombstone(consensus.Outpoint{Hash: txid, Index: uint32(vout)})
		}
	}
	if len(undoStack) != 0 {
		return nil, fmt.Errorf("store: disconnect: undo log has %d coins left over after replay", len(undoStack))
	}

	prev := cs.arena.get(e.Prev)
	err = cs.db.Update(func(tx *bbolt.Tx) error {
		coins := tx.Bucket(coinBucket)
		var txErr error
		view.ForEachCoin(func(o consensus.Outpoint, c consensus.Coin) bool {
			key := encodeOutpointKey(o)
			if c.Spent {
				if err := coins.Delete(key); err != nil {
					txErr = err
					return false
				}
				return true
			}
			if err := coins.Put(key, encodeCoin(c)); err != nil {
				txErr = err
				return false
			}
			return true
		})
		if txErr != nil {
			return txErr
		}
		return tx.Bucket(metaBucket).Put(metaTipKey, prev.Hash[:])
	})
	if err != nil {
		return nil, fmt.Errorf("store: disconnect commit: %w", err)
	}

	prev.Next = noEntry
	cs.heights = cs.heights[:len(cs.heights)-1]
	cs.tail = e.Prev
	cs.writeManifest()
	cs.log.Debug("store: disconnected tip", zap.Stringer("hash", e.Hash), zap.Uint32("height", e.Height))
	return view, nil
}

// Spend resolves tx's inputs against the coin bucket via a read-only KV
// snapshot, filling any outpoint view doesn't already know about. The
// snapshot is released before this call returns; a coin missing from both
// view and the store is reported via the returned slice, not as an error
// (spec §4.3.5) — it is the caller's job to decide whether that is fatal.
func (cs *ChainStore) Spend(view *consensus.MapView, tx *consensus.Tx) ([]bool, error) {
	resolved := make([]bool, len(tx.Inputs))
	err := cs.db.View(func(btx *bbolt.Tx) error {
		coins := btx.Bucket(coinBucket)
		for i, in := range tx.Inputs {
			if _, ok := view.ResolveCoin(in.Prevout); ok {
				resolved[i] = true
				continue
			}
			raw := coins.Get(encodeOutpointKey(in.Prevout))
			if raw == nil {
				continue
			}
			coin, err := decodeCoin(raw)
			if err != nil {
				return err
			}
			view.AddCoin(in.Prevout, coin)
			resolved[i] = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: spend: %w", err)
	}
	return resolved, nil
}
