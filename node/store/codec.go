package store

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/LinuXperia/mako/consensus"
)

// encodeOutpointKey is the coin bucket key: txid(32) || vout(u32le).
func encodeOutpointKey(o consensus.Outpoint) []byte {
	out := make([]byte, 36)
	copy(out[:32], o.Hash[:])
	binary.LittleEndian.PutUint32(out[32:], o.Index)
	return out
}

// encodeCoin serializes a Coin for the coin bucket: height(u32le) |
// coinbase(u8) | value(i64le) | script_len(CompactSize) | script.
func encodeCoin(c consensus.Coin) []byte {
	out := make([]byte, 0, 4+1+8+1+len(c.Output.Script))
	out = consensus.AppendU32le(out, c.Height)
	if c.Coinbase {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = consensus.AppendU64le(out, uint64(c.Output.Value))
	out = consensus.AppendCompactSize(out, uint64(len(c.Output.Script)))
	out = append(out, c.Output.Script...)
	return out
}

func decodeCoin(b []byte) (consensus.Coin, error) {
	if len(b) < 4+1+8+1 {
		return consensus.Coin{}, fmt.Errorf("store: coin record truncated")
	}
	height := binary.LittleEndian.Uint32(b[0:4])
	coinbase := b[4] != 0
	value := int64(binary.LittleEndian.Uint64(b[5:13]))
	scriptLen, n, err := consensus.DecodeCompactSize(b[13:])
	if err != nil {
		return consensus.Coin{}, fmt.Errorf("store: coin script length: %w", err)
	}
	off := 13 + n
	if off+int(scriptLen) != len(b) {
		return consensus.Coin{}, fmt.Errorf("store: coin record has wrong script length")
	}
	script := append([]byte(nil), b[off:]...)
	return consensus.Coin{
		Output:   consensus.Output{Value: value, Script: script},
		Height:   height,
		Coinbase: coinbase,
	}, nil
}

// encodeEntry serializes an Entry for the index bucket. prev/next links
// are not stored: prev is re-derived from Header.PrevBlock on load, and
// next is rebuilt by walking the tip backwards (spec §4.3.1 steps 4-6).
func encodeEntry(e *Entry) ([]byte, error) {
	if e.Chainwork == nil || e.Chainwork.Sign() < 0 {
		return nil, fmt.Errorf("store: entry chainwork required and non-negative")
	}
	work := e.Chainwork.Bytes()
	if len(work) > 0xffff {
		return nil, fmt.Errorf("store: entry chainwork too large")
	}
	out := consensus.WriteHeader(e.Header)
	out = consensus.AppendU32le(out, e.Height)
	out = consensus.AppendU16le(out, uint16(len(work)))
	out = append(out, work...)
	out = appendI32le(out, e.BlockFile)
	out = appendI32le(out, e.BlockPos)
	out = appendI32le(out, e.UndoFile)
	out = appendI32le(out, e.UndoPos)
	return out, nil
}

func decodeEntry(hash consensus.H256, b []byte) (*Entry, error) {
	if len(b) < consensus.HeaderSize {
		return nil, fmt.Errorf("store: entry record truncated (header)")
	}
	header, err := consensus.ReadHeader(b[:consensus.HeaderSize])
	if err != nil {
		return nil, err
	}
	off := consensus.HeaderSize
	if len(b) < off+4+2 {
		return nil, fmt.Errorf("store: entry record truncated (height/work_len)")
	}
	height := binary.LittleEndian.Uint32(b[off : off+4])
	off += 4
	workLen := int(binary.LittleEndian.Uint16(b[off : off+2]))
	off += 2
	if len(b) < off+workLen+4*4 {
		return nil, fmt.Errorf("store: entry record truncated (work/positions)")
	}
	work := new(big.Int).SetBytes(b[off : off+workLen])
	off += workLen
	blockFile := readI32le(b[off:])
	off += 4
	blockPos := readI32le(b[off:])
	off += 4
	undoFile := readI32le(b[off:])
	off += 4
	undoPos := readI32le(b[off:])
	off += 4
	if off != len(b) {
		return nil, fmt.Errorf("store: entry record has trailing bytes")
	}
	return &Entry{
		Hash:      hash,
		Header:    header,
		Height:    height,
		Chainwork: work,
		BlockFile: blockFile,
		BlockPos:  blockPos,
		UndoFile:  undoFile,
		UndoPos:   undoPos,
		Prev:      noEntry,
		Next:      noEntry,
	}, nil
}

// encodeUndoRecord serializes the coins a block's connection spent, in
// push (spend) order, so disconnect can pop them back off in reverse.
func encodeUndoRecord(coins []consensus.Coin) []byte {
	out := consensus.AppendU32le(nil, uint32(len(coins)))
	for _, c := range coins {
		enc := encodeCoin(c)
		out = consensus.AppendU32le(out, uint32(len(enc)))
		out = append(out, enc...)
	}
	return out
}

func decodeUndoRecord(b []byte) ([]consensus.Coin, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("store: undo record truncated")
	}
	n := binary.LittleEndian.Uint32(b[0:4])
	off := 4
	out := make([]consensus.Coin, 0, n)
	for i := uint32(0); i < n; i++ {
		if off+4 > len(b) {
			return nil, fmt.Errorf("store: undo record truncated (length prefix)")
		}
		l := int(binary.LittleEndian.Uint32(b[off : off+4]))
		off += 4
		if off+l > len(b) {
			return nil, fmt.Errorf("store: undo record truncated (coin body)")
		}
		c, err := decodeCoin(b[off : off+l])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		off += l
	}
	if off != len(b) {
		return nil, fmt.Errorf("store: undo record has trailing bytes")
	}
	return out, nil
}

func appendI32le(dst []byte, v int32) []byte {
	return consensus.AppendU32le(dst, uint32(v))
}

func readI32le(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b[:4]))
}

// fileWatermark is the meta['F'] value: the active block file number and
// the byte offset of the logical end-of-file (spec §4.3).
type fileWatermark struct {
	File int32
	Pos  int32
}

func encodeWatermark(w fileWatermark) []byte {
	out := appendI32le(nil, w.File)
	out = appendI32le(out, w.Pos)
	return out
}

func decodeWatermark(b []byte) (fileWatermark, error) {
	if len(b) != 8 {
		return fileWatermark{}, fmt.Errorf("store: watermark record must be 8 bytes, got %d", len(b))
	}
	return fileWatermark{File: readI32le(b), Pos: readI32le(b[4:])}, nil
}
