package consensus

// WriteBlock serializes a full block: header || varint(#txs) || txs, each
// tx in its canonical (witness-iff-needed) form (spec §3, §6 "on-disk
// format"). This is the payload ChainStore appends to the active block
// file; it is not a P2P wire message framing, which is out of scope.
func WriteBlock(b *Block) []byte {
	out := WriteHeader(b.Header)
	out = AppendCompactSize(out, uint64(len(b.Txs)))
	for i := range b.Txs {
		out = append(out, Write(&b.Txs[i])...)
	}
	return out
}

// ReadBlock parses a full block from its on-disk/wire form, returning the
// number of bytes consumed.
func ReadBlock(b []byte) (*Block, int, error) {
	if len(b) < HeaderSize {
		return nil, 0, txerr(ErrParse, "block: truncated header")
	}
	header, err := ReadHeader(b[:HeaderSize])
	if err != nil {
		return nil, 0, err
	}
	off := HeaderSize
	nTx, err := readCompactSizeInt(b, &off)
	if err != nil {
		return nil, 0, err
	}
	txs := make([]Tx, nTx)
	for i := 0; i < nTx; i++ {
		tx, n, err := Read(b[off:])
		if err != nil {
			return nil, 0, err
		}
		txs[i] = *tx
		off += n
	}
	return &Block{Header: header, Txs: txs}, off, nil
}

// BlockHash is the block's identification hash: double-SHA-256 of its
// 80-byte header.
func BlockHash(b *Block) H256 {
	return HeaderHash(b.Header)
}
