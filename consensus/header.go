package consensus

// HeaderSize is the fixed wire length of a BlockHeader.
const HeaderSize = 80

// WriteHeader serializes h to its canonical 80-byte wire form.
func WriteHeader(h BlockHeader) []byte {
	out := make([]byte, 0, HeaderSize)
	out = AppendU32le(out, h.Version)
	out = append(out, h.PrevBlock[:]...)
	out = append(out, h.MerkleRoot[:]...)
	out = AppendU32le(out, h.Time)
	out = AppendU32le(out, h.Bits)
	out = AppendU32le(out, h.Nonce)
	return out
}

// ReadHeader parses an 80-byte block header.
func ReadHeader(b []byte) (BlockHeader, error) {
	if len(b) < HeaderSize {
		return BlockHeader{}, txerr(ErrParse, "header: truncated")
	}
	off := 0
	var h BlockHeader
	v, err := readU32le(b, &off)
	if err != nil {
		return BlockHeader{}, err
	}
	h.Version = v
	prev, err := readBytes(b, &off, 32)
	if err != nil {
		return BlockHeader{}, err
	}
	copy(h.PrevBlock[:], prev)
	root, err := readBytes(b, &off, 32)
	if err != nil {
		return BlockHeader{}, err
	}
	copy(h.MerkleRoot[:], root)
	if h.Time, err = readU32le(b, &off); err != nil {
		return BlockHeader{}, err
	}
	if h.Bits, err = readU32le(b, &off); err != nil {
		return BlockHeader{}, err
	}
	if h.Nonce, err = readU32le(b, &off); err != nil {
		return BlockHeader{}, err
	}
	return h, nil
}

// HeaderHash is the block hash: double-SHA-256 of the serialized header.
func HeaderHash(h BlockHeader) H256 {
	return H256(Crypto.Hash256(WriteHeader(h)))
}
