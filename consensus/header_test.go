package consensus

import "testing"

func TestHeaderWriteReadRoundTrip(t *testing.T) {
	h := BlockHeader{
		Version:    0x20000000,
		PrevBlock:  H256{1, 2, 3},
		MerkleRoot: H256{4, 5, 6},
		Time:       1700000000,
		Bits:       0x1d00ffff,
		Nonce:      123456,
	}
	b := WriteHeader(h)
	if len(b) != HeaderSize {
		t.Fatalf("len=%d, want %d", len(b), HeaderSize)
	}
	got, err := ReadHeader(b)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if got != h {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, h)
	}
}

func TestReadHeaderRejectsTruncated(t *testing.T) {
	_, err := ReadHeader(make([]byte, HeaderSize-1))
	if err == nil {
		t.Fatalf("expected error for truncated header")
	}
}

func TestHeaderHashDeterministic(t *testing.T) {
	h := BlockHeader{Version: 1, Time: 42}
	a := HeaderHash(h)
	b := HeaderHash(h)
	if a != b {
		t.Fatalf("HeaderHash not deterministic")
	}
	h.Nonce = 1
	if HeaderHash(h) == a {
		t.Fatalf("HeaderHash should change with nonce")
	}
}
