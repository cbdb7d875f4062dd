package store

import (
	"fmt"
	"math/big"
)

var twoTo256 = new(big.Int).Lsh(big.NewInt(1), 256)

// WorkFromTarget returns floor(2^256 / (target+1)) for PoW chainwork, the
// same +1 correction Bitcoin's own difficulty-to-work conversion applies
// so a target of all-ones doesn't divide by a value one short of 2^256.
// target is interpreted as an unsigned big-endian integer.
func WorkFromTarget(target32 [32]byte) (*big.Int, error) {
	t := new(big.Int).SetBytes(target32[:])
	if t.Sign() <= 0 {
		return nil, fmt.Errorf("work: target must be > 0")
	}
	denom := new(big.Int).Add(t, big.NewInt(1))
	return new(big.Int).Quo(twoTo256, denom), nil
}

// BitsToTarget expands a compact ("nBits") PoW target into its 32-byte
// big-endian representation, using the same three-byte-mantissa /
// one-byte-exponent layout Bitcoin headers carry in BlockHeader.Bits.
func BitsToTarget(bits uint32) [32]byte {
	exp := bits >> 24
	mant := bits & 0x007fffff
	var target big.Int
	if exp <= 3 {
		target.SetUint64(uint64(mant) >> (8 * (3 - exp)))
	} else {
		target.SetUint64(uint64(mant))
		target.Lsh(&target, 8*(uint(exp)-3))
	}
	var out [32]byte
	b := target.Bytes()
	if len(b) > 32 {
		b = b[len(b)-32:]
	}
	copy(out[32-len(b):], b)
	return out
}

// WorkFromBits is the chainwork contribution of one block at the given
// compact difficulty, i.e. WorkFromTarget(BitsToTarget(bits)).
func WorkFromBits(bits uint32) (*big.Int, error) {
	return WorkFromTarget(BitsToTarget(bits))
}

