package crypto

import (
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // consensus-critical hash160, not a security primitive
)

// Std is the production Provider. It is stateless and safe for concurrent
// use; callers may issue reads (e.g. ChainStore.Spend snapshots) from helper
// goroutines per the single-writer concurrency model in the design notes.
type Std struct{}

func (Std) SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

func (Std) Hash256(data []byte) [32]byte {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}

func (Std) RIPEMD160(data []byte) [20]byte {
	h := ripemd160.New()
	h.Write(data) //nolint:errcheck // ripemd160.digest.Write never returns an error
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (s Std) Hash160(data []byte) [20]byte {
	sha := s.SHA256(data)
	return s.RIPEMD160(sha[:])
}

func (Std) SipHash24(k0, k1 uint64, data []byte) uint64 {
	return sipHash24(k0, k1, data)
}

// PubKeyCreate derives a public key from a 32-byte scalar private key.
func (Std) PubKeyCreate(priv [32]byte, compressed bool) ([]byte, error) {
	privKey := secp256k1.PrivKeyFromBytes(priv[:])
	defer privKey.Zero()
	pub := privKey.PubKey()
	if compressed {
		return pub.SerializeCompressed(), nil
	}
	return pub.SerializeUncompressed(), nil
}

// PubKeyConvert converts an uncompressed (65-byte) public key to its
// compressed (33-byte) form.
func (Std) PubKeyConvert(uncompressed []byte) ([]byte, error) {
	pub, err := secp256k1.ParsePubKey(uncompressed)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse pubkey: %w", err)
	}
	return pub.SerializeCompressed(), nil
}

// Sign produces a low-S, deterministic (RFC6979) ECDSA signature over msg32
// and returns it as raw (r, s) — 32 bytes each.
func (Std) Sign(msg32 [32]byte, priv [32]byte) ([64]byte, error) {
	privKey := secp256k1.PrivKeyFromBytes(priv[:])
	defer privKey.Zero()
	sig := ecdsa.Sign(privKey, msg32[:])
	var out [64]byte
	r, sVal := sig.R(), sig.S()
	rb, sb := r.Bytes(), sVal.Bytes()
	copy(out[:32], rb[:])
	copy(out[32:], sb[:])
	return out, nil
}

// SigExport converts a raw (r,s) signature to strict DER encoding.
func (Std) SigExport(sig64 [64]byte) []byte {
	var r, s secp256k1.ModNScalar
	r.SetByteSlice(sig64[:32])
	s.SetByteSlice(sig64[32:])
	sig := ecdsa.NewSignature(&r, &s)
	return sig.Serialize()
}

// Verify checks a DER-encoded ECDSA signature (trailing sighash-type byte,
// if any, must already be stripped by the caller) against msg32 and pubkey.
func (Std) Verify(msg32 [32]byte, pubkey []byte, derSig []byte) bool {
	pub, err := secp256k1.ParsePubKey(pubkey)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(derSig)
	if err != nil {
		return false
	}
	return sig.Verify(msg32[:], pub)
}
