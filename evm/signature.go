package evm

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	permitgate "github.com/permitgate/permitgate-go"
)

// SignatureLength is the canonical r || s || v signature size.
const SignatureLength = 65

var (
	secp256k1N     = crypto.S256().Params().N
	secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)
)

// RecoverSigner recovers the address that produced sig over the 32-byte
// digest. The v byte may be 0/1 or 27/28. Signatures with s above the curve
// half order, or with v outside those ranges, are rejected rather than
// recovered to a different address (malleability).
func RecoverSigner(digest []byte, sig []byte) (common.Address, error) {
	if len(digest) != common.HashLength {
		return common.Address{}, permitgate.NewSettlementError(
			permitgate.ErrInvalidSignature, "", fmt.Sprintf("digest must be 32 bytes, got %d", len(digest)))
	}
	if len(sig) != SignatureLength {
		return common.Address{}, permitgate.NewSettlementError(
			permitgate.ErrInvalidSignature, "", fmt.Sprintf("signature must be 65 bytes, got %d", len(sig)))
	}

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	v := sig[64]
	if v == 27 || v == 28 {
		v -= 27
	}
	if v > 1 {
		return common.Address{}, permitgate.NewSettlementError(
			permitgate.ErrInvalidSignature, "", fmt.Sprintf("invalid recovery id %d", sig[64]))
	}
	if r.Sign() == 0 || r.Cmp(secp256k1N) >= 0 {
		return common.Address{}, permitgate.NewSettlementError(
			permitgate.ErrInvalidSignature, "", "signature r out of range")
	}
	if s.Sign() == 0 || s.Cmp(secp256k1HalfN) > 0 {
		return common.Address{}, permitgate.NewSettlementError(
			permitgate.ErrInvalidSignature, "", "signature s out of range")
	}

	plain := make([]byte, SignatureLength)
	copy(plain, sig[:64])
	plain[64] = v

	pub, err := crypto.SigToPub(digest, plain)
	if err != nil {
		return common.Address{}, permitgate.NewSettlementError(
			permitgate.ErrInvalidSignature, "", err.Error())
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// SignDigest signs a 32-byte digest and returns an r || s || v signature
// with v in {27, 28}, the form RecoverSigner and the on-chain verifiers
// expect. Used by clients and tests.
func SignDigest(digest []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// SplitSignature splits a 65-byte signature into the v/r/s parts a
// 2612-style permit entry point takes.
func SplitSignature(sig []byte) (v uint8, r [32]byte, s [32]byte, err error) {
	if len(sig) != SignatureLength {
		return 0, r, s, fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	copy(r[:], sig[:32])
	copy(s[:], sig[32:64])
	return sig[64], r, s, nil
}

// HexToBytes decodes a hex string with or without a 0x prefix.
func HexToBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd-length hex string")
	}
	return hex.DecodeString(s)
}
