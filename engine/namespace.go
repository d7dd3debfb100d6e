package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// NamespaceTransactionID binds a raw caller-supplied transaction id to the
// payer, the engine instance and the chain. The result is the storage key:
// the same signed (id, payer) pair settled on one chain or engine can never
// collide with, or be replayed onto, another.
func NamespaceTransactionID(rawID common.Hash, payer, engine common.Address, chainID *big.Int) common.Hash {
	buf := make([]byte, 0, 4*common.HashLength)
	buf = append(buf, rawID.Bytes()...)
	buf = append(buf, common.LeftPadBytes(payer.Bytes(), common.HashLength)...)
	buf = append(buf, common.LeftPadBytes(engine.Bytes(), common.HashLength)...)
	buf = append(buf, common.LeftPadBytes(chainID.Bytes(), common.HashLength)...)
	return common.BytesToHash(crypto.Keccak256(buf))
}
