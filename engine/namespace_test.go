package engine

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestNamespaceTransactionID(t *testing.T) {
	id := common.BytesToHash([]byte{1, 2, 3})
	payer := common.HexToAddress("0x11")
	engine := common.HexToAddress("0x22")
	chain := big.NewInt(8453)

	base := NamespaceTransactionID(id, payer, engine, chain)

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, base, NamespaceTransactionID(id, payer, engine, chain))
	})

	t.Run("every input is load-bearing", func(t *testing.T) {
		assert.NotEqual(t, base, NamespaceTransactionID(common.BytesToHash([]byte{9}), payer, engine, chain))
		assert.NotEqual(t, base, NamespaceTransactionID(id, common.HexToAddress("0x12"), engine, chain))
		assert.NotEqual(t, base, NamespaceTransactionID(id, payer, common.HexToAddress("0x23"), chain))
		assert.NotEqual(t, base, NamespaceTransactionID(id, payer, engine, big.NewInt(1)))
	})

	t.Run("not the raw id", func(t *testing.T) {
		assert.NotEqual(t, id, base)
	})
}
