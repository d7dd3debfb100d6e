package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CheckTransferReturn decides whether a non-reverting transferFrom call
// actually succeeded, tolerating the known non-compliant token shapes:
//
//   - a 32-byte word equal to 1: compliant success
//   - a 32-byte word equal to 0: the token reported failure without reverting
//   - empty return data: success only if the token address holds code;
//     a call to a codeless address "succeeds" without doing anything
//   - anything else (short, oversized, non-boolean word): malformed
//
// hasCode is consulted only for the empty-return case.
func CheckTransferReturn(ret []byte, hasCode bool) error {
	switch {
	case len(ret) == 0:
		if !hasCode {
			return fmt.Errorf("empty return data from codeless token address")
		}
		return nil
	case len(ret) == common.HashLength:
		word := new(big.Int).SetBytes(ret)
		if word.Cmp(big.NewInt(1)) != 0 {
			return fmt.Errorf("transfer returned %s", word)
		}
		return nil
	default:
		return fmt.Errorf("malformed transfer return data (%d bytes)", len(ret))
	}
}
