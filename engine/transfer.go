package engine

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	permitgate "github.com/permitgate/permitgate-go"
	"github.com/permitgate/permitgate-go/ledger"
)

// transferFunc performs the scheme-specific transfer primitive and reports
// the raw return data plus whether the return-shape shim applies to it.
type transferFunc func(ctx context.Context, from, to common.Address, amount *big.Int) (ret []byte, checkReturn bool, err error)

// executeTransfer moves amount from -> to and returns the amount actually
// received, measured as the recipient-side balance delta. Fee-on-transfer
// and rebasing tokens deliver less than requested; trusting the requested
// amount would misrecord history and corrupt refund accounting.
func (e *Engine) executeTransfer(
	ctx context.Context,
	token common.Address,
	from, to common.Address,
	amount *big.Int,
	call transferFunc,
) (*big.Int, error) {
	before, err := e.ledger.BalanceOf(ctx, token, to)
	if err != nil {
		return nil, permitgate.NewSettlementError(permitgate.ErrTransferFailed, from.Hex(),
			"balance read failed: "+err.Error())
	}

	ret, checkReturn, err := call(ctx, from, to, amount)
	if err != nil {
		return nil, permitgate.NewSettlementError(permitgate.ErrTransferFailed, from.Hex(), err.Error())
	}
	if checkReturn {
		hasCode := true
		if len(ret) == 0 {
			hasCode, err = e.ledger.HasCode(ctx, token)
			if err != nil {
				return nil, permitgate.NewSettlementError(permitgate.ErrTransferFailed, from.Hex(),
					"code check failed: "+err.Error())
			}
		}
		if err := ledger.CheckTransferReturn(ret, hasCode); err != nil {
			return nil, permitgate.NewSettlementError(permitgate.ErrTransferFailed, from.Hex(), err.Error())
		}
	}

	after, err := e.ledger.BalanceOf(ctx, token, to)
	if err != nil {
		return nil, permitgate.NewSettlementError(permitgate.ErrTransferFailed, from.Hex(),
			"balance read failed: "+err.Error())
	}
	// A ledger that decreases the recipient's balance on an inbound
	// transfer is broken; fail rather than record a negative amount.
	if after.Cmp(before) < 0 {
		return nil, permitgate.NewSettlementError(permitgate.ErrTransferFailed, from.Hex(),
			"recipient balance decreased")
	}
	return new(big.Int).Sub(after, before), nil
}
