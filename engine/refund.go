package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	permitgate "github.com/permitgate/permitgate-go"
)

// Refund reverses a settled, not-yet-refunded transaction: the recorded
// received amount moves from the recipient back to the original payer.
// Relayer-only; relayer infrastructure is the arbiter of whether the
// off-chain service was actually delivered.
//
// The refunded flag is set before the external transfer and rolled back if
// the transfer fails, so the durable flag never reads false while a refund
// transfer is in flight.
func (e *Engine) Refund(ctx context.Context, caller, payer common.Address, rawID common.Hash) (*permitgate.RefundedEvent, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.exit()

	if e.Paused() {
		return nil, permitgate.NewSettlementError(permitgate.ErrPaused, payer.Hex(), "engine is paused")
	}
	if !e.IsRelayer(caller) {
		return nil, permitgate.NewSettlementError(permitgate.ErrUnauthorized, payer.Hex(),
			"refund caller is not an authorized relayer")
	}

	nsID := NamespaceTransactionID(rawID, payer, e.self, e.chainID)

	tx, err := e.store.Get(ctx, payer, nsID)
	if err != nil {
		return nil, fmt.Errorf("transaction lookup: %w", err)
	}
	if tx == nil || tx.Payer != payer {
		return nil, permitgate.NewSettlementError(permitgate.ErrTransactionNotFound, payer.Hex(), "no such transaction")
	}
	if tx.Refunded {
		return nil, permitgate.NewSettlementError(permitgate.ErrAlreadyRefunded, payer.Hex(),
			"transaction already refunded")
	}

	recipient := e.Recipient()
	balance, err := e.ledger.BalanceOf(ctx, tx.Token, recipient)
	if err != nil {
		return nil, permitgate.NewSettlementError(permitgate.ErrTransferFailed, payer.Hex(),
			"balance read failed: "+err.Error())
	}
	if balance.Cmp(tx.ReceivedAmount) < 0 {
		return nil, permitgate.NewSettlementError(permitgate.ErrInsufficientRecipientFunds, payer.Hex(),
			"recipient balance below recorded received amount")
	}
	allowance, err := e.ledger.Allowance(ctx, tx.Token, recipient, e.self)
	if err != nil || allowance == nil || allowance.Cmp(tx.ReceivedAmount) < 0 {
		return nil, permitgate.NewSettlementError(permitgate.ErrAuthorizationFailed, payer.Hex(),
			"recipient allowance below recorded received amount")
	}

	if err := e.store.MarkRefunded(ctx, payer, nsID); err != nil {
		return nil, fmt.Errorf("refund record: %w", err)
	}

	actual, err := e.executeTransfer(ctx, tx.Token, recipient, payer, tx.ReceivedAmount,
		func(ctx context.Context, from, to common.Address, amount *big.Int) ([]byte, bool, error) {
			ret, err := e.ledger.TransferFrom(ctx, tx.Token, from, to, amount)
			return ret, true, err
		})
	if err != nil {
		// All-or-nothing: undo the early mark so the refund stays
		// retryable.
		if clearErr := e.store.ClearRefunded(ctx, payer, nsID); clearErr != nil {
			return nil, fmt.Errorf("refund rollback failed after %v: %w", err, clearErr)
		}
		return nil, err
	}

	// The counter moves by the originally recorded amount, not the freshly
	// measured one. The two diverge for fee-on-transfer tokens; the
	// notification carries the measured amount, the books the recorded one.
	e.mu.Lock()
	e.addVolumeLocked(tx.Token, new(big.Int).Neg(tx.ReceivedAmount))
	e.mu.Unlock()

	ev := permitgate.RefundedEvent{
		Payer:         payer,
		Token:         tx.Token,
		Amount:        actual,
		TransactionID: nsID,
	}
	e.events.Refunded(ev)
	return &ev, nil
}
