package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	permitgate "github.com/permitgate/permitgate-go"
	"github.com/permitgate/permitgate-go/evm"
	"github.com/permitgate/permitgate-go/store"
)

// settlement carries the scheme-independent view of a payment through the
// shared pipeline. The two schemes differ only in how the request digest is
// built, how spending rights are secured, and which transfer primitive moves
// the funds.
type settlement struct {
	caller    common.Address
	mode      permitgate.RequestType
	recovered common.Address

	signer          common.Address
	token           common.Address
	requested       *big.Int
	authorizedValue *big.Int
	spender         common.Address
	to              common.Address
	rawID           common.Hash

	authorize func(ctx context.Context, payer common.Address) error
	transfer  transferFunc
}

// PayWithPermit settles a Scheme-A payment: an ERC-2612 permit applied
// against the token ledger. sig is the submitter's signature over the
// request digest; mode selects sponsored or direct submission.
func (e *Engine) PayWithPermit(
	ctx context.Context,
	caller common.Address,
	req permitgate.PermitPaymentRequest,
	sig []byte,
	mode permitgate.RequestType,
) (*permitgate.Transaction, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.exit()

	digest, err := evm.HashPermitPayment(req, e.chainID, e.self)
	if err != nil {
		return nil, permitgate.NewSettlementError(permitgate.ErrInvalidSignature, req.Signer.Hex(), err.Error())
	}
	recovered, err := evm.RecoverSigner(digest, sig)
	if err != nil {
		return nil, err
	}

	permitted := req.Permit.Permitted
	return e.settle(ctx, settlement{
		caller:          caller,
		mode:            mode,
		recovered:       recovered,
		signer:          req.Signer,
		token:           permitted.Token,
		requested:       req.TransferDetails.RequestedAmount,
		authorizedValue: permitted.Value,
		spender:         permitted.Spender,
		to:              req.TransferDetails.To,
		rawID:           req.TransactionID,
		authorize: func(ctx context.Context, payer common.Address) error {
			return e.authorizePermit(ctx, payer, req)
		},
		transfer: func(ctx context.Context, from, to common.Address, amount *big.Int) ([]byte, bool, error) {
			ret, err := e.ledger.TransferFrom(ctx, permitted.Token, from, to, amount)
			return ret, true, err
		},
	})
}

// PayWithPermit2 settles a Scheme-B payment: a PermitSingle applied against
// the universal allowance registry, which also executes the transfer.
func (e *Engine) PayWithPermit2(
	ctx context.Context,
	caller common.Address,
	req permitgate.Permit2PaymentRequest,
	sig []byte,
	mode permitgate.RequestType,
) (*permitgate.Transaction, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.exit()

	digest, err := evm.HashPermit2Payment(req, e.chainID, e.self)
	if err != nil {
		return nil, permitgate.NewSettlementError(permitgate.ErrInvalidSignature, req.Signer.Hex(), err.Error())
	}
	recovered, err := evm.RecoverSigner(digest, sig)
	if err != nil {
		return nil, err
	}

	details := req.Permit.Details
	return e.settle(ctx, settlement{
		caller:          caller,
		mode:            mode,
		recovered:       recovered,
		signer:          req.Signer,
		token:           details.Token,
		requested:       req.TransferDetails.RequestedAmount,
		authorizedValue: details.Amount,
		spender:         req.Permit.Spender,
		to:              req.TransferDetails.To,
		rawID:           req.TransactionID,
		authorize: func(ctx context.Context, payer common.Address) error {
			return e.authorizePermit2(ctx, payer, req)
		},
		transfer: func(ctx context.Context, from, to common.Address, amount *big.Int) ([]byte, bool, error) {
			// The registry reverts on failure and returns no data, so
			// the return-shape shim does not apply.
			return nil, false, e.registry.TransferFrom(ctx, from, to, amount, details.Token)
		},
	})
}

// settle runs the shared validation pipeline and, on success, durably
// records the transaction exactly once. All-or-nothing: nothing is written
// until the transfer has succeeded.
func (e *Engine) settle(ctx context.Context, s settlement) (*permitgate.Transaction, error) {
	if e.Paused() {
		return nil, permitgate.NewSettlementError(permitgate.ErrPaused, s.signer.Hex(), "engine is paused")
	}

	var effective common.Address
	switch s.mode {
	case permitgate.RequestSponsored:
		if !e.IsRelayer(s.recovered) {
			return nil, permitgate.NewSettlementError(permitgate.ErrUnauthorized, s.signer.Hex(),
				"sponsored request not signed by an authorized relayer")
		}
		effective = s.signer
	case permitgate.RequestDirect:
		if s.recovered != s.caller {
			return nil, permitgate.NewSettlementError(permitgate.ErrSignerMismatch, s.caller.Hex(),
				"request signature does not match caller")
		}
		if s.signer != s.caller {
			return nil, permitgate.NewSettlementError(permitgate.ErrSignerMismatch, s.caller.Hex(),
				"request signer does not match caller")
		}
		effective = s.caller
	default:
		return nil, permitgate.NewSettlementError(permitgate.ErrInvalidRequestType, s.signer.Hex(),
			fmt.Sprintf("unknown request type %d", s.mode))
	}

	if e.IsBlacklisted(effective) {
		return nil, permitgate.NewSettlementError(permitgate.ErrBlacklisted, effective.Hex(), "payer is blacklisted")
	}

	nsID := NamespaceTransactionID(s.rawID, effective, e.self, e.chainID)

	existing, err := e.store.Get(ctx, effective, nsID)
	if err != nil {
		return nil, fmt.Errorf("transaction lookup: %w", err)
	}
	if existing != nil {
		return nil, permitgate.NewSettlementError(permitgate.ErrDuplicateTransaction, effective.Hex(),
			"transaction already settled")
	}

	cfg, ok := e.Token(s.token)
	if !ok || !cfg.Supported {
		return nil, permitgate.NewSettlementError(permitgate.ErrUnsupportedToken, effective.Hex(),
			"token is not supported")
	}
	if s.requested.Cmp(cfg.MinAmount) < 0 || s.requested.Cmp(cfg.MaxAmount) > 0 {
		return nil, permitgate.NewSettlementError(permitgate.ErrAmountOutOfBounds, effective.Hex(),
			fmt.Sprintf("amount %s outside [%s, %s]", s.requested, cfg.MinAmount, cfg.MaxAmount))
	}
	if s.authorizedValue.Cmp(s.requested) != 0 {
		return nil, permitgate.NewSettlementError(permitgate.ErrAmountMismatch, effective.Hex(),
			"authorized value does not equal requested amount")
	}
	if s.spender != e.self {
		return nil, permitgate.NewSettlementError(permitgate.ErrSpenderMismatch, effective.Hex(),
			"authorization spender is not this engine")
	}

	recipient := e.Recipient()
	if s.to != recipient {
		return nil, permitgate.NewSettlementError(permitgate.ErrRecipientMismatch, effective.Hex(),
			"transfer destination is not the configured recipient")
	}
	if effective == recipient {
		return nil, permitgate.NewSettlementError(permitgate.ErrSelfPayment, effective.Hex(),
			"payer equals recipient")
	}

	if err := s.authorize(ctx, effective); err != nil {
		return nil, err
	}

	received, err := e.executeTransfer(ctx, s.token, effective, recipient, s.requested, s.transfer)
	if err != nil {
		return nil, err
	}

	tx := &permitgate.Transaction{
		NamespacedID:    nsID,
		Payer:           effective,
		Token:           s.token,
		RequestedAmount: new(big.Int).Set(s.requested),
		ReceivedAmount:  received,
	}
	if err := e.store.Put(ctx, tx); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, permitgate.NewSettlementError(permitgate.ErrDuplicateTransaction, effective.Hex(),
				"transaction already settled")
		}
		return nil, fmt.Errorf("transaction record: %w", err)
	}

	e.mu.Lock()
	e.addVolumeLocked(s.token, received)
	e.mu.Unlock()

	e.events.Paid(permitgate.PaidEvent{
		Payer:         effective,
		Token:         s.token,
		Amount:        new(big.Int).Set(received),
		TransactionID: nsID,
	})
	return tx.Clone(), nil
}

// TransactionRecord looks up a settled transaction by payer and raw id,
// namespacing the id the same way settlement did.
func (e *Engine) TransactionRecord(ctx context.Context, payer common.Address, rawID common.Hash) (*permitgate.Transaction, error) {
	nsID := NamespaceTransactionID(rawID, payer, e.self, e.chainID)
	tx, err := e.store.Get(ctx, payer, nsID)
	if err != nil {
		return nil, fmt.Errorf("transaction lookup: %w", err)
	}
	if tx == nil {
		return nil, permitgate.NewSettlementError(permitgate.ErrTransactionNotFound, payer.Hex(), "no such transaction")
	}
	return tx, nil
}
