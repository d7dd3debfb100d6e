package engine

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	permitgate "github.com/permitgate/permitgate-go"
)

// Safe-authorization adapter. A permit is single-use: anyone who sees the
// signed payload in a public queue can submit it first and burn the nonce.
// That must not turn into a denial of service, so a failed permit falls back
// to inspecting the allowance the payer has already granted — if the rights
// exist, whoever put them there, settlement proceeds.

// authorizePermit secures spending rights for a Scheme-A payment against the
// token ledger.
func (e *Engine) authorizePermit(ctx context.Context, payer common.Address, req permitgate.PermitPaymentRequest) error {
	p := req.Permit
	d := p.Permitted
	if err := e.ledger.Permit(ctx, d.Token, payer, d.Spender, d.Value, d.Deadline, p.V, p.R, p.S); err == nil {
		return nil
	}

	allowance, err := e.ledger.Allowance(ctx, d.Token, payer, e.self)
	if err != nil || allowance == nil || allowance.Cmp(d.Value) < 0 {
		return permitgate.NewSettlementError(permitgate.ErrAuthorizationFailed, payer.Hex(), "permit failed")
	}
	return nil
}

// authorizePermit2 secures spending rights for a Scheme-B payment against
// the allowance registry. The fallback checks the registry allowance amount
// against the requested amount.
func (e *Engine) authorizePermit2(ctx context.Context, payer common.Address, req permitgate.Permit2PaymentRequest) error {
	if err := e.registry.Permit(ctx, payer, req.Permit, req.Signature); err == nil {
		return nil
	}

	allowance, err := e.registry.Allowance(ctx, payer, req.Permit.Details.Token, e.self)
	if err != nil || allowance.Amount == nil || allowance.Amount.Cmp(req.TransferDetails.RequestedAmount) < 0 {
		return permitgate.NewSettlementError(permitgate.ErrAuthorizationFailed, payer.Hex(), "permit2 failed")
	}
	return nil
}
