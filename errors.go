package permitgate

import (
	"errors"
	"fmt"
)

// Error codes surfaced by settlement, refund and administrative entry points.
// Every failure aborts the whole operation; no partial state is ever recorded.
const (
	ErrInvalidRequestType         = "invalid_request_type"
	ErrBlacklisted                = "blacklisted"
	ErrInvalidSignature           = "invalid_signature"
	ErrSignerMismatch             = "signer_mismatch"
	ErrDuplicateTransaction       = "duplicate_transaction"
	ErrUnsupportedToken           = "unsupported_token"
	ErrAmountOutOfBounds          = "amount_out_of_bounds"
	ErrAmountMismatch             = "amount_mismatch"
	ErrSpenderMismatch            = "spender_mismatch"
	ErrRecipientMismatch          = "recipient_mismatch"
	ErrSelfPayment                = "self_payment"
	ErrAuthorizationFailed        = "authorization_failed"
	ErrTransferFailed             = "transfer_failed"
	ErrReentrancyBlocked          = "reentrancy_blocked"
	ErrPaused                     = "paused"
	ErrUnauthorized               = "unauthorized"
	ErrTransactionNotFound        = "transaction_not_found"
	ErrAlreadyRefunded            = "already_refunded"
	ErrInsufficientRecipientFunds = "insufficient_recipient_funds"
	ErrInvalidTokenConfig         = "invalid_token_config"
)

// SettlementError is the error type returned by all engine entry points.
// Code is one of the constants above; Payer identifies whose funds were
// involved when that is known at the point of failure.
type SettlementError struct {
	Code    string `json:"code"`
	Payer   string `json:"payer,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e *SettlementError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewSettlementError creates a settlement error with the given code.
func NewSettlementError(code, payer, message string) *SettlementError {
	return &SettlementError{
		Code:    code,
		Payer:   payer,
		Message: message,
	}
}

// CodeOf returns the settlement error code carried by err, or "" if err
// is not a *SettlementError.
func CodeOf(err error) string {
	var se *SettlementError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
