// Package permitgate defines the shared types of the gasless payment
// settlement core: token configuration, payment requests for the two
// supported permit schemes, recorded transactions and emitted events.
//
// The settlement logic itself lives in the engine package; EIP-712 hashing
// and signature recovery in evm; external-collaborator interfaces in ledger.
package permitgate

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RequestType selects who submits a payment and pays for its execution.
type RequestType uint8

const (
	// RequestSponsored means an authorized relayer submits the request on
	// behalf of the signer whose funds move.
	RequestSponsored RequestType = 1
	// RequestDirect means the payer submits the request themself.
	RequestDirect RequestType = 2
)

// TokenConfig holds the per-token transfer bounds maintained by the admin.
// MinAmount <= MaxAmount holds whenever Supported is true.
type TokenConfig struct {
	Token     common.Address `json:"token"`
	MinAmount *big.Int       `json:"minAmount"`
	MaxAmount *big.Int       `json:"maxAmount"`
	Supported bool           `json:"supported"`
}

// TransferDetails names the destination and requested amount of a payment.
// Shared by both permit schemes.
type TransferDetails struct {
	To              common.Address `json:"to"`
	RequestedAmount *big.Int       `json:"requestedAmount"`
}

// PermitDetail is the ERC-2612-style permit body: the holder grants Spender
// rights over Value units of Token until Deadline.
type PermitDetail struct {
	Token    common.Address `json:"token"`
	Spender  common.Address `json:"spender"`
	Value    *big.Int       `json:"value"`
	Deadline *big.Int       `json:"deadline"`
}

// SignedPermit carries a PermitDetail together with the holder's signature
// over it, split into v/r/s as the token's permit entry point expects.
// The token ledger validates this signature, not the engine.
type SignedPermit struct {
	Permitted PermitDetail `json:"permitted"`
	V         uint8        `json:"v"`
	R         [32]byte     `json:"r"`
	S         [32]byte     `json:"s"`
}

// PermitPaymentRequest is a Scheme-A payment: an ERC-2612 permit applied
// directly against the token ledger. TransactionID is the raw caller-supplied
// identifier; the engine namespaces it before use as a storage key.
type PermitPaymentRequest struct {
	Permit          SignedPermit    `json:"permit"`
	TransferDetails TransferDetails `json:"transferDetails"`
	Signer          common.Address  `json:"signer"`
	TransactionID   common.Hash     `json:"transactionId"`
}

// Permit2Details is the allowance-registry permit body. Amount is a uint160
// and Expiration/Nonce are uint48 on the wire; the registry enforces the
// narrower widths.
type Permit2Details struct {
	Token      common.Address `json:"token"`
	Amount     *big.Int       `json:"amount"`
	Expiration uint64         `json:"expiration"`
	Nonce      uint64         `json:"nonce"`
}

// PermitSingle is the Permit2-style single-token permit: Details plus the
// spender being authorized and the signature deadline.
type PermitSingle struct {
	Details     Permit2Details `json:"details"`
	Spender     common.Address `json:"spender"`
	SigDeadline *big.Int       `json:"sigDeadline"`
}

// Permit2PaymentRequest is a Scheme-B payment: a PermitSingle applied against
// the universal allowance registry. Signature is the holder's opaque
// signature over the PermitSingle in the registry's own domain; the registry
// validates it when the permit is applied.
type Permit2PaymentRequest struct {
	Permit          PermitSingle    `json:"permit"`
	TransferDetails TransferDetails `json:"transferDetails"`
	Signer          common.Address  `json:"signer"`
	Signature       []byte          `json:"signature"`
	TransactionID   common.Hash     `json:"transactionId"`
}

// Transaction is the durable record of a settled payment, keyed by
// (Payer, NamespacedID). ReceivedAmount is the measured balance delta at the
// recipient, not the requested amount; Refunded flips to true exactly once.
type Transaction struct {
	NamespacedID    common.Hash    `json:"namespacedId"`
	Payer           common.Address `json:"payer"`
	Token           common.Address `json:"token"`
	RequestedAmount *big.Int       `json:"requestedAmount"`
	ReceivedAmount  *big.Int       `json:"receivedAmount"`
	Refunded        bool           `json:"refunded"`
}

// Clone returns a deep copy so callers cannot mutate stored records.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	cp := *t
	if t.RequestedAmount != nil {
		cp.RequestedAmount = new(big.Int).Set(t.RequestedAmount)
	}
	if t.ReceivedAmount != nil {
		cp.ReceivedAmount = new(big.Int).Set(t.ReceivedAmount)
	}
	return &cp
}

// PaidEvent is emitted after a successful settlement. Amount is the measured
// received amount.
type PaidEvent struct {
	Payer         common.Address `json:"payer"`
	Token         common.Address `json:"token"`
	Amount        *big.Int       `json:"amount"`
	TransactionID common.Hash    `json:"transactionId"`
}

// RefundedEvent is emitted after a successful refund. Amount is the measured
// amount delivered back to the payer, which can differ from the recorded
// received amount for fee-on-transfer tokens.
type RefundedEvent struct {
	Payer         common.Address `json:"payer"`
	Token         common.Address `json:"token"`
	Amount        *big.Int       `json:"amount"`
	TransactionID common.Hash    `json:"transactionId"`
}
