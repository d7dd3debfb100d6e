// Package api exposes the settlement engine over HTTP. Amounts travel as
// decimal strings and byte values as 0x-prefixed hex, so request bodies stay
// readable and no precision is lost to JSON numbers.
package api

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	permitgate "github.com/permitgate/permitgate-go"
	"github.com/permitgate/permitgate-go/evm"
)

// PermitBody is the wire form of an ERC-2612 permit with its signature.
type PermitBody struct {
	Token    string `json:"token"`
	Spender  string `json:"spender"`
	Value    string `json:"value"`
	Deadline string `json:"deadline"`
	V        uint8  `json:"v"`
	R        string `json:"r"`
	S        string `json:"s"`
}

// PayPermitRequest is the body of POST /v1/pay/permit.
type PayPermitRequest struct {
	Caller          string     `json:"caller"`
	RequestType     string     `json:"requestType"`
	Signature       string     `json:"signature"`
	Permit          PermitBody `json:"permit"`
	To              string     `json:"to"`
	RequestedAmount string     `json:"requestedAmount"`
	Signer          string     `json:"signer"`
	TransactionID   string     `json:"transactionId"`
}

// Permit2Body is the wire form of a PermitSingle with its opaque signature.
type Permit2Body struct {
	Token       string `json:"token"`
	Amount      string `json:"amount"`
	Expiration  uint64 `json:"expiration"`
	Nonce       uint64 `json:"nonce"`
	Spender     string `json:"spender"`
	SigDeadline string `json:"sigDeadline"`
	Signature   string `json:"signature"`
}

// PayPermit2Request is the body of POST /v1/pay/permit2.
type PayPermit2Request struct {
	Caller          string      `json:"caller"`
	RequestType     string      `json:"requestType"`
	Signature       string      `json:"signature"`
	Permit          Permit2Body `json:"permit"`
	To              string      `json:"to"`
	RequestedAmount string      `json:"requestedAmount"`
	Signer          string      `json:"signer"`
	TransactionID   string      `json:"transactionId"`
}

// RefundRequest is the body of POST /v1/refund.
type RefundRequest struct {
	Caller        string `json:"caller"`
	Payer         string `json:"payer"`
	TransactionID string `json:"transactionId"`
}

// TransactionResponse renders a settled transaction.
type TransactionResponse struct {
	NamespacedID    string `json:"namespacedId"`
	Payer           string `json:"payer"`
	Token           string `json:"token"`
	RequestedAmount string `json:"requestedAmount"`
	ReceivedAmount  string `json:"receivedAmount"`
	Refunded        bool   `json:"refunded"`
}

func newTransactionResponse(tx *permitgate.Transaction) TransactionResponse {
	return TransactionResponse{
		NamespacedID:    tx.NamespacedID.Hex(),
		Payer:           tx.Payer.Hex(),
		Token:           tx.Token.Hex(),
		RequestedAmount: tx.RequestedAmount.String(),
		ReceivedAmount:  tx.ReceivedAmount.String(),
		Refunded:        tx.Refunded,
	}
}

// RefundResponse renders a completed refund.
type RefundResponse struct {
	Payer         string `json:"payer"`
	Token         string `json:"token"`
	Amount        string `json:"amount"`
	TransactionID string `json:"transactionId"`
}

// TokenResponse renders a registry entry.
type TokenResponse struct {
	Token     string `json:"token"`
	MinAmount string `json:"minAmount"`
	MaxAmount string `json:"maxAmount"`
	Supported bool   `json:"supported"`
	Volume    string `json:"volume"`
}

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", field, s)
	}
	return common.HexToAddress(s), nil
}

func parseAmount(field, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%s: invalid amount %q", field, s)
	}
	return v, nil
}

func parseHash(field, s string) (common.Hash, error) {
	b, err := evm.HexToBytes(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%s: invalid 32-byte hex value %q", field, s)
	}
	return common.BytesToHash(b), nil
}

func parseWord(field, s string) ([32]byte, error) {
	var w [32]byte
	b, err := evm.HexToBytes(s)
	if err != nil || len(b) != 32 {
		return w, fmt.Errorf("%s: invalid 32-byte hex value %q", field, s)
	}
	copy(w[:], b)
	return w, nil
}

func parseSignature(field, s string) ([]byte, error) {
	b, err := evm.HexToBytes(s)
	if err != nil || len(b) != evm.SignatureLength {
		return nil, fmt.Errorf("%s: invalid 65-byte signature", field)
	}
	return b, nil
}

func parseRequestType(s string) (permitgate.RequestType, error) {
	switch s {
	case "sponsored":
		return permitgate.RequestSponsored, nil
	case "direct":
		return permitgate.RequestDirect, nil
	default:
		return 0, fmt.Errorf("requestType: must be \"sponsored\" or \"direct\"")
	}
}

// toEngineRequest converts a wire body into the engine's request type.
func (r PayPermitRequest) toEngineRequest() (permitgate.PermitPaymentRequest, error) {
	var out permitgate.PermitPaymentRequest

	token, err := parseAddress("permit.token", r.Permit.Token)
	if err != nil {
		return out, err
	}
	spender, err := parseAddress("permit.spender", r.Permit.Spender)
	if err != nil {
		return out, err
	}
	value, err := parseAmount("permit.value", r.Permit.Value)
	if err != nil {
		return out, err
	}
	deadline, err := parseAmount("permit.deadline", r.Permit.Deadline)
	if err != nil {
		return out, err
	}
	rWord, err := parseWord("permit.r", r.Permit.R)
	if err != nil {
		return out, err
	}
	sWord, err := parseWord("permit.s", r.Permit.S)
	if err != nil {
		return out, err
	}
	to, err := parseAddress("to", r.To)
	if err != nil {
		return out, err
	}
	amount, err := parseAmount("requestedAmount", r.RequestedAmount)
	if err != nil {
		return out, err
	}
	signer, err := parseAddress("signer", r.Signer)
	if err != nil {
		return out, err
	}
	txID, err := parseHash("transactionId", r.TransactionID)
	if err != nil {
		return out, err
	}

	out = permitgate.PermitPaymentRequest{
		Permit: permitgate.SignedPermit{
			Permitted: permitgate.PermitDetail{
				Token:    token,
				Spender:  spender,
				Value:    value,
				Deadline: deadline,
			},
			V: r.Permit.V,
			R: rWord,
			S: sWord,
		},
		TransferDetails: permitgate.TransferDetails{
			To:              to,
			RequestedAmount: amount,
		},
		Signer:        signer,
		TransactionID: txID,
	}
	return out, nil
}

// toEngineRequest converts a wire body into the engine's request type.
func (r PayPermit2Request) toEngineRequest() (permitgate.Permit2PaymentRequest, error) {
	var out permitgate.Permit2PaymentRequest

	token, err := parseAddress("permit.token", r.Permit.Token)
	if err != nil {
		return out, err
	}
	amount, err := parseAmount("permit.amount", r.Permit.Amount)
	if err != nil {
		return out, err
	}
	spender, err := parseAddress("permit.spender", r.Permit.Spender)
	if err != nil {
		return out, err
	}
	sigDeadline, err := parseAmount("permit.sigDeadline", r.Permit.SigDeadline)
	if err != nil {
		return out, err
	}
	permitSig, err := evm.HexToBytes(r.Permit.Signature)
	if err != nil || len(permitSig) == 0 {
		return out, fmt.Errorf("permit.signature: invalid hex signature")
	}
	to, err := parseAddress("to", r.To)
	if err != nil {
		return out, err
	}
	requested, err := parseAmount("requestedAmount", r.RequestedAmount)
	if err != nil {
		return out, err
	}
	signer, err := parseAddress("signer", r.Signer)
	if err != nil {
		return out, err
	}
	txID, err := parseHash("transactionId", r.TransactionID)
	if err != nil {
		return out, err
	}

	out = permitgate.Permit2PaymentRequest{
		Permit: permitgate.PermitSingle{
			Details: permitgate.Permit2Details{
				Token:      token,
				Amount:     amount,
				Expiration: r.Permit.Expiration,
				Nonce:      r.Permit.Nonce,
			},
			Spender:     spender,
			SigDeadline: sigDeadline,
		},
		TransferDetails: permitgate.TransferDetails{
			To:              to,
			RequestedAmount: requested,
		},
		Signer:        signer,
		Signature:     permitSig,
		TransactionID: txID,
	}
	return out, nil
}
