// Package evm computes the EIP-712 digests for the two supported payment
// request schemes and recovers the signing address from a digest and a raw
// 65-byte signature.
package evm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	permitgate "github.com/permitgate/permitgate-go"
)

const (
	// DomainName and DomainVersion identify the engine's EIP-712 domain.
	// Chain id and verifying-contract identity complete the separator, so a
	// signature is only valid for one engine instance on one chain.
	DomainName    = "PermitGate"
	DomainVersion = "1"
)

// PermitPaymentTypes returns the EIP-712 type descriptors for Scheme-A
// requests. The type names are disjoint from Permit2PaymentTypes so the two
// schemes can never share a type-hash namespace.
func PermitPaymentTypes() map[string][]TypedDataField {
	return map[string][]TypedDataField{
		"PermitPayment": {
			{Name: "permit", Type: "PaymentPermit"},
			{Name: "transferDetails", Type: "TransferDetails"},
			{Name: "signer", Type: "address"},
			{Name: "transactionId", Type: "bytes32"},
		},
		"PaymentPermit": {
			{Name: "token", Type: "address"},
			{Name: "spender", Type: "address"},
			{Name: "value", Type: "uint256"},
			{Name: "deadline", Type: "uint256"},
		},
		"TransferDetails": {
			{Name: "to", Type: "address"},
			{Name: "requestedAmount", Type: "uint256"},
		},
	}
}

// Permit2PaymentTypes returns the EIP-712 type descriptors for Scheme-B
// requests.
func Permit2PaymentTypes() map[string][]TypedDataField {
	return map[string][]TypedDataField{
		"Permit2Payment": {
			{Name: "permit", Type: "PermitSingle"},
			{Name: "transferDetails", Type: "TransferDetails"},
			{Name: "signer", Type: "address"},
			{Name: "transactionId", Type: "bytes32"},
		},
		"PermitSingle": {
			{Name: "details", Type: "PermitDetails"},
			{Name: "spender", Type: "address"},
			{Name: "sigDeadline", Type: "uint256"},
		},
		"PermitDetails": {
			{Name: "token", Type: "address"},
			{Name: "amount", Type: "uint160"},
			{Name: "expiration", Type: "uint48"},
			{Name: "nonce", Type: "uint48"},
		},
		"TransferDetails": {
			{Name: "to", Type: "address"},
			{Name: "requestedAmount", Type: "uint256"},
		},
	}
}

// HashTypedData computes the two-stage EIP-712 digest
// keccak256("\x19\x01" || domainSeparator || structHash).
func HashTypedData(
	domain TypedDataDomain,
	types map[string][]TypedDataField,
	primaryType string,
	message map[string]interface{},
) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types:       make(apitypes.Types),
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*math.HexOrDecimal256)(domain.ChainID),
			VerifyingContract: domain.VerifyingContract,
		},
		Message: message,
	}

	for typeName, fields := range types {
		typedFields := make([]apitypes.Type, len(fields))
		for i, field := range fields {
			typedFields[i] = apitypes.Type{Name: field.Name, Type: field.Type}
		}
		typedData.Types[typeName] = typedFields
	}

	if _, exists := typedData.Types["EIP712Domain"]; !exists {
		typedData.Types["EIP712Domain"] = []apitypes.Type{
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "address"},
		}
	}

	structHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash struct: %w", err)
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	rawData := []byte{0x19, 0x01}
	rawData = append(rawData, domainSeparator...)
	rawData = append(rawData, structHash...)
	return crypto.Keccak256(rawData), nil
}

// HashPermitPayment computes the digest a caller signs over a Scheme-A
// payment request, bound to the given chain and engine identity.
func HashPermitPayment(
	req permitgate.PermitPaymentRequest,
	chainID *big.Int,
	verifyingContract common.Address,
) ([]byte, error) {
	if req.Permit.Permitted.Value == nil || req.Permit.Permitted.Deadline == nil {
		return nil, fmt.Errorf("permit value and deadline are required")
	}
	if req.TransferDetails.RequestedAmount == nil {
		return nil, fmt.Errorf("requested amount is required")
	}

	domain := TypedDataDomain{
		Name:              DomainName,
		Version:           DomainVersion,
		ChainID:           chainID,
		VerifyingContract: verifyingContract.Hex(),
	}

	message := map[string]interface{}{
		"permit": map[string]interface{}{
			"token":    req.Permit.Permitted.Token.Hex(),
			"spender":  req.Permit.Permitted.Spender.Hex(),
			"value":    req.Permit.Permitted.Value,
			"deadline": req.Permit.Permitted.Deadline,
		},
		"transferDetails": map[string]interface{}{
			"to":              req.TransferDetails.To.Hex(),
			"requestedAmount": req.TransferDetails.RequestedAmount,
		},
		"signer":        req.Signer.Hex(),
		"transactionId": req.TransactionID.Bytes(),
	}

	return HashTypedData(domain, PermitPaymentTypes(), "PermitPayment", message)
}

// HashPermit2Payment computes the digest a caller signs over a Scheme-B
// payment request, bound to the given chain and engine identity.
func HashPermit2Payment(
	req permitgate.Permit2PaymentRequest,
	chainID *big.Int,
	verifyingContract common.Address,
) ([]byte, error) {
	if req.Permit.Details.Amount == nil || req.Permit.SigDeadline == nil {
		return nil, fmt.Errorf("permit amount and sigDeadline are required")
	}
	if req.TransferDetails.RequestedAmount == nil {
		return nil, fmt.Errorf("requested amount is required")
	}

	domain := TypedDataDomain{
		Name:              DomainName,
		Version:           DomainVersion,
		ChainID:           chainID,
		VerifyingContract: verifyingContract.Hex(),
	}

	message := map[string]interface{}{
		"permit": map[string]interface{}{
			"details": map[string]interface{}{
				"token":      req.Permit.Details.Token.Hex(),
				"amount":     req.Permit.Details.Amount,
				"expiration": new(big.Int).SetUint64(req.Permit.Details.Expiration),
				"nonce":      new(big.Int).SetUint64(req.Permit.Details.Nonce),
			},
			"spender":     req.Permit.Spender.Hex(),
			"sigDeadline": req.Permit.SigDeadline,
		},
		"transferDetails": map[string]interface{}{
			"to":              req.TransferDetails.To.Hex(),
			"requestedAmount": req.TransferDetails.RequestedAmount,
		},
		"signer":        req.Signer.Hex(),
		"transactionId": req.TransactionID.Bytes(),
	}

	return HashTypedData(domain, Permit2PaymentTypes(), "Permit2Payment", message)
}
