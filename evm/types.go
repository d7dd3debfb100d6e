package evm

import "math/big"

// TypedDataDomain represents the EIP-712 domain separator parameters.
type TypedDataDomain struct {
	Name              string   `json:"name"`
	Version           string   `json:"version"`
	ChainID           *big.Int `json:"chainId"`
	VerifyingContract string   `json:"verifyingContract"`
}

// TypedDataField represents a single field in an EIP-712 type descriptor.
type TypedDataField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}
