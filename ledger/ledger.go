// Package ledger defines the engine's view of its external collaborators:
// the token ledger that holds balances and applies 2612-style permits, and
// the universal allowance registry ("Permit2") that holds signature-based
// allowances for arbitrary tokens. It also houses the compatibility shim
// that decides whether a raw transferFrom call succeeded.
package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	permitgate "github.com/permitgate/permitgate-go"
)

// Ledger is the external token ledger, addressed per token.
//
// TransferFrom returns the raw return data of the call so the engine can run
// it through CheckTransferReturn: real tokens variously return a boolean,
// nothing at all, or garbage, and the distinction matters.
type Ledger interface {
	// BalanceOf returns the token balance of account.
	BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error)

	// TransferFrom moves amount from -> to and returns the raw return data.
	// An error means the call itself reverted or could not be made.
	TransferFrom(ctx context.Context, token, from, to common.Address, amount *big.Int) ([]byte, error)

	// HasCode reports whether the token address holds contract code.
	HasCode(ctx context.Context, token common.Address) (bool, error)

	// Permit applies a 2612-style off-chain authorization. The ledger
	// validates the holder signature and consumes the holder's nonce.
	Permit(ctx context.Context, token, owner, spender common.Address, value, deadline *big.Int, v uint8, r, s [32]byte) error

	// Allowance returns the spending rights owner has granted spender.
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)

	// Nonces returns the holder's current permit nonce.
	Nonces(ctx context.Context, token, owner common.Address) (*big.Int, error)
}

// Permit2Allowance is the (amount, expiration, nonce) triple the allowance
// registry tracks per (owner, token, spender).
type Permit2Allowance struct {
	Amount     *big.Int
	Expiration uint64
	Nonce      uint64
}

// AllowanceRegistry is the Permit2-equivalent universal allowance registry.
// Unlike raw token transfers it reverts on failure, so TransferFrom returns
// only an error.
type AllowanceRegistry interface {
	// Permit applies a signed PermitSingle on behalf of owner.
	Permit(ctx context.Context, owner common.Address, permit permitgate.PermitSingle, signature []byte) error

	// Allowance returns the registry allowance owner has granted spender
	// over token.
	Allowance(ctx context.Context, owner, token, spender common.Address) (Permit2Allowance, error)

	// TransferFrom moves amount of token from -> to using the registry
	// allowance granted to the caller.
	TransferFrom(ctx context.Context, from, to common.Address, amount *big.Int, token common.Address) error
}
