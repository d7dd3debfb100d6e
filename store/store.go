// Package store persists settled-transaction records keyed by
// (payer, namespaced transaction id). The engine treats the store as the
// single source of truth for "has this payment already happened" and
// "has it already been refunded".
package store

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	permitgate "github.com/permitgate/permitgate-go"
)

// ErrDuplicate is returned by Put when a record already exists for the key.
var ErrDuplicate = errors.New("transaction already recorded")

// ErrNotFound is returned by MarkRefunded and ClearRefunded for unknown keys.
var ErrNotFound = errors.New("transaction not found")

// TransactionStore is the durable per-(payer, namespacedID) ledger.
//
// Implementations must be safe for use from multiple goroutines; the engine
// serializes settlement but read accessors may run concurrently.
type TransactionStore interface {
	// Get returns the record for (payer, id), or (nil, nil) when absent.
	Get(ctx context.Context, payer common.Address, id common.Hash) (*permitgate.Transaction, error)

	// Put records a transaction exactly once; a second Put for the same
	// key fails with ErrDuplicate.
	Put(ctx context.Context, tx *permitgate.Transaction) error

	// MarkRefunded flips the refunded flag. Fails with ErrNotFound for an
	// unknown key and with ErrDuplicate when already refunded.
	MarkRefunded(ctx context.Context, payer common.Address, id common.Hash) error

	// ClearRefunded reverses MarkRefunded. It exists solely so the refund
	// engine can roll the flag back when the refund transfer fails after
	// the early mark; it is never part of a successful flow.
	ClearRefunded(ctx context.Context, payer common.Address, id common.Hash) error
}

// Key renders the storage key for a (payer, namespacedID) pair.
func Key(payer common.Address, id common.Hash) string {
	return payer.Hex() + ":" + id.Hex()
}
