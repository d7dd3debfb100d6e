package store

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	permitgate "github.com/permitgate/permitgate-go"
)

// MemoryStore is the in-process TransactionStore, suitable for tests and
// single-instance deployments. State is mutex-guarded; records are cloned on
// the way in and out so callers never alias stored big.Ints.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*permitgate.Transaction
}

// NewMemoryStore creates an empty in-memory transaction store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*permitgate.Transaction),
	}
}

// Get implements TransactionStore.
func (s *MemoryStore) Get(_ context.Context, payer common.Address, id common.Hash) (*permitgate.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[Key(payer, id)]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

// Put implements TransactionStore.
func (s *MemoryStore) Put(_ context.Context, tx *permitgate.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key(tx.Payer, tx.NamespacedID)
	if _, exists := s.records[key]; exists {
		return ErrDuplicate
	}
	s.records[key] = tx.Clone()
	return nil
}

// MarkRefunded implements TransactionStore.
func (s *MemoryStore) MarkRefunded(_ context.Context, payer common.Address, id common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[Key(payer, id)]
	if !ok {
		return ErrNotFound
	}
	if rec.Refunded {
		return ErrDuplicate
	}
	rec.Refunded = true
	return nil
}

// ClearRefunded implements TransactionStore.
func (s *MemoryStore) ClearRefunded(_ context.Context, payer common.Address, id common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[Key(payer, id)]
	if !ok {
		return ErrNotFound
	}
	rec.Refunded = false
	return nil
}

var _ TransactionStore = (*MemoryStore)(nil)
