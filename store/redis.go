package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	permitgate "github.com/permitgate/permitgate-go"
)

const defaultKeyPrefix = "permitgate:tx:"

// RedisStore is a TransactionStore backed by Redis, for deployments where
// the transaction ledger must survive process restarts or be shared across
// instances. Records are stored as JSON under <prefix><payer>:<id> with no
// expiry; create-once semantics come from SETNX.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed transaction store.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: defaultKeyPrefix}
}

func (s *RedisStore) key(payer common.Address, id common.Hash) string {
	return s.prefix + Key(payer, id)
}

// Get implements TransactionStore.
func (s *RedisStore) Get(ctx context.Context, payer common.Address, id common.Hash) (*permitgate.Transaction, error) {
	data, err := s.rdb.Get(ctx, s.key(payer, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var tx permitgate.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("corrupt transaction record: %w", err)
	}
	return &tx, nil
}

// Put implements TransactionStore.
func (s *RedisStore) Put(ctx context.Context, tx *permitgate.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}
	created, err := s.rdb.SetNX(ctx, s.key(tx.Payer, tx.NamespacedID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !created {
		return ErrDuplicate
	}
	return nil
}

// MarkRefunded implements TransactionStore.
func (s *RedisStore) MarkRefunded(ctx context.Context, payer common.Address, id common.Hash) error {
	return s.setRefunded(ctx, payer, id, true)
}

// ClearRefunded implements TransactionStore.
func (s *RedisStore) ClearRefunded(ctx context.Context, payer common.Address, id common.Hash) error {
	return s.setRefunded(ctx, payer, id, false)
}

// setRefunded rewrites the record with the flag updated. The engine holds
// its execution guard across refunds, so read-modify-write is not racing
// another refund of the same record.
func (s *RedisStore) setRefunded(ctx context.Context, payer common.Address, id common.Hash, refunded bool) error {
	tx, err := s.Get(ctx, payer, id)
	if err != nil {
		return err
	}
	if tx == nil {
		return ErrNotFound
	}
	if refunded && tx.Refunded {
		return ErrDuplicate
	}
	tx.Refunded = refunded
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(payer, id), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

var _ TransactionStore = (*RedisStore)(nil)
