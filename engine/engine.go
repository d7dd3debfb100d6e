// Package engine implements the gasless payment settlement core: permit
// verification, idempotent settlement, one-time refunds and the registry
// layer (tokens, relayers, blacklist, volume counters).
//
// All mutating entry points run under a non-reentrant execution guard. The
// only concurrency hazard by design is the external ledger calling back into
// the engine mid-operation; such a call fails with reentrancy_blocked
// instead of deadlocking or corrupting state.
package engine

import (
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"

	permitgate "github.com/permitgate/permitgate-go"
	"github.com/permitgate/permitgate-go/ledger"
	"github.com/permitgate/permitgate-go/store"
)

// Config carries everything an Engine needs at construction.
type Config struct {
	// ChainID and Self bind signatures and namespaced transaction ids to
	// this engine instance on this chain.
	ChainID *big.Int
	Self    common.Address

	Owner     common.Address
	Recipient common.Address

	Ledger   ledger.Ledger
	Registry ledger.AllowanceRegistry
	Store    store.TransactionStore

	// Events receives settlement, refund and configuration notifications.
	// Optional; defaults to a no-op sink.
	Events Events
}

// Engine is the settlement core. One instance owns its registries and
// transaction ledger; nothing is process-global.
type Engine struct {
	// busy is the reentrancy barrier for settlement and refund. Held for
	// the full duration of each mutating entry point, released on every
	// exit path.
	busy atomic.Bool

	// mu guards the registry state below against concurrent read
	// accessors. Settlement-path mutation happens with busy held.
	mu sync.RWMutex

	chainID   *big.Int
	self      common.Address
	owner     common.Address
	recipient common.Address
	paused    bool

	tokens    map[common.Address]permitgate.TokenConfig
	tokenList []common.Address

	relayers    map[common.Address]struct{}
	relayerList []common.Address

	blacklist map[common.Address]struct{}

	// volume tracks per-token cumulative received amounts. Observability
	// only; it drives no control decision.
	volume map[common.Address]*big.Int

	ledger   ledger.Ledger
	registry ledger.AllowanceRegistry
	store    store.TransactionStore
	events   Events
}

// New validates the configuration and creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.ChainID == nil || cfg.ChainID.Sign() <= 0 {
		return nil, fmt.Errorf("engine: chain id is required")
	}
	if cfg.Self == (common.Address{}) {
		return nil, fmt.Errorf("engine: self identity is required")
	}
	if cfg.Owner == (common.Address{}) {
		return nil, fmt.Errorf("engine: owner is required")
	}
	if cfg.Recipient == (common.Address{}) {
		return nil, fmt.Errorf("engine: recipient is required")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("engine: ledger is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("engine: allowance registry is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("engine: transaction store is required")
	}
	events := cfg.Events
	if events == nil {
		events = NopEvents{}
	}

	return &Engine{
		chainID:   new(big.Int).Set(cfg.ChainID),
		self:      cfg.Self,
		owner:     cfg.Owner,
		recipient: cfg.Recipient,
		tokens:    make(map[common.Address]permitgate.TokenConfig),
		relayers:  make(map[common.Address]struct{}),
		blacklist: make(map[common.Address]struct{}),
		volume:    make(map[common.Address]*big.Int),
		ledger:    cfg.Ledger,
		registry:  cfg.Registry,
		store:     cfg.Store,
		events:    events,
	}, nil
}

// enter acquires the non-reentrant execution guard.
func (e *Engine) enter() error {
	if !e.busy.CompareAndSwap(false, true) {
		return permitgate.NewSettlementError(permitgate.ErrReentrancyBlocked, "", "operation already in flight")
	}
	return nil
}

// exit releases the guard. Deferred on every entry point.
func (e *Engine) exit() {
	e.busy.Store(false)
}

// ChainID returns the chain identity bound into signatures and namespacing.
func (e *Engine) ChainID() *big.Int {
	return new(big.Int).Set(e.chainID)
}

// Self returns the engine's own identity (the EIP-712 verifying contract).
func (e *Engine) Self() common.Address {
	return e.self
}
