package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	permitgate "github.com/permitgate/permitgate-go"
)

// Administrative surface. Every operation is a single registry mutation,
// restricted to the owner, with a ConfigChanged notification on success.

func (e *Engine) requireOwnerLocked(caller common.Address) error {
	if caller != e.owner {
		return permitgate.NewSettlementError(permitgate.ErrUnauthorized, "", "caller is not the owner")
	}
	return nil
}

// AddToken registers a token with its transfer bounds. Re-adding a removed
// token re-enables it; adding a token that is already supported fails.
func (e *Engine) AddToken(caller common.Address, token common.Address, minAmount, maxAmount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(caller); err != nil {
		return err
	}
	if token == (common.Address{}) {
		return permitgate.NewSettlementError(permitgate.ErrInvalidTokenConfig, "", "token address is zero")
	}
	if minAmount == nil || maxAmount == nil || minAmount.Sign() < 0 || minAmount.Cmp(maxAmount) > 0 {
		return permitgate.NewSettlementError(permitgate.ErrInvalidTokenConfig, "", "bounds must satisfy 0 <= min <= max")
	}
	if cfg, exists := e.tokens[token]; exists && cfg.Supported {
		return permitgate.NewSettlementError(permitgate.ErrInvalidTokenConfig, "", "token already supported")
	}

	if _, seen := e.tokens[token]; !seen {
		e.tokenList = append(e.tokenList, token)
	}
	e.tokens[token] = permitgate.TokenConfig{
		Token:     token,
		MinAmount: new(big.Int).Set(minAmount),
		MaxAmount: new(big.Int).Set(maxAmount),
		Supported: true,
	}
	e.events.ConfigChanged("token_added", token)
	return nil
}

// UpdateToken replaces the bounds of a supported token. It never toggles
// support.
func (e *Engine) UpdateToken(caller common.Address, token common.Address, minAmount, maxAmount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(caller); err != nil {
		return err
	}
	cfg, exists := e.tokens[token]
	if !exists || !cfg.Supported {
		return permitgate.NewSettlementError(permitgate.ErrUnsupportedToken, "", "token is not supported")
	}
	if minAmount == nil || maxAmount == nil || minAmount.Sign() < 0 || minAmount.Cmp(maxAmount) > 0 {
		return permitgate.NewSettlementError(permitgate.ErrInvalidTokenConfig, "", "bounds must satisfy 0 <= min <= max")
	}

	cfg.MinAmount = new(big.Int).Set(minAmount)
	cfg.MaxAmount = new(big.Int).Set(maxAmount)
	e.tokens[token] = cfg
	e.events.ConfigChanged("token_updated", token)
	return nil
}

// RemoveToken logically destroys a token config: supported=false, bounds
// zeroed. The token stays enumerable so its history remains attributable.
func (e *Engine) RemoveToken(caller common.Address, token common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(caller); err != nil {
		return err
	}
	cfg, exists := e.tokens[token]
	if !exists || !cfg.Supported {
		return permitgate.NewSettlementError(permitgate.ErrUnsupportedToken, "", "token is not supported")
	}

	cfg.Supported = false
	cfg.MinAmount = new(big.Int)
	cfg.MaxAmount = new(big.Int)
	e.tokens[token] = cfg
	e.events.ConfigChanged("token_removed", token)
	return nil
}

// AddRelayer authorizes a relayer. Idempotent: adding a present member is a
// no-op, so the set and the enumeration sequence can never diverge.
func (e *Engine) AddRelayer(caller common.Address, relayer common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(caller); err != nil {
		return err
	}
	if relayer == (common.Address{}) {
		return permitgate.NewSettlementError(permitgate.ErrInvalidTokenConfig, "", "relayer address is zero")
	}
	if _, exists := e.relayers[relayer]; exists {
		return nil
	}
	e.relayers[relayer] = struct{}{}
	e.relayerList = append(e.relayerList, relayer)
	e.events.ConfigChanged("relayer_added", relayer)
	return nil
}

// RemoveRelayer revokes a relayer from both the set and the sequence.
func (e *Engine) RemoveRelayer(caller common.Address, relayer common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(caller); err != nil {
		return err
	}
	if _, exists := e.relayers[relayer]; !exists {
		return nil
	}
	delete(e.relayers, relayer)
	for i, r := range e.relayerList {
		if r == relayer {
			e.relayerList = append(e.relayerList[:i], e.relayerList[i+1:]...)
			break
		}
	}
	e.events.ConfigChanged("relayer_removed", relayer)
	return nil
}

// Blacklist bars an address from initiating payments.
func (e *Engine) Blacklist(caller common.Address, addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(caller); err != nil {
		return err
	}
	e.blacklist[addr] = struct{}{}
	e.events.ConfigChanged("blacklisted", addr)
	return nil
}

// Unblacklist lifts the bar.
func (e *Engine) Unblacklist(caller common.Address, addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(caller); err != nil {
		return err
	}
	delete(e.blacklist, addr)
	e.events.ConfigChanged("unblacklisted", addr)
	return nil
}

// SetRecipient changes the settlement destination.
func (e *Engine) SetRecipient(caller common.Address, recipient common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(caller); err != nil {
		return err
	}
	if recipient == (common.Address{}) {
		return permitgate.NewSettlementError(permitgate.ErrInvalidTokenConfig, "", "recipient address is zero")
	}
	e.recipient = recipient
	e.events.ConfigChanged("recipient_changed", recipient)
	return nil
}

// Pause stops settlement and refunds.
func (e *Engine) Pause(caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(caller); err != nil {
		return err
	}
	e.paused = true
	e.events.ConfigChanged("paused", common.Address{})
	return nil
}

// Unpause resumes operation.
func (e *Engine) Unpause(caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(caller); err != nil {
		return err
	}
	e.paused = false
	e.events.ConfigChanged("unpaused", common.Address{})
	return nil
}

// TransferOwnership hands admin authority to a new owner.
func (e *Engine) TransferOwnership(caller common.Address, newOwner common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(caller); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return permitgate.NewSettlementError(permitgate.ErrInvalidTokenConfig, "", "new owner address is zero")
	}
	e.owner = newOwner
	e.events.ConfigChanged("ownership_transferred", newOwner)
	return nil
}

// RenounceOwnership permanently gives up admin authority.
func (e *Engine) RenounceOwnership(caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(caller); err != nil {
		return err
	}
	e.owner = common.Address{}
	e.events.ConfigChanged("ownership_renounced", common.Address{})
	return nil
}

// Read accessors.

// Token returns the config for a token and whether it has ever been added.
func (e *Engine) Token(token common.Address) (permitgate.TokenConfig, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cfg, ok := e.tokens[token]
	return cfg, ok
}

// Tokens enumerates every token ever added, in insertion order.
func (e *Engine) Tokens() []permitgate.TokenConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]permitgate.TokenConfig, 0, len(e.tokenList))
	for _, addr := range e.tokenList {
		out = append(out, e.tokens[addr])
	}
	return out
}

// Relayers enumerates the authorized relayers in insertion order.
func (e *Engine) Relayers() []common.Address {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]common.Address, len(e.relayerList))
	copy(out, e.relayerList)
	return out
}

// IsRelayer reports relayer-set membership.
func (e *Engine) IsRelayer(addr common.Address) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.relayers[addr]
	return ok
}

// IsBlacklisted reports blacklist membership.
func (e *Engine) IsBlacklisted(addr common.Address) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.blacklist[addr]
	return ok
}

// Recipient returns the configured settlement destination.
func (e *Engine) Recipient() common.Address {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.recipient
}

// Owner returns the current admin identity.
func (e *Engine) Owner() common.Address {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.owner
}

// Paused reports the operational state.
func (e *Engine) Paused() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.paused
}

// Volume returns the cumulative received amount for a token, net of refunds.
func (e *Engine) Volume(token common.Address) *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.volume[token]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// addVolumeLocked adjusts the per-token counter; delta may be negative.
func (e *Engine) addVolumeLocked(token common.Address, delta *big.Int) {
	v, ok := e.volume[token]
	if !ok {
		v = new(big.Int)
		e.volume[token] = v
	}
	v.Add(v, delta)
}
