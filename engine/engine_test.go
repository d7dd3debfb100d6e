package engine

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	permitgate "github.com/permitgate/permitgate-go"
	"github.com/permitgate/permitgate-go/evm"
	"github.com/permitgate/permitgate-go/ledger"
	"github.com/permitgate/permitgate-go/store"
)

// mockLedger is an in-memory token ledger with controllable misbehavior:
// a transfer fee, a forced permit failure, and an overridable transferFrom
// return shape.
type mockLedger struct {
	balances   map[common.Address]map[common.Address]*big.Int
	allowances map[string]*big.Int

	permitErr   error
	permitCalls int

	feeBps      int64
	retOverride []byte
	retSet      bool
	hasCode     bool

	// onTransfer runs just before balances move; used to simulate a token
	// calling back into the engine.
	onTransfer func()
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		balances:   make(map[common.Address]map[common.Address]*big.Int),
		allowances: make(map[string]*big.Int),
		hasCode:    true,
	}
}

func allowanceKey(token, owner, spender common.Address) string {
	return token.Hex() + ":" + owner.Hex() + ":" + spender.Hex()
}

func (m *mockLedger) setBalance(token, account common.Address, amount int64) {
	if m.balances[token] == nil {
		m.balances[token] = make(map[common.Address]*big.Int)
	}
	m.balances[token][account] = big.NewInt(amount)
}

func (m *mockLedger) balance(token, account common.Address) *big.Int {
	if m.balances[token] == nil {
		m.balances[token] = make(map[common.Address]*big.Int)
	}
	b, ok := m.balances[token][account]
	if !ok {
		b = new(big.Int)
		m.balances[token][account] = b
	}
	return b
}

func (m *mockLedger) BalanceOf(_ context.Context, token, account common.Address) (*big.Int, error) {
	return new(big.Int).Set(m.balance(token, account)), nil
}

func (m *mockLedger) TransferFrom(_ context.Context, token, from, to common.Address, amount *big.Int) ([]byte, error) {
	if m.onTransfer != nil {
		m.onTransfer()
	}

	fromBal := m.balance(token, from)
	if fromBal.Cmp(amount) < 0 {
		return nil, fmt.Errorf("insufficient balance")
	}
	delivered := new(big.Int).Set(amount)
	if m.feeBps > 0 {
		fee := new(big.Int).Div(new(big.Int).Mul(amount, big.NewInt(m.feeBps)), big.NewInt(10000))
		delivered.Sub(delivered, fee)
	}
	fromBal.Sub(fromBal, amount)
	m.balance(token, to).Add(m.balance(token, to), delivered)

	if m.retSet {
		return m.retOverride, nil
	}
	return common.LeftPadBytes([]byte{1}, 32), nil
}

func (m *mockLedger) HasCode(_ context.Context, _ common.Address) (bool, error) {
	return m.hasCode, nil
}

func (m *mockLedger) Permit(_ context.Context, token, owner, spender common.Address, value, _ *big.Int, _ uint8, _, _ [32]byte) error {
	m.permitCalls++
	if m.permitErr != nil {
		return m.permitErr
	}
	m.allowances[allowanceKey(token, owner, spender)] = new(big.Int).Set(value)
	return nil
}

func (m *mockLedger) Allowance(_ context.Context, token, owner, spender common.Address) (*big.Int, error) {
	a, ok := m.allowances[allowanceKey(token, owner, spender)]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(a), nil
}

func (m *mockLedger) Nonces(_ context.Context, _, _ common.Address) (*big.Int, error) {
	return new(big.Int), nil
}

var _ ledger.Ledger = (*mockLedger)(nil)

// mockRegistry is an in-memory allowance registry sharing balances with a
// mockLedger.
type mockRegistry struct {
	tokens     *mockLedger
	allowances map[string]ledger.Permit2Allowance
	permitErr  error
}

func newMockRegistry(tokens *mockLedger) *mockRegistry {
	return &mockRegistry{
		tokens:     tokens,
		allowances: make(map[string]ledger.Permit2Allowance),
	}
}

func (m *mockRegistry) Permit(_ context.Context, owner common.Address, permit permitgate.PermitSingle, _ []byte) error {
	if m.permitErr != nil {
		return m.permitErr
	}
	m.allowances[allowanceKey(permit.Details.Token, owner, permit.Spender)] = ledger.Permit2Allowance{
		Amount:     new(big.Int).Set(permit.Details.Amount),
		Expiration: permit.Details.Expiration,
		Nonce:      permit.Details.Nonce,
	}
	return nil
}

func (m *mockRegistry) Allowance(_ context.Context, owner, token, spender common.Address) (ledger.Permit2Allowance, error) {
	a, ok := m.allowances[allowanceKey(token, owner, spender)]
	if !ok {
		return ledger.Permit2Allowance{Amount: new(big.Int)}, nil
	}
	return a, nil
}

func (m *mockRegistry) TransferFrom(ctx context.Context, from, to common.Address, amount *big.Int, token common.Address) error {
	_, err := m.tokens.TransferFrom(ctx, token, from, to, amount)
	return err
}

var _ ledger.AllowanceRegistry = (*mockRegistry)(nil)

// fixture wires an engine with one supported token (bounds 10..1000), one
// relayer and a funded payer.
type fixture struct {
	engine   *Engine
	tokens   *mockLedger
	registry *mockRegistry
	events   *Collector

	chainID   *big.Int
	self      common.Address
	owner     common.Address
	recipient common.Address
	token     common.Address

	payerKey   *ecdsa.PrivateKey
	payer      common.Address
	relayerKey *ecdsa.PrivateKey
	relayer    common.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	payerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	relayerKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	f := &fixture{
		tokens:     newMockLedger(),
		events:     NewCollector(),
		chainID:    big.NewInt(8453),
		self:       common.HexToAddress("0x0000000000000000000000000000000000001001"),
		owner:      common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		recipient:  common.HexToAddress("0x00000000000000000000000000000000000000bb"),
		token:      common.HexToAddress("0x00000000000000000000000000000000000000cc"),
		payerKey:   payerKey,
		payer:      crypto.PubkeyToAddress(payerKey.PublicKey),
		relayerKey: relayerKey,
		relayer:    crypto.PubkeyToAddress(relayerKey.PublicKey),
	}
	f.registry = newMockRegistry(f.tokens)

	eng, err := New(Config{
		ChainID:   f.chainID,
		Self:      f.self,
		Owner:     f.owner,
		Recipient: f.recipient,
		Ledger:    f.tokens,
		Registry:  f.registry,
		Store:     store.NewMemoryStore(),
		Events:    f.events,
	})
	require.NoError(t, err)
	f.engine = eng

	require.NoError(t, eng.AddToken(f.owner, f.token, big.NewInt(10), big.NewInt(1000)))
	require.NoError(t, eng.AddRelayer(f.owner, f.relayer))
	f.tokens.setBalance(f.token, f.payer, 1_000_000)

	return f
}

// permitRequest builds a well-formed Scheme-A request for amount.
func (f *fixture) permitRequest(amount int64, rawID common.Hash) permitgate.PermitPaymentRequest {
	return permitgate.PermitPaymentRequest{
		Permit: permitgate.SignedPermit{
			Permitted: permitgate.PermitDetail{
				Token:    f.token,
				Spender:  f.self,
				Value:    big.NewInt(amount),
				Deadline: big.NewInt(4_000_000_000),
			},
			V: 27,
		},
		TransferDetails: permitgate.TransferDetails{
			To:              f.recipient,
			RequestedAmount: big.NewInt(amount),
		},
		Signer:        f.payer,
		TransactionID: rawID,
	}
}

// permit2Request builds a well-formed Scheme-B request for amount.
func (f *fixture) permit2Request(amount int64, rawID common.Hash) permitgate.Permit2PaymentRequest {
	return permitgate.Permit2PaymentRequest{
		Permit: permitgate.PermitSingle{
			Details: permitgate.Permit2Details{
				Token:      f.token,
				Amount:     big.NewInt(amount),
				Expiration: 4_000_000_000,
				Nonce:      1,
			},
			Spender:     f.self,
			SigDeadline: big.NewInt(4_000_000_000),
		},
		TransferDetails: permitgate.TransferDetails{
			To:              f.recipient,
			RequestedAmount: big.NewInt(amount),
		},
		Signer:        f.payer,
		Signature:     []byte{0x01},
		TransactionID: rawID,
	}
}

func (f *fixture) signPermitRequest(t *testing.T, req permitgate.PermitPaymentRequest, key *ecdsa.PrivateKey) []byte {
	t.Helper()
	digest, err := evm.HashPermitPayment(req, f.chainID, f.self)
	require.NoError(t, err)
	sig, err := evm.SignDigest(digest, key)
	require.NoError(t, err)
	return sig
}

func (f *fixture) signPermit2Request(t *testing.T, req permitgate.Permit2PaymentRequest, key *ecdsa.PrivateKey) []byte {
	t.Helper()
	digest, err := evm.HashPermit2Payment(req, f.chainID, f.self)
	require.NoError(t, err)
	sig, err := evm.SignDigest(digest, key)
	require.NoError(t, err)
	return sig
}

func rawID(n byte) common.Hash {
	return common.BytesToHash([]byte{n})
}

func ledgerAllowance(amount int64) ledger.Permit2Allowance {
	return ledger.Permit2Allowance{Amount: big.NewInt(amount), Expiration: 4_000_000_000}
}

func TestNewValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing chain id", func(c *Config) { c.ChainID = nil }},
		{"missing self", func(c *Config) { c.Self = common.Address{} }},
		{"missing owner", func(c *Config) { c.Owner = common.Address{} }},
		{"missing recipient", func(c *Config) { c.Recipient = common.Address{} }},
		{"missing ledger", func(c *Config) { c.Ledger = nil }},
		{"missing registry", func(c *Config) { c.Registry = nil }},
		{"missing store", func(c *Config) { c.Store = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{
				ChainID:   f.chainID,
				Self:      f.self,
				Owner:     f.owner,
				Recipient: f.recipient,
				Ledger:    f.tokens,
				Registry:  f.registry,
				Store:     store.NewMemoryStore(),
			}
			tc.mutate(&cfg)
			_, err := New(cfg)
			require.Error(t, err)
		})
	}
}
