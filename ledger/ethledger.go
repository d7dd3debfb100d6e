package ledger

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	permitgate "github.com/permitgate/permitgate-go"
)

// EthLedger implements Ledger and AllowanceRegistry over a JSON-RPC
// connection. Mutating calls are simulated with eth_call first so the raw
// return data is observable, then submitted and waited for; a reverted
// receipt surfaces as an error.
type EthLedger struct {
	client   *ethclient.Client
	key      *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int
	registry common.Address
	erc20    abi.ABI
	permit2  abi.ABI
}

// NewEthLedger creates an RPC-backed ledger adapter. privateKeyHex funds and
// signs the settlement transactions; registry is the deployed allowance
// registry address.
func NewEthLedger(client *ethclient.Client, privateKeyHex string, chainID *big.Int, registry common.Address) (*EthLedger, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	erc20, err := abi.JSON(bytes.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}
	permit2, err := abi.JSON(bytes.NewReader(permit2ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse permit2 abi: %w", err)
	}

	return &EthLedger{
		client:   client,
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		chainID:  chainID,
		registry: registry,
		erc20:    erc20,
		permit2:  permit2,
	}, nil
}

// From returns the transaction-submitting address.
func (l *EthLedger) From() common.Address {
	return l.from
}

// BalanceOf implements Ledger.
func (l *EthLedger) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	out, err := l.call(ctx, token, l.erc20, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf returned non-integer")
	}
	return balance, nil
}

// TransferFrom implements Ledger. The returned bytes are the eth_call
// simulation result; the state-changing transaction follows only if the
// simulation did not revert.
func (l *EthLedger) TransferFrom(ctx context.Context, token, from, to common.Address, amount *big.Int) ([]byte, error) {
	data, err := l.erc20.Pack("transferFrom", from, to, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack transferFrom: %w", err)
	}
	ret, err := l.client.CallContract(ctx, ethereum.CallMsg{From: l.from, To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("transferFrom reverted: %w", err)
	}
	if err := l.transact(ctx, token, data); err != nil {
		return nil, err
	}
	return ret, nil
}

// HasCode implements Ledger.
func (l *EthLedger) HasCode(ctx context.Context, token common.Address) (bool, error) {
	code, err := l.client.CodeAt(ctx, token, nil)
	if err != nil {
		return false, fmt.Errorf("failed to fetch code: %w", err)
	}
	return len(code) > 0, nil
}

// Permit implements Ledger.
func (l *EthLedger) Permit(ctx context.Context, token, owner, spender common.Address, value, deadline *big.Int, v uint8, r, s [32]byte) error {
	data, err := l.erc20.Pack("permit", owner, spender, value, deadline, v, r, s)
	if err != nil {
		return fmt.Errorf("failed to pack permit: %w", err)
	}
	if _, err := l.client.CallContract(ctx, ethereum.CallMsg{From: l.from, To: &token, Data: data}, nil); err != nil {
		return fmt.Errorf("permit reverted: %w", err)
	}
	return l.transact(ctx, token, data)
}

// Allowance implements Ledger.
func (l *EthLedger) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	out, err := l.call(ctx, token, l.erc20, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	allowance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("allowance returned non-integer")
	}
	return allowance, nil
}

// Nonces implements Ledger.
func (l *EthLedger) Nonces(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	out, err := l.call(ctx, token, l.erc20, "nonces", owner)
	if err != nil {
		return nil, err
	}
	nonce, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("nonces returned non-integer")
	}
	return nonce, nil
}

// permit2Details mirrors the registry's PermitDetails tuple for abi packing.
type permit2Details struct {
	Token      common.Address
	Amount     *big.Int
	Expiration *big.Int
	Nonce      *big.Int
}

type permit2Single struct {
	Details     permit2Details
	Spender     common.Address
	SigDeadline *big.Int
}

// RegistryPermit implements AllowanceRegistry.Permit. EthLedger exposes the
// registry methods under distinct names and the Registry() view wraps them,
// so one RPC client can serve both interfaces.
func (l *EthLedger) RegistryPermit(ctx context.Context, owner common.Address, permit permitgate.PermitSingle, signature []byte) error {
	single := permit2Single{
		Details: permit2Details{
			Token:      permit.Details.Token,
			Amount:     permit.Details.Amount,
			Expiration: new(big.Int).SetUint64(permit.Details.Expiration),
			Nonce:      new(big.Int).SetUint64(permit.Details.Nonce),
		},
		Spender:     permit.Spender,
		SigDeadline: permit.SigDeadline,
	}
	data, err := l.permit2.Pack("permit", owner, single, signature)
	if err != nil {
		return fmt.Errorf("failed to pack registry permit: %w", err)
	}
	if _, err := l.client.CallContract(ctx, ethereum.CallMsg{From: l.from, To: &l.registry, Data: data}, nil); err != nil {
		return fmt.Errorf("registry permit reverted: %w", err)
	}
	return l.transact(ctx, l.registry, data)
}

// RegistryAllowance implements AllowanceRegistry.Allowance.
func (l *EthLedger) RegistryAllowance(ctx context.Context, owner, token, spender common.Address) (Permit2Allowance, error) {
	out, err := l.call(ctx, l.registry, l.permit2, "allowance", owner, token, spender)
	if err != nil {
		return Permit2Allowance{}, err
	}
	if len(out) != 3 {
		return Permit2Allowance{}, fmt.Errorf("registry allowance returned %d values", len(out))
	}
	amount, ok1 := out[0].(*big.Int)
	expiration, ok2 := out[1].(*big.Int)
	nonce, ok3 := out[2].(*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return Permit2Allowance{}, fmt.Errorf("registry allowance returned unexpected types")
	}
	return Permit2Allowance{
		Amount:     amount,
		Expiration: expiration.Uint64(),
		Nonce:      nonce.Uint64(),
	}, nil
}

// RegistryTransferFrom implements AllowanceRegistry.TransferFrom.
func (l *EthLedger) RegistryTransferFrom(ctx context.Context, from, to common.Address, amount *big.Int, token common.Address) error {
	data, err := l.permit2.Pack("transferFrom", from, to, amount, token)
	if err != nil {
		return fmt.Errorf("failed to pack registry transferFrom: %w", err)
	}
	if _, err := l.client.CallContract(ctx, ethereum.CallMsg{From: l.from, To: &l.registry, Data: data}, nil); err != nil {
		return fmt.Errorf("registry transferFrom reverted: %w", err)
	}
	return l.transact(ctx, l.registry, data)
}

// Registry returns an AllowanceRegistry view over this client.
func (l *EthLedger) Registry() AllowanceRegistry {
	return registryView{l}
}

type registryView struct {
	l *EthLedger
}

func (r registryView) Permit(ctx context.Context, owner common.Address, permit permitgate.PermitSingle, signature []byte) error {
	return r.l.RegistryPermit(ctx, owner, permit, signature)
}

func (r registryView) Allowance(ctx context.Context, owner, token, spender common.Address) (Permit2Allowance, error) {
	return r.l.RegistryAllowance(ctx, owner, token, spender)
}

func (r registryView) TransferFrom(ctx context.Context, from, to common.Address, amount *big.Int, token common.Address) error {
	return r.l.RegistryTransferFrom(ctx, from, to, amount, token)
}

// call performs a read-only contract call and unpacks the outputs.
func (l *EthLedger) call(ctx context.Context, target common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	ret, err := l.client.CallContract(ctx, ethereum.CallMsg{From: l.from, To: &target, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	out, err := contractABI.Unpack(method, ret)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return out, nil
}

// transact signs, submits and waits for a state-changing call.
func (l *EthLedger) transact(ctx context.Context, to common.Address, data []byte) error {
	nonce, err := l.client.PendingNonceAt(ctx, l.from)
	if err != nil {
		return fmt.Errorf("failed to fetch account nonce: %w", err)
	}
	gasPrice, err := l.client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch gas price: %w", err)
	}
	gasLimit, err := l.client.EstimateGas(ctx, ethereum.CallMsg{From: l.from, To: &to, Data: data})
	if err != nil {
		return fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(l.chainID), l.key)
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := l.client.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("failed to send transaction: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, l.client, signed)
	if err != nil {
		return fmt.Errorf("failed waiting for receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("transaction %s reverted on chain", signed.Hash())
	}
	return nil
}

var _ Ledger = (*EthLedger)(nil)
var _ AllowanceRegistry = registryView{}
