package api

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	permitgate "github.com/permitgate/permitgate-go"
	"github.com/permitgate/permitgate-go/engine"
	"github.com/permitgate/permitgate-go/evm"
	"github.com/permitgate/permitgate-go/ledger"
	"github.com/permitgate/permitgate-go/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubLedger is a minimal in-memory ledger: transfers always deliver the full
// amount and permits always apply.
type stubLedger struct {
	balances map[string]*big.Int
}

func newStubLedger() *stubLedger {
	return &stubLedger{balances: make(map[string]*big.Int)}
}

func balKey(token, account common.Address) string {
	return token.Hex() + ":" + account.Hex()
}

func (l *stubLedger) bal(token, account common.Address) *big.Int {
	b, ok := l.balances[balKey(token, account)]
	if !ok {
		b = new(big.Int)
		l.balances[balKey(token, account)] = b
	}
	return b
}

func (l *stubLedger) BalanceOf(_ context.Context, token, account common.Address) (*big.Int, error) {
	return new(big.Int).Set(l.bal(token, account)), nil
}

func (l *stubLedger) TransferFrom(_ context.Context, token, from, to common.Address, amount *big.Int) ([]byte, error) {
	if l.bal(token, from).Cmp(amount) < 0 {
		return nil, fmt.Errorf("insufficient balance")
	}
	l.bal(token, from).Sub(l.bal(token, from), amount)
	l.bal(token, to).Add(l.bal(token, to), amount)
	return common.LeftPadBytes([]byte{1}, 32), nil
}

func (l *stubLedger) HasCode(context.Context, common.Address) (bool, error) { return true, nil }

func (l *stubLedger) Permit(context.Context, common.Address, common.Address, common.Address, *big.Int, *big.Int, uint8, [32]byte, [32]byte) error {
	return nil
}

func (l *stubLedger) Allowance(context.Context, common.Address, common.Address, common.Address) (*big.Int, error) {
	return new(big.Int), nil
}

func (l *stubLedger) Nonces(context.Context, common.Address, common.Address) (*big.Int, error) {
	return new(big.Int), nil
}

type stubRegistry struct {
	tokens *stubLedger
}

func (r *stubRegistry) Permit(context.Context, common.Address, permitgate.PermitSingle, []byte) error {
	return nil
}

func (r *stubRegistry) Allowance(context.Context, common.Address, common.Address, common.Address) (ledger.Permit2Allowance, error) {
	return ledger.Permit2Allowance{Amount: new(big.Int)}, nil
}

func (r *stubRegistry) TransferFrom(ctx context.Context, from, to common.Address, amount *big.Int, token common.Address) error {
	_, err := r.tokens.TransferFrom(ctx, token, from, to, amount)
	return err
}

type apiFixture struct {
	router *gin.Engine

	chainID   *big.Int
	self      common.Address
	owner     common.Address
	recipient common.Address
	token     common.Address

	payerKey *ecdsa.PrivateKey
	payer    common.Address
	relayer  common.Address
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	payerKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	f := &apiFixture{
		chainID:   big.NewInt(8453),
		self:      common.HexToAddress("0x0000000000000000000000000000000000001001"),
		owner:     common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		recipient: common.HexToAddress("0x00000000000000000000000000000000000000bb"),
		token:     common.HexToAddress("0x00000000000000000000000000000000000000cc"),
		payerKey:  payerKey,
		payer:     crypto.PubkeyToAddress(payerKey.PublicKey),
		relayer:   common.HexToAddress("0x00000000000000000000000000000000000000dd"),
	}

	tokens := newStubLedger()
	eng, err := engine.New(engine.Config{
		ChainID:   f.chainID,
		Self:      f.self,
		Owner:     f.owner,
		Recipient: f.recipient,
		Ledger:    tokens,
		Registry:  &stubRegistry{tokens: tokens},
		Store:     store.NewMemoryStore(),
	})
	require.NoError(t, err)

	require.NoError(t, eng.AddToken(f.owner, f.token, big.NewInt(10), big.NewInt(1000)))
	require.NoError(t, eng.AddRelayer(f.owner, f.relayer))
	tokens.bal(f.token, f.payer).SetInt64(1_000_000)

	f.router = NewServer(eng).Router()
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// payPermitBody builds a fully signed wire body for POST /v1/pay/permit.
func (f *apiFixture) payPermitBody(t *testing.T, amount int64, txID common.Hash) map[string]interface{} {
	t.Helper()

	req := permitgate.PermitPaymentRequest{
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
		TransactionID: txID,
	}
	digest, err := evm.HashPermitPayment(req, f.chainID, f.self)
	require.NoError(t, err)
	sig, err := evm.SignDigest(digest, f.payerKey)
	require.NoError(t, err)

	return map[string]interface{}{
		"caller":      f.payer.Hex(),
		"requestType": "direct",
		"signature":   fmt.Sprintf("0x%x", sig),
		"permit": map[string]interface{}{
			"token":    f.token.Hex(),
			"spender":  f.self.Hex(),
			"value":    fmt.Sprintf("%d", amount),
			"deadline": "4000000000",
			"v":        27,
			"r":        common.Hash{}.Hex(),
			"s":        common.Hash{}.Hex(),
		},
		"to":              f.recipient.Hex(),
		"requestedAmount": fmt.Sprintf("%d", amount),
		"signer":          f.payer.Hex(),
		"transactionId":   txID.Hex(),
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "8453", body["chainId"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestPayPermitEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	txID := common.BytesToHash([]byte{1})

	t.Run("settles a valid request", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/pay/permit", f.payPermitBody(t, 100, txID))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Transaction TransactionResponse `json:"transaction"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, f.payer.Hex(), resp.Transaction.Payer)
		assert.Equal(t, "100", resp.Transaction.ReceivedAmount)
		assert.False(t, resp.Transaction.Refunded)
	})

	t.Run("repeat settles with 409", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/pay/permit", f.payPermitBody(t, 100, txID))
		require.Equal(t, http.StatusConflict, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, permitgate.ErrDuplicateTransaction, resp["code"])
	})

	t.Run("schema rejects a missing field", func(t *testing.T) {
		body := f.payPermitBody(t, 100, common.BytesToHash([]byte{2}))
		delete(body, "signer")
		w := f.do(t, http.MethodPost, "/v1/pay/permit", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("schema rejects a malformed amount", func(t *testing.T) {
		body := f.payPermitBody(t, 100, common.BytesToHash([]byte{2}))
		body["requestedAmount"] = "1.5"
		w := f.do(t, http.MethodPost, "/v1/pay/permit", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("out-of-bounds amount maps to 400", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/pay/permit", f.payPermitBody(t, 5000, common.BytesToHash([]byte{3})))
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, permitgate.ErrAmountOutOfBounds, resp["code"])
	})
}

func TestTransactionLookupEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	txID := common.BytesToHash([]byte{1})

	w := f.do(t, http.MethodPost, "/v1/pay/permit", f.payPermitBody(t, 100, txID))
	require.Equal(t, http.StatusOK, w.Code)

	t.Run("found", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/v1/transactions/"+f.payer.Hex()+"/"+txID.Hex(), nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/v1/transactions/"+f.payer.Hex()+"/"+common.BytesToHash([]byte{9}).Hex(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad payer address", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/v1/transactions/nonsense/"+txID.Hex(), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRefundEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	txID := common.BytesToHash([]byte{1})

	w := f.do(t, http.MethodPost, "/v1/pay/permit", f.payPermitBody(t, 100, txID))
	require.Equal(t, http.StatusOK, w.Code)

	refundBody := map[string]interface{}{
		"caller":        f.relayer.Hex(),
		"payer":         f.payer.Hex(),
		"transactionId": txID.Hex(),
	}

	t.Run("recipient allowance missing", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/refund", refundBody)
		assert.Equal(t, http.StatusPaymentRequired, w.Code)
	})

	t.Run("non-relayer caller", func(t *testing.T) {
		body := map[string]interface{}{
			"caller":        f.payer.Hex(),
			"payer":         f.payer.Hex(),
			"transactionId": txID.Hex(),
		}
		w := f.do(t, http.MethodPost, "/v1/refund", body)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestTokensEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/v1/tokens", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Tokens []TokenResponse `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Tokens, 1)
	assert.Equal(t, f.token.Hex(), resp.Tokens[0].Token)
	assert.Equal(t, "10", resp.Tokens[0].MinAmount)
	assert.Equal(t, "1000", resp.Tokens[0].MaxAmount)
	assert.True(t, resp.Tokens[0].Supported)
}

func TestAdminEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	newToken := common.HexToAddress("0xee")

	t.Run("owner adds a token", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/admin/tokens", map[string]interface{}{
			"caller":    f.owner.Hex(),
			"token":     newToken.Hex(),
			"minAmount": "1",
			"maxAmount": "50",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/admin/tokens", map[string]interface{}{
			"caller":    f.payer.Hex(),
			"token":     common.HexToAddress("0xef").Hex(),
			"minAmount": "1",
			"maxAmount": "50",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("owner pauses and unpauses", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/admin/pause", map[string]interface{}{"caller": f.owner.Hex()})
		require.Equal(t, http.StatusOK, w.Code)

		health := f.do(t, http.MethodGet, "/v1/health", nil)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(health.Body.Bytes(), &body))
		assert.Equal(t, true, body["paused"])

		w = f.do(t, http.MethodPost, "/v1/admin/unpause", map[string]interface{}{"caller": f.owner.Hex()})
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("remove token via query caller", func(t *testing.T) {
		w := f.do(t, http.MethodDelete, "/v1/admin/tokens/"+newToken.Hex()+"?caller="+f.owner.Hex(), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})
}
