package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	permitgate "github.com/permitgate/permitgate-go"
	"github.com/permitgate/permitgate-go/engine"
)

// Server mounts the settlement engine's operations on a gin router.
type Server struct {
	engine *engine.Engine
}

// NewServer wraps an engine for HTTP exposure.
func NewServer(eng *engine.Engine) *Server {
	return &Server{engine: eng}
}

// Router builds the route tree. Payment and refund bodies are schema-checked;
// admin operations authenticate through the engine's owner check.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID())

	v1 := r.Group("/v1")
	{
		v1.GET("/health", s.handleHealth)
		v1.POST("/pay/permit", s.handlePayPermit)
		v1.POST("/pay/permit2", s.handlePayPermit2)
		v1.POST("/refund", s.handleRefund)
		v1.GET("/tokens", s.handleTokens)
		v1.GET("/relayers", s.handleRelayers)
		v1.GET("/transactions/:payer/:id", s.handleTransaction)

		admin := v1.Group("/admin")
		{
			admin.POST("/tokens", s.handleAddToken)
			admin.PUT("/tokens/:token", s.handleUpdateToken)
			admin.DELETE("/tokens/:token", s.handleRemoveToken)
			admin.POST("/relayers", s.handleAddRelayer)
			admin.DELETE("/relayers/:relayer", s.handleRemoveRelayer)
			admin.POST("/blacklist", s.handleBlacklist)
			admin.DELETE("/blacklist/:address", s.handleUnblacklist)
			admin.PUT("/recipient", s.handleSetRecipient)
			admin.POST("/pause", s.handlePause)
			admin.POST("/unpause", s.handleUnpause)
			admin.PUT("/owner", s.handleTransferOwnership)
			admin.DELETE("/owner", s.handleRenounceOwnership)
		}
	}
	return r
}

// requestID tags every request and response for log correlation.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("requestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// statusForCode maps settlement error codes onto HTTP statuses.
func statusForCode(code string) int {
	switch code {
	case permitgate.ErrUnauthorized, permitgate.ErrSignerMismatch, permitgate.ErrBlacklisted:
		return http.StatusForbidden
	case permitgate.ErrTransactionNotFound:
		return http.StatusNotFound
	case permitgate.ErrDuplicateTransaction, permitgate.ErrAlreadyRefunded, permitgate.ErrReentrancyBlocked:
		return http.StatusConflict
	case permitgate.ErrPaused:
		return http.StatusServiceUnavailable
	case permitgate.ErrAuthorizationFailed, permitgate.ErrTransferFailed, permitgate.ErrInsufficientRecipientFunds:
		return http.StatusPaymentRequired
	case permitgate.ErrInvalidSignature, permitgate.ErrInvalidRequestType, permitgate.ErrAmountMismatch,
		permitgate.ErrSpenderMismatch, permitgate.ErrRecipientMismatch, permitgate.ErrSelfPayment,
		permitgate.ErrAmountOutOfBounds, permitgate.ErrUnsupportedToken, permitgate.ErrInvalidTokenConfig:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	code := permitgate.CodeOf(err)
	if code == "" {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     err.Error(),
			"requestId": c.GetString("requestID"),
		})
		return
	}
	c.AbortWithStatusJSON(statusForCode(code), gin.H{
		"error":     err.Error(),
		"code":      code,
		"requestId": c.GetString("requestID"),
	})
}

func abortBadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":     err.Error(),
		"requestId": c.GetString("requestID"),
	})
}

// readValidated reads the body, schema-checks it and binds it into out.
func readValidated(c *gin.Context, schema *gojsonschema.Schema, out interface{}) bool {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		abortBadRequest(c, err)
		return false
	}
	if err := validateBody(schema, body); err != nil {
		abortBadRequest(c, err)
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		abortBadRequest(c, err)
		return false
	}
	return true
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"chainId": s.engine.ChainID().String(),
		"engine":  s.engine.Self().Hex(),
		"paused":  s.engine.Paused(),
	})
}

func (s *Server) handlePayPermit(c *gin.Context) {
	var body PayPermitRequest
	if !readValidated(c, payPermitValidator, &body) {
		return
	}

	caller, err := parseAddress("caller", body.Caller)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	mode, err := parseRequestType(body.RequestType)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	sig, err := parseSignature("signature", body.Signature)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	req, err := body.toEngineRequest()
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	tx, err := s.engine.PayWithPermit(c.Request.Context(), caller, req, sig, mode)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": newTransactionResponse(tx)})
}

func (s *Server) handlePayPermit2(c *gin.Context) {
	var body PayPermit2Request
	if !readValidated(c, payPermit2Validator, &body) {
		return
	}

	caller, err := parseAddress("caller", body.Caller)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	mode, err := parseRequestType(body.RequestType)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	sig, err := parseSignature("signature", body.Signature)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	req, err := body.toEngineRequest()
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	tx, err := s.engine.PayWithPermit2(c.Request.Context(), caller, req, sig, mode)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": newTransactionResponse(tx)})
}

func (s *Server) handleRefund(c *gin.Context) {
	var body RefundRequest
	if !readValidated(c, refundValidator, &body) {
		return
	}

	caller, err := parseAddress("caller", body.Caller)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	payer, err := parseAddress("payer", body.Payer)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	txID, err := parseHash("transactionId", body.TransactionID)
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	ev, err := s.engine.Refund(c.Request.Context(), caller, payer, txID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, RefundResponse{
		Payer:         ev.Payer.Hex(),
		Token:         ev.Token.Hex(),
		Amount:        ev.Amount.String(),
		TransactionID: ev.TransactionID.Hex(),
	})
}

func (s *Server) handleTokens(c *gin.Context) {
	tokens := s.engine.Tokens()
	out := make([]TokenResponse, 0, len(tokens))
	for _, cfg := range tokens {
		out = append(out, TokenResponse{
			Token:     cfg.Token.Hex(),
			MinAmount: cfg.MinAmount.String(),
			MaxAmount: cfg.MaxAmount.String(),
			Supported: cfg.Supported,
			Volume:    s.engine.Volume(cfg.Token).String(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"tokens": out})
}

func (s *Server) handleRelayers(c *gin.Context) {
	relayers := s.engine.Relayers()
	out := make([]string, 0, len(relayers))
	for _, r := range relayers {
		out = append(out, r.Hex())
	}
	c.JSON(http.StatusOK, gin.H{"relayers": out})
}

func (s *Server) handleTransaction(c *gin.Context) {
	payer, err := parseAddress("payer", c.Param("payer"))
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	id, err := parseHash("id", c.Param("id"))
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	tx, err := s.engine.TransactionRecord(c.Request.Context(), payer, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": newTransactionResponse(tx)})
}
