package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Admin bodies carry the acting owner address explicitly; the engine decides
// whether that address actually holds authority.

type tokenAdminBody struct {
	Caller    string `json:"caller"`
	Token     string `json:"token"`
	MinAmount string `json:"minAmount"`
	MaxAmount string `json:"maxAmount"`
}

type addressAdminBody struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
}

type callerBody struct {
	Caller string `json:"caller"`
}

// callerFromQuery resolves the acting address for DELETE routes, which carry
// no body.
func callerFromQuery(c *gin.Context) (string, error) {
	caller := c.Query("caller")
	if caller == "" {
		return "", fmt.Errorf("caller query parameter is required")
	}
	return caller, nil
}

func (s *Server) handleAddToken(c *gin.Context) {
	var body tokenAdminBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortBadRequest(c, err)
		return
	}
	caller, err := parseAddress("caller", body.Caller)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	token, err := parseAddress("token", body.Token)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	minAmount, err := parseAmount("minAmount", body.MinAmount)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	maxAmount, err := parseAmount("maxAmount", body.MaxAmount)
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	if err := s.engine.AddToken(caller, token, minAmount, maxAmount); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token.Hex()})
}

func (s *Server) handleUpdateToken(c *gin.Context) {
	var body tokenAdminBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortBadRequest(c, err)
		return
	}
	caller, err := parseAddress("caller", body.Caller)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	token, err := parseAddress("token", c.Param("token"))
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	minAmount, err := parseAmount("minAmount", body.MinAmount)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	maxAmount, err := parseAmount("maxAmount", body.MaxAmount)
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	if err := s.engine.UpdateToken(caller, token, minAmount, maxAmount); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token.Hex()})
}

func (s *Server) handleRemoveToken(c *gin.Context) {
	rawCaller, err := callerFromQuery(c)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	caller, err := parseAddress("caller", rawCaller)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	token, err := parseAddress("token", c.Param("token"))
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	if err := s.engine.RemoveToken(caller, token); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token.Hex()})
}

func (s *Server) handleAddRelayer(c *gin.Context) {
	var body addressAdminBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortBadRequest(c, err)
		return
	}
	caller, err := parseAddress("caller", body.Caller)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	relayer, err := parseAddress("address", body.Address)
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	if err := s.engine.AddRelayer(caller, relayer); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"relayer": relayer.Hex()})
}

func (s *Server) handleRemoveRelayer(c *gin.Context) {
	rawCaller, err := callerFromQuery(c)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	caller, err := parseAddress("caller", rawCaller)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	relayer, err := parseAddress("relayer", c.Param("relayer"))
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	if err := s.engine.RemoveRelayer(caller, relayer); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"relayer": relayer.Hex()})
}

func (s *Server) handleBlacklist(c *gin.Context) {
	var body addressAdminBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortBadRequest(c, err)
		return
	}
	caller, err := parseAddress("caller", body.Caller)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	addr, err := parseAddress("address", body.Address)
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	if err := s.engine.Blacklist(caller, addr); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr.Hex()})
}

func (s *Server) handleUnblacklist(c *gin.Context) {
	rawCaller, err := callerFromQuery(c)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	caller, err := parseAddress("caller", rawCaller)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	addr, err := parseAddress("address", c.Param("address"))
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	if err := s.engine.Unblacklist(caller, addr); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr.Hex()})
}

func (s *Server) handleSetRecipient(c *gin.Context) {
	var body addressAdminBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortBadRequest(c, err)
		return
	}
	caller, err := parseAddress("caller", body.Caller)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	recipient, err := parseAddress("address", body.Address)
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	if err := s.engine.SetRecipient(caller, recipient); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipient": recipient.Hex()})
}

func (s *Server) handlePause(c *gin.Context) {
	var body callerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortBadRequest(c, err)
		return
	}
	caller, err := parseAddress("caller", body.Caller)
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	if err := s.engine.Pause(caller); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

func (s *Server) handleUnpause(c *gin.Context) {
	var body callerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortBadRequest(c, err)
		return
	}
	caller, err := parseAddress("caller", body.Caller)
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	if err := s.engine.Unpause(caller); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": false})
}

func (s *Server) handleTransferOwnership(c *gin.Context) {
	var body addressAdminBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortBadRequest(c, err)
		return
	}
	caller, err := parseAddress("caller", body.Caller)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	newOwner, err := parseAddress("address", body.Address)
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	if err := s.engine.TransferOwnership(caller, newOwner); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner": newOwner.Hex()})
}

func (s *Server) handleRenounceOwnership(c *gin.Context) {
	rawCaller, err := callerFromQuery(c)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	caller, err := parseAddress("caller", rawCaller)
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	if err := s.engine.RenounceOwnership(caller); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner": ""})
}
