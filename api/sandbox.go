package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xraph/subledger/types"
)

// Faucet credits a development asset. The in-memory asset implements it.
type Faucet interface {
	Mint(who types.Address, amount types.Amount) error
	Approve(owner, spender types.Address, amount types.Amount)
	Allowance(owner, spender types.Address) types.Amount
	BalanceOf(who types.Address) types.Amount
}

type mintRequest struct {
	Amount types.Amount `json:"amount"`
}

// SandboxRoutes mounts faucet endpoints. Only use it with a development asset.
func (h *Handler) SandboxRoutes(r gin.IRouter, auth *Authenticator, f Faucet) {
	sb := r.Group("/api/v1/sandbox")
	sb.Use(auth.Middleware())
	sb.POST("/mint", func(c *gin.Context) { h.mint(c, f) })
}

// mint credits the caller and raises the custody allowance by the same amount.
func (h *Handler) mint(c *gin.Context, f Faucet) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := f.Mint(caller, req.Amount); err != nil {
		Fail(c, "failed to mint", err)
		return
	}
	custody := h.ledger.Custody()
	allowance, err := f.Allowance(caller, custody).Add(req.Amount)
	if err != nil {
		Fail(c, "failed to approve", err)
		return
	}
	f.Approve(caller, custody, allowance)

	Success(c, http.StatusOK, "minted", gin.H{
		"account":   caller,
		"balance":   f.BalanceOf(caller),
		"allowance": allowance,
	})
}
