package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xraph/subledger/types"
)

type createTierRequest struct {
	Price    types.Amount `json:"price"`
	Duration string       `json:"duration" binding:"required"`
	Name     string       `json:"name"`
}

type updateTierRequest struct {
	Price    types.Amount `json:"price"`
	Duration string       `json:"duration" binding:"required"`
	Active   bool         `json:"active"`
}

// CreateTier publishes a tier owned by the caller.
func (h *Handler) CreateTier(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	var req createTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	d, err := time.ParseDuration(req.Duration)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid duration", err)
		return
	}

	t, err := h.ledger.CreateTier(c.Request.Context(), caller, req.Price, d, req.Name)
	if err != nil {
		Fail(c, "failed to create tier", err)
		return
	}

	Success(c, http.StatusCreated, "tier created", t)
}

// UpdateTier revises one of the caller's tiers.
func (h *Handler) UpdateTier(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	index, ok := uintParam(c, "index")
	if !ok {
		return
	}

	var req updateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	d, err := time.ParseDuration(req.Duration)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid duration", err)
		return
	}

	t, err := h.ledger.UpdateTier(c.Request.Context(), caller, index, req.Price, d, req.Active)
	if err != nil {
		Fail(c, "failed to update tier", err)
		return
	}

	Success(c, http.StatusOK, "tier updated", t)
}

// GetTier returns one tier.
func (h *Handler) GetTier(c *gin.Context) {
	provider, ok := addressParam(c, "provider")
	if !ok {
		return
	}
	index, ok := uintParam(c, "index")
	if !ok {
		return
	}

	t, err := h.ledger.GetTier(provider, index)
	if err != nil {
		Fail(c, "tier not found", err)
		return
	}

	Success(c, http.StatusOK, "tier retrieved", t)
}

// ListTiers returns a provider's tiers in index order.
func (h *Handler) ListTiers(c *gin.Context) {
	provider, ok := addressParam(c, "provider")
	if !ok {
		return
	}

	Success(c, http.StatusOK, "tiers retrieved", h.ledger.ListTiers(provider))
}
