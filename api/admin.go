package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xraph/subledger"
	"github.com/xraph/subledger/authz"
	"github.com/xraph/subledger/journal"
	"github.com/xraph/subledger/types"
)

type feeRequest struct {
	Bps uint16 `json:"bps"`
}

// UpdateFee sets the platform fee for future charges.
func (h *Handler) UpdateFee(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	var req feeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.ledger.UpdatePlatformFee(c.Request.Context(), caller, req.Bps); err != nil {
		Fail(c, "failed to update fee", err)
		return
	}

	Success(c, http.StatusOK, "fee updated", gin.H{"platform_fee_bps": req.Bps})
}

// Pause stops new subscriptions and renewals.
func (h *Handler) Pause(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	if err := h.ledger.Pause(c.Request.Context(), caller); err != nil {
		Fail(c, "failed to pause", err)
		return
	}

	Success(c, http.StatusOK, "paused", nil)
}

// Unpause resumes new subscriptions and renewals.
func (h *Handler) Unpause(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	if err := h.ledger.Unpause(c.Request.Context(), caller); err != nil {
		Fail(c, "failed to unpause", err)
		return
	}

	Success(c, http.StatusOK, "unpaused", nil)
}

// History pages through the journal. Operators only.
func (h *Handler) History(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	if err := h.ledger.Policy().Require(caller, authz.PermOperator); err != nil {
		Fail(c, "history is restricted to operators", err)
		return
	}

	opts, err := historyOpts(c)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	entries, err := h.ledger.History(c.Request.Context(), opts)
	if err != nil {
		Fail(c, "failed to read history", err)
		return
	}

	Success(c, http.StatusOK, "history retrieved", entries)
}

func historyOpts(c *gin.Context) (journal.ListOpts, error) {
	var opts journal.ListOpts
	var err error

	if opts.AfterSeq, err = uintQuery(c, "after"); err != nil {
		return opts, err
	}
	limit, err := uintQuery(c, "limit")
	if err != nil {
		return opts, err
	}
	opts.Limit = int(min(limit, 1000))
	if opts.SubscriptionID, err = uintQuery(c, "subscription"); err != nil {
		return opts, err
	}
	if opts.TokenID, err = uintQuery(c, "token"); err != nil {
		return opts, err
	}

	if a := c.Query("action"); a != "" {
		opts.Action = journal.Action(a)
		if !opts.Action.Valid() {
			return opts, subledger.ErrInvalidEntry
		}
	}
	opts.Actor = types.Address(c.Query("actor"))
	opts.Provider = types.Address(c.Query("provider"))
	opts.Subscriber = types.Address(c.Query("subscriber"))

	return opts, nil
}
