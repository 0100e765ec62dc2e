package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xraph/subledger/types"
)

// Withdraw pays out the caller's whole balance.
func (h *Handler) Withdraw(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	paid, err := h.ledger.Withdraw(c.Request.Context(), caller)
	if err != nil {
		Fail(c, "failed to withdraw", err)
		return
	}

	h.logger.Info("withdrawal paid", "beneficiary", caller, "amount", paid)
	Success(c, http.StatusOK, "withdrawn", gin.H{"beneficiary": caller, "amount": paid})
}

// Balance returns an account's withdrawable balance.
func (h *Handler) Balance(c *gin.Context) {
	account, ok := addressParam(c, "account")
	if !ok {
		return
	}

	Success(c, http.StatusOK, "balance retrieved", gin.H{
		"account": account,
		"balance": h.ledger.Balance(account),
	})
}

// Totals returns lifetime inflow, withdrawals and the amount held.
func (h *Handler) Totals(c *gin.Context) {
	Success(c, http.StatusOK, "totals retrieved", h.ledger.Totals())
}

// StateView is the ledger-wide configuration at read time.
type StateView struct {
	PlatformFeeBps uint16        `json:"platform_fee_bps"`
	Paused         bool          `json:"paused"`
	Custody        types.Address `json:"custody"`
	Treasury       types.Address `json:"treasury"`
}

// State returns the current fee and pause flag.
func (h *Handler) State(c *gin.Context) {
	Success(c, http.StatusOK, "state retrieved", StateView{
		PlatformFeeBps: h.ledger.PlatformFee(),
		Paused:         h.ledger.Paused(),
		Custody:        h.ledger.Custody(),
		Treasury:       h.ledger.Treasury(),
	})
}
