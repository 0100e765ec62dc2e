package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xraph/subledger/capability"
	"github.com/xraph/subledger/types"
)

type subscribeRequest struct {
	Provider  types.Address `json:"provider" binding:"required"`
	TierIndex uint64        `json:"tier_index"`
	AutoRenew bool          `json:"auto_renew"`
}

// AccessView answers whether a subscriber may use a provider right now.
type AccessView struct {
	Subscriber       types.Address     `json:"subscriber"`
	Provider         types.Address     `json:"provider"`
	Active           bool              `json:"active"`
	SubscriptionID   uint64            `json:"subscription_id"`
	RemainingSeconds int64             `json:"remaining_seconds"`
	Token            *capability.Token `json:"token,omitempty"`
	TokenValid       bool              `json:"token_valid"`
}

// TokenView is a token with its validity at read time.
type TokenView struct {
	capability.Token
	Valid bool `json:"valid"`
}

// Subscribe books the caller onto a provider tier.
func (h *Handler) Subscribe(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	provider, err := types.ParseAddress(string(req.Provider))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid provider", err)
		return
	}

	ctx := c.Request.Context()
	subID, err := h.ledger.Subscribe(ctx, caller, provider, req.TierIndex, req.AutoRenew)
	if err != nil {
		Fail(c, "failed to subscribe", err)
		return
	}

	sub, err := h.ledger.GetSubscription(subID)
	if err != nil {
		Fail(c, "failed to load subscription", err)
		return
	}

	Success(c, http.StatusCreated, "subscribed", sub)
}

// Renew extends the caller's subscription to a provider by one period.
func (h *Handler) Renew(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	provider, ok := addressParam(c, "provider")
	if !ok {
		return
	}

	end, err := h.ledger.Renew(c.Request.Context(), caller, provider)
	if err != nil {
		Fail(c, "failed to renew", err)
		return
	}

	Success(c, http.StatusOK, "renewed", gin.H{"end_time": end})
}

// Cancel ends the caller's subscription to a provider.
func (h *Handler) Cancel(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	provider, ok := addressParam(c, "provider")
	if !ok {
		return
	}

	if err := h.ledger.Cancel(c.Request.Context(), caller, provider); err != nil {
		Fail(c, "failed to cancel", err)
		return
	}

	Success(c, http.StatusOK, "canceled", nil)
}

// MySubscriptions lists every subscription the caller has held.
func (h *Handler) MySubscriptions(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	Success(c, http.StatusOK, "subscriptions retrieved", h.ledger.SubscriptionsOf(caller))
}

// GetSubscription returns a subscription by id.
func (h *Handler) GetSubscription(c *gin.Context) {
	subID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	sub, err := h.ledger.GetSubscription(subID)
	if err != nil {
		Fail(c, "subscription not found", err)
		return
	}

	Success(c, http.StatusOK, "subscription retrieved", sub)
}

// Access reports both sides of the subscription and token mirror.
func (h *Handler) Access(c *gin.Context) {
	subscriber, ok := addressParam(c, "subscriber")
	if !ok {
		return
	}
	provider, ok := addressParam(c, "provider")
	if !ok {
		return
	}

	view := AccessView{
		Subscriber:       subscriber,
		Provider:         provider,
		Active:           h.ledger.IsSubscriptionActive(subscriber, provider),
		SubscriptionID:   h.ledger.ActiveSubscription(subscriber, provider),
		RemainingSeconds: int64(h.ledger.TimeRemaining(subscriber, provider) / time.Second),
	}
	if tok, found := h.ledger.TokenFor(subscriber, provider); found {
		view.Token = &tok
		view.TokenValid = h.ledger.IsTokenValid(tok.ID)
	}

	Success(c, http.StatusOK, "access retrieved", view)
}

// GetToken returns a token and whether it is valid now.
func (h *Handler) GetToken(c *gin.Context) {
	tokenID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	tok, err := h.ledger.Token(tokenID)
	if err != nil {
		Fail(c, "token not found", err)
		return
	}

	Success(c, http.StatusOK, "token retrieved", TokenView{Token: tok, Valid: h.ledger.IsTokenValid(tokenID)})
}

// ProviderTokens lists a provider's currently valid tokens.
func (h *Handler) ProviderTokens(c *gin.Context) {
	provider, ok := addressParam(c, "provider")
	if !ok {
		return
	}

	Success(c, http.StatusOK, "tokens retrieved", h.ledger.ActiveTokensForProvider(provider))
}

// BurnToken destroys an inactive token held by the caller.
func (h *Handler) BurnToken(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	tokenID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	if err := h.ledger.BurnToken(c.Request.Context(), caller, tokenID); err != nil {
		Fail(c, "failed to burn token", err)
		return
	}

	Success(c, http.StatusOK, "token burned", nil)
}

type transferRequest struct {
	To types.Address `json:"to" binding:"required"`
}

// TransferToken always fails: tokens are bound to their holder.
func (h *Handler) TransferToken(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	tokenID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.ledger.TransferToken(c.Request.Context(), caller, req.To, tokenID); err != nil {
		Fail(c, "failed to transfer token", err)
		return
	}

	Success(c, http.StatusOK, "token transferred", nil)
}
