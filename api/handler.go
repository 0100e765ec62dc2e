// Package api exposes a ledger over HTTP with gin.
//
// Reads are public. Writes require a bearer token whose subject is the
// caller's identity; the ledger's own policy decides what that identity
// may do.
package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xraph/subledger"
	"github.com/xraph/subledger/types"
)

// Handler serves the ledger API.
type Handler struct {
	ledger *subledger.Ledger
	logger *slog.Logger
}

// NewHandler returns a Handler over l.
func NewHandler(l *subledger.Ledger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{ledger: l, logger: logger}
}

// Routes mounts the API on r. Routes under the authenticated groups run
// auth's middleware first.
func (h *Handler) Routes(r gin.IRouter, auth *Authenticator) {
	v1 := r.Group("/api/v1")

	v1.GET("/health", h.Health)
	v1.GET("/state", h.State)
	v1.GET("/totals", h.Totals)
	v1.GET("/balances/:account", h.Balance)

	v1.GET("/providers/:provider/tiers", h.ListTiers)
	v1.GET("/providers/:provider/tiers/:index", h.GetTier)
	v1.GET("/providers/:provider/tokens", h.ProviderTokens)

	v1.GET("/subscriptions/:id", h.GetSubscription)
	v1.GET("/access/:subscriber/:provider", h.Access)
	v1.GET("/tokens/:id", h.GetToken)

	authed := v1.Group("")
	authed.Use(auth.Middleware())
	{
		authed.POST("/tiers", h.CreateTier)
		authed.PUT("/tiers/:index", h.UpdateTier)

		authed.GET("/me/subscriptions", h.MySubscriptions)
		authed.POST("/subscriptions", h.Subscribe)
		authed.POST("/subscriptions/:provider/renew", h.Renew)
		authed.DELETE("/subscriptions/:provider", h.Cancel)

		authed.POST("/withdrawals", h.Withdraw)

		authed.DELETE("/tokens/:id", h.BurnToken)
		authed.POST("/tokens/:id/transfer", h.TransferToken)
	}

	admin := v1.Group("/admin")
	admin.Use(auth.Middleware())
	{
		admin.PUT("/fee", h.UpdateFee)
		admin.POST("/pause", h.Pause)
		admin.POST("/unpause", h.Unpause)
		admin.GET("/history", h.History)
	}
}

// Health reports whether the ledger is started and its journal reachable.
func (h *Handler) Health(c *gin.Context) {
	if err := h.ledger.Health(c.Request.Context()); err != nil {
		Error(c, http.StatusServiceUnavailable, "unhealthy", err)
		return
	}
	Success(c, http.StatusOK, "ok", nil)
}

// mustCaller writes 401 and returns false if the request is unauthenticated.
func mustCaller(c *gin.Context) (types.Address, bool) {
	caller, ok := Caller(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "authentication required", nil)
		return "", false
	}
	return caller, true
}

// addressParam parses the named path parameter, writing 400 on failure.
func addressParam(c *gin.Context, name string) (types.Address, bool) {
	addr, err := types.ParseAddress(c.Param(name))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid "+name, err)
		return "", false
	}
	return addr, true
}

// uintParam parses the named path parameter, writing 400 on failure.
func uintParam(c *gin.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid "+name, err)
		return 0, false
	}
	return n, true
}

// uintQuery parses an optional query parameter.
func uintQuery(c *gin.Context, name string) (uint64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}
