package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xraph/subledger"
)

// Response is the envelope of every API response.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Success writes a successful response. A zero status means 200.
func Success(c *gin.Context, status int, message string, data any) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error aborts the request and writes a failure response.
func Error(c *gin.Context, status int, message string, err error) {
	c.Abort()

	resp := Response{
		Success: false,
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
	}

	c.JSON(status, resp)
}

// Fail writes err with the status StatusFor assigns it.
func Fail(c *gin.Context, message string, err error) {
	Error(c, StatusFor(err), message, err)
}

// StatusFor maps a ledger error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, subledger.ErrReentrant):
		return http.StatusConflict
	case errors.Is(err, subledger.ErrPaused), errors.Is(err, subledger.ErrNotStarted):
		return http.StatusServiceUnavailable
	case errors.Is(err, subledger.ErrUnauthorized), errors.Is(err, subledger.ErrNonTransferable):
		return http.StatusForbidden
	case errors.Is(err, subledger.ErrPaymentTransferFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, subledger.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case subledger.IsNotFound(err):
		return http.StatusNotFound
	case subledger.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, subledger.ErrSubscriptionExists),
		errors.Is(err, subledger.ErrTokenExists),
		errors.Is(err, subledger.ErrTokenActive),
		errors.Is(err, subledger.ErrTokenExpiredOrInactive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
