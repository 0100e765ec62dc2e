package subledger

import (
	"errors"

	"github.com/xraph/subledger/authz"
	"github.com/xraph/subledger/capability"
	"github.com/xraph/subledger/journal"
	"github.com/xraph/subledger/registry"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// Sentinel errors for common failure scenarios.
var (
	// Subscription errors
	ErrSubscriptionExists   = errors.New("subledger: subscription already exists")
	ErrNoActiveSubscription = errors.New("subledger: no active subscription")
	ErrSubscriptionNotFound = errors.New("subledger: subscription not found")

	// Funds errors
	ErrInsufficientBalance   = errors.New("subledger: insufficient balance")
	ErrPaymentTransferFailed = errors.New("subledger: payment transfer failed")

	// Control errors
	ErrReentrant  = errors.New("subledger: reentrant call")
	ErrPaused     = errors.New("subledger: paused")
	ErrFeeTooHigh = errors.New("subledger: platform fee too high")
	ErrNilIssuer  = errors.New("subledger: nil issuer")

	// Lifecycle errors
	ErrNotStarted     = errors.New("subledger: not started")
	ErrAlreadyStarted = errors.New("subledger: already started")
)

// Errors raised by sub-packages, re-exported so callers can match them
// without importing each package.
var (
	// Tier errors
	ErrInvalidPrice    = tier.ErrInvalidPrice
	ErrInvalidDuration = tier.ErrInvalidDuration
	ErrInvalidTier     = tier.ErrInvalidTier

	// Capability errors
	ErrTokenExists            = capability.ErrTokenExists
	ErrTokenExpiredOrInactive = capability.ErrTokenExpiredOrInactive
	ErrTokenNotFound          = capability.ErrTokenNotFound
	ErrTokenActive            = capability.ErrTokenActive
	ErrNonTransferable        = capability.ErrNonTransferable

	// Identity and arithmetic errors
	ErrUnauthorized    = authz.ErrUnauthorized
	ErrInvalidAddress  = types.ErrInvalidAddress
	ErrAmountOverflow  = types.ErrAmountOverflow
	ErrAmountUnderflow = types.ErrAmountUnderflow

	// Journal and registry errors
	ErrDuplicateEntry      = journal.ErrDuplicateEntry
	ErrInvalidEntry        = journal.ErrInvalidEntry
	ErrSubscriberUnderflow = registry.ErrSubscriberUnderflow
)

// IsNotFound returns true if the error reports a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrNoActiveSubscription) ||
		errors.Is(err, ErrTokenNotFound) ||
		errors.Is(err, ErrInvalidTier)
}

// IsValidation returns true if the error rejects the caller's input before
// any state was touched.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidPrice) ||
		errors.Is(err, ErrInvalidDuration) ||
		errors.Is(err, capability.ErrInvalidDuration) ||
		errors.Is(err, ErrInvalidTier) ||
		errors.Is(err, ErrInvalidAddress) ||
		errors.Is(err, ErrFeeTooHigh) ||
		errors.Is(err, ErrAmountOverflow)
}

// IsRetryable returns true if the error is temporary and the same call may
// succeed later without any change by the caller.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrReentrant) ||
		errors.Is(err, ErrPaused) ||
		errors.Is(err, ErrNotStarted) ||
		errors.Is(err, ErrPaymentTransferFailed)
}
