// Package plugin provides an extensible plugin system for subledger.
// Plugins hook into committed transitions; they observe and never veto.
package plugin

import (
	"context"

	"github.com/xraph/subledger/capability"
	"github.com/xraph/subledger/journal"
	"github.com/xraph/subledger/subscription"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts. l is the *subledger.Ledger.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Tier hooks
// ──────────────────────────────────────────────────

// OnTierCreated is called after a tier is appended to a provider's catalogue.
type OnTierCreated interface {
	Plugin
	OnTierCreated(ctx context.Context, t *tier.Tier) error
}

// OnTierUpdated is called after a tier is revised.
type OnTierUpdated interface {
	Plugin
	OnTierUpdated(ctx context.Context, prev, next *tier.Tier) error
}

// ──────────────────────────────────────────────────
// Subscription hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated is called after a paid subscription is committed.
type OnSubscriptionCreated interface {
	Plugin
	OnSubscriptionCreated(ctx context.Context, sub *subscription.Subscription, charge *journal.Charge) error
}

// OnSubscriptionRenewed is called after a paid renewal is committed.
type OnSubscriptionRenewed interface {
	Plugin
	OnSubscriptionRenewed(ctx context.Context, sub *subscription.Subscription, charge *journal.Charge) error
}

// OnSubscriptionCanceled is called after a cancellation is committed.
type OnSubscriptionCanceled interface {
	Plugin
	OnSubscriptionCanceled(ctx context.Context, sub *subscription.Subscription) error
}

// ──────────────────────────────────────────────────
// Capability token hooks
// ──────────────────────────────────────────────────

// OnTokenMinted is called after a capability token is minted.
type OnTokenMinted interface {
	Plugin
	OnTokenMinted(ctx context.Context, tok capability.Token) error
}

// OnTokenRenewed is called after a token's expiry is extended.
type OnTokenRenewed interface {
	Plugin
	OnTokenRenewed(ctx context.Context, tok capability.Token) error
}

// OnTokenRevoked is called after a token is revoked.
type OnTokenRevoked interface {
	Plugin
	OnTokenRevoked(ctx context.Context, tok capability.Token) error
}

// OnTokenBurned is called after a holder destroys an inactive token.
type OnTokenBurned interface {
	Plugin
	OnTokenBurned(ctx context.Context, holder types.Address, tokenID uint64) error
}

// ──────────────────────────────────────────────────
// Funds hooks
// ──────────────────────────────────────────────────

// OnFundsWithdrawn is called after a payout settles.
type OnFundsWithdrawn interface {
	Plugin
	OnFundsWithdrawn(ctx context.Context, w *journal.Withdrawal) error
}

// OnWithdrawalReverted is called after a failed payout is credited back.
type OnWithdrawalReverted interface {
	Plugin
	OnWithdrawalReverted(ctx context.Context, w *journal.Withdrawal, cause error) error
}

// ──────────────────────────────────────────────────
// Administrative hooks
// ──────────────────────────────────────────────────

// OnPlatformFeeUpdated is called after the platform fee changes.
type OnPlatformFeeUpdated interface {
	Plugin
	OnPlatformFeeUpdated(ctx context.Context, oldBps, newBps uint16) error
}

// OnPauseChanged is called after the pause switch flips.
type OnPauseChanged interface {
	Plugin
	OnPauseChanged(ctx context.Context, actor types.Address, paused bool) error
}

// OnIssuerRotated is called after the capability issuer binding changes.
type OnIssuerRotated interface {
	Plugin
	OnIssuerRotated(ctx context.Context, actor types.Address, migrated int) error
}

// ──────────────────────────────────────────────────
// Journal and failure hooks
// ──────────────────────────────────────────────────

// OnEntryCommitted is called for every journal entry after it is applied.
type OnEntryCommitted interface {
	Plugin
	OnEntryCommitted(ctx context.Context, e *journal.Entry) error
}

// OnOperationFailed is called when a mutating operation or a best-effort
// side effect fails. op is the operation name, e.g. "subscribe".
type OnOperationFailed interface {
	Plugin
	OnOperationFailed(ctx context.Context, op string, err error) error
}
