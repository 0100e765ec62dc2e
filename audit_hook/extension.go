// Package audithook bridges subledger lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import any
// audit backend directly. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/xraph/subledger/capability"
	"github.com/xraph/subledger/journal"
	"github.com/xraph/subledger/plugin"
	"github.com/xraph/subledger/subscription"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnTierCreated          = (*Extension)(nil)
	_ plugin.OnTierUpdated          = (*Extension)(nil)
	_ plugin.OnSubscriptionCreated  = (*Extension)(nil)
	_ plugin.OnSubscriptionRenewed  = (*Extension)(nil)
	_ plugin.OnSubscriptionCanceled = (*Extension)(nil)
	_ plugin.OnTokenMinted          = (*Extension)(nil)
	_ plugin.OnTokenRenewed         = (*Extension)(nil)
	_ plugin.OnTokenRevoked         = (*Extension)(nil)
	_ plugin.OnTokenBurned          = (*Extension)(nil)
	_ plugin.OnFundsWithdrawn       = (*Extension)(nil)
	_ plugin.OnWithdrawalReverted   = (*Extension)(nil)
	_ plugin.OnPlatformFeeUpdated   = (*Extension)(nil)
	_ plugin.OnPauseChanged         = (*Extension)(nil)
	_ plugin.OnIssuerRotated        = (*Extension)(nil)
	_ plugin.OnOperationFailed      = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges subledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Tier lifecycle hooks
// ──────────────────────────────────────────────────

// OnTierCreated implements plugin.OnTierCreated.
func (e *Extension) OnTierCreated(ctx context.Context, t *tier.Tier) error {
	return e.record(ctx, ActionTierCreated, SeverityInfo, OutcomeSuccess,
		ResourceTier, tierID(t), CategoryCatalogue, nil,
		"provider", t.Provider,
		"price", t.Price,
		"duration", t.Duration.String(),
		"name", t.Name,
	)
}

// OnTierUpdated implements plugin.OnTierUpdated.
func (e *Extension) OnTierUpdated(ctx context.Context, prev, next *tier.Tier) error {
	return e.record(ctx, ActionTierUpdated, SeverityInfo, OutcomeSuccess,
		ResourceTier, tierID(next), CategoryCatalogue, nil,
		"provider", next.Provider,
		"old_price", prev.Price,
		"new_price", next.Price,
		"old_duration", prev.Duration.String(),
		"new_duration", next.Duration.String(),
		"active", next.Active,
	)
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (e *Extension) OnSubscriptionCreated(ctx context.Context, sub *subscription.Subscription, charge *journal.Charge) error {
	return e.record(ctx, ActionSubscriptionCreated, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, strconv.FormatUint(sub.ID, 10), CategorySubscription, nil,
		"subscriber", sub.Subscriber,
		"provider", sub.Provider,
		"tier", sub.TierIndex,
		"end_time", sub.EndTime,
		"charge_id", charge.ID.String(),
		"price", charge.Price,
		"fee", charge.Fee,
	)
}

// OnSubscriptionRenewed implements plugin.OnSubscriptionRenewed.
func (e *Extension) OnSubscriptionRenewed(ctx context.Context, sub *subscription.Subscription, charge *journal.Charge) error {
	return e.record(ctx, ActionSubscriptionRenewed, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, strconv.FormatUint(sub.ID, 10), CategorySubscription, nil,
		"subscriber", sub.Subscriber,
		"provider", sub.Provider,
		"end_time", sub.EndTime,
		"renewals", sub.Renewals,
		"charge_id", charge.ID.String(),
		"price", charge.Price,
		"fee", charge.Fee,
	)
}

// OnSubscriptionCanceled implements plugin.OnSubscriptionCanceled.
func (e *Extension) OnSubscriptionCanceled(ctx context.Context, sub *subscription.Subscription) error {
	return e.record(ctx, ActionSubscriptionCanceled, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, strconv.FormatUint(sub.ID, 10), CategorySubscription, nil,
		"subscriber", sub.Subscriber,
		"provider", sub.Provider,
		"amount_paid", sub.AmountPaid,
	)
}

// ──────────────────────────────────────────────────
// Capability lifecycle hooks
// ──────────────────────────────────────────────────

// OnTokenMinted implements plugin.OnTokenMinted.
func (e *Extension) OnTokenMinted(ctx context.Context, tok capability.Token) error {
	return e.token(ctx, ActionTokenMinted, tok)
}

// OnTokenRenewed implements plugin.OnTokenRenewed.
func (e *Extension) OnTokenRenewed(ctx context.Context, tok capability.Token) error {
	return e.token(ctx, ActionTokenRenewed, tok)
}

// OnTokenRevoked implements plugin.OnTokenRevoked.
func (e *Extension) OnTokenRevoked(ctx context.Context, tok capability.Token) error {
	return e.token(ctx, ActionTokenRevoked, tok)
}

// OnTokenBurned implements plugin.OnTokenBurned.
func (e *Extension) OnTokenBurned(ctx context.Context, holder types.Address, tokenID uint64) error {
	return e.record(ctx, ActionTokenBurned, SeverityInfo, OutcomeSuccess,
		ResourceToken, strconv.FormatUint(tokenID, 10), CategoryAccess, nil,
		"holder", holder,
	)
}

// ──────────────────────────────────────────────────
// Funds hooks
// ──────────────────────────────────────────────────

// OnFundsWithdrawn implements plugin.OnFundsWithdrawn.
func (e *Extension) OnFundsWithdrawn(ctx context.Context, w *journal.Withdrawal) error {
	return e.record(ctx, ActionFundsWithdrawn, SeverityInfo, OutcomeSuccess,
		ResourceBalance, w.ID.String(), CategoryPayment, nil,
		"beneficiary", w.Beneficiary,
		"amount", w.Amount,
	)
}

// OnWithdrawalReverted implements plugin.OnWithdrawalReverted.
func (e *Extension) OnWithdrawalReverted(ctx context.Context, w *journal.Withdrawal, cause error) error {
	return e.record(ctx, ActionWithdrawalReverted, SeverityCritical, OutcomeFailure,
		ResourceBalance, w.ID.String(), CategoryPayment, cause,
		"beneficiary", w.Beneficiary,
		"amount", w.Amount,
	)
}

// ──────────────────────────────────────────────────
// Platform hooks
// ──────────────────────────────────────────────────

// OnPlatformFeeUpdated implements plugin.OnPlatformFeeUpdated.
func (e *Extension) OnPlatformFeeUpdated(ctx context.Context, oldBps, newBps uint16) error {
	return e.record(ctx, ActionFeeUpdated, SeverityWarning, OutcomeSuccess,
		ResourcePlatform, "fee", CategoryAdmin, nil,
		"old_bps", oldBps,
		"new_bps", newBps,
	)
}

// OnPauseChanged implements plugin.OnPauseChanged.
func (e *Extension) OnPauseChanged(ctx context.Context, actor types.Address, paused bool) error {
	action := ActionLedgerResumed
	if paused {
		action = ActionLedgerPaused
	}
	return e.record(ctx, action, SeverityWarning, OutcomeSuccess,
		ResourcePlatform, "pause", CategoryAdmin, nil,
		"actor", actor,
	)
}

// OnIssuerRotated implements plugin.OnIssuerRotated.
func (e *Extension) OnIssuerRotated(ctx context.Context, actor types.Address, migrated int) error {
	return e.record(ctx, ActionIssuerRotated, SeverityWarning, OutcomeSuccess,
		ResourcePlatform, "issuer", CategoryAdmin, nil,
		"actor", actor,
		"migrated", migrated,
	)
}

// OnOperationFailed implements plugin.OnOperationFailed.
func (e *Extension) OnOperationFailed(ctx context.Context, op string, err error) error {
	return e.record(ctx, ActionOperationFailed, SeverityError, OutcomeFailure,
		ResourcePlatform, op, CategoryAdmin, err,
		"operation", op,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func (e *Extension) token(ctx context.Context, action string, tok capability.Token) error {
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceToken, strconv.FormatUint(tok.ID, 10), CategoryAccess, nil,
		"holder", tok.Holder,
		"provider", tok.Provider,
		"tier", tok.Tier,
		"expiry_time", tok.ExpiryTime,
		"active", tok.Active,
	)
}

func tierID(t *tier.Tier) string {
	return fmt.Sprintf("%s/%d", t.Provider, t.Index)
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
