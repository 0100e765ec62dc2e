// Package observability provides a metrics extension for subledger that
// records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/subledger/capability"
	"github.com/xraph/subledger/journal"
	"github.com/xraph/subledger/plugin"
	"github.com/xraph/subledger/subscription"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnTierCreated          = (*MetricsExtension)(nil)
	_ plugin.OnTierUpdated          = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCreated  = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionRenewed  = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCanceled = (*MetricsExtension)(nil)
	_ plugin.OnTokenMinted          = (*MetricsExtension)(nil)
	_ plugin.OnTokenRevoked         = (*MetricsExtension)(nil)
	_ plugin.OnTokenBurned          = (*MetricsExtension)(nil)
	_ plugin.OnFundsWithdrawn       = (*MetricsExtension)(nil)
	_ plugin.OnWithdrawalReverted   = (*MetricsExtension)(nil)
	_ plugin.OnPlatformFeeUpdated   = (*MetricsExtension)(nil)
	_ plugin.OnIssuerRotated        = (*MetricsExtension)(nil)
	_ plugin.OnEntryCommitted       = (*MetricsExtension)(nil)
	_ plugin.OnOperationFailed      = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a subledger plugin to track payment and access metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Tier metrics
	TierCreated Counter
	TierUpdated Counter

	// Subscription metrics
	SubscriptionCreated  Counter
	SubscriptionRenewed  Counter
	SubscriptionCanceled Counter

	// Capability metrics
	TokenMinted  Counter
	TokenRevoked Counter
	TokenBurned  Counter

	// Funds metrics
	ChargeAmount        Histogram
	FeeCollected        Counter
	ProviderRevenue     Counter
	FundsWithdrawn      Counter
	WithdrawalsReverted Counter

	// Platform metrics
	FeeUpdated     Counter
	IssuerRotated  Counter
	EntriesJournal Counter

	// Error metrics
	OperationFailures Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Tier metrics
		TierCreated: factory.Counter("subledger.tier.created"),
		TierUpdated: factory.Counter("subledger.tier.updated"),

		// Subscription metrics
		SubscriptionCreated:  factory.Counter("subledger.subscription.created"),
		SubscriptionRenewed:  factory.Counter("subledger.subscription.renewed"),
		SubscriptionCanceled: factory.Counter("subledger.subscription.canceled"),

		// Capability metrics
		TokenMinted:  factory.Counter("subledger.token.minted"),
		TokenRevoked: factory.Counter("subledger.token.revoked"),
		TokenBurned:  factory.Counter("subledger.token.burned"),

		// Funds metrics
		ChargeAmount:        factory.Histogram("subledger.charge.amount"),
		FeeCollected:        factory.Counter("subledger.fee.collected"),
		ProviderRevenue:     factory.Counter("subledger.provider.revenue"),
		FundsWithdrawn:      factory.Counter("subledger.funds.withdrawn"),
		WithdrawalsReverted: factory.Counter("subledger.withdrawal.reverted"),

		// Platform metrics
		FeeUpdated:     factory.Counter("subledger.fee.updated"),
		IssuerRotated:  factory.Counter("subledger.issuer.rotated"),
		EntriesJournal: factory.Counter("subledger.journal.entries"),

		// Error metrics
		OperationFailures: factory.Counter("subledger.operation.failures"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Tier lifecycle hooks
// ──────────────────────────────────────────────────

// OnTierCreated implements plugin.OnTierCreated.
func (m *MetricsExtension) OnTierCreated(_ context.Context, _ *tier.Tier) error {
	m.TierCreated.Inc()
	return nil
}

// OnTierUpdated implements plugin.OnTierUpdated.
func (m *MetricsExtension) OnTierUpdated(_ context.Context, _, _ *tier.Tier) error {
	m.TierUpdated.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (m *MetricsExtension) OnSubscriptionCreated(_ context.Context, _ *subscription.Subscription, charge *journal.Charge) error {
	m.SubscriptionCreated.Inc()
	m.charge(charge)
	return nil
}

// OnSubscriptionRenewed implements plugin.OnSubscriptionRenewed.
func (m *MetricsExtension) OnSubscriptionRenewed(_ context.Context, _ *subscription.Subscription, charge *journal.Charge) error {
	m.SubscriptionRenewed.Inc()
	m.charge(charge)
	return nil
}

// OnSubscriptionCanceled implements plugin.OnSubscriptionCanceled.
func (m *MetricsExtension) OnSubscriptionCanceled(_ context.Context, _ *subscription.Subscription) error {
	m.SubscriptionCanceled.Inc()
	return nil
}

func (m *MetricsExtension) charge(c *journal.Charge) {
	m.ChargeAmount.Observe(float64(c.Price))
	m.FeeCollected.Add(float64(c.Fee))
	m.ProviderRevenue.Add(float64(c.ProviderAmount))
}

// ──────────────────────────────────────────────────
// Capability lifecycle hooks
// ──────────────────────────────────────────────────

// OnTokenMinted implements plugin.OnTokenMinted.
func (m *MetricsExtension) OnTokenMinted(_ context.Context, _ capability.Token) error {
	m.TokenMinted.Inc()
	return nil
}

// OnTokenRevoked implements plugin.OnTokenRevoked.
func (m *MetricsExtension) OnTokenRevoked(_ context.Context, _ capability.Token) error {
	m.TokenRevoked.Inc()
	return nil
}

// OnTokenBurned implements plugin.OnTokenBurned.
func (m *MetricsExtension) OnTokenBurned(_ context.Context, _ types.Address, _ uint64) error {
	m.TokenBurned.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Funds hooks
// ──────────────────────────────────────────────────

// OnFundsWithdrawn implements plugin.OnFundsWithdrawn.
func (m *MetricsExtension) OnFundsWithdrawn(_ context.Context, w *journal.Withdrawal) error {
	m.FundsWithdrawn.Add(float64(w.Amount))
	return nil
}

// OnWithdrawalReverted implements plugin.OnWithdrawalReverted.
func (m *MetricsExtension) OnWithdrawalReverted(_ context.Context, _ *journal.Withdrawal, _ error) error {
	m.WithdrawalsReverted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Platform hooks
// ──────────────────────────────────────────────────

// OnPlatformFeeUpdated implements plugin.OnPlatformFeeUpdated.
func (m *MetricsExtension) OnPlatformFeeUpdated(_ context.Context, _, _ uint16) error {
	m.FeeUpdated.Inc()
	return nil
}

// OnIssuerRotated implements plugin.OnIssuerRotated.
func (m *MetricsExtension) OnIssuerRotated(_ context.Context, _ types.Address, _ int) error {
	m.IssuerRotated.Inc()
	return nil
}

// OnEntryCommitted implements plugin.OnEntryCommitted.
func (m *MetricsExtension) OnEntryCommitted(_ context.Context, _ *journal.Entry) error {
	m.EntriesJournal.Inc()
	return nil
}

// OnOperationFailed implements plugin.OnOperationFailed.
func (m *MetricsExtension) OnOperationFailed(_ context.Context, _ string, _ error) error {
	m.OperationFailures.Inc()
	return nil
}
