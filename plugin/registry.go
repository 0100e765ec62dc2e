package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/subledger/capability"
	"github.com/xraph/subledger/journal"
	"github.com/xraph/subledger/subscription"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                 []OnInit
	onShutdown             []OnShutdown
	onTierCreated          []OnTierCreated
	onTierUpdated          []OnTierUpdated
	onSubscriptionCreated  []OnSubscriptionCreated
	onSubscriptionRenewed  []OnSubscriptionRenewed
	onSubscriptionCanceled []OnSubscriptionCanceled
	onTokenMinted          []OnTokenMinted
	onTokenRenewed         []OnTokenRenewed
	onTokenRevoked         []OnTokenRevoked
	onTokenBurned          []OnTokenBurned
	onFundsWithdrawn       []OnFundsWithdrawn
	onWithdrawalReverted   []OnWithdrawalReverted
	onPlatformFeeUpdated   []OnPlatformFeeUpdated
	onPauseChanged         []OnPauseChanged
	onIssuerRotated        []OnIssuerRotated
	onEntryCommitted       []OnEntryCommitted
	onOperationFailed      []OnOperationFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnTierCreated); ok {
		r.onTierCreated = append(r.onTierCreated, v)
	}
	if v, ok := p.(OnTierUpdated); ok {
		r.onTierUpdated = append(r.onTierUpdated, v)
	}
	if v, ok := p.(OnSubscriptionCreated); ok {
		r.onSubscriptionCreated = append(r.onSubscriptionCreated, v)
	}
	if v, ok := p.(OnSubscriptionRenewed); ok {
		r.onSubscriptionRenewed = append(r.onSubscriptionRenewed, v)
	}
	if v, ok := p.(OnSubscriptionCanceled); ok {
		r.onSubscriptionCanceled = append(r.onSubscriptionCanceled, v)
	}
	if v, ok := p.(OnTokenMinted); ok {
		r.onTokenMinted = append(r.onTokenMinted, v)
	}
	if v, ok := p.(OnTokenRenewed); ok {
		r.onTokenRenewed = append(r.onTokenRenewed, v)
	}
	if v, ok := p.(OnTokenRevoked); ok {
		r.onTokenRevoked = append(r.onTokenRevoked, v)
	}
	if v, ok := p.(OnTokenBurned); ok {
		r.onTokenBurned = append(r.onTokenBurned, v)
	}
	if v, ok := p.(OnFundsWithdrawn); ok {
		r.onFundsWithdrawn = append(r.onFundsWithdrawn, v)
	}
	if v, ok := p.(OnWithdrawalReverted); ok {
		r.onWithdrawalReverted = append(r.onWithdrawalReverted, v)
	}
	if v, ok := p.(OnPlatformFeeUpdated); ok {
		r.onPlatformFeeUpdated = append(r.onPlatformFeeUpdated, v)
	}
	if v, ok := p.(OnPauseChanged); ok {
		r.onPauseChanged = append(r.onPauseChanged, v)
	}
	if v, ok := p.(OnIssuerRotated); ok {
		r.onIssuerRotated = append(r.onIssuerRotated, v)
	}
	if v, ok := p.(OnEntryCommitted); ok {
		r.onEntryCommitted = append(r.onEntryCommitted, v)
	}
	if v, ok := p.(OnOperationFailed); ok {
		r.onOperationFailed = append(r.onOperationFailed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeOf((*OnInit)(nil)).Elem()},
	{"OnShutdown", reflect.TypeOf((*OnShutdown)(nil)).Elem()},
	{"OnTierCreated", reflect.TypeOf((*OnTierCreated)(nil)).Elem()},
	{"OnTierUpdated", reflect.TypeOf((*OnTierUpdated)(nil)).Elem()},
	{"OnSubscriptionCreated", reflect.TypeOf((*OnSubscriptionCreated)(nil)).Elem()},
	{"OnSubscriptionRenewed", reflect.TypeOf((*OnSubscriptionRenewed)(nil)).Elem()},
	{"OnSubscriptionCanceled", reflect.TypeOf((*OnSubscriptionCanceled)(nil)).Elem()},
	{"OnTokenMinted", reflect.TypeOf((*OnTokenMinted)(nil)).Elem()},
	{"OnTokenRenewed", reflect.TypeOf((*OnTokenRenewed)(nil)).Elem()},
	{"OnTokenRevoked", reflect.TypeOf((*OnTokenRevoked)(nil)).Elem()},
	{"OnTokenBurned", reflect.TypeOf((*OnTokenBurned)(nil)).Elem()},
	{"OnFundsWithdrawn", reflect.TypeOf((*OnFundsWithdrawn)(nil)).Elem()},
	{"OnWithdrawalReverted", reflect.TypeOf((*OnWithdrawalReverted)(nil)).Elem()},
	{"OnPlatformFeeUpdated", reflect.TypeOf((*OnPlatformFeeUpdated)(nil)).Elem()},
	{"OnPauseChanged", reflect.TypeOf((*OnPauseChanged)(nil)).Elem()},
	{"OnIssuerRotated", reflect.TypeOf((*OnIssuerRotated)(nil)).Elem()},
	{"OnEntryCommitted", reflect.TypeOf((*OnEntryCommitted)(nil)).Elem()},
	{"OnOperationFailed", reflect.TypeOf((*OnOperationFailed)(nil)).Elem()},
}

// implementedInterfaces returns the hook interfaces p implements.
func implementedInterfaces(p Plugin) []string {
	var out []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			out = append(out, h.name)
		}
	}
	return out
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.run(ctx, "OnInit", p.Name(), func() error { return p.OnInit(ctx, ledger) })
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.run(ctx, "OnShutdown", p.Name(), func() error { return p.OnShutdown(ctx) })
	}
}

// EmitTierCreated emits a tier created event.
func (r *Registry) EmitTierCreated(ctx context.Context, t *tier.Tier) {
	r.mu.RLock()
	plugins := r.onTierCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.run(ctx, "OnTierCreated", p.Name(), func() error { return p.OnTierCreated(ctx, t) })
	}
}

// EmitTierUpdated emits a tier updated event.
func (r *Registry) EmitTierUpdated(ctx context.Context, prev, next *tier.Tier) {
	r.mu.RLock()
	plugins := r.onTierUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.run(ctx, "OnTierUpdated", p.Name(), func() error { return p.OnTierUpdated(ctx, prev, next) })
	}
}

// EmitSubscriptionCreated emits a subscription created event.
func (r *Registry) EmitSubscriptionCreated(ctx context.Context, sub *subscription.Subscription, charge *journal.Charge) {
	r.mu.RLock()
	plugins := r.onSubscriptionCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.run(ctx, "OnSubscriptionCreated", p.Name(), func() error { return p.OnSubscriptionCreated(ctx, sub, charge) })
	}
}

// EmitSubscriptionRenewed emits a subscription renewed event.
func (r *Registry) EmitSubscriptionRenewed(ctx context.Context, sub *subscription.Subscription, charge *journal.Charge) {
	r.mu.RLock()
	plugins := r.onSubscriptionRenewed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.run(ctx, "OnSubscriptionRenewed", p.Name(), func() error { return p.OnSubscriptionRenewed(ctx, sub, charge) })
	}
}

// EmitSubscriptionCanceled emits a subscription canceled event.
func (r *Registry) EmitSubscriptionCanceled(ctx context.Context, sub *subscription.Subscription) {
	r.mu.RLock()
	plugins := r.onSubscriptionCanceled
	r.mu.RUnlock()

	for _, p := range plugins {
		r.run(ctx, "OnSubscriptionCanceled", p.Name(), func() error { return p.OnSubscriptionCanceled(ctx, sub) })
	}
}

// EmitTokenMinted emits a token minted event.
func (r *Registry) EmitTokenMinted(ctx context.Context, tok capability.Token) {
	r.mu.RLock()
	plugins := r.onTokenMinted
	r.mu.RUnlock()

	for _, p := range plugins {
		r.run(ctx, "OnTokenMinted", p.Name(), func() error { return p.OnTokenMinted(ctx, tok) })
	}
}

// EmitTokenRenewed emits a token renewed event.
func (r *Registry) EmitTokenRenewed(ctx context.Context, tok capability.Token) {
	r.mu.RLock()
	plugins := r.onTokenRenewed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.run(ctx, "OnTokenRenewed", p.Name(), func() error { return p.OnTokenRenewed(ctx, tok) })
	}
}

// EmitTokenRevoked emits a token revoked event.
func (r *Registry) EmitTokenRevoked(ctx context.Context, tok capability.Token) {
	r.mu.RLock()
	plugins := r.onTokenRevoked
	r.mu.RUnlock()

	for _, p := range plugins {
		r.run(ctx, "OnTokenRevoked", p.Name(), func() error { return p.OnTokenRevoked(ctx, tok) })
	}
}

// EmitTokenBurned emits a token burned event.
func (r *Registry) EmitTokenBurned(ctx context.Context, holder types.Address, tokenID uint64) {
	r.mu.RLock()
	plugins := r.onTokenBurned
	r.mu.RUnlock()

	for _, p := range plugins {
		r.run(ctx, "OnTokenBurned", p.Name(), func() error { return p.OnTokenBurned(ctx, holder, tokenID) })
	}
}

// EmitFundsWithdrawn emits a funds withdrawn event.
func (r *Registry) EmitFundsWithdrawn(ctx context.Context, w *journal.Withdrawal) {
	r.mu.RLock()
	plugins := r.onFundsWithdrawn
	r.mu.RUnlock()

	for _, p := range plugins {
		r.run(ctx, "OnFundsWithdrawn", p.Name(), func() error { return p.OnFundsWithdrawn(ctx, w) })
	}
}

// EmitWithdrawalReverted emits a withdrawal reverted event.
func (r *Registry) EmitWithdrawalReverted(ctx context.Context, w *journal.Withdrawal, cause error) {
	r.mu.RLock()
	plugins := r.onWithdrawalReverted
	r.mu.RUnlock()

	for _, p := range plugins {
		r.run(ctx, "OnWithdrawalReverted", p.Name(), func() error { return p.OnWithdrawalReverted(ctx, w, cause) })
	}
}

// EmitPlatformFeeUpdated emits a platform fee updated event.
func (r *Registry) EmitPlatformFeeUpdated(ctx context.Context, oldBps, newBps uint16) {
	r.mu.RLock()
	plugins := r.onPlatformFeeUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.run(ctx, "OnPlatformFeeUpdated", p.Name(), func() error { return p.OnPlatformFeeUpdated(ctx, oldBps, newBps) })
	}
}

// EmitPauseChanged emits a pause changed event.
func (r *Registry) EmitPauseChanged(ctx context.Context, actor types.Address, paused bool) {
	r.mu.RLock()
	plugins := r.onPauseChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		r.run(ctx, "OnPauseChanged", p.Name(), func() error { return p.OnPauseChanged(ctx, actor, paused) })
	}
}

// EmitIssuerRotated emits an issuer rotated event.
func (r *Registry) EmitIssuerRotated(ctx context.Context, actor types.Address, migrated int) {
	r.mu.RLock()
	plugins := r.onIssuerRotated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.run(ctx, "OnIssuerRotated", p.Name(), func() error { return p.OnIssuerRotated(ctx, actor, migrated) })
	}
}

// EmitEntryCommitted emits a journal entry committed event.
func (r *Registry) EmitEntryCommitted(ctx context.Context, e *journal.Entry) {
	r.mu.RLock()
	plugins := r.onEntryCommitted
	r.mu.RUnlock()

	for _, p := range plugins {
		r.run(ctx, "OnEntryCommitted", p.Name(), func() error { return p.OnEntryCommitted(ctx, e) })
	}
}

// EmitOperationFailed emits an operation failed event.
func (r *Registry) EmitOperationFailed(ctx context.Context, op string, err error) {
	r.mu.RLock()
	plugins := r.onOperationFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.run(ctx, "OnOperationFailed", p.Name(), func() error { return p.OnOperationFailed(ctx, op, err) })
	}
}

// run invokes one hook and logs its failure.
func (r *Registry) run(ctx context.Context, hook, pluginName string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
