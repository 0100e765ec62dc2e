package subledger

import (
	"context"
	"time"

	"github.com/xraph/subledger/journal"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// CreateTier appends an active tier to provider's catalogue and returns it.
// Tier management is not gated by pause.
func (l *Ledger) CreateTier(ctx context.Context, provider types.Address, price types.Amount, duration time.Duration, name string) (*tier.Tier, error) {
	if err := l.checkReady(); err != nil {
		return nil, err
	}
	if provider.IsZero() {
		return nil, l.failed(ctx, "tier.create", ErrInvalidAddress)
	}
	ctx, now := l.begin(ctx)

	l.mu.Lock()
	t, err := l.st.tiers.Draft(provider, price, duration, name, now)
	if err != nil {
		l.mu.Unlock()
		return nil, l.failed(ctx, "tier.create", err)
	}
	e := l.newEntry(journal.ActionTierCreated, provider, now)
	e.Provider = provider
	e.Tier = t
	if err := l.commit(ctx, e); err != nil {
		l.mu.Unlock()
		return nil, l.failed(ctx, "tier.create", err)
	}
	l.mu.Unlock()

	l.logger.Debug("tier created",
		"provider", provider,
		"index", t.Index,
		"price", t.Price,
		"duration", t.Duration,
	)
	l.plugins.EmitTierCreated(ctx, t.Clone())
	l.published(ctx, e)

	return t.Clone(), nil
}

// UpdateTier revises an existing tier. Price and duration are validated even
// when the call only deactivates it.
func (l *Ledger) UpdateTier(ctx context.Context, provider types.Address, index uint64, price types.Amount, duration time.Duration, active bool) (*tier.Tier, error) {
	if err := l.checkReady(); err != nil {
		return nil, err
	}
	ctx, now := l.begin(ctx)

	l.mu.Lock()
	prev, next, err := l.st.tiers.Revise(provider, index, price, duration, active, now)
	if err != nil {
		l.mu.Unlock()
		return nil, l.failed(ctx, "tier.update", err)
	}
	e := l.newEntry(journal.ActionTierUpdated, provider, now)
	e.Provider = provider
	e.Tier = next
	if err := l.commit(ctx, e); err != nil {
		l.mu.Unlock()
		return nil, l.failed(ctx, "tier.update", err)
	}
	l.mu.Unlock()

	l.plugins.EmitTierUpdated(ctx, prev, next.Clone())
	l.published(ctx, e)

	return next.Clone(), nil
}

// GetTier returns the tier at index.
func (l *Ledger) GetTier(provider types.Address, index uint64) (*tier.Tier, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.st.tiers.Get(provider, index)
}

// ListTiers returns provider's tiers in index order. An unknown provider
// yields an empty list.
func (l *Ledger) ListTiers(provider types.Address) []*tier.Tier {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.st.tiers.List(provider)
}
