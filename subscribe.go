package subledger

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/subledger/capability"
	"github.com/xraph/subledger/id"
	"github.com/xraph/subledger/journal"
	"github.com/xraph/subledger/registry"
	"github.com/xraph/subledger/subscription"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// quote is a validated, priced request. Funds move against the quote, so the
// price a payer is charged is the price seen at validation time.
type quote struct {
	tier   *tier.Tier
	sub    *subscription.Subscription // renewals only
	charge *journal.Charge
}

// ──────────────────────────────────────────────────
// Subscribe
// ──────────────────────────────────────────────────

// Subscribe charges subscriber the tier price, opens a subscription and mints
// its capability token. It returns the new subscription id.
//
// A lapsed subscription that was never canceled still occupies the slot; the
// subscriber must renew it or cancel it first.
func (l *Ledger) Subscribe(ctx context.Context, subscriber, provider types.Address, tierIndex uint64, autoRenew bool) (uint64, error) {
	if err := l.checkReady(); err != nil {
		return subscription.None, err
	}
	if err := l.guard.enter(); err != nil {
		return subscription.None, err
	}
	defer l.guard.exit()
	ctx, now := l.begin(ctx)

	l.mu.RLock()
	q, err := l.quoteSubscribe(subscriber, provider, tierIndex)
	l.mu.RUnlock()
	if err != nil {
		return subscription.None, l.failed(ctx, "subscribe", err)
	}

	if err := l.collect(ctx, subscriber, q.charge.Price); err != nil {
		return subscription.None, l.failed(ctx, "subscribe", err)
	}

	l.mu.Lock()
	tok, err := l.issuer.Mint(ctx, l.custody, subscriber, provider, tierIndex, q.tier.Duration)
	if err != nil {
		l.mu.Unlock()
		l.refund(ctx, subscriber, q.charge.Price)
		return subscription.None, l.failed(ctx, "subscribe", err)
	}

	sub := &subscription.Subscription{
		Entity:     types.NewEntity(now),
		ID:         l.st.lastSubID + 1,
		Subscriber: subscriber,
		Provider:   provider,
		TierIndex:  tierIndex,
		StartTime:  now,
		EndTime:    now.Add(q.tier.Duration),
		AmountPaid: q.charge.Price,
		IsActive:   true,
		AutoRenew:  autoRenew,
		TokenID:    tok.ID,
	}
	e := l.newEntry(journal.ActionSubscriptionCreated, subscriber, now)
	e.Provider = provider
	e.Subscriber = subscriber
	e.Subscription = sub
	e.Token = &tok
	e.Charge = q.charge

	if err := l.mirrors(sub, tok); err == nil {
		err = l.commit(ctx, e)
	}
	if err != nil {
		l.rollbackToken(ctx, tok.ID, nil)
		l.mu.Unlock()
		l.refund(ctx, subscriber, q.charge.Price)
		return subscription.None, l.failed(ctx, "subscribe", err)
	}
	l.mu.Unlock()

	l.logger.Info("subscription created",
		"subscription_id", sub.ID,
		"subscriber", subscriber,
		"provider", provider,
		"tier", tierIndex,
		"price", q.charge.Price,
		"fee", q.charge.Fee,
		"end", sub.EndTime,
	)

	l.notify(ctx, provider, registry.Subscribed(q.charge.ProviderAmount))
	l.plugins.EmitSubscriptionCreated(ctx, sub.Clone(), q.charge)
	l.plugins.EmitTokenMinted(ctx, tok)
	l.published(ctx, e)

	return sub.ID, nil
}

// quoteSubscribe must be called with mu held for reading.
func (l *Ledger) quoteSubscribe(subscriber, provider types.Address, tierIndex uint64) (*quote, error) {
	if subscriber.IsZero() || provider.IsZero() {
		return nil, ErrInvalidAddress
	}
	if l.st.paused {
		return nil, ErrPaused
	}
	t, err := l.st.tiers.GetActive(provider, tierIndex)
	if err != nil {
		return nil, err
	}
	pair := subscription.Pair{Subscriber: subscriber, Provider: provider}
	if cur := l.st.index.Get(pair); cur != subscription.None {
		return nil, fmt.Errorf("%w: %s already holds subscription %d with %s", ErrSubscriptionExists, subscriber, cur, provider)
	}
	if tok, ok := l.issuer.TokenFor(subscriber, provider); ok {
		return nil, fmt.Errorf("%w: %d for %s/%s", ErrTokenExists, tok.ID, subscriber, provider)
	}

	q := &quote{tier: t, charge: l.priceCharge(subscriber, provider, t.Price)}
	if _, err := l.st.prepareCharge(q.charge); err != nil {
		return nil, err
	}
	return q, nil
}

// ──────────────────────────────────────────────────
// Renew
// ──────────────────────────────────────────────────

// Renew charges the current price of the subscription's tier and extends it
// by the tier's current duration: from the end if still running, from now if
// lapsed. It returns the new end time.
func (l *Ledger) Renew(ctx context.Context, subscriber, provider types.Address) (time.Time, error) {
	if err := l.checkReady(); err != nil {
		return time.Time{}, err
	}
	if err := l.guard.enter(); err != nil {
		return time.Time{}, err
	}
	defer l.guard.exit()
	ctx, now := l.begin(ctx)

	l.mu.RLock()
	q, err := l.quoteRenew(subscriber, provider)
	l.mu.RUnlock()
	if err != nil {
		return time.Time{}, l.failed(ctx, "renew", err)
	}

	if err := l.collect(ctx, subscriber, q.charge.Price); err != nil {
		return time.Time{}, l.failed(ctx, "renew", err)
	}

	l.mu.Lock()
	prev, err := l.issuer.Token(q.sub.TokenID)
	if err != nil {
		l.mu.Unlock()
		l.refund(ctx, subscriber, q.charge.Price)
		return time.Time{}, l.failed(ctx, "renew", err)
	}
	tok, err := l.issuer.Renew(ctx, l.custody, q.sub.TokenID, q.tier.Duration)
	if err != nil {
		l.mu.Unlock()
		l.refund(ctx, subscriber, q.charge.Price)
		return time.Time{}, l.failed(ctx, "renew", err)
	}

	sub := q.sub.Clone()
	sub.EndTime = types.Extend(now, sub.EndTime, q.tier.Duration)
	sub.AmountPaid += q.charge.Price
	sub.Renewals++
	sub.Touch(now)

	e := l.newEntry(journal.ActionSubscriptionRenewed, subscriber, now)
	e.Provider = provider
	e.Subscriber = subscriber
	e.Subscription = sub
	e.Token = &tok
	e.Charge = q.charge

	if err := l.mirrors(sub, tok); err == nil {
		err = l.commit(ctx, e)
	}
	if err != nil {
		l.rollbackToken(ctx, tok.ID, &prev)
		l.mu.Unlock()
		l.refund(ctx, subscriber, q.charge.Price)
		return time.Time{}, l.failed(ctx, "renew", err)
	}
	l.mu.Unlock()

	l.logger.Info("subscription renewed",
		"subscription_id", sub.ID,
		"subscriber", subscriber,
		"provider", provider,
		"price", q.charge.Price,
		"end", sub.EndTime,
	)

	l.notify(ctx, provider, registry.Renewed(q.charge.ProviderAmount))
	l.plugins.EmitSubscriptionRenewed(ctx, sub.Clone(), q.charge)
	l.plugins.EmitTokenRenewed(ctx, tok)
	l.published(ctx, e)

	return sub.EndTime, nil
}

// quoteRenew must be called with mu held for reading.
func (l *Ledger) quoteRenew(subscriber, provider types.Address) (*quote, error) {
	if l.st.paused {
		return nil, ErrPaused
	}
	sub := l.st.slot(subscription.Pair{Subscriber: subscriber, Provider: provider})
	if sub == nil || !sub.IsActive {
		return nil, fmt.Errorf("%w: %s with %s", ErrNoActiveSubscription, subscriber, provider)
	}
	t, err := l.st.tiers.GetActive(provider, sub.TierIndex)
	if err != nil {
		return nil, err
	}
	if tok, err := l.issuer.Token(sub.TokenID); err != nil || !tok.Active {
		return nil, fmt.Errorf("%w: %d", ErrTokenExpiredOrInactive, sub.TokenID)
	}
	if _, err := sub.AmountPaid.Add(t.Price); err != nil {
		return nil, err
	}

	q := &quote{tier: t, sub: sub.Clone(), charge: l.priceCharge(subscriber, provider, t.Price)}
	if _, err := l.st.prepareCharge(q.charge); err != nil {
		return nil, err
	}
	return q, nil
}

// ──────────────────────────────────────────────────
// Cancel
// ──────────────────────────────────────────────────

// Cancel ends the subscription in the slot of (subscriber, provider), frees
// the slot and revokes the token. It works on lapsed subscriptions too and is
// never gated by pause. Nothing is refunded.
func (l *Ledger) Cancel(ctx context.Context, subscriber, provider types.Address) error {
	if err := l.checkReady(); err != nil {
		return err
	}
	if err := l.guard.enter(); err != nil {
		return err
	}
	defer l.guard.exit()
	ctx, now := l.begin(ctx)

	l.mu.Lock()
	cur := l.st.slot(subscription.Pair{Subscriber: subscriber, Provider: provider})
	if cur == nil || !cur.IsActive {
		l.mu.Unlock()
		return l.failed(ctx, "cancel", fmt.Errorf("%w: %s with %s", ErrNoActiveSubscription, subscriber, provider))
	}

	prev, err := l.issuer.Token(cur.TokenID)
	if err != nil {
		l.mu.Unlock()
		return l.failed(ctx, "cancel", err)
	}
	tok, err := l.issuer.Revoke(ctx, l.custody, cur.TokenID)
	if err != nil {
		l.mu.Unlock()
		return l.failed(ctx, "cancel", err)
	}

	sub := cur.Clone()
	sub.IsActive = false
	sub.AutoRenew = false
	sub.CanceledAt = &now
	sub.Touch(now)

	e := l.newEntry(journal.ActionSubscriptionCanceled, subscriber, now)
	e.Provider = provider
	e.Subscriber = subscriber
	e.Subscription = sub
	e.Token = &tok

	if err := l.commit(ctx, e); err != nil {
		l.rollbackToken(ctx, tok.ID, &prev)
		l.mu.Unlock()
		return l.failed(ctx, "cancel", err)
	}
	l.mu.Unlock()

	l.logger.Info("subscription canceled",
		"subscription_id", sub.ID,
		"subscriber", subscriber,
		"provider", provider,
	)

	l.notify(ctx, provider, registry.Canceled())
	l.plugins.EmitSubscriptionCanceled(ctx, sub.Clone())
	if prev.Active {
		l.plugins.EmitTokenRevoked(ctx, tok)
	}
	l.published(ctx, e)

	return nil
}

// ──────────────────────────────────────────────────
// Shared helpers
// ──────────────────────────────────────────────────

// priceCharge must be called with mu held for reading.
func (l *Ledger) priceCharge(payer, provider types.Address, price types.Amount) *journal.Charge {
	split := types.SplitFee(price, l.st.feeBps)
	return &journal.Charge{
		ID:             id.NewChargeID(),
		Payer:          payer,
		Provider:       provider,
		Treasury:       l.treasury,
		Price:          split.Price,
		Fee:            split.Fee,
		ProviderAmount: split.Provider,
		FeeBps:         l.st.feeBps,
	}
}

// collect pulls amount from payer into custody. Called with no lock held.
func (l *Ledger) collect(ctx context.Context, payer types.Address, amount types.Amount) error {
	if err := l.asset.TransferFrom(ctx, l.custody, payer, l.custody, amount); err != nil {
		return fmt.Errorf("%w: collect %s from %s: %v", ErrPaymentTransferFailed, amount, payer, err)
	}
	return nil
}

// refund returns a collected charge after a failed commit. Called with no
// lock held.
func (l *Ledger) refund(ctx context.Context, payer types.Address, amount types.Amount) {
	if err := l.asset.Transfer(context.WithoutCancel(ctx), l.custody, payer, amount); err != nil {
		l.logger.Error("refund failed",
			"payer", payer,
			"amount", amount,
			"error", err,
		)
		l.plugins.EmitOperationFailed(ctx, "refund", err)
	}
}

// rollbackToken undoes an issuer change whose entry was not committed: a
// fresh mint is discarded, anything else is restored to prev. It must be
// called with mu held.
func (l *Ledger) rollbackToken(ctx context.Context, tokenID uint64, prev *capability.Token) {
	ctx = context.WithoutCancel(ctx)
	var err error
	if prev == nil {
		err = l.issuer.Discard(ctx, l.custody, tokenID)
	} else {
		err = l.issuer.Restore(ctx, l.custody, *prev)
	}
	if err != nil {
		l.logger.Error("issuer rollback failed",
			"token_id", tokenID,
			"error", err,
		)
	}
}

// mirrors checks that the issuer and the ledger agree on the period.
func (l *Ledger) mirrors(sub *subscription.Subscription, tok capability.Token) error {
	if !tok.ExpiryTime.Equal(sub.EndTime) || tok.Holder != sub.Subscriber || tok.Provider != sub.Provider {
		return fmt.Errorf("subledger: token %d expiring %s diverges from subscription %d ending %s",
			tok.ID, tok.ExpiryTime, sub.ID, sub.EndTime)
	}
	return nil
}
