package subledger

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/subledger/capability"
	"github.com/xraph/subledger/journal"
	"github.com/xraph/subledger/subscription"
	"github.com/xraph/subledger/types"
)

// GetSubscription returns a copy of the record with the given id.
func (l *Ledger) GetSubscription(subID uint64) (*subscription.Subscription, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	sub, ok := l.st.subs[subID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrSubscriptionNotFound, subID)
	}
	return sub.Clone(), nil
}

// ActiveSubscription returns the id in the (subscriber, provider) slot, or
// NoSubscription. The record it names may have lapsed.
func (l *Ledger) ActiveSubscription(subscriber, provider types.Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.st.index.Get(subscription.Pair{Subscriber: subscriber, Provider: provider})
}

// SubscriptionsOf returns every subscription subscriber ever held, oldest
// first.
func (l *Ledger) SubscriptionsOf(subscriber types.Address) []*subscription.Subscription {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := l.st.bySubscriber[subscriber]
	out := make([]*subscription.Subscription, 0, len(ids))
	for _, subID := range ids {
		out = append(out, l.st.subs[subID].Clone())
	}
	return out
}

// IsSubscriptionActive reports whether subscriber currently has access to
// provider. It always agrees with the issuer's answer for the pair's token.
func (l *Ledger) IsSubscriptionActive(subscriber, provider types.Address) bool {
	now := l.clock.Now()

	l.mu.RLock()
	defer l.mu.RUnlock()

	sub := l.st.slot(subscription.Pair{Subscriber: subscriber, Provider: provider})
	return sub != nil && sub.ValidAt(now)
}

// TimeRemaining returns the access time subscriber has left with provider.
func (l *Ledger) TimeRemaining(subscriber, provider types.Address) time.Duration {
	now := l.clock.Now()

	l.mu.RLock()
	defer l.mu.RUnlock()

	sub := l.st.slot(subscription.Pair{Subscriber: subscriber, Provider: provider})
	if sub == nil {
		return 0
	}
	return sub.Remaining(now)
}

// TokenFor returns the active token held by subscriber for provider.
func (l *Ledger) TokenFor(subscriber, provider types.Address) (capability.Token, bool) {
	return l.Issuer().TokenFor(subscriber, provider)
}

// Token returns the token with the given id.
func (l *Ledger) Token(tokenID uint64) (capability.Token, error) {
	return l.Issuer().Token(tokenID)
}

// IsTokenValid reports whether tokenID grants access right now.
func (l *Ledger) IsTokenValid(tokenID uint64) bool {
	return l.Issuer().IsValidAt(tokenID, l.clock.Now())
}

// ActiveTokensForProvider returns the tokens currently granting access to
// provider.
func (l *Ledger) ActiveTokensForProvider(provider types.Address) []capability.Token {
	return l.Issuer().ActiveTokensForProvider(provider)
}

// PlatformFee returns the fee in basis points applied to new charges.
func (l *Ledger) PlatformFee() uint16 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.st.feeBps
}

// Paused reports whether subscriptions and renewals are stopped.
func (l *Ledger) Paused() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.st.paused
}

// History returns journal entries matching opts, in sequence order.
func (l *Ledger) History(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	if err := l.checkReady(); err != nil {
		return nil, err
	}
	return l.journal.Entries(ctx, opts)
}
