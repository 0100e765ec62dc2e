package subledger

import (
	"fmt"

	"github.com/xraph/subledger/journal"
	"github.com/xraph/subledger/subscription"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// state is everything the journal rebuilds. It is only touched through
// prepare, which is shared by live commits and replay, so both paths apply a
// given entry identically.
type state struct {
	tiers        *tier.Catalogue
	subs         map[uint64]*subscription.Subscription
	bySubscriber map[types.Address][]uint64
	index        *subscription.ActiveIndex
	lastSubID    uint64

	balances map[types.Address]types.Amount
	inflow   types.Amount // every unit ever collected
	outflow  types.Amount // every unit paid out and not reverted

	feeBps  uint16
	paused  bool
	lastSeq uint64
}

func newState(feeBps uint16) *state {
	return &state{
		tiers:        tier.NewCatalogue(),
		subs:         make(map[uint64]*subscription.Subscription),
		bySubscriber: make(map[types.Address][]uint64),
		index:        subscription.NewActiveIndex(),
		balances:     make(map[types.Address]types.Amount),
		feeBps:       feeBps,
	}
}

// prepare validates e against the current state and returns a closure that
// applies it. Nothing is modified until the closure runs, and the closure
// cannot fail.
func (s *state) prepare(e *journal.Entry) (func(), error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if e.Seq <= s.lastSeq {
		return nil, fmt.Errorf("%w: seq %d not after %d", journal.ErrInvalidEntry, e.Seq, s.lastSeq)
	}

	var apply func()
	var err error

	switch e.Action {
	case journal.ActionTierCreated, journal.ActionTierUpdated:
		apply, err = s.prepareTier(e)
	case journal.ActionSubscriptionCreated:
		apply, err = s.prepareCreated(e)
	case journal.ActionSubscriptionRenewed:
		apply, err = s.prepareRenewed(e)
	case journal.ActionSubscriptionCanceled:
		apply, err = s.prepareCanceled(e)
	case journal.ActionFundsWithdrawn:
		apply, err = s.prepareWithdrawn(e)
	case journal.ActionWithdrawalReverted:
		apply, err = s.prepareReverted(e)
	case journal.ActionFeeUpdated:
		if e.Fee.New > types.MaxFeeBps {
			return nil, fmt.Errorf("%w: %d bps", ErrFeeTooHigh, e.Fee.New)
		}
		apply = func() { s.feeBps = e.Fee.New }
	case journal.ActionPaused:
		apply = func() { s.paused = true }
	case journal.ActionUnpaused:
		apply = func() { s.paused = false }
	case journal.ActionIssuerRotated, journal.ActionTokenBurned:
		// Issuer-side only.
		apply = func() {}
	}
	if err != nil {
		return nil, err
	}

	return func() {
		apply()
		s.lastSeq = e.Seq
	}, nil
}

func (s *state) prepareTier(e *journal.Entry) (func(), error) {
	t := e.Tier.Clone()
	n := uint64(len(s.tiers.List(t.Provider)))

	switch {
	case e.Action == journal.ActionTierCreated && t.Index != n:
		return nil, fmt.Errorf("%w: created tier %d, next is %d", ErrInvalidTier, t.Index, n)
	case e.Action == journal.ActionTierUpdated && t.Index >= n:
		return nil, fmt.Errorf("%w: updated tier %d of %d", ErrInvalidTier, t.Index, n)
	}
	return func() {
		_ = s.tiers.Put(t) //nolint:errcheck // index checked above
	}, nil
}

func (s *state) prepareCreated(e *journal.Entry) (func(), error) {
	sub := e.Subscription.Clone()
	if sub.ID != s.lastSubID+1 {
		return nil, fmt.Errorf("%w: subscription id %d, next is %d", journal.ErrInvalidEntry, sub.ID, s.lastSubID+1)
	}
	if cur := s.index.Get(sub.Pair()); cur != subscription.None {
		return nil, fmt.Errorf("%w: %s/%s holds %d", ErrSubscriptionExists, sub.Subscriber, sub.Provider, cur)
	}
	credit, err := s.prepareCharge(e.Charge)
	if err != nil {
		return nil, err
	}

	return func() {
		credit()
		s.subs[sub.ID] = sub
		s.bySubscriber[sub.Subscriber] = append(s.bySubscriber[sub.Subscriber], sub.ID)
		s.index.Set(sub.Pair(), sub.ID)
		s.lastSubID = sub.ID
	}, nil
}

func (s *state) prepareRenewed(e *journal.Entry) (func(), error) {
	sub := e.Subscription.Clone()
	if _, ok := s.subs[sub.ID]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrSubscriptionNotFound, sub.ID)
	}
	if s.index.Get(sub.Pair()) != sub.ID {
		return nil, fmt.Errorf("%w: %d is not in the active slot", ErrNoActiveSubscription, sub.ID)
	}
	credit, err := s.prepareCharge(e.Charge)
	if err != nil {
		return nil, err
	}

	return func() {
		credit()
		s.subs[sub.ID] = sub
	}, nil
}

func (s *state) prepareCanceled(e *journal.Entry) (func(), error) {
	sub := e.Subscription.Clone()
	if _, ok := s.subs[sub.ID]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrSubscriptionNotFound, sub.ID)
	}
	return func() {
		s.subs[sub.ID] = sub
		s.index.Clear(sub.Pair(), sub.ID)
	}, nil
}

// prepareCharge checks that crediting c overflows nothing.
func (s *state) prepareCharge(c *journal.Charge) (func(), error) {
	if sum, err := c.Fee.Add(c.ProviderAmount); err != nil || sum != c.Price {
		return nil, fmt.Errorf("%w: charge %s does not split into %s + %s", journal.ErrInvalidEntry, c.Price, c.Fee, c.ProviderAmount)
	}
	inflow, err := s.inflow.Add(c.Price)
	if err != nil {
		return nil, err
	}
	provider, err := s.balances[c.Provider].Add(c.ProviderAmount)
	if err != nil {
		return nil, err
	}
	treasury := s.balances[c.Treasury]
	if c.Treasury == c.Provider {
		treasury = provider
	}
	if treasury, err = treasury.Add(c.Fee); err != nil {
		return nil, err
	}

	return func() {
		s.inflow = inflow
		s.balances[c.Provider] = provider
		s.balances[c.Treasury] = treasury
	}, nil
}

func (s *state) prepareWithdrawn(e *journal.Entry) (func(), error) {
	w := *e.Withdrawal
	have := s.balances[w.Beneficiary]
	if have == 0 || have != w.Amount {
		return nil, fmt.Errorf("%w: %s holds %s, withdrawal of %s", ErrInsufficientBalance, w.Beneficiary, have, w.Amount)
	}
	outflow, err := s.outflow.Add(w.Amount)
	if err != nil {
		return nil, err
	}
	return func() {
		delete(s.balances, w.Beneficiary)
		s.outflow = outflow
	}, nil
}

func (s *state) prepareReverted(e *journal.Entry) (func(), error) {
	w := *e.Withdrawal
	outflow, err := s.outflow.Sub(w.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: reverting %s of %s paid out", journal.ErrInvalidEntry, w.Amount, s.outflow)
	}
	balance, err := s.balances[w.Beneficiary].Add(w.Amount)
	if err != nil {
		return nil, err
	}
	return func() {
		s.balances[w.Beneficiary] = balance
		s.outflow = outflow
	}, nil
}

// slot returns the record in pair's active slot, or nil. The record may have
// lapsed.
func (s *state) slot(pair subscription.Pair) *subscription.Subscription {
	id := s.index.Get(pair)
	if id == subscription.None {
		return nil
	}
	return s.subs[id]
}

// held sums every balance account.
func (s *state) held() types.Amount {
	var total types.Amount
	for _, b := range s.balances {
		total += b
	}
	return total
}
