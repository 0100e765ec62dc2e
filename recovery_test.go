package subledger_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/xraph/subledger"
	"github.com/xraph/subledger/journal"
	"github.com/xraph/subledger/types"
)

func TestReplayRebuildsState(t *testing.T) {
	f := newFixture(t)
	basic := f.tier(provider, price, month)
	pro := f.tier(provider, 3*price, 3*month)
	other := f.tier(carol, 1_000_000, day)
	if _, err := f.l.UpdateTier(f.ctx, provider, basic, price, month, false); err != nil {
		t.Fatal(err)
	}
	if _, err := f.l.UpdateTier(f.ctx, provider, basic, price, month, true); err != nil {
		t.Fatal(err)
	}

	f.fund(alice, 10*price)
	f.fund(bob, 10*price)
	aliceSub := f.subscribe(alice, provider, basic)
	f.subscribe(bob, provider, pro)
	f.subscribe(alice, carol, other)

	f.clock.Advance(10 * day)
	if _, err := f.l.Renew(f.ctx, alice, provider); err != nil {
		t.Fatal(err)
	}
	if err := f.l.UpdatePlatformFee(f.ctx, operator, 750); err != nil {
		t.Fatal(err)
	}
	if err := f.l.Cancel(f.ctx, bob, provider); err != nil {
		t.Fatal(err)
	}
	bobTok := f.l.SubscriptionsOf(bob)[0].TokenID
	if err := f.l.BurnToken(f.ctx, bob, bobTok); err != nil {
		t.Fatal(err)
	}
	if _, err := f.l.Withdraw(f.ctx, carol); err != nil {
		t.Fatal(err)
	}
	f.usd.FailNext(errors.New("offline"))
	_, _ = f.l.Withdraw(f.ctx, provider)
	if err := f.l.Pause(f.ctx, operator); err != nil {
		t.Fatal(err)
	}

	for _, batch := range []int{1, 3, subledger.DefaultReplayBatchSize} {
		replayed := f.open(subledger.WithReplayBatchSize(batch))

		if got, want := replayed.Totals(), f.l.Totals(); got != want {
			t.Errorf("batch %d: totals = %+v, want %+v", batch, got, want)
		}
		if got, want := replayed.Balances(), f.l.Balances(); !reflect.DeepEqual(got, want) {
			t.Errorf("batch %d: balances = %v, want %v", batch, got, want)
		}
		if replayed.PlatformFee() != 750 || !replayed.Paused() {
			t.Errorf("batch %d: fee = %d paused = %v", batch, replayed.PlatformFee(), replayed.Paused())
		}
		if got := len(replayed.ListTiers(provider)); got != 2 {
			t.Errorf("batch %d: tiers = %d, want 2", batch, got)
		}

		for _, who := range []types.Address{alice, bob} {
			want := f.l.SubscriptionsOf(who)
			got := replayed.SubscriptionsOf(who)
			if len(got) != len(want) {
				t.Fatalf("batch %d: %s has %d subscriptions, want %d", batch, who, len(got), len(want))
			}
			for i := range want {
				g, w := got[i], want[i]
				if g.ID != w.ID || !g.EndTime.Equal(w.EndTime) || g.AmountPaid != w.AmountPaid ||
					g.IsActive != w.IsActive || g.TokenID != w.TokenID || g.Renewals != w.Renewals {
					t.Errorf("batch %d: subscription %+v, want %+v", batch, g, w)
				}
			}
			for _, p := range []types.Address{provider, carol} {
				if replayed.ActiveSubscription(who, p) != f.l.ActiveSubscription(who, p) {
					t.Errorf("batch %d: slot %s/%s differs", batch, who, p)
				}
				if replayed.IsSubscriptionActive(who, p) != f.l.IsSubscriptionActive(who, p) {
					t.Errorf("batch %d: activity %s/%s differs", batch, who, p)
				}
			}
		}

		tok, err := replayed.Token(f.l.SubscriptionsOf(alice)[0].TokenID)
		if err != nil {
			t.Fatalf("batch %d: %v", batch, err)
		}
		orig, _ := f.l.Token(tok.ID)
		if tok.ID != orig.ID || tok.Holder != orig.Holder || tok.Active != orig.Active ||
			!tok.ExpiryTime.Equal(orig.ExpiryTime) || !tok.MintTime.Equal(orig.MintTime) {
			t.Errorf("batch %d: token %+v, want %+v", batch, tok, orig)
		}
		if _, err := replayed.Token(bobTok); !errors.Is(err, subledger.ErrTokenNotFound) {
			t.Errorf("batch %d: burned token err = %v", batch, err)
		}
		if got, _ := replayed.GetSubscription(aliceSub); got.Renewals != 1 {
			t.Errorf("batch %d: renewals = %d", batch, got.Renewals)
		}
	}
}

func TestReplayContinuesSequence(t *testing.T) {
	f := newFixture(t)
	idx := f.tier(provider, price, month)
	f.fund(alice, price)
	f.fund(bob, price)
	f.subscribe(alice, provider, idx)

	replayed := f.open()
	f.l = replayed
	if subID := f.subscribe(bob, provider, idx); subID != 2 {
		t.Errorf("id after replay = %d, want 2", subID)
	}

	entries, err := replayed.History(f.ctx, journal.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	for i, e := range entries {
		if e.Seq != uint64(i+1) {
			t.Errorf("entry %d has seq %d", i, e.Seq)
		}
	}
	f.checkInvariants([]types.Address{alice, bob}, []types.Address{provider})
}

func TestHistoryFilters(t *testing.T) {
	f := newFixture(t)
	idx := f.tier(provider, price, month)
	f.fund(alice, 2*price)
	f.fund(bob, price)
	aliceSub := f.subscribe(alice, provider, idx)
	f.subscribe(bob, provider, idx)
	if _, err := f.l.Renew(f.ctx, alice, provider); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		opts journal.ListOpts
		want int
	}{
		{"all", journal.ListOpts{}, 4},
		{"by subscriber", journal.ListOpts{Subscriber: alice}, 2},
		{"by subscription", journal.ListOpts{SubscriptionID: aliceSub}, 2},
		{"by action", journal.ListOpts{Action: journal.ActionSubscriptionCreated}, 2},
		{"after seq", journal.ListOpts{AfterSeq: 2}, 2},
		{"limit", journal.ListOpts{Limit: 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := f.l.History(f.ctx, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != tt.want {
				t.Errorf("got %d entries, want %d", len(entries), tt.want)
			}
		})
	}
}
