package subledger_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/subledger"
	assetmem "github.com/xraph/subledger/asset/memory"
	"github.com/xraph/subledger/authz"
	"github.com/xraph/subledger/journal"
	regmem "github.com/xraph/subledger/registry/memory"
	"github.com/xraph/subledger/store/memory"
	"github.com/xraph/subledger/types"
)

const (
	alice    types.Address = "alice"
	bob      types.Address = "bob"
	carol    types.Address = "carol"
	provider types.Address = "provider"
	operator types.Address = "operator"

	price types.Amount = 10_000_000
	month              = 30 * 24 * time.Hour
	day                = 24 * time.Hour
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	clock  *types.ManualClock
	usd    *assetmem.Token
	store  *memory.Store
	reg    *regmem.Registry
	policy *authz.Policy
	l      *subledger.Ledger
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, opts ...subledger.Option) *fixture {
	t.Helper()

	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		clock:  types.NewManualClock(epoch),
		usd:    assetmem.New(),
		store:  memory.New(),
		reg:    regmem.New(),
		policy: authz.NewPolicy().Grant(operator, authz.PermOperator),
	}
	f.l = f.open(opts...)
	return f
}

// open starts a ledger over the fixture's store, asset and clock.
func (f *fixture) open(opts ...subledger.Option) *subledger.Ledger {
	f.t.Helper()

	base := []subledger.Option{
		subledger.WithLogger(quietLogger()),
		subledger.WithClock(f.clock),
		subledger.WithPolicy(f.policy),
		subledger.WithRegistry(f.reg),
	}
	l := subledger.New(f.store, f.usd, append(base, opts...)...)
	if err := l.Start(f.ctx); err != nil {
		f.t.Fatalf("Start: %v", err)
	}
	return l
}

// fund mints amount to who and approves custody to draw it.
func (f *fixture) fund(who types.Address, amount types.Amount) {
	f.t.Helper()
	if err := f.usd.Mint(who, amount); err != nil {
		f.t.Fatalf("Mint: %v", err)
	}
	f.usd.Approve(who, f.l.Custody(), f.usd.Allowance(who, f.l.Custody())+amount)
}

func (f *fixture) tier(p types.Address, amount types.Amount, d time.Duration) uint64 {
	f.t.Helper()
	t, err := f.l.CreateTier(f.ctx, p, amount, d, "Monthly")
	if err != nil {
		f.t.Fatalf("CreateTier: %v", err)
	}
	return t.Index
}

func (f *fixture) subscribe(who, p types.Address, index uint64) uint64 {
	f.t.Helper()
	subID, err := f.l.Subscribe(f.ctx, who, p, index, true)
	if err != nil {
		f.t.Fatalf("Subscribe(%s, %s): %v", who, p, err)
	}
	return subID
}

func (f *fixture) count(action journal.Action) int {
	f.t.Helper()
	entries, err := f.l.History(f.ctx, journal.ListOpts{Action: action})
	if err != nil {
		f.t.Fatalf("History: %v", err)
	}
	return len(entries)
}

// checkInvariants asserts conservation and the mirror invariant for every
// pair drawn from subscribers × providers.
func (f *fixture) checkInvariants(subscribers, providers []types.Address) {
	f.t.Helper()

	totals := f.l.Totals()
	held, err := totals.Inflow.Sub(totals.Withdrawn)
	if err != nil {
		f.t.Fatalf("withdrawn %s exceeds inflow %s", totals.Withdrawn, totals.Inflow)
	}
	if totals.Held != held {
		f.t.Errorf("held = %s, want inflow-withdrawn = %s", totals.Held, held)
	}
	var sum types.Amount
	for _, b := range f.l.Balances() {
		sum += b
	}
	if sum != totals.Held {
		f.t.Errorf("sum of balances = %s, want %s", sum, totals.Held)
	}
	if got := f.usd.BalanceOf(f.l.Custody()); got != totals.Held {
		f.t.Errorf("custody holds %s, ledger accounts for %s", got, totals.Held)
	}

	for _, s := range subscribers {
		for _, p := range providers {
			ledgerSays := f.l.IsSubscriptionActive(s, p)
			issuerSays := false
			if tok, ok := f.l.TokenFor(s, p); ok {
				issuerSays = f.l.IsTokenValid(tok.ID)
			}
			if ledgerSays != issuerSays {
				f.t.Errorf("%s/%s: ledger active = %v, issuer valid = %v", s, p, ledgerSays, issuerSays)
			}
		}
	}
}
