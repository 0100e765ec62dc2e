// Package subledger grants and revokes time-bounded access in exchange for
// recurring payments, and accounts for the collected funds per beneficiary.
//
// Subledger is designed as a library, not a service. Import it directly into
// your Go application, or run the bundled subledgerd daemon. It provides:
//
//   - Per-provider tier catalogues with append-only pricing history
//   - One active subscription per (subscriber, provider) pair
//   - Exact integer fee splitting between provider and platform
//   - Withdrawable balances that always sum to what custody holds
//   - Holder-bound, non-transferable capability tokens mirroring every
//     subscription
//   - An append-only journal replayed on Start (memory, Postgres, SQLite,
//     MongoDB)
//   - Typed plugin hooks for audit trails and metrics
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/subledger"
//	    assetmem "github.com/xraph/subledger/asset/memory"
//	    "github.com/xraph/subledger/store/memory"
//	)
//
//	usd := assetmem.New()
//	l := subledger.New(memory.New(), usd)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Core Concepts
//
// Providers publish tiers. A tier has a price in base units of the settlement
// asset and a period length:
//
//	t, err := l.CreateTier(ctx, provider, 10_000_000, 30*24*time.Hour, "Monthly")
//
// Subscribers pay for a tier. The payer must have approved the custody
// identity on the asset beforehand:
//
//	usd.Approve(subscriber, l.Custody(), 10_000_000)
//	subID, err := l.Subscribe(ctx, subscriber, provider, t.Index, true)
//
// Access checks read either side of the mirror; both always agree:
//
//	l.IsSubscriptionActive(subscriber, provider)
//	tok, _ := l.TokenFor(subscriber, provider)
//	l.IsTokenValid(tok.ID)
//
// Renewal extends from the current end while a subscription runs and from
// now once it has lapsed. Expiry is evaluated at read time; nothing sweeps.
// A lapsed subscription keeps its slot until it is renewed or canceled.
//
// Providers and the platform treasury withdraw their whole balance at once:
//
//	paid, err := l.Withdraw(ctx, provider)
//
// # Fees
//
// The platform fee is floor(price * bps / 10000) and is capped at 1000 bps.
// The provider receives the remainder, so no unit is ever lost to rounding.
//
// # Concurrency
//
// Funds-moving operations are serialized by a busy flag. A call that arrives
// while another is in flight, including one re-entered from an asset
// callback, fails at once with ErrReentrant. Reads never block on the asset.
//
// # Recovery
//
// Every transition is one journal entry carrying the post-images it produced.
// Start replays the journal into the ledger and its issuer, so a ledger
// rebuilt from the same store answers every query identically.
package subledger
