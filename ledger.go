package subledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/subledger/asset"
	"github.com/xraph/subledger/authz"
	"github.com/xraph/subledger/capability"
	"github.com/xraph/subledger/id"
	"github.com/xraph/subledger/journal"
	"github.com/xraph/subledger/plugin"
	"github.com/xraph/subledger/registry"
	"github.com/xraph/subledger/types"
)

// Default identities and settings.
const (
	DefaultCustody         types.Address = "subledger:custody"
	DefaultTreasury        types.Address = "subledger:treasury"
	DefaultPlatformFeeBps  uint16        = 300
	DefaultReplayBatchSize               = 500
)

// Issuer is the capability issuer the ledger mirrors subscriptions into.
// *capability.Issuer implements it.
type Issuer interface {
	Mint(ctx context.Context, caller, holder, provider types.Address, tier uint64, duration time.Duration) (capability.Token, error)
	Renew(ctx context.Context, caller types.Address, tokenID uint64, additional time.Duration) (capability.Token, error)
	Revoke(ctx context.Context, caller types.Address, tokenID uint64) (capability.Token, error)
	Burn(ctx context.Context, caller types.Address, tokenID uint64) error
	Restore(ctx context.Context, caller types.Address, tok capability.Token) error
	Discard(ctx context.Context, caller types.Address, tokenID uint64) error

	IsValidAt(tokenID uint64, now time.Time) bool
	Token(tokenID uint64) (capability.Token, error)
	TokenFor(holder, provider types.Address) (capability.Token, bool)
	ActiveTokensForProvider(provider types.Address) []capability.Token
	Tokens() []capability.Token
}

var _ Issuer = (*capability.Issuer)(nil)

// Ledger is the subscription ledger.
type Ledger struct {
	mu     sync.RWMutex
	st     *state
	issuer Issuer

	journal  journal.Store
	asset    asset.Asset
	policy   *authz.Policy
	registry registry.Registry
	plugins  *plugin.Registry
	logger   *slog.Logger
	clock    types.Clock

	custody     types.Address
	treasury    types.Address
	feeBps      uint16
	replayBatch int
	skipMigrate bool

	guard   guard
	started atomic.Bool
	ready   atomic.Bool
}

// New creates a new Ledger instance. It must be started before use.
func New(j journal.Store, a asset.Asset, opts ...Option) *Ledger {
	l := &Ledger{
		journal:     j,
		asset:       a,
		policy:      authz.NewPolicy(),
		registry:    registry.Nop{},
		plugins:     plugin.NewRegistry(),
		logger:      slog.Default(),
		clock:       types.SystemClock{},
		custody:     DefaultCustody,
		treasury:    DefaultTreasury,
		feeBps:      DefaultPlatformFeeBps,
		replayBatch: DefaultReplayBatchSize,
	}

	for _, opt := range opts {
		opt(l)
	}

	l.policy.Grant(l.custody, authz.PermMint)
	if l.issuer == nil {
		l.issuer = capability.NewIssuer(
			capability.WithPolicy(l.policy),
			capability.WithClock(l.clock),
			capability.WithLogger(l.logger),
		)
	}
	l.st = newState(l.feeBps)

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithIssuer binds an existing capability issuer. The custody identity must
// be allowed to mint on it.
func WithIssuer(i Issuer) Option {
	return func(l *Ledger) { l.issuer = i }
}

// WithPolicy sets the authorization policy. The custody identity is always
// granted authz.PermMint on it.
func WithPolicy(p *authz.Policy) Option {
	return func(l *Ledger) { l.policy = p }
}

// WithRegistry sets the provider registry that receives counter deltas.
func WithRegistry(r registry.Registry) Option {
	return func(l *Ledger) { l.registry = r }
}

// WithClock sets the clock.
func WithClock(c types.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithCustody sets the identity that holds collected funds and drives the
// issuer.
func WithCustody(a types.Address) Option {
	return func(l *Ledger) { l.custody = a }
}

// WithTreasury sets the identity whose account collects platform fees.
func WithTreasury(a types.Address) Option {
	return func(l *Ledger) { l.treasury = a }
}

// WithPlatformFee sets the initial platform fee in basis points. A journal
// with fee.updated entries overrides it on Start.
func WithPlatformFee(bps uint16) Option {
	return func(l *Ledger) { l.feeBps = bps }
}

// WithReplayBatchSize sets how many entries Start reads per journal query.
func WithReplayBatchSize(n int) Option {
	return func(l *Ledger) { l.replayBatch = n }
}

// WithSkipMigrate disables journal migration on Start.
func WithSkipMigrate() Option {
	return func(l *Ledger) { l.skipMigrate = true }
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Start migrates the journal and replays it to rebuild state.
func (l *Ledger) Start(ctx context.Context) error {
	if l.feeBps > types.MaxFeeBps {
		return fmt.Errorf("%w: %d bps", ErrFeeTooHigh, l.feeBps)
	}
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if !l.skipMigrate {
		if err := l.journal.Migrate(ctx); err != nil {
			l.started.Store(false)
			return fmt.Errorf("subledger: migrate journal: %w", err)
		}
	}

	start := time.Now()
	replayed, err := l.replay(ctx)
	if err != nil {
		l.started.Store(false)
		return err
	}

	l.ready.Store(true)
	l.plugins.EmitInit(ctx, l)

	l.mu.RLock()
	l.logger.Info("subledger started",
		"entries", replayed,
		"subscriptions", len(l.st.subs),
		"active", l.st.index.Len(),
		"fee_bps", l.st.feeBps,
		"paused", l.st.paused,
		"replay_ms", time.Since(start).Milliseconds(),
	)
	l.mu.RUnlock()

	return nil
}

// Stop shuts down the Ledger and closes the journal.
func (l *Ledger) Stop() error {
	if !l.ready.CompareAndSwap(true, false) {
		return ErrNotStarted
	}

	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	return l.journal.Close()
}

func (l *Ledger) replay(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	batch := l.replayBatch
	if batch <= 0 {
		batch = DefaultReplayBatchSize
	}

	total := 0
	for {
		entries, err := l.journal.Entries(ctx, journal.ListOpts{AfterSeq: l.st.lastSeq, Limit: batch})
		if err != nil {
			return total, fmt.Errorf("subledger: read journal after %d: %w", l.st.lastSeq, err)
		}
		for _, e := range entries {
			if err := l.replayEntry(ctx, e); err != nil {
				return total, fmt.Errorf("subledger: replay entry %d (%s): %w", e.Seq, e.Action, err)
			}
			total++
		}
		if len(entries) < batch {
			return total, nil
		}
	}
}

// replayEntry must be called with mu held.
func (l *Ledger) replayEntry(ctx context.Context, e *journal.Entry) error {
	apply, err := l.st.prepare(e)
	if err != nil {
		return err
	}
	switch {
	case e.Token != nil:
		if err := l.issuer.Restore(ctx, l.custody, *e.Token); err != nil {
			return err
		}
	case e.Action == journal.ActionTokenBurned:
		if err := l.issuer.Discard(ctx, l.custody, e.BurnedToken); err != nil {
			return err
		}
	}
	apply()
	return nil
}

// ──────────────────────────────────────────────────
// Accessors
// ──────────────────────────────────────────────────

// Issuer returns the currently bound capability issuer.
func (l *Ledger) Issuer() Issuer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.issuer
}

// Policy returns the authorization policy.
func (l *Ledger) Policy() *authz.Policy { return l.policy }

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// Custody returns the identity holding collected funds.
func (l *Ledger) Custody() types.Address { return l.custody }

// Treasury returns the identity of the platform fee account.
func (l *Ledger) Treasury() types.Address { return l.treasury }

// Clock returns the ledger clock.
func (l *Ledger) Clock() types.Clock { return l.clock }

// Health checks the journal.
func (l *Ledger) Health(ctx context.Context) error {
	if !l.ready.Load() {
		return ErrNotStarted
	}
	return l.journal.Ping(ctx)
}

// ──────────────────────────────────────────────────
// Commit helpers
// ──────────────────────────────────────────────────

func (l *Ledger) checkReady() error {
	if !l.ready.Load() {
		return ErrNotStarted
	}
	return nil
}

// begin pins the operation time on ctx.
func (l *Ledger) begin(ctx context.Context) (context.Context, time.Time) {
	now := l.clock.Now()
	return types.ContextWithTime(ctx, now), now
}

// newEntry must be called with mu held.
func (l *Ledger) newEntry(action journal.Action, actor types.Address, now time.Time) *journal.Entry {
	return &journal.Entry{
		Seq:        l.st.lastSeq + 1,
		ID:         id.NewEntryID(),
		Action:     action,
		Actor:      actor,
		OccurredAt: now,
	}
}

// commit validates, journals and applies e. It must be called with mu held.
// On error nothing was applied.
func (l *Ledger) commit(ctx context.Context, e *journal.Entry) error {
	apply, err := l.st.prepare(e)
	if err != nil {
		return err
	}
	if err := l.journal.Append(ctx, e); err != nil {
		return fmt.Errorf("subledger: journal %s: %w", e.Action, err)
	}
	apply()
	return nil
}

// published emits the committed entry hook. Call without mu held.
func (l *Ledger) published(ctx context.Context, e *journal.Entry) {
	l.plugins.EmitEntryCommitted(ctx, e)
}

// failed reports a failed operation to plugins and returns err unchanged.
func (l *Ledger) failed(ctx context.Context, op string, err error) error {
	l.plugins.EmitOperationFailed(ctx, op, err)
	return err
}

// notify pushes a registry delta. Failures are logged and reported, never
// returned.
func (l *Ledger) notify(ctx context.Context, provider types.Address, d registry.Delta) {
	if err := l.registry.Record(ctx, provider, d); err != nil {
		l.logger.Warn("registry notification failed",
			"provider", provider,
			"subscribers", d.Subscribers,
			"revenue", d.Revenue,
			"error", err,
		)
		l.plugins.EmitOperationFailed(ctx, "registry.record", err)
	}
}
