// Package capability issues the non-transferable tokens that mirror
// subscription validity.
//
// Mutating calls (Mint, Renew, Revoke, Restore, Discard) require the caller to
// hold authz.PermMint in the issuer's policy. Queries are open to anyone and
// compute validity freshly from stored state and the current time; nothing
// ever expires a token in the background.
package capability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/xraph/subledger/authz"
	"github.com/xraph/subledger/subscription"
	"github.com/xraph/subledger/types"
)

var (
	ErrTokenExists            = errors.New("subledger: token already exists")
	ErrTokenExpiredOrInactive = errors.New("subledger: token expired or inactive")
	ErrTokenNotFound          = errors.New("subledger: token not found")
	ErrTokenActive            = errors.New("subledger: token still active")
	ErrNonTransferable        = errors.New("subledger: token is non-transferable")
	ErrInvalidDuration        = errors.New("subledger: invalid token duration")
)

// Issuer holds every token it has minted.
type Issuer struct {
	mu     sync.RWMutex
	policy *authz.Policy
	clock  types.Clock
	logger *slog.Logger

	lastID     uint64
	tokens     map[uint64]*Token
	holders    map[subscription.Pair]uint64
	byProvider map[types.Address][]uint64
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithPolicy sets the authorization policy consulted for mutations.
func WithPolicy(p *authz.Policy) Option {
	return func(i *Issuer) { i.policy = p }
}

// WithClock sets the clock used when no operation time is pinned on ctx.
func WithClock(c types.Clock) Option {
	return func(i *Issuer) { i.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Issuer) { i.logger = l }
}

// NewIssuer creates an empty issuer. Without WithPolicy nobody may mint.
func NewIssuer(opts ...Option) *Issuer {
	i := &Issuer{
		policy:     authz.NewPolicy(),
		clock:      types.SystemClock{},
		logger:     slog.Default(),
		tokens:     make(map[uint64]*Token),
		holders:    make(map[subscription.Pair]uint64),
		byProvider: make(map[types.Address][]uint64),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Policy returns the policy the issuer authorizes against.
func (i *Issuer) Policy() *authz.Policy { return i.policy }

// ──────────────────────────────────────────────────
// Mutations
// ──────────────────────────────────────────────────

// Mint issues a token for (holder, provider) expiring duration from now.
// It fails with ErrTokenExists while the pair already holds an active token,
// whatever the ledger believes.
func (i *Issuer) Mint(ctx context.Context, caller, holder, provider types.Address, tier uint64, duration time.Duration) (Token, error) {
	if err := i.policy.Require(caller, authz.PermMint); err != nil {
		return Token{}, err
	}
	if duration <= 0 {
		return Token{}, ErrInvalidDuration
	}
	now := types.OperationTime(ctx, i.clock)

	i.mu.Lock()
	defer i.mu.Unlock()

	pair := subscription.Pair{Subscriber: holder, Provider: provider}
	if existing, ok := i.holders[pair]; ok {
		return Token{}, fmt.Errorf("%w: %d for %s/%s", ErrTokenExists, existing, holder, provider)
	}

	i.lastID++
	tok := &Token{
		ID:         i.lastID,
		Holder:     holder,
		Provider:   provider,
		Tier:       tier,
		MintTime:   now,
		ExpiryTime: now.Add(duration),
		Active:     true,
	}
	i.tokens[tok.ID] = tok
	i.holders[pair] = tok.ID
	i.byProvider[provider] = append(i.byProvider[provider], tok.ID)

	i.logger.Debug("capability minted",
		"token_id", tok.ID,
		"holder", holder,
		"provider", provider,
		"expiry", tok.ExpiryTime,
	)

	return *tok, nil
}

// Renew extends an active token by additional, from its expiry if still
// running or from now if lapsed.
func (i *Issuer) Renew(ctx context.Context, caller types.Address, tokenID uint64, additional time.Duration) (Token, error) {
	if err := i.policy.Require(caller, authz.PermMint); err != nil {
		return Token{}, err
	}
	if additional <= 0 {
		return Token{}, ErrInvalidDuration
	}
	now := types.OperationTime(ctx, i.clock)

	i.mu.Lock()
	defer i.mu.Unlock()

	tok, ok := i.tokens[tokenID]
	if !ok || !tok.Active {
		return Token{}, fmt.Errorf("%w: %d", ErrTokenExpiredOrInactive, tokenID)
	}
	tok.ExpiryTime = types.Extend(now, tok.ExpiryTime, additional)

	return *tok, nil
}

// Revoke deactivates a token and frees its pair. Revoking an inactive token
// is a no-op that returns the token unchanged.
func (i *Issuer) Revoke(_ context.Context, caller types.Address, tokenID uint64) (Token, error) {
	if err := i.policy.Require(caller, authz.PermMint); err != nil {
		return Token{}, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	tok, ok := i.tokens[tokenID]
	if !ok {
		return Token{}, fmt.Errorf("%w: %d", ErrTokenNotFound, tokenID)
	}
	if !tok.Active {
		return *tok, nil
	}

	tok.Active = false
	if i.holders[tok.Pair()] == tok.ID {
		delete(i.holders, tok.Pair())
	}
	return *tok, nil
}

// Transfer always fails: tokens cannot change holder.
func (i *Issuer) Transfer(_ context.Context, caller types.Address, tokenID uint64, to types.Address) error {
	return fmt.Errorf("%w: %s cannot move token %d to %s", ErrNonTransferable, caller, tokenID, to)
}

// Burn destroys a token on behalf of its holder. Only inactive tokens can be
// burned, so the holder can never make the issuer disagree with the ledger.
// The id stays in the provider's issuance list.
func (i *Issuer) Burn(_ context.Context, caller types.Address, tokenID uint64) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	tok, ok := i.tokens[tokenID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrTokenNotFound, tokenID)
	}
	if tok.Holder != caller {
		return fmt.Errorf("%w: %s does not hold token %d", authz.ErrUnauthorized, caller, tokenID)
	}
	if tok.Active {
		return fmt.Errorf("%w: %d", ErrTokenActive, tokenID)
	}
	delete(i.tokens, tokenID)
	return nil
}

// Restore installs a token snapshot as-is. It backs journal replay, rollback
// of a failed commit, and migration into a freshly bound issuer.
func (i *Issuer) Restore(_ context.Context, caller types.Address, tok Token) error {
	if err := i.policy.Require(caller, authz.PermMint); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	pair := tok.Pair()
	if tok.Active {
		if other, ok := i.holders[pair]; ok && other != tok.ID {
			return fmt.Errorf("%w: %d for %s/%s", ErrTokenExists, other, tok.Holder, tok.Provider)
		}
	}

	if _, known := i.tokens[tok.ID]; !known {
		i.byProvider[tok.Provider] = append(i.byProvider[tok.Provider], tok.ID)
	}
	cp := tok
	i.tokens[tok.ID] = &cp

	if tok.Active {
		i.holders[pair] = tok.ID
	} else if i.holders[pair] == tok.ID {
		delete(i.holders, pair)
	}
	if tok.ID > i.lastID {
		i.lastID = tok.ID
	}
	return nil
}

// Discard removes a token record. It undoes a mint whose commit failed and
// replays a burn. Discarded ids are never reissued.
func (i *Issuer) Discard(_ context.Context, caller types.Address, tokenID uint64) error {
	if err := i.policy.Require(caller, authz.PermMint); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	tok, ok := i.tokens[tokenID]
	if !ok {
		return nil
	}
	if i.holders[tok.Pair()] == tokenID {
		delete(i.holders, tok.Pair())
	}
	delete(i.tokens, tokenID)
	return nil
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// IsValid reports whether tokenID is active and unexpired right now.
// Unknown ids, including 0, are invalid.
func (i *Issuer) IsValid(tokenID uint64) bool {
	return i.IsValidAt(tokenID, i.clock.Now())
}

// IsValidAt is IsValid evaluated at a given instant.
func (i *Issuer) IsValidAt(tokenID uint64, now time.Time) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()

	tok, ok := i.tokens[tokenID]
	return ok && tok.ValidAt(now)
}

// Token returns a snapshot of tokenID.
func (i *Issuer) Token(tokenID uint64) (Token, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	tok, ok := i.tokens[tokenID]
	if !ok {
		return Token{}, fmt.Errorf("%w: %d", ErrTokenNotFound, tokenID)
	}
	return *tok, nil
}

// TokenFor returns the active token of (holder, provider), if any. The token
// may have lapsed; check ValidAt.
func (i *Issuer) TokenFor(holder, provider types.Address) (Token, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	id, ok := i.holders[subscription.Pair{Subscriber: holder, Provider: provider}]
	if !ok {
		return Token{}, false
	}
	return *i.tokens[id], true
}

// TimeRemaining returns the access time left on tokenID, zero once it is
// inactive or expired.
func (i *Issuer) TimeRemaining(tokenID uint64) time.Duration {
	now := i.clock.Now()

	i.mu.RLock()
	defer i.mu.RUnlock()

	tok, ok := i.tokens[tokenID]
	if !ok || !tok.Active {
		return 0
	}
	return types.Remaining(now, tok.ExpiryTime)
}

// ActiveTokensForProvider scans everything ever issued for provider and
// returns the tokens valid right now, in issuance order. The scan is linear
// in the provider's issuance history.
func (i *Issuer) ActiveTokensForProvider(provider types.Address) []Token {
	now := i.clock.Now()

	i.mu.RLock()
	defer i.mu.RUnlock()

	var out []Token
	for _, id := range i.byProvider[provider] {
		if tok, ok := i.tokens[id]; ok && tok.ValidAt(now) {
			out = append(out, *tok)
		}
	}
	return out
}

// Issued returns every id ever issued for provider, including inactive and
// burned ones.
func (i *Issuer) Issued(provider types.Address) []uint64 {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]uint64, len(i.byProvider[provider]))
	copy(out, i.byProvider[provider])
	return out
}

// Tokens returns a snapshot of every stored token ordered by id.
func (i *Issuer) Tokens() []Token {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]Token, 0, len(i.tokens))
	for _, tok := range i.tokens {
		out = append(out, *tok)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}
