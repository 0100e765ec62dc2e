package subledger

import (
	"context"
	"fmt"

	"github.com/xraph/subledger/authz"
	"github.com/xraph/subledger/capability"
	"github.com/xraph/subledger/journal"
	"github.com/xraph/subledger/types"
)

// UpdatePlatformFee sets the fee charged on future payments. Charges already
// collected keep the fee they were split with.
func (l *Ledger) UpdatePlatformFee(ctx context.Context, caller types.Address, bps uint16) error {
	if err := l.checkReady(); err != nil {
		return err
	}
	if err := l.policy.Require(caller, authz.PermOperator); err != nil {
		return l.failed(ctx, "fee.update", err)
	}
	if bps > types.MaxFeeBps {
		return l.failed(ctx, "fee.update", fmt.Errorf("%w: %d bps exceeds %d", ErrFeeTooHigh, bps, types.MaxFeeBps))
	}
	ctx, now := l.begin(ctx)

	l.mu.Lock()
	old := l.st.feeBps
	e := l.newEntry(journal.ActionFeeUpdated, caller, now)
	e.Fee = &journal.FeeChange{Old: old, New: bps}
	if err := l.commit(ctx, e); err != nil {
		l.mu.Unlock()
		return l.failed(ctx, "fee.update", err)
	}
	l.mu.Unlock()

	l.logger.Info("platform fee updated",
		"actor", caller,
		"old_bps", old,
		"new_bps", bps,
	)

	l.plugins.EmitPlatformFeeUpdated(ctx, old, bps)
	l.published(ctx, e)

	return nil
}

// Pause stops new subscriptions and renewals. Pausing a paused ledger is a
// no-op.
func (l *Ledger) Pause(ctx context.Context, caller types.Address) error {
	return l.setPaused(ctx, caller, true)
}

// Unpause resumes subscriptions and renewals.
func (l *Ledger) Unpause(ctx context.Context, caller types.Address) error {
	return l.setPaused(ctx, caller, false)
}

func (l *Ledger) setPaused(ctx context.Context, caller types.Address, paused bool) error {
	op := "pause"
	action := journal.ActionPaused
	if !paused {
		op = "unpause"
		action = journal.ActionUnpaused
	}

	if err := l.checkReady(); err != nil {
		return err
	}
	if err := l.policy.Require(caller, authz.PermOperator); err != nil {
		return l.failed(ctx, op, err)
	}
	ctx, now := l.begin(ctx)

	l.mu.Lock()
	if l.st.paused == paused {
		l.mu.Unlock()
		return nil
	}
	e := l.newEntry(action, caller, now)
	if err := l.commit(ctx, e); err != nil {
		l.mu.Unlock()
		return l.failed(ctx, op, err)
	}
	l.mu.Unlock()

	l.logger.Info("ledger pause changed", "actor", caller, "paused", paused)

	l.plugins.EmitPauseChanged(ctx, caller, paused)
	l.published(ctx, e)

	return nil
}

// SetIssuer binds a new capability issuer. Every token of the current issuer
// is copied into next before the switch, so validity answers do not change.
// The custody identity must be allowed to mint on next. On error the binding
// is unchanged; next may hold a partial copy.
func (l *Ledger) SetIssuer(ctx context.Context, caller types.Address, next Issuer) error {
	if err := l.checkReady(); err != nil {
		return err
	}
	if next == nil {
		return l.failed(ctx, "issuer.rotate", ErrNilIssuer)
	}
	if err := l.policy.Require(caller, authz.PermOperator); err != nil {
		return l.failed(ctx, "issuer.rotate", err)
	}
	if err := l.guard.enter(); err != nil {
		return err
	}
	defer l.guard.exit()
	ctx, now := l.begin(ctx)

	l.mu.Lock()
	tokens := l.issuer.Tokens()
	for _, tok := range tokens {
		if err := next.Restore(ctx, l.custody, tok); err != nil {
			l.mu.Unlock()
			return l.failed(ctx, "issuer.rotate", fmt.Errorf("subledger: migrate token %d: %w", tok.ID, err))
		}
	}

	e := l.newEntry(journal.ActionIssuerRotated, caller, now)
	e.Migrated = len(tokens)
	if err := l.commit(ctx, e); err != nil {
		l.mu.Unlock()
		return l.failed(ctx, "issuer.rotate", err)
	}
	l.issuer = next
	l.mu.Unlock()

	l.logger.Info("issuer rotated", "actor", caller, "migrated", len(tokens))

	l.plugins.EmitIssuerRotated(ctx, caller, len(tokens))
	l.published(ctx, e)

	return nil
}

// BurnToken destroys an inactive token on behalf of its holder. The
// subscription record that referenced it is kept.
func (l *Ledger) BurnToken(ctx context.Context, holder types.Address, tokenID uint64) error {
	if err := l.checkReady(); err != nil {
		return err
	}
	if err := l.guard.enter(); err != nil {
		return err
	}
	defer l.guard.exit()
	ctx, now := l.begin(ctx)

	l.mu.Lock()
	prev, err := l.issuer.Token(tokenID)
	if err != nil {
		l.mu.Unlock()
		return l.failed(ctx, "token.burn", err)
	}
	if err := l.issuer.Burn(ctx, holder, tokenID); err != nil {
		l.mu.Unlock()
		return l.failed(ctx, "token.burn", err)
	}

	e := l.newEntry(journal.ActionTokenBurned, holder, now)
	e.Provider = prev.Provider
	e.Subscriber = holder
	e.BurnedToken = tokenID
	if err := l.commit(ctx, e); err != nil {
		l.rollbackToken(ctx, tokenID, &prev)
		l.mu.Unlock()
		return l.failed(ctx, "token.burn", err)
	}
	l.mu.Unlock()

	l.logger.Info("token burned", "holder", holder, "token_id", tokenID)

	l.plugins.EmitTokenBurned(ctx, holder, tokenID)
	l.published(ctx, e)

	return nil
}

// TransferToken always fails: capability tokens are bound to their holder.
func (l *Ledger) TransferToken(_ context.Context, from, to types.Address, tokenID uint64) error {
	return fmt.Errorf("%w: %s cannot move token %d to %s", capability.ErrNonTransferable, from, tokenID, to)
}
