package subledger

import (
	"context"
	"fmt"

	"github.com/xraph/subledger/id"
	"github.com/xraph/subledger/journal"
	"github.com/xraph/subledger/types"
)

// Totals summarizes custody accounting. Held always equals Inflow minus
// Withdrawn, and the custody account of the settlement asset holds at least
// Held.
type Totals struct {
	Inflow    types.Amount `json:"inflow"`
	Withdrawn types.Amount `json:"withdrawn"`
	Held      types.Amount `json:"held"`
}

// Withdraw pays beneficiary's whole balance out of custody and returns the
// amount paid. The balance is zeroed and journaled before the transfer; a
// failed transfer journals a reversal that restores the balance.
//
// Withdraw is not gated by pause.
func (l *Ledger) Withdraw(ctx context.Context, beneficiary types.Address) (types.Amount, error) {
	if err := l.checkReady(); err != nil {
		return 0, err
	}
	if err := l.guard.enter(); err != nil {
		return 0, err
	}
	defer l.guard.exit()
	ctx, now := l.begin(ctx)

	l.mu.Lock()
	amount := l.st.balances[beneficiary]
	if amount == 0 {
		l.mu.Unlock()
		return 0, l.failed(ctx, "withdraw", fmt.Errorf("%w: %s has nothing to withdraw", ErrInsufficientBalance, beneficiary))
	}
	w := &journal.Withdrawal{
		ID:          id.NewWithdrawalID(),
		Beneficiary: beneficiary,
		Amount:      amount,
	}
	e := l.newEntry(journal.ActionFundsWithdrawn, beneficiary, now)
	e.Provider = beneficiary
	e.Withdrawal = w
	if err := l.commit(ctx, e); err != nil {
		l.mu.Unlock()
		return 0, l.failed(ctx, "withdraw", err)
	}
	l.mu.Unlock()

	if err := l.asset.Transfer(ctx, l.custody, beneficiary, amount); err != nil {
		cause := fmt.Errorf("%w: pay %s to %s: %v", ErrPaymentTransferFailed, amount, beneficiary, err)
		l.published(ctx, e)
		l.revertWithdrawal(ctx, w, cause)
		return 0, l.failed(ctx, "withdraw", cause)
	}

	l.logger.Info("funds withdrawn",
		"withdrawal_id", w.ID,
		"beneficiary", beneficiary,
		"amount", amount,
	)

	l.plugins.EmitFundsWithdrawn(ctx, w)
	l.published(ctx, e)

	return amount, nil
}

// revertWithdrawal journals the reversal of a withdrawal whose transfer
// failed. Called with no lock held.
func (l *Ledger) revertWithdrawal(ctx context.Context, w *journal.Withdrawal, cause error) {
	ctx = context.WithoutCancel(ctx)

	l.mu.Lock()
	e := l.newEntry(journal.ActionWithdrawalReverted, w.Beneficiary, types.OperationTime(ctx, l.clock))
	e.Provider = w.Beneficiary
	e.Withdrawal = w
	err := l.commit(ctx, e)
	l.mu.Unlock()

	if err != nil {
		l.logger.Error("withdrawal reversal failed",
			"withdrawal_id", w.ID,
			"beneficiary", w.Beneficiary,
			"amount", w.Amount,
			"cause", cause,
			"error", err,
		)
		l.plugins.EmitOperationFailed(ctx, "withdraw.revert", err)
		return
	}

	l.logger.Warn("withdrawal reverted",
		"withdrawal_id", w.ID,
		"beneficiary", w.Beneficiary,
		"amount", w.Amount,
		"cause", cause,
	)
	l.plugins.EmitWithdrawalReverted(ctx, w, cause)
	l.published(ctx, e)
}

// Balance returns the amount account may withdraw.
func (l *Ledger) Balance(account types.Address) types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.st.balances[account]
}

// Balances returns every non-zero balance.
func (l *Ledger) Balances() map[types.Address]types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[types.Address]types.Amount, len(l.st.balances))
	for a, b := range l.st.balances {
		if b > 0 {
			out[a] = b
		}
	}
	return out
}

// Totals returns the custody totals.
func (l *Ledger) Totals() Totals {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Totals{
		Inflow:    l.st.inflow,
		Withdrawn: l.st.outflow,
		Held:      l.st.held(),
	}
}
