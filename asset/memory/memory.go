// Package memory provides an in-memory payment asset with balances and
// allowances. It backs tests, examples and the reference daemon.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xraph/subledger/asset"
	"github.com/xraph/subledger/types"
)

var (
	ErrInsufficientFunds     = errors.New("asset/memory: insufficient funds")
	ErrInsufficientAllowance = errors.New("asset/memory: insufficient allowance")
)

// Compile-time interface check.
var _ asset.Asset = (*Token)(nil)

// Op identifies which movement triggered a hook.
type Op string

const (
	OpTransfer     Op = "transfer"
	OpTransferFrom Op = "transfer_from"
)

// Movement describes one completed transfer.
type Movement struct {
	Op      Op
	Spender types.Address
	From    types.Address
	To      types.Address
	Amount  types.Amount
}

// Hook runs after a movement settles and before the call returns, with no
// lock held. A non-nil error is returned to the caller as the transfer's
// result even though the units already moved.
type Hook func(ctx context.Context, m Movement) error

// Token is a fungible asset held entirely in memory.
type Token struct {
	mu         sync.Mutex
	symbol     string
	decimals   uint8
	balances   map[types.Address]types.Amount
	allowances map[types.Address]map[types.Address]types.Amount
	hook       Hook
	failNext   error
}

// Option configures a Token.
type Option func(*Token)

// WithSymbol sets the ticker symbol.
func WithSymbol(s string) Option { return func(t *Token) { t.symbol = s } }

// WithDecimals sets the number of display decimals.
func WithDecimals(d uint8) Option { return func(t *Token) { t.decimals = d } }

// WithHook installs a callback invoked after every movement.
func WithHook(h Hook) Option { return func(t *Token) { t.hook = h } }

// New creates an empty asset, by default a six-decimal "USD".
func New(opts ...Option) *Token {
	t := &Token{
		symbol:     "USD",
		decimals:   6,
		balances:   make(map[types.Address]types.Amount),
		allowances: make(map[types.Address]map[types.Address]types.Amount),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Symbol returns the ticker symbol.
func (t *Token) Symbol() string { return t.symbol }

// Decimals returns the display decimals.
func (t *Token) Decimals() uint8 { return t.decimals }

// SetHook replaces the movement hook. Pass nil to clear it.
func (t *Token) SetHook(h Hook) {
	t.mu.Lock()
	t.hook = h
	t.mu.Unlock()
}

// FailNext makes the next movement fail with err without moving anything.
func (t *Token) FailNext(err error) {
	t.mu.Lock()
	t.failNext = err
	t.mu.Unlock()
}

// Mint credits amount to who out of thin air.
func (t *Token) Mint(who types.Address, amount types.Amount) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	next, err := t.balances[who].Add(amount)
	if err != nil {
		return err
	}
	t.balances[who] = next
	return nil
}

// Approve sets the allowance owner grants spender.
func (t *Token) Approve(owner, spender types.Address, amount types.Amount) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.allowances[owner]
	if !ok {
		m = make(map[types.Address]types.Amount)
		t.allowances[owner] = m
	}
	m[spender] = amount
}

// BalanceOf returns who's balance.
func (t *Token) BalanceOf(who types.Address) types.Amount {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[who]
}

// Allowance returns what spender may still draw from owner.
func (t *Token) Allowance(owner, spender types.Address) types.Amount {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allowances[owner][spender]
}

// Supply returns the sum of all balances.
func (t *Token) Supply() types.Amount {
	t.mu.Lock()
	defer t.mu.Unlock()

	var total types.Amount
	for _, b := range t.balances {
		total += b
	}
	return total
}

// Transfer implements asset.Asset.
func (t *Token) Transfer(ctx context.Context, from, to types.Address, amount types.Amount) error {
	t.mu.Lock()
	if err := t.takeFailure(); err != nil {
		t.mu.Unlock()
		return err
	}
	if err := t.move(from, to, amount); err != nil {
		t.mu.Unlock()
		return err
	}
	hook := t.hook
	t.mu.Unlock()

	return t.fire(ctx, hook, Movement{Op: OpTransfer, From: from, To: to, Amount: amount})
}

// TransferFrom implements asset.Asset.
func (t *Token) TransferFrom(ctx context.Context, spender, from, to types.Address, amount types.Amount) error {
	t.mu.Lock()
	if err := t.takeFailure(); err != nil {
		t.mu.Unlock()
		return err
	}
	allowed := t.allowances[from][spender]
	if allowed < amount {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s may draw %s from %s, needs %s", ErrInsufficientAllowance, spender, allowed, from, amount)
	}
	if err := t.move(from, to, amount); err != nil {
		t.mu.Unlock()
		return err
	}
	t.allowances[from][spender] = allowed - amount
	hook := t.hook
	t.mu.Unlock()

	return t.fire(ctx, hook, Movement{Op: OpTransferFrom, Spender: spender, From: from, To: to, Amount: amount})
}

// move must be called with mu held.
func (t *Token) move(from, to types.Address, amount types.Amount) error {
	have := t.balances[from]
	if have < amount {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientFunds, from, have, amount)
	}
	if from == to {
		return nil
	}
	credited, err := t.balances[to].Add(amount)
	if err != nil {
		return err
	}
	t.balances[from] = have - amount
	t.balances[to] = credited
	return nil
}

// takeFailure must be called with mu held.
func (t *Token) takeFailure() error {
	err := t.failNext
	t.failNext = nil
	return err
}

func (t *Token) fire(ctx context.Context, hook Hook, m Movement) error {
	if hook == nil {
		return nil
	}
	return hook(ctx, m)
}
