// Package tier holds each provider's ordered list of subscription tiers.
//
// Index space is per provider and starts at 0. Tiers are only ever appended
// and mutated in place; deactivation is the only way to retire one.
package tier

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xraph/subledger/types"
)

var (
	ErrInvalidPrice    = errors.New("subledger: invalid price")
	ErrInvalidDuration = errors.New("subledger: invalid duration")
	ErrInvalidTier     = errors.New("subledger: invalid tier")
)

// Catalogue is the in-memory tier table. Mutations go through Draft or
// Revise, which validate and return the post-image, followed by Put, which
// installs it. The split lets the ledger journal a change before applying it.
type Catalogue struct {
	mu    sync.RWMutex
	tiers map[types.Address][]*Tier
}

// NewCatalogue returns an empty catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{tiers: make(map[types.Address][]*Tier)}
}

// Draft validates a new tier for provider and returns it at the next free
// index, active. The catalogue is not modified.
func (c *Catalogue) Draft(provider types.Address, price types.Amount, duration time.Duration, name string, now time.Time) (*Tier, error) {
	if err := validate(price, duration); err != nil {
		return nil, err
	}

	c.mu.RLock()
	next := uint64(len(c.tiers[provider]))
	c.mu.RUnlock()

	return &Tier{
		Entity:   types.NewEntity(now),
		Provider: provider,
		Index:    next,
		Price:    price,
		Duration: duration,
		Name:     name,
		Active:   true,
	}, nil
}

// Revise validates an update to an existing tier and returns the previous
// state and the updated post-image. Price and duration must be valid even
// when the update only deactivates the tier.
func (c *Catalogue) Revise(provider types.Address, index uint64, price types.Amount, duration time.Duration, active bool, now time.Time) (prev, next *Tier, err error) {
	cur, err := c.Get(provider, index)
	if err != nil {
		return nil, nil, err
	}
	if err := validate(price, duration); err != nil {
		return nil, nil, err
	}

	next = cur.Clone()
	next.Price = price
	next.Duration = duration
	next.Active = active
	next.Touch(now)

	return cur, next, nil
}

// Put installs a tier post-image. A tier at the next free index is
// appended; an existing index is replaced. Indices cannot skip ahead.
func (c *Catalogue) Put(t *Tier) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.tiers[t.Provider]
	switch {
	case t.Index < uint64(len(list)):
		list[t.Index] = t.Clone()
	case t.Index == uint64(len(list)):
		c.tiers[t.Provider] = append(list, t.Clone())
	default:
		return fmt.Errorf("%w: index %d skips ahead of %d for %s", ErrInvalidTier, t.Index, len(list), t.Provider)
	}
	return nil
}

// Get returns a copy of the tier at index, or ErrInvalidTier.
func (c *Catalogue) Get(provider types.Address, index uint64) (*Tier, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list := c.tiers[provider]
	if index >= uint64(len(list)) {
		return nil, fmt.Errorf("%w: %s has no tier %d", ErrInvalidTier, provider, index)
	}
	return list[index].Clone(), nil
}

// GetActive is Get that also rejects deactivated tiers.
func (c *Catalogue) GetActive(provider types.Address, index uint64) (*Tier, error) {
	t, err := c.Get(provider, index)
	if err != nil {
		return nil, err
	}
	if !t.Active {
		return nil, fmt.Errorf("%w: tier %d of %s is inactive", ErrInvalidTier, index, provider)
	}
	return t, nil
}

// List returns copies of every tier of provider in index order. An unknown
// provider yields an empty slice.
func (c *Catalogue) List(provider types.Address) []*Tier {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list := c.tiers[provider]
	out := make([]*Tier, len(list))
	for i, t := range list {
		out[i] = t.Clone()
	}
	return out
}

func validate(price types.Amount, duration time.Duration) error {
	if price == 0 {
		return ErrInvalidPrice
	}
	if duration <= 0 {
		return ErrInvalidDuration
	}
	return nil
}
