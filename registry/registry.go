// Package registry defines the provider registry boundary: the external
// directory that keeps per-provider subscriber counts and revenue totals.
//
// The ledger pushes one Delta per subscription transition. Deltas are
// notifications; the ledger's own records stay authoritative when a registry
// rejects or loses one.
package registry

import (
	"context"
	"errors"

	"github.com/xraph/subledger/types"
)

var (
	// ErrSubscriberUnderflow is returned when a delta would take a provider's
	// subscriber count below zero. The delta is rejected as a whole.
	ErrSubscriberUnderflow = errors.New("subledger: subscriber count underflow")

	// ErrRevenueOverflow is returned when a delta would overflow the revenue
	// total.
	ErrRevenueOverflow = errors.New("subledger: revenue overflow")
)

// Delta is one change to a provider's counters.
type Delta struct {
	Subscribers int64        `json:"subscribers"`
	Revenue     types.Amount `json:"revenue"`
}

// Stats are a provider's accumulated counters.
type Stats struct {
	Subscribers uint64       `json:"subscribers"`
	Revenue     types.Amount `json:"revenue"`
}

// Registry receives counter deltas.
type Registry interface {
	Record(ctx context.Context, provider types.Address, d Delta) error
}

// Reader is implemented by registries that can report their counters.
type Reader interface {
	Stats(ctx context.Context, provider types.Address) (Stats, error)
}

// Subscribed is the delta for a new subscription paying revenue.
func Subscribed(revenue types.Amount) Delta { return Delta{Subscribers: 1, Revenue: revenue} }

// Renewed is the delta for a renewal paying revenue.
func Renewed(revenue types.Amount) Delta { return Delta{Revenue: revenue} }

// Canceled is the delta for a cancellation.
func Canceled() Delta { return Delta{Subscribers: -1} }

// Apply adds d to s, rejecting underflow and overflow.
func (s Stats) Apply(d Delta) (Stats, error) {
	switch {
	case d.Subscribers < 0:
		dec := uint64(-d.Subscribers)
		if dec > s.Subscribers {
			return s, ErrSubscriberUnderflow
		}
		s.Subscribers -= dec
	case d.Subscribers > 0:
		s.Subscribers += uint64(d.Subscribers)
	}
	rev, err := s.Revenue.Add(d.Revenue)
	if err != nil {
		return s, ErrRevenueOverflow
	}
	s.Revenue = rev
	return s, nil
}

// Nop discards every delta.
type Nop struct{}

// Record implements Registry.
func (Nop) Record(context.Context, types.Address, Delta) error { return nil }
