package subscription

import (
	"time"

	"github.com/xraph/subledger/types"
)

// None is the sentinel subscription id. Real ids start at 1.
const None uint64 = 0

type Status string

const (
	StatusActive   Status = "active"
	StatusLapsed   Status = "lapsed"
	StatusCanceled Status = "canceled"
)

type Subscription struct {
	types.Entity
	ID         uint64        `json:"id"`
	Subscriber types.Address `json:"subscriber"`
	Provider   types.Address `json:"provider"`
	TierIndex  uint64        `json:"tier_index"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	AmountPaid types.Amount  `json:"amount_paid"`
	IsActive   bool          `json:"is_active"`
	AutoRenew  bool          `json:"auto_renew"`
	TokenID    uint64        `json:"token_id"`
	Renewals   uint32        `json:"renewals"`
	CanceledAt *time.Time    `json:"canceled_at,omitempty"`
}

// Pair returns the (subscriber, provider) key of the subscription.
func (s *Subscription) Pair() Pair {
	return Pair{Subscriber: s.Subscriber, Provider: s.Provider}
}

// ValidAt reports whether the subscription grants access at now: it has not
// been canceled and now is not past its end time. Expiry is never stored.
func (s *Subscription) ValidAt(now time.Time) bool {
	return s.IsActive && types.Within(now, s.EndTime)
}

// StatusAt describes the subscription at now.
func (s *Subscription) StatusAt(now time.Time) Status {
	switch {
	case !s.IsActive:
		return StatusCanceled
	case types.Within(now, s.EndTime):
		return StatusActive
	default:
		return StatusLapsed
	}
}

// Remaining returns the access time left at now.
func (s *Subscription) Remaining(now time.Time) time.Duration {
	if !s.IsActive {
		return 0
	}
	return types.Remaining(now, s.EndTime)
}

// Clone returns a deep copy.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	c := *s
	if s.CanceledAt != nil {
		at := *s.CanceledAt
		c.CanceledAt = &at
	}
	return &c
}

// Pair is the (subscriber, provider) key shared by the ledger's active index
// and the issuer's holder index.
type Pair struct {
	Subscriber types.Address `json:"subscriber"`
	Provider   types.Address `json:"provider"`
}
