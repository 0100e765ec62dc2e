package journal

import (
	"context"
	"errors"

	"github.com/xraph/subledger/types"
)

var (
	// ErrDuplicateEntry is returned when an entry's seq or id is already
	// stored.
	ErrDuplicateEntry = errors.New("subledger: duplicate journal entry")

	// ErrInvalidEntry is returned for an entry missing required fields.
	ErrInvalidEntry = errors.New("subledger: invalid journal entry")
)

// ListOpts filters a journal query. Zero fields do not filter.
type ListOpts struct {
	AfterSeq       uint64
	Limit          int
	Action         Action
	Actor          types.Address
	Provider       types.Address
	Subscriber     types.Address
	SubscriptionID uint64
	TokenID        uint64
}

// Matches reports whether e passes every filter in o except paging.
func (o ListOpts) Matches(e *Entry) bool {
	switch {
	case e.Seq <= o.AfterSeq:
		return false
	case o.Action != "" && e.Action != o.Action:
		return false
	case o.Actor != "" && e.Actor != o.Actor:
		return false
	case o.Provider != "" && e.Provider != o.Provider:
		return false
	case o.Subscriber != "" && e.Subscriber != o.Subscriber:
		return false
	case o.SubscriptionID != 0 && e.SubscriptionID() != o.SubscriptionID:
		return false
	case o.TokenID != 0 && e.TokenID() != o.TokenID:
		return false
	}
	return true
}

// Store persists journal entries. Append must reject a seq or id that is
// already stored with ErrDuplicateEntry. Entries returns matches in
// ascending seq order.
type Store interface {
	Append(ctx context.Context, e *Entry) error
	Entries(ctx context.Context, opts ListOpts) ([]*Entry, error)
	LastSeq(ctx context.Context) (uint64, error)

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
