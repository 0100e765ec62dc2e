// Package journal defines the append-only record of every committed ledger
// transition.
//
// Each Entry carries post-images of whatever it touched, so replaying the
// journal in sequence order rebuilds the ledger's in-memory state exactly.
package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/subledger/capability"
	"github.com/xraph/subledger/id"
	"github.com/xraph/subledger/subscription"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// Action names a committed transition.
type Action string

const (
	ActionTierCreated          Action = "tier.created"
	ActionTierUpdated          Action = "tier.updated"
	ActionSubscriptionCreated  Action = "subscription.created"
	ActionSubscriptionRenewed  Action = "subscription.renewed"
	ActionSubscriptionCanceled Action = "subscription.canceled"
	ActionFundsWithdrawn       Action = "funds.withdrawn"
	ActionWithdrawalReverted   Action = "funds.withdrawal_reverted"
	ActionFeeUpdated           Action = "fee.updated"
	ActionPaused               Action = "ledger.paused"
	ActionUnpaused             Action = "ledger.unpaused"
	ActionIssuerRotated        Action = "issuer.rotated"
	ActionTokenBurned          Action = "token.burned"
)

// Actions lists every known action.
var Actions = []Action{
	ActionTierCreated, ActionTierUpdated,
	ActionSubscriptionCreated, ActionSubscriptionRenewed, ActionSubscriptionCanceled,
	ActionFundsWithdrawn, ActionWithdrawalReverted,
	ActionFeeUpdated, ActionPaused, ActionUnpaused,
	ActionIssuerRotated, ActionTokenBurned,
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// Charge is the settlement of one subscribe or renew payment.
type Charge struct {
	ID             id.ChargeID   `json:"id"`
	Payer          types.Address `json:"payer"`
	Provider       types.Address `json:"provider"`
	Treasury       types.Address `json:"treasury"`
	Price          types.Amount  `json:"price"`
	Fee            types.Amount  `json:"fee"`
	ProviderAmount types.Amount  `json:"provider_amount"`
	FeeBps         uint16        `json:"fee_bps"`
}

// Withdrawal is a payout of a beneficiary's full balance.
type Withdrawal struct {
	ID          id.WithdrawalID `json:"id"`
	Beneficiary types.Address   `json:"beneficiary"`
	Amount      types.Amount    `json:"amount"`
}

// FeeChange records a platform fee update.
type FeeChange struct {
	Old uint16 `json:"old"`
	New uint16 `json:"new"`
}

// Entry is one committed transition.
type Entry struct {
	Seq        uint64        `json:"seq"`
	ID         id.EntryID    `json:"id"`
	Action     Action        `json:"action"`
	Actor      types.Address `json:"actor"`
	Provider   types.Address `json:"provider,omitempty"`
	Subscriber types.Address `json:"subscriber,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`

	Tier         *tier.Tier                 `json:"tier,omitempty"`
	Subscription *subscription.Subscription `json:"subscription,omitempty"`
	Token        *capability.Token          `json:"token,omitempty"`
	Charge       *Charge                    `json:"charge,omitempty"`
	Withdrawal   *Withdrawal                `json:"withdrawal,omitempty"`
	Fee          *FeeChange                 `json:"fee,omitempty"`

	// BurnedToken is the id destroyed by a token.burned entry.
	BurnedToken uint64 `json:"burned_token,omitempty"`
	// Migrated counts token snapshots copied by an issuer.rotated entry.
	Migrated int `json:"migrated,omitempty"`
}

// SubscriptionID returns the id of the subscription post-image, or 0.
func (e *Entry) SubscriptionID() uint64 {
	if e.Subscription == nil {
		return subscription.None
	}
	return e.Subscription.ID
}

// TokenID returns the id of the token post-image or the burned token, or 0.
func (e *Entry) TokenID() uint64 {
	if e.Token != nil {
		return e.Token.ID
	}
	return e.BurnedToken
}

// Validate checks that an entry carries the payload its action requires.
func (e *Entry) Validate() error {
	if e.Seq == 0 {
		return fmt.Errorf("%w: seq must be positive", ErrInvalidEntry)
	}
	if e.ID.IsNil() {
		return fmt.Errorf("%w: missing id", ErrInvalidEntry)
	}
	var missing string
	switch e.Action {
	case ActionTierCreated, ActionTierUpdated:
		if e.Tier == nil {
			missing = "tier"
		}
	case ActionSubscriptionCreated, ActionSubscriptionRenewed:
		switch {
		case e.Subscription == nil:
			missing = "subscription"
		case e.Token == nil:
			missing = "token"
		case e.Charge == nil:
			missing = "charge"
		}
	case ActionSubscriptionCanceled:
		switch {
		case e.Subscription == nil:
			missing = "subscription"
		case e.Token == nil:
			missing = "token"
		}
	case ActionFundsWithdrawn, ActionWithdrawalReverted:
		if e.Withdrawal == nil {
			missing = "withdrawal"
		}
	case ActionFeeUpdated:
		if e.Fee == nil {
			missing = "fee"
		}
	case ActionTokenBurned:
		if e.BurnedToken == 0 {
			missing = "burned_token"
		}
	case ActionPaused, ActionUnpaused, ActionIssuerRotated:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidEntry, e.Action)
	}
	if missing != "" {
		return fmt.Errorf("%w: %s entry without %s", ErrInvalidEntry, e.Action, missing)
	}
	return nil
}

// Encode serializes an entry for storage.
func Encode(e *Entry) ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a stored entry.
func Decode(data []byte) (*Entry, error) {
	e := new(Entry)
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("journal: decode entry: %w", err)
	}
	return e, nil
}
