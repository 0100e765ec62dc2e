package journal

import (
	"errors"
	"testing"
	"time"

	"github.com/xraph/subledger/capability"
	"github.com/xraph/subledger/id"
	"github.com/xraph/subledger/subscription"
	"github.com/xraph/subledger/types"
)

func TestValidate(t *testing.T) {
	sub := &subscription.Subscription{ID: 3}
	tok := &capability.Token{ID: 9}
	charge := &Charge{Price: 100}

	tests := []struct {
		name  string
		entry Entry
		ok    bool
	}{
		{"created", Entry{Action: ActionSubscriptionCreated, Subscription: sub, Token: tok, Charge: charge}, true},
		{"created without charge", Entry{Action: ActionSubscriptionCreated, Subscription: sub, Token: tok}, false},
		{"canceled", Entry{Action: ActionSubscriptionCanceled, Subscription: sub, Token: tok}, true},
		{"withdrawn without payload", Entry{Action: ActionFundsWithdrawn}, false},
		{"paused", Entry{Action: ActionPaused}, true},
		{"burned", Entry{Action: ActionTokenBurned, BurnedToken: 9}, true},
		{"burned without id", Entry{Action: ActionTokenBurned}, false},
		{"unknown", Entry{Action: "nope"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.entry.Seq = 1
			tt.entry.ID = id.NewEntryID()
			err := tt.entry.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidEntry) {
				t.Fatalf("expected ErrInvalidEntry, got %v", err)
			}
		})
	}
}

func TestValidateRequiresSeqAndID(t *testing.T) {
	e := Entry{Action: ActionPaused}
	if err := e.Validate(); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("zero seq: expected ErrInvalidEntry, got %v", err)
	}
	e.Seq = 1
	if err := e.Validate(); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("nil id: expected ErrInvalidEntry, got %v", err)
	}
}

func TestListOptsMatches(t *testing.T) {
	alice := types.MustAddress("alice")
	prov := types.MustAddress("provider")
	e := &Entry{
		Seq:          5,
		Action:       ActionSubscriptionRenewed,
		Subscriber:   alice,
		Provider:     prov,
		Subscription: &subscription.Subscription{ID: 2},
		Token:        &capability.Token{ID: 7},
	}

	tests := []struct {
		name string
		opts ListOpts
		want bool
	}{
		{"empty", ListOpts{}, true},
		{"after earlier seq", ListOpts{AfterSeq: 4}, true},
		{"after own seq", ListOpts{AfterSeq: 5}, false},
		{"action", ListOpts{Action: ActionSubscriptionRenewed}, true},
		{"other action", ListOpts{Action: ActionSubscriptionCreated}, false},
		{"subscriber and provider", ListOpts{Subscriber: alice, Provider: prov}, true},
		{"other provider", ListOpts{Provider: alice}, false},
		{"subscription", ListOpts{SubscriptionID: 2}, true},
		{"other subscription", ListOpts{SubscriptionID: 3}, false},
		{"token", ListOpts{TokenID: 7}, true},
	}
	for _, tt := range tests {
		if got := tt.opts.Matches(e); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEncodeKeepsPostImages(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := &Entry{
		Seq:          1,
		ID:           id.NewEntryID(),
		Action:       ActionSubscriptionCreated,
		OccurredAt:   at,
		Subscription: &subscription.Subscription{ID: 1, EndTime: at.Add(time.Hour), IsActive: true},
		Token:        &capability.Token{ID: 1, ExpiryTime: at.Add(time.Hour), Active: true},
		Charge:       &Charge{ID: id.NewChargeID(), Price: 100, Fee: 3, ProviderAmount: 97, FeeBps: 300},
	}

	data, err := Encode(e)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID.String() != e.ID.String() || got.Charge.ID.String() != e.Charge.ID.String() {
		t.Errorf("ids lost: %s / %s", got.ID, got.Charge.ID)
	}
	if !got.Subscription.EndTime.Equal(e.Subscription.EndTime) || !got.Token.ExpiryTime.Equal(e.Token.ExpiryTime) {
		t.Error("expiry instants differ after decode")
	}
	if got.Charge.ProviderAmount != 97 || got.Charge.Fee != 3 {
		t.Errorf("charge split lost: %+v", got.Charge)
	}

	if _, err := Decode([]byte("{")); err == nil {
		t.Error("expected decode error")
	}
}
