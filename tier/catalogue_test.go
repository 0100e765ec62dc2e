package tier

import (
	"errors"
	"testing"
	"time"

	"github.com/xraph/subledger/types"
)

var (
	now      = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	month    = 30 * 24 * time.Hour
	provider = types.MustAddress("provider")
)

func mustCreate(t *testing.T, c *Catalogue, price types.Amount, name string) *Tier {
	t.Helper()
	tr, err := c.Draft(provider, price, month, name, now)
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if err := c.Put(tr); err != nil {
		t.Fatalf("Put: %v", err)
	}
	return tr
}

func TestDraftValidation(t *testing.T) {
	c := NewCatalogue()

	tests := []struct {
		name     string
		price    types.Amount
		duration time.Duration
		wantErr  error
	}{
		{"valid", 10_000000, month, nil},
		{"zero price", 0, month, ErrInvalidPrice},
		{"zero duration", 10_000000, 0, ErrInvalidDuration},
		{"negative duration", 10_000000, -time.Second, ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Draft(provider, tt.price, tt.duration, "basic", now)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIndicesAppendPerProvider(t *testing.T) {
	c := NewCatalogue()

	first := mustCreate(t, c, 1_000000, "basic")
	second := mustCreate(t, c, 5_000000, "pro")
	if first.Index != 0 || second.Index != 1 {
		t.Fatalf("indices: got %d, %d; want 0, 1", first.Index, second.Index)
	}
	if !first.Active {
		t.Error("new tier should be active")
	}

	other := types.MustAddress("other")
	tr, err := c.Draft(other, 1, month, "x", now)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Index != 0 {
		t.Errorf("other provider index: got %d, want 0", tr.Index)
	}

	// A draft does not occupy its index until Put.
	again, _ := c.Draft(provider, 1, month, "draft", now)
	if again.Index != 2 {
		t.Errorf("draft index: got %d, want 2", again.Index)
	}
	if n := len(c.List(provider)); n != 2 {
		t.Errorf("List after draft: got %d tiers, want 2", n)
	}
}

func TestPutRejectsGap(t *testing.T) {
	c := NewCatalogue()
	err := c.Put(&Tier{Provider: provider, Index: 3, Price: 1, Duration: month})
	if !errors.Is(err, ErrInvalidTier) {
		t.Errorf("expected ErrInvalidTier, got %v", err)
	}
}

func TestRevise(t *testing.T) {
	c := NewCatalogue()
	mustCreate(t, c, 10_000000, "basic")
	later := now.Add(time.Hour)

	prev, next, err := c.Revise(provider, 0, 12_000000, 2*month, false, later)
	if err != nil {
		t.Fatalf("Revise: %v", err)
	}
	if prev.Price != 10_000000 || !prev.Active {
		t.Errorf("prev: got %+v", prev)
	}
	if next.Price != 12_000000 || next.Duration != 2*month || next.Active {
		t.Errorf("next: got %+v", next)
	}
	if !next.UpdatedAt.Equal(later) || !next.CreatedAt.Equal(now) {
		t.Errorf("timestamps: created %v updated %v", next.CreatedAt, next.UpdatedAt)
	}

	// Not installed yet.
	if cur, _ := c.Get(provider, 0); !cur.Active {
		t.Error("Revise must not modify the catalogue")
	}

	if err := c.Put(next); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetActive(provider, 0); !errors.Is(err, ErrInvalidTier) {
		t.Errorf("GetActive on inactive tier: got %v", err)
	}
	if cur, err := c.Get(provider, 0); err != nil || cur.Active {
		t.Errorf("Get on inactive tier: got %+v, %v", cur, err)
	}
}

func TestReviseValidation(t *testing.T) {
	c := NewCatalogue()
	mustCreate(t, c, 10_000000, "basic")

	tests := []struct {
		name     string
		index    uint64
		price    types.Amount
		duration time.Duration
		wantErr  error
	}{
		{"out of range", 1, 1, month, ErrInvalidTier},
		{"zero price while deactivating", 0, 0, month, ErrInvalidPrice},
		{"zero duration while deactivating", 0, 1, 0, ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := c.Revise(provider, tt.index, tt.price, tt.duration, false, now)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestListUnknownProvider(t *testing.T) {
	c := NewCatalogue()
	got := c.List(types.MustAddress("nobody"))
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestReturnedTiersAreCopies(t *testing.T) {
	c := NewCatalogue()
	mustCreate(t, c, 10_000000, "basic")

	got, _ := c.Get(provider, 0)
	got.Price = 1

	again, _ := c.Get(provider, 0)
	if again.Price != 10_000000 {
		t.Errorf("catalogue mutated through returned copy: price %d", again.Price)
	}
}
