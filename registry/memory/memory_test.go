package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/subledger/registry"
	"github.com/xraph/subledger/types"
)

func TestRecord(t *testing.T) {
	r := New()
	ctx := context.Background()
	p := types.MustAddress("provider")

	steps := []struct {
		name    string
		delta   registry.Delta
		want    registry.Stats
		wantErr error
	}{
		{"subscribe", registry.Subscribed(97), registry.Stats{Subscribers: 1, Revenue: 97}, nil},
		{"renew", registry.Renewed(97), registry.Stats{Subscribers: 1, Revenue: 194}, nil},
		{"cancel", registry.Canceled(), registry.Stats{Subscribers: 0, Revenue: 194}, nil},
		{"underflow", registry.Canceled(), registry.Stats{Subscribers: 0, Revenue: 194}, registry.ErrSubscriberUnderflow},
	}

	for _, st := range steps {
		err := r.Record(ctx, p, st.delta)
		if !errors.Is(err, st.wantErr) {
			t.Fatalf("%s: error %v, want %v", st.name, err, st.wantErr)
		}
		got, _ := r.Stats(ctx, p)
		if got != st.want {
			t.Fatalf("%s: stats %+v, want %+v", st.name, got, st.want)
		}
	}
}

func TestRecordRevenueOverflow(t *testing.T) {
	r := New()
	ctx := context.Background()
	p := types.MustAddress("provider")

	_ = r.Record(ctx, p, registry.Renewed(^types.Amount(0)))
	if err := r.Record(ctx, p, registry.Subscribed(1)); !errors.Is(err, registry.ErrRevenueOverflow) {
		t.Fatalf("expected ErrRevenueOverflow, got %v", err)
	}
	got, _ := r.Stats(ctx, p)
	if got.Subscribers != 0 {
		t.Errorf("rejected delta partially applied: %+v", got)
	}
}
