package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/subledger/registry"
	"github.com/xraph/subledger/types"
)

// newTestRegistry connects to SUBLEDGER_TEST_REDIS (host:port) or skips.
func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	addr := os.Getenv("SUBLEDGER_TEST_REDIS")
	if addr == "" {
		t.Skip("Skipping Redis-dependent test: SUBLEDGER_TEST_REDIS not set")
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr, DB: 15})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Skipping Redis-dependent test: ping failed (%v)", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	prefix := fmt.Sprintf("subledger:test:%d:", time.Now().UnixNano())
	r := New(client, WithPrefix(prefix))
	t.Cleanup(func() {
		iter := client.Scan(context.Background(), 0, prefix+"*", 0).Iterator()
		for iter.Next(context.Background()) {
			client.Del(context.Background(), iter.Val())
		}
	})
	return r
}

func TestKey(t *testing.T) {
	r := New(nil, WithPrefix("x:"))
	if got := r.Key(types.MustAddress("Provider")); got != "x:provider" {
		t.Errorf("Key: got %q", got)
	}
}

func TestParseCounter(t *testing.T) {
	tests := []struct {
		in      interface{}
		want    uint64
		wantErr bool
	}{
		{nil, 0, false},
		{"", 0, false},
		{"42", 42, false},
		{"-1", 0, true},
	}
	for _, tt := range tests {
		got, err := parseCounter(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseCounter(%v) = %d, %v", tt.in, got, err)
		}
	}
}

func TestRecordRejectsRevenueAboveInt64(t *testing.T) {
	r := New(nil)
	err := r.Record(context.Background(), types.MustAddress("p"), registry.Renewed(^types.Amount(0)))
	if !errors.Is(err, registry.ErrRevenueOverflow) {
		t.Fatalf("expected ErrRevenueOverflow, got %v", err)
	}
}

func TestRecordAgainstRedis(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	p := types.MustAddress("provider")

	if err := r.Record(ctx, p, registry.Subscribed(97)); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := r.Record(ctx, p, registry.Renewed(97)); err != nil {
		t.Fatalf("renew: %v", err)
	}
	if err := r.Record(ctx, p, registry.Canceled()); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := r.Record(ctx, p, registry.Canceled()); !errors.Is(err, registry.ErrSubscriberUnderflow) {
		t.Fatalf("expected ErrSubscriberUnderflow, got %v", err)
	}

	got, err := r.Stats(ctx, p)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if want := (registry.Stats{Subscribers: 0, Revenue: 194}); got != want {
		t.Errorf("stats: got %+v, want %+v", got, want)
	}
}
