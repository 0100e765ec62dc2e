package audithook_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/subledger"
	audithook "github.com/xraph/subledger/audit_hook"
	assetmem "github.com/xraph/subledger/asset/memory"
	"github.com/xraph/subledger/capability"
	"github.com/xraph/subledger/journal"
	"github.com/xraph/subledger/store/memory"
	"github.com/xraph/subledger/types"
)

type sink struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (s *sink) Record(_ context.Context, evt *audithook.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

func (s *sink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Action
	}
	return out
}

func TestLedgerEventsAreAudited(t *testing.T) {
	ctx := context.Background()
	rec := &sink{}
	usd := assetmem.New()
	l := subledger.New(memory.New(), usd,
		subledger.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		subledger.WithPlugin(audithook.New(rec)),
	)
	if err := l.Start(ctx); err != nil {
		t.Fatal(err)
	}

	const (
		provider types.Address = "acme"
		alice    types.Address = "alice"
	)
	tr, err := l.CreateTier(ctx, provider, 1_000_000, time.Hour, "Hourly")
	if err != nil {
		t.Fatal(err)
	}
	_ = usd.Mint(alice, 1_000_000)
	usd.Approve(alice, l.Custody(), 1_000_000)
	if _, err := l.Subscribe(ctx, alice, provider, tr.Index, false); err != nil {
		t.Fatal(err)
	}
	if err := l.Cancel(ctx, alice, provider); err != nil {
		t.Fatal(err)
	}

	want := []string{
		audithook.ActionTierCreated,
		audithook.ActionSubscriptionCreated,
		audithook.ActionTokenMinted,
		audithook.ActionSubscriptionCanceled,
		audithook.ActionTokenRevoked,
	}
	got := rec.actions()
	if len(got) != len(want) {
		t.Fatalf("actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("action %d = %s, want %s", i, got[i], want[i])
		}
	}

	rec.mu.Lock()
	created := rec.events[1]
	rec.mu.Unlock()
	if created.ResourceID != "1" || created.Metadata["fee"] != types.Amount(30_000) {
		t.Errorf("created event = %+v", created)
	}
}

func TestActionFilters(t *testing.T) {
	ctx := context.Background()
	tok := capability.Token{ID: 3, Holder: "alice", Provider: "acme", Active: true}

	tests := []struct {
		name string
		opts []audithook.Option
		want int
	}{
		{"all enabled", nil, 2},
		{"enabled subset", []audithook.Option{audithook.WithEnabledActions(audithook.ActionTokenMinted)}, 1},
		{"disabled", []audithook.Option{audithook.WithDisabledActions(audithook.ActionTokenMinted, audithook.ActionTokenRevoked)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &sink{}
			ext := audithook.New(rec, tt.opts...)
			_ = ext.OnTokenMinted(ctx, tok)
			_ = ext.OnTokenRevoked(ctx, tok)
			if got := len(rec.actions()); got != tt.want {
				t.Errorf("recorded %d events, want %d", got, tt.want)
			}
		})
	}
}

func TestFailuresCarryReason(t *testing.T) {
	rec := &sink{}
	ext := audithook.New(rec)
	cause := errors.New("settlement offline")

	_ = ext.OnWithdrawalReverted(context.Background(), &journal.Withdrawal{Beneficiary: "acme", Amount: 5}, cause)

	if len(rec.events) != 1 {
		t.Fatalf("events = %d", len(rec.events))
	}
	evt := rec.events[0]
	if evt.Outcome != audithook.OutcomeFailure || evt.Severity != audithook.SeverityCritical || evt.Reason != cause.Error() {
		t.Errorf("event = %+v", evt)
	}
}

func TestRecorderErrorsAreSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	}), audithook.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	if err := ext.OnPauseChanged(context.Background(), "ops", true); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}
