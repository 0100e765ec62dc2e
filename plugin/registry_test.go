package plugin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/subledger/capability"
	"github.com/xraph/subledger/journal"
	"github.com/xraph/subledger/subscription"
)

type recordingPlugin struct {
	mu     sync.Mutex
	name   string
	events []string
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) add(ev string) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *recordingPlugin) OnSubscriptionCreated(_ context.Context, _ *subscription.Subscription, _ *journal.Charge) error {
	p.add("created")
	return nil
}

func (p *recordingPlugin) OnTokenMinted(_ context.Context, _ capability.Token) error {
	p.add("minted")
	return errors.New("hook failure is logged, not returned")
}

type slowPlugin struct{}

func (slowPlugin) Name() string { return "slow" }

func (slowPlugin) OnShutdown(ctx context.Context) error {
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
	}
	return nil
}

func quietRegistry() *Registry {
	return NewRegistry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterCachesHooks(t *testing.T) {
	r := quietRegistry()
	p := &recordingPlugin{name: "rec"}

	if err := r.Register(p); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&recordingPlugin{name: "rec"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if r.Count() != 1 || r.Get("rec") != p {
		t.Fatalf("registry contents: %d plugins", r.Count())
	}
	if got := implementedInterfaces(p); len(got) != 2 {
		t.Errorf("implemented interfaces: %v", got)
	}

	ctx := context.Background()
	r.EmitSubscriptionCreated(ctx, &subscription.Subscription{ID: 1}, &journal.Charge{})
	r.EmitTokenMinted(ctx, capability.Token{ID: 1})
	r.EmitSubscriptionCanceled(ctx, &subscription.Subscription{ID: 1})

	if len(p.events) != 2 || p.events[0] != "created" || p.events[1] != "minted" {
		t.Errorf("events: %v", p.events)
	}
}

func TestCallWithTimeout(t *testing.T) {
	r := quietRegistry().WithTimeout(20 * time.Millisecond)
	_ = r.Register(slowPlugin{})

	start := time.Now()
	r.EmitShutdown(context.Background())
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("slow hook blocked emission for %v", elapsed)
	}

	err := r.callWithTimeout(context.Background(), "slow", func() error {
		time.Sleep(100 * time.Millisecond)
		return nil
	})
	if err == nil {
		t.Error("expected timeout error")
	}
}
