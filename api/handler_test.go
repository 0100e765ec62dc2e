package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xraph/subledger"
	"github.com/xraph/subledger/api"
	assetmem "github.com/xraph/subledger/asset/memory"
	"github.com/xraph/subledger/authz"
	"github.com/xraph/subledger/store/memory"
	"github.com/xraph/subledger/types"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type server struct {
	t      *testing.T
	usd    *assetmem.Token
	ledger *subledger.Ledger
	auth   *api.Authenticator
	router *gin.Engine
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	usd := assetmem.New()
	l := subledger.New(memory.New(), usd,
		subledger.WithLogger(logger),
		subledger.WithClock(types.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))),
		subledger.WithPolicy(authz.NewPolicy().Grant("operator", authz.PermOperator)),
	)
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	auth, err := api.NewAuthenticator([]byte("test-secret"), "subledgerd", time.Hour)
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}

	r := gin.New()
	api.NewHandler(l, logger).Routes(r, auth)

	return &server{t: t, usd: usd, ledger: l, auth: auth, router: r}
}

func (s *server) do(method, path string, caller types.Address, body any) (int, envelope) {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		tok, err := s.auth.Issue(caller)
		if err != nil {
			s.t.Fatalf("Issue: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		s.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

func (s *server) fund(who types.Address, amount types.Amount) {
	s.t.Helper()
	if err := s.usd.Mint(who, amount); err != nil {
		s.t.Fatalf("Mint: %v", err)
	}
	s.usd.Approve(who, s.ledger.Custody(), amount)
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
	return v
}

func TestSubscriptionFlow(t *testing.T) {
	s := newServer(t)
	s.fund("alice", 10_000_000)

	code, _ := s.do(http.MethodPost, "/api/v1/tiers", "provider", map[string]any{
		"price": 10_000_000, "duration": "720h", "name": "Monthly",
	})
	if code != http.StatusCreated {
		t.Fatalf("create tier = %d", code)
	}

	code, env := s.do(http.MethodPost, "/api/v1/subscriptions", "alice", map[string]any{
		"provider": "provider", "tier_index": 0, "auto_renew": true,
	})
	if code != http.StatusCreated {
		t.Fatalf("subscribe = %d: %s", code, env.Error)
	}
	sub := decode[struct {
		ID      uint64 `json:"id"`
		TokenID uint64 `json:"token_id"`
	}](t, env)
	if sub.ID != 1 || sub.TokenID == 0 {
		t.Errorf("subscription = %+v", sub)
	}

	_, env = s.do(http.MethodGet, "/api/v1/access/alice/provider", "", nil)
	access := decode[api.AccessView](t, env)
	if !access.Active || !access.TokenValid || access.SubscriptionID != sub.ID {
		t.Errorf("access = %+v", access)
	}
	if access.RemainingSeconds != int64((720 * time.Hour).Seconds()) {
		t.Errorf("remaining = %d", access.RemainingSeconds)
	}

	_, env = s.do(http.MethodGet, "/api/v1/balances/provider", "", nil)
	bal := decode[struct {
		Balance uint64 `json:"balance"`
	}](t, env)
	if bal.Balance != 9_700_000 {
		t.Errorf("provider balance = %d, want 9700000", bal.Balance)
	}

	code, env = s.do(http.MethodPost, "/api/v1/withdrawals", "provider", nil)
	if code != http.StatusOK {
		t.Fatalf("withdraw = %d: %s", code, env.Error)
	}
	if got := s.usd.BalanceOf("provider"); got != 9_700_000 {
		t.Errorf("provider wallet = %s", got)
	}

	code, _ = s.do(http.MethodDelete, "/api/v1/subscriptions/provider", "alice", nil)
	if code != http.StatusOK {
		t.Fatalf("cancel = %d", code)
	}
	if s.ledger.IsSubscriptionActive("alice", "provider") {
		t.Error("subscription active after cancel")
	}
}

func TestErrorStatuses(t *testing.T) {
	s := newServer(t)
	s.fund("alice", 20_000_000)
	if _, err := s.ledger.CreateTier(context.Background(), "provider", 10_000_000, time.Hour, "Hourly"); err != nil {
		t.Fatalf("CreateTier: %v", err)
	}
	if _, err := s.ledger.Subscribe(context.Background(), "alice", "provider", 0, false); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		caller types.Address
		body   any
		want   int
	}{
		{"unauthenticated write", http.MethodPost, "/api/v1/withdrawals", "", nil, http.StatusUnauthorized},
		{"duplicate subscribe", http.MethodPost, "/api/v1/subscriptions", "alice", map[string]any{"provider": "provider", "tier_index": 0}, http.StatusConflict},
		{"unknown tier", http.MethodPost, "/api/v1/subscriptions", "bob", map[string]any{"provider": "provider", "tier_index": 9}, http.StatusNotFound},
		{"bad duration", http.MethodPost, "/api/v1/tiers", "provider", map[string]any{"price": 1, "duration": "monthly"}, http.StatusBadRequest},
		{"zero price", http.MethodPost, "/api/v1/tiers", "provider", map[string]any{"price": 0, "duration": "1h"}, http.StatusBadRequest},
		{"empty withdrawal", http.MethodPost, "/api/v1/withdrawals", "bob", nil, http.StatusUnprocessableEntity},
		{"renew without subscription", http.MethodPost, "/api/v1/subscriptions/provider/renew", "bob", nil, http.StatusNotFound},
		{"transfer", http.MethodPost, "/api/v1/tokens/1/transfer", "alice", map[string]any{"to": "bob"}, http.StatusForbidden},
		{"missing subscription", http.MethodGet, "/api/v1/subscriptions/42", "", nil, http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/v1/tokens/abc", "", nil, http.StatusBadRequest},
		{"fee by non-operator", http.MethodPut, "/api/v1/admin/fee", "alice", map[string]any{"bps": 100}, http.StatusForbidden},
		{"fee above cap", http.MethodPut, "/api/v1/admin/fee", "operator", map[string]any{"bps": 5000}, http.StatusBadRequest},
		{"history by non-operator", http.MethodGet, "/api/v1/admin/history", "alice", nil, http.StatusForbidden},
		{"history bad action", http.MethodGet, "/api/v1/admin/history?action=nope", "operator", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := s.do(tt.method, tt.path, tt.caller, tt.body)
			if code != tt.want {
				t.Errorf("status = %d, want %d (%s)", code, tt.want, env.Error)
			}
			if env.Success {
				t.Error("success flag set on failure")
			}
		})
	}
}

func TestAdminEndpoints(t *testing.T) {
	s := newServer(t)
	s.fund("alice", 10_000_000)
	if _, err := s.ledger.CreateTier(context.Background(), "provider", 10_000_000, time.Hour, "Hourly"); err != nil {
		t.Fatalf("CreateTier: %v", err)
	}

	if code, _ := s.do(http.MethodPost, "/api/v1/admin/pause", "operator", nil); code != http.StatusOK {
		t.Fatalf("pause = %d", code)
	}
	code, _ := s.do(http.MethodPost, "/api/v1/subscriptions", "alice", map[string]any{"provider": "provider", "tier_index": 0})
	if code != http.StatusServiceUnavailable {
		t.Errorf("subscribe while paused = %d, want 503", code)
	}
	if code, _ := s.do(http.MethodPost, "/api/v1/admin/unpause", "operator", nil); code != http.StatusOK {
		t.Fatalf("unpause = %d", code)
	}
	if code, _ := s.do(http.MethodPut, "/api/v1/admin/fee", "operator", map[string]any{"bps": 500}); code != http.StatusOK {
		t.Fatalf("fee = %d", code)
	}

	_, env := s.do(http.MethodGet, "/api/v1/state", "", nil)
	state := decode[api.StateView](t, env)
	if state.PlatformFeeBps != 500 || state.Paused {
		t.Errorf("state = %+v", state)
	}

	_, env = s.do(http.MethodGet, "/api/v1/admin/history?action=ledger.paused", "operator", nil)
	entries := decode[[]map[string]any](t, env)
	if len(entries) != 1 {
		t.Errorf("paused entries = %d, want 1", len(entries))
	}

	_, env = s.do(http.MethodGet, "/api/v1/admin/history?after=1&limit=2", "operator", nil)
	entries = decode[[]map[string]any](t, env)
	if len(entries) != 2 {
		t.Errorf("paged entries = %d, want 2", len(entries))
	}
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	if code, _ := s.do(http.MethodGet, "/api/v1/health", "", nil); code != http.StatusOK {
		t.Errorf("health = %d", code)
	}

	if err := s.ledger.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if code, _ := s.do(http.MethodGet, "/api/v1/health", "", nil); code != http.StatusServiceUnavailable {
		t.Errorf("health after stop = %d, want 503", code)
	}
}

func TestSandboxMint(t *testing.T) {
	s := newServer(t)
	api.NewHandler(s.ledger, nil).SandboxRoutes(s.router, s.auth, s.usd)

	for range 2 {
		if code, env := s.do(http.MethodPost, "/api/v1/sandbox/mint", "alice", map[string]any{"amount": 5_000_000}); code != http.StatusOK {
			t.Fatalf("mint = %d: %s", code, env.Error)
		}
	}

	if got := s.usd.BalanceOf("alice"); got != 10_000_000 {
		t.Errorf("balance = %s, want 10000000", got)
	}
	if got := s.usd.Allowance("alice", s.ledger.Custody()); got != 10_000_000 {
		t.Errorf("allowance = %s, want 10000000", got)
	}
	if code, _ := s.do(http.MethodPost, "/api/v1/sandbox/mint", "", map[string]any{"amount": 1}); code != http.StatusUnauthorized {
		t.Errorf("anonymous mint = %d, want 401", code)
	}
}
