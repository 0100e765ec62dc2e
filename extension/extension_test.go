package extension

import (
	"errors"
	"testing"

	"github.com/xraph/subledger"
)

func TestMergeWithDefaults(t *testing.T) {
	e := New()
	got := e.mergeWithDefaults(Config{Treasury: "fees"})

	if got.Treasury != "fees" {
		t.Errorf("treasury = %q, want fees", got.Treasury)
	}
	if got.Custody != string(subledger.DefaultCustody) {
		t.Errorf("custody = %q", got.Custody)
	}
	if got.PlatformFeeBps != subledger.DefaultPlatformFeeBps || got.ReplayBatchSize != subledger.DefaultReplayBatchSize {
		t.Errorf("defaults not applied: %+v", got)
	}
}

func TestMergeConfigurations(t *testing.T) {
	e := New()
	file := Config{PlatformFeeBps: 250, Operators: []string{"ops-a"}}
	prog := Config{PlatformFeeBps: 500, Custody: "vault", DisableMigrate: true, Operators: []string{"ops-b"}}

	got := e.mergeConfigurations(file, prog)

	tests := []struct {
		name string
		ok   bool
	}{
		{"file fee wins", got.PlatformFeeBps == 250},
		{"programmatic custody fills gap", got.Custody == "vault"},
		{"programmatic flag applies", got.DisableMigrate},
		{"operators merged", len(got.Operators) == 2},
		{"treasury defaulted", got.Treasury == string(subledger.DefaultTreasury)},
	}
	for _, tt := range tests {
		if !tt.ok {
			t.Errorf("%s: %+v", tt.name, got)
		}
	}
}

func TestBuildLedgerOpts(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"defaults", DefaultConfig(), nil},
		{"fee above cap", Config{PlatformFeeBps: 2000, Custody: "c", Treasury: "t"}, subledger.ErrFeeTooHigh},
		{"empty custody", Config{Treasury: "t"}, subledger.ErrInvalidAddress},
		{"bad operator", Config{Custody: "c", Treasury: "t", Operators: []string{" "}}, subledger.ErrInvalidAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(WithConfig(tt.cfg))
			_, err := e.buildLedgerOpts()
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOptions(t *testing.T) {
	e := New(
		WithPlatformFee(120),
		WithOperators("ops"),
		WithDisableMigrate(),
		WithRequireConfig(true),
		WithLedgerOption(subledger.WithSkipMigrate()),
	)
	if e.config.PlatformFeeBps != 120 || len(e.config.Operators) != 1 || !e.config.DisableMigrate || !e.config.RequireConfig {
		t.Errorf("config = %+v", e.config)
	}
	if len(e.ledgerOpts) != 1 {
		t.Errorf("ledger options = %d, want 1", len(e.ledgerOpts))
	}
	if e.Ledger() != nil {
		t.Error("ledger built before Register")
	}
}
