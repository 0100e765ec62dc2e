package extension

import (
	"github.com/xraph/subledger"
	"github.com/xraph/subledger/asset"
	"github.com/xraph/subledger/journal"
	"github.com/xraph/subledger/plugin"
	"github.com/xraph/subledger/registry"
)

// Option configures the subledger Forge extension.
type Option func(*Extension)

// WithJournal sets the journal store for the ledger.
func WithJournal(s journal.Store) Option {
	return func(e *Extension) {
		e.journal = s
	}
}

// WithAsset sets the settlement asset.
func WithAsset(a asset.Asset) Option {
	return func(e *Extension) {
		e.asset = a
	}
}

// WithRegistry sets the provider registry that receives counter deltas.
func WithRegistry(r registry.Registry) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, subledger.WithRegistry(r))
	}
}

// WithLedgerOption passes a subledger.Option through to the underlying ledger.
func WithLedgerOption(opt subledger.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, subledger.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents journal migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithPlatformFee sets the initial platform fee in basis points.
func WithPlatformFee(bps uint16) Option {
	return func(e *Extension) { e.config.PlatformFeeBps = bps }
}

// WithOperators grants administration to the given identities.
func WithOperators(ids ...string) Option {
	return func(e *Extension) { e.config.Operators = append(e.config.Operators, ids...) }
}
