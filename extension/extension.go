// Package extension provides the Forge extension adapter for subledger.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.subledger" or
// "subledger" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/subledger"
	"github.com/xraph/subledger/asset"
	assetmem "github.com/xraph/subledger/asset/memory"
	"github.com/xraph/subledger/authz"
	"github.com/xraph/subledger/journal"
	"github.com/xraph/subledger/store/memory"
	"github.com/xraph/subledger/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "subledger"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Subscription ledger with mirrored capability tokens"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts subledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	ledger     *subledger.Ledger
	journal    journal.Store
	asset      asset.Asset
	ledgerOpts []subledger.Option
}

// New creates a new subledger Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ledger returns the underlying ledger.
// This is nil until Register is called.
func (e *Extension) Ledger() *subledger.Ledger { return e.ledger }

// Register implements [forge.Extension]. It loads configuration,
// builds the ledger, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use in-memory backends if none were provided programmatically.
	if e.journal == nil {
		e.journal = memory.New()
	}
	if e.asset == nil {
		e.asset = assetmem.New()
	}

	opts, err := e.buildLedgerOpts()
	if err != nil {
		return err
	}
	e.ledger = subledger.New(e.journal, e.asset, opts...)

	return vessel.Provide(fapp.Container(), func() (*subledger.Ledger, error) {
		return e.ledger, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.ledger == nil {
		return errors.New("subledger: extension not initialized")
	}

	if err := e.ledger.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.ledger != nil {
		if err := e.ledger.Stop(); err != nil && !errors.Is(err, subledger.ErrNotStarted) {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.ledger == nil {
		return errors.New("subledger: extension not initialized")
	}
	return e.ledger.Health(ctx)
}

// buildLedgerOpts constructs subledger.Option values from the resolved config.
// Pass-through options come last so they win.
func (e *Extension) buildLedgerOpts() ([]subledger.Option, error) {
	opts := make([]subledger.Option, 0, len(e.ledgerOpts)+6)

	custody, err := types.ParseAddress(e.config.Custody)
	if err != nil {
		return nil, fmt.Errorf("subledger: custody: %w", err)
	}
	treasury, err := types.ParseAddress(e.config.Treasury)
	if err != nil {
		return nil, fmt.Errorf("subledger: treasury: %w", err)
	}
	if e.config.PlatformFeeBps > types.MaxFeeBps {
		return nil, fmt.Errorf("%w: %d bps", subledger.ErrFeeTooHigh, e.config.PlatformFeeBps)
	}

	policy := authz.NewPolicy()
	for _, raw := range e.config.Operators {
		op, err := types.ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("subledger: operator %q: %w", raw, err)
		}
		policy.Grant(op, authz.PermOperator)
	}

	opts = append(opts,
		subledger.WithPolicy(policy),
		subledger.WithCustody(custody),
		subledger.WithTreasury(treasury),
		subledger.WithPlatformFee(e.config.PlatformFeeBps),
		subledger.WithReplayBatchSize(e.config.ReplayBatchSize),
	)
	if e.config.DisableMigrate {
		opts = append(opts, subledger.WithSkipMigrate())
	}

	opts = append(opts, e.ledgerOpts...)

	return opts, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("subledger: configuration is required but not found in config files; " +
				"ensure 'extensions.subledger' or 'subledger' key exists in your config")
		}

		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("subledger: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("platform_fee_bps", e.config.PlatformFeeBps),
		forge.F("custody", e.config.Custody),
		forge.F("treasury", e.config.Treasury),
		forge.F("operators", len(e.config.Operators)),
		forge.F("replay_batch_size", e.config.ReplayBatchSize),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.subledger" first (namespaced pattern).
	if cm.IsSet("extensions.subledger") {
		if err := cm.Bind("extensions.subledger", &cfg); err == nil {
			e.Logger().Debug("subledger: loaded config from file",
				forge.F("key", "extensions.subledger"),
			)
			return cfg, true
		}
		e.Logger().Warn("subledger: failed to bind extensions.subledger config",
			forge.F("error", "bind failed"),
		)
	}

	// Try top-level "subledger" key.
	if cm.IsSet("subledger") {
		if err := cm.Bind("subledger", &cfg); err == nil {
			e.Logger().Debug("subledger: loaded config from file",
				forge.F("key", "subledger"),
			)
			return cfg, true
		}
		e.Logger().Warn("subledger: failed to bind subledger config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.PlatformFeeBps == 0 {
		cfg.PlatformFeeBps = defaults.PlatformFeeBps
	}
	if cfg.Custody == "" {
		cfg.Custody = defaults.Custody
	}
	if cfg.Treasury == "" {
		cfg.Treasury = defaults.Treasury
	}
	if cfg.ReplayBatchSize == 0 {
		cfg.ReplayBatchSize = defaults.ReplayBatchSize
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	if yamlConfig.Custody == "" && programmaticConfig.Custody != "" {
		yamlConfig.Custody = programmaticConfig.Custody
	}
	if yamlConfig.Treasury == "" && programmaticConfig.Treasury != "" {
		yamlConfig.Treasury = programmaticConfig.Treasury
	}
	if yamlConfig.PlatformFeeBps == 0 && programmaticConfig.PlatformFeeBps != 0 {
		yamlConfig.PlatformFeeBps = programmaticConfig.PlatformFeeBps
	}
	if yamlConfig.ReplayBatchSize == 0 && programmaticConfig.ReplayBatchSize != 0 {
		yamlConfig.ReplayBatchSize = programmaticConfig.ReplayBatchSize
	}

	// Operators from both sources are granted.
	yamlConfig.Operators = append(yamlConfig.Operators, programmaticConfig.Operators...)

	return e.mergeWithDefaults(yamlConfig)
}
