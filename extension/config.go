package extension

import "github.com/xraph/subledger"

// Config holds the subledger extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.subledger" or "subledger" keys).
type Config struct {
	// DisableMigrate prevents journal migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// PlatformFeeBps is the fee applied to new charges until the journal
	// records a change (default: 300, max: 1000).
	PlatformFeeBps uint16 `json:"platform_fee_bps" mapstructure:"platform_fee_bps" yaml:"platform_fee_bps"`

	// Custody is the identity that holds collected funds
	// (default: "subledger:custody").
	Custody string `json:"custody" mapstructure:"custody" yaml:"custody"`

	// Treasury is the identity whose balance collects platform fees
	// (default: "subledger:treasury").
	Treasury string `json:"treasury" mapstructure:"treasury" yaml:"treasury"`

	// Operators are granted fee, pause and issuer administration.
	Operators []string `json:"operators" mapstructure:"operators" yaml:"operators"`

	// ReplayBatchSize is the number of journal entries read per query on
	// start (default: 500).
	ReplayBatchSize int `json:"replay_batch_size" mapstructure:"replay_batch_size" yaml:"replay_batch_size"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		PlatformFeeBps:  subledger.DefaultPlatformFeeBps,
		Custody:         string(subledger.DefaultCustody),
		Treasury:        string(subledger.DefaultTreasury),
		ReplayBatchSize: subledger.DefaultReplayBatchSize,
	}
}
