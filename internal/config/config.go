// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything cmd/server needs to wire the service. Addresses
// are base58 strings validated at bootstrap, amounts are decimal strings.
type Config struct {
	// Listeners
	HTTPAddr    string `env:"LEDGER_HTTP_ADDR"    envDefault:":8080"`
	MetricsAddr string `env:"LEDGER_METRICS_ADDR" envDefault:":9090"`

	// Storage. With UseMemory set, Postgres is skipped entirely;
	// ClickHouse is optional either way.
	PostgresDSN   string `env:"LEDGER_POSTGRES_DSN"`
	ClickhouseDSN string `env:"LEDGER_CLICKHOUSE_DSN"`
	UseMemory     bool   `env:"LEDGER_USE_MEMORY" envDefault:"false"`

	// Token metadata.
	TokenName     string `env:"LEDGER_TOKEN_NAME"     envDefault:"Bridged Token"`
	TokenSymbol   string `env:"LEDGER_TOKEN_SYMBOL"   envDefault:"BTL"`
	TokenDecimals int    `env:"LEDGER_TOKEN_DECIMALS" envDefault:"9"`

	// Genesis accounts and supply.
	AdminAddress      string   `env:"LEDGER_ADMIN_ADDRESS"`
	FeeCollector      string   `env:"LEDGER_FEE_COLLECTOR"`
	MaxSupply         string   `env:"LEDGER_MAX_SUPPLY"`
	InitialThreshold  string   `env:"LEDGER_FEE_WAIVER_THRESHOLD"`
	Minters           []string `env:"LEDGER_MINTERS"            envSeparator:","`
	Burners           []string `env:"LEDGER_BURNERS"            envSeparator:","`
	WhitelistManagers []string `env:"LEDGER_WHITELIST_MANAGERS" envSeparator:","`

	// Fee schedules. Rates are numerators over the shared denominator.
	FeeDenominator      uint64 `env:"LEDGER_FEE_DENOMINATOR"       envDefault:"100"`
	FeeMaximumNumerator uint64 `env:"LEDGER_FEE_MAX_NUMERATOR"     envDefault:"25"`
	StandardBuyFee      uint64 `env:"LEDGER_FEE_STANDARD_BUY"      envDefault:"2"`
	StandardSellFee     uint64 `env:"LEDGER_FEE_STANDARD_SELL"     envDefault:"2"`
	AntibotBuyFee       uint64 `env:"LEDGER_FEE_ANTIBOT_BUY"       envDefault:"25"`
	AntibotSellFee      uint64 `env:"LEDGER_FEE_ANTIBOT_SELL"      envDefault:"25"`

	// AntibotWindow is how long after service launch the antibot schedule
	// applies. Zero disables the window.
	AntibotWindow time.Duration `env:"LEDGER_ANTIBOT_WINDOW" envDefault:"0"`

	// Direction predicate configuration. Venues listed here classify
	// transfers as buys (out of a venue) or sells (into one); everything
	// else uses DefaultDirection ("buy" or "sell").
	VenueAddresses   []string `env:"LEDGER_VENUE_ADDRESSES" envSeparator:","`
	DefaultDirection string   `env:"LEDGER_DEFAULT_DIRECTION" envDefault:"sell"`

	// Background intervals.
	SnapshotInterval time.Duration `env:"LEDGER_SNAPSHOT_INTERVAL" envDefault:"1h"`
	FlushInterval    time.Duration `env:"LEDGER_FLUSH_INTERVAL"    envDefault:"10s"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
