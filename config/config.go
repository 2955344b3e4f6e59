package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/turtle/broker"
	"github.com/rustyeddy/turtle/indicators"
	"github.com/rustyeddy/turtle/internal/conn"
	"github.com/rustyeddy/turtle/internal/logging"
	"github.com/rustyeddy/turtle/internal/retry"
	"github.com/rustyeddy/turtle/journal"
	"github.com/rustyeddy/turtle/market"
	"github.com/rustyeddy/turtle/risk"
	"github.com/rustyeddy/turtle/trader"
)

// Environment overrides.
const (
	EnvSlackURL = "SLACK_URL"
	EnvTickers  = "TRADED_TICKERS"
	EnvDSN      = conn.EnvDSN
)

// Config represents the complete turtle configuration
type Config struct {
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Exchange ExchangeConfig `json:"exchange" yaml:"exchange"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	Notify   NotifyConfig   `json:"notify" yaml:"notify"`
	Log      logging.Config `json:"log" yaml:"log"`
	Schedule ScheduleConfig `json:"schedule" yaml:"schedule"`
	Retry    RetryConfig    `json:"retry" yaml:"retry"`
	Tickers  []string       `json:"tickers" yaml:"tickers"`
}

// StrategyConfig contains indicator and risk parameters
type StrategyConfig struct {
	ATRPeriod                 int     `json:"atr_period" yaml:"atr_period"`
	EntryWindow               int     `json:"entry_window" yaml:"entry_window"`
	ExitWindow                int     `json:"exit_window" yaml:"exit_window"`
	HistoryDays               int     `json:"history_days" yaml:"history_days"`
	PyramidLimit              int     `json:"pyramid_limit" yaml:"pyramid_limit"`
	RiskFraction              float64 `json:"risk_fraction" yaml:"risk_fraction"`
	MaxAssetAllocation        float64 `json:"max_asset_allocation" yaml:"max_asset_allocation"`
	StopLossATRMultiple       float64 `json:"stop_loss_atr_multiple" yaml:"stop_loss_atr_multiple"`
	AggressivePyramidATRRatio float64 `json:"aggressive_pyramid_atr_ratio" yaml:"aggressive_pyramid_atr_ratio"`
}

// ExchangeConfig selects the exchange and its collateral
type ExchangeConfig struct {
	Kind       string  `json:"kind" yaml:"kind"` // "paper"
	Collateral string  `json:"collateral" yaml:"collateral"`
	MinBalance float64 `json:"min_balance" yaml:"min_balance"`
	Timeframe  string  `json:"timeframe" yaml:"timeframe"`

	// Paper exchange: starting balance and the directory holding
	// <TICKER>.csv candle files.
	PaperBalance float64 `json:"paper_balance,omitempty" yaml:"paper_balance,omitempty"`
	CandlesDir   string  `json:"candles_dir,omitempty" yaml:"candles_dir,omitempty"`
}

// StoreConfig contains journaling parameters
type StoreConfig struct {
	Driver   string      `json:"driver" yaml:"driver"` // "sqlite" or "postgres"
	Path     string      `json:"path,omitempty" yaml:"path,omitempty"`
	Postgres conn.Option `json:"postgres,omitempty" yaml:"postgres,omitempty"`
}

type NotifyConfig struct {
	SlackURL string `json:"slack_url,omitempty" yaml:"slack_url,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
}

// ScheduleConfig is the cron spec of the daemon, with a seconds field.
type ScheduleConfig struct {
	Cron string `json:"cron" yaml:"cron"`
}

// RetryConfig bounds retries of exchange and store calls. Backoffs are
// duration strings, e.g. "1.5s".
type RetryConfig struct {
	ExchangeAttempts int    `json:"exchange_attempts" yaml:"exchange_attempts"`
	ExchangeBackoff  string `json:"exchange_backoff" yaml:"exchange_backoff"`
	StoreAttempts    int    `json:"store_attempts" yaml:"store_attempts"`
	StoreBackoff     string `json:"store_backoff" yaml:"store_backoff"`
	MaxBackoff       string `json:"max_backoff" yaml:"max_backoff"`
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", field)
	}
	return d, nil
}

// Policies builds the exchange and store retry policies.
func (r RetryConfig) Policies() (exchange, store retry.Policy, err error) {
	exBase, err := parseDuration("retry.exchange_backoff", r.ExchangeBackoff)
	if err != nil {
		return
	}
	stBase, err := parseDuration("retry.store_backoff", r.StoreBackoff)
	if err != nil {
		return
	}
	max, err := parseDuration("retry.max_backoff", r.MaxBackoff)
	if err != nil {
		return
	}
	exchange = retry.Exponential("exchange", r.ExchangeAttempts, exBase, max, broker.IsTransient)
	store = retry.Exponential("store", r.StoreAttempts, stBase, max, journal.IsTransient)
	return exchange, store, nil
}

// Load returns the defaults, or the file at path when path is set, with
// environment overrides applied, and validates the result once.
func Load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if lookup != nil {
		cfg.ApplyEnv(lookup)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file (YAML, falling back to
// JSON). Fields absent from the file keep their defaults. The result is not
// validated; Load validates after overrides.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides the webhook, tickers and Postgres DSN from the
// environment. A DSN switches the store to postgres.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvSlackURL); ok && v != "" {
		c.Notify.SlackURL = v
	}
	if v, ok := lookup(EnvTickers); ok && v != "" {
		c.Tickers = ParseTickers(v)
	}
	if opt, ok := c.Store.Postgres.Override(lookup); ok {
		c.Store.Driver = "postgres"
		c.Store.Postgres = opt
	}
}

// ParseTickers splits a comma separated list, dropping blanks and upper
// casing every ticker.
func ParseTickers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	s := c.Strategy
	if s.ATRPeriod <= 0 || s.EntryWindow <= 0 || s.ExitWindow <= 0 {
		return fmt.Errorf("strategy atr_period, entry_window and exit_window must be positive")
	}
	if s.HistoryDays < 0 {
		return fmt.Errorf("strategy.history_days must not be negative")
	}
	if s.PyramidLimit < 1 {
		return fmt.Errorf("strategy.pyramid_limit must be at least 1")
	}
	if s.RiskFraction <= 0 || s.RiskFraction > 1 {
		return fmt.Errorf("strategy.risk_fraction must be between 0 and 1")
	}
	if s.MaxAssetAllocation <= 0 || s.MaxAssetAllocation > 1 {
		return fmt.Errorf("strategy.max_asset_allocation must be between 0 and 1")
	}
	if s.StopLossATRMultiple <= 0 {
		return fmt.Errorf("strategy.stop_loss_atr_multiple must be positive")
	}
	if s.AggressivePyramidATRRatio < 0 {
		return fmt.Errorf("strategy.aggressive_pyramid_atr_ratio must not be negative")
	}

	if c.Exchange.Kind != "paper" {
		return fmt.Errorf("exchange.kind must be 'paper'")
	}
	if c.Exchange.Collateral == "" {
		return fmt.Errorf("exchange.collateral is required")
	}
	if _, err := market.ParseTimeframe(c.Exchange.Timeframe); err != nil {
		return fmt.Errorf("exchange.timeframe: %w", err)
	}
	if c.Exchange.MinBalance < 0 {
		return fmt.Errorf("exchange.min_balance must not be negative")
	}
	if c.Exchange.PaperBalance <= 0 {
		return fmt.Errorf("exchange.paper_balance must be positive")
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path required for sqlite driver")
		}
	case "postgres":
		if _, err := c.Store.Postgres.DSN(); err != nil {
			return fmt.Errorf("store.postgres: %w", err)
		}
	default:
		return fmt.Errorf("store.driver must be 'sqlite' or 'postgres'")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Retry.ExchangeAttempts < 1 || c.Retry.StoreAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1")
	}
	if _, _, err := c.Retry.Policies(); err != nil {
		return err
	}
	if len(c.Tickers) == 0 {
		return fmt.Errorf("at least one ticker is required")
	}
	return nil
}

// Trader builds the per-market trader configuration.
func (c *Config) Trader() (trader.Config, error) {
	ex, st, err := c.Retry.Policies()
	if err != nil {
		return trader.Config{}, err
	}
	s := c.Strategy
	return trader.Config{
		Indicators: indicators.Params{
			ATRPeriod:   s.ATRPeriod,
			EntryWindow: s.EntryWindow,
			ExitWindow:  s.ExitWindow,
		},
		Risk: risk.Policy{
			RiskFraction:        s.RiskFraction,
			StopLossATRMultiple: s.StopLossATRMultiple,
			MaxAssetAllocation:  s.MaxAssetAllocation,
			AggressiveATRRatio:  s.AggressivePyramidATRRatio,
		},
		PyramidLimit:  s.PyramidLimit,
		HistoryDays:   s.HistoryDays,
		ExchangeRetry: ex,
		StoreRetry:    st,
	}, nil
}

// Default returns a configuration with the production settings
func Default() *Config {
	return &Config{
		Strategy: StrategyConfig{
			ATRPeriod:                 20,
			EntryWindow:               20,
			ExitWindow:                10,
			HistoryDays:               70,
			PyramidLimit:              4,
			RiskFraction:              0.02,
			MaxAssetAllocation:        0.5,
			StopLossATRMultiple:       2,
			AggressivePyramidATRRatio: 0.02,
		},
		Exchange: ExchangeConfig{
			Kind:         "paper",
			Collateral:   "USDT",
			MinBalance:   50,
			Timeframe:    "1d",
			PaperBalance: 10000,
			CandlesDir:   "./data",
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "./turtle.db",
		},
		Notify: NotifyConfig{Username: "turtle"},
		Log:    logging.Config{Level: "info"},
		Schedule: ScheduleConfig{
			Cron: "0 5 0 * * *",
		},
		Retry: RetryConfig{
			ExchangeAttempts: 5,
			ExchangeBackoff:  "1.5s",
			StoreAttempts:    5,
			StoreBackoff:     "2s",
			MaxBackoff:       "30s",
		},
		Tickers: []string{"BTC"},
	}
}
