package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, 20, cfg.Strategy.ATRPeriod)
	assert.Equal(t, 10, cfg.Strategy.ExitWindow)
	assert.Equal(t, 0.02, cfg.Strategy.RiskFraction)
	assert.Equal(t, "USDT", cfg.Exchange.Collateral)
	assert.Equal(t, 50.0, cfg.Exchange.MinBalance)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"zero atr period", func(c *Config) { c.Strategy.ATRPeriod = 0 }, "atr_period"},
		{"negative history", func(c *Config) { c.Strategy.HistoryDays = -1 }, "history_days"},
		{"no pyramid", func(c *Config) { c.Strategy.PyramidLimit = 0 }, "pyramid_limit"},
		{"risk fraction", func(c *Config) { c.Strategy.RiskFraction = 1.5 }, "risk_fraction must be between 0 and 1"},
		{"allocation", func(c *Config) { c.Strategy.MaxAssetAllocation = 0 }, "max_asset_allocation"},
		{"stop multiple", func(c *Config) { c.Strategy.StopLossATRMultiple = 0 }, "stop_loss_atr_multiple"},
		{"exchange kind", func(c *Config) { c.Exchange.Kind = "binance" }, "exchange.kind"},
		{"collateral", func(c *Config) { c.Exchange.Collateral = "" }, "exchange.collateral is required"},
		{"timeframe", func(c *Config) { c.Exchange.Timeframe = "2d" }, "exchange.timeframe"},
		{"paper balance", func(c *Config) { c.Exchange.PaperBalance = 0 }, "paper_balance"},
		{"store driver", func(c *Config) { c.Store.Driver = "csv" }, "store.driver"},
		{"sqlite path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"postgres port", func(c *Config) {
			c.Store.Driver = "postgres"
			c.Store.Postgres.Port = 70000
		}, "invalid postgres port"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"attempts", func(c *Config) { c.Retry.StoreAttempts = 0 }, "retry attempts"},
		{"backoff", func(c *Config) { c.Retry.ExchangeBackoff = "soon" }, "retry.exchange_backoff"},
		{"tickers", func(c *Config) { c.Tickers = nil }, "ticker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "turtle.yaml")

	cfg := Default()
	cfg.Tickers = []string{"BTC", "ETH"}
	cfg.Strategy.PyramidLimit = 3
	cfg.Log.File = "/var/log/turtle.log"
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveAndLoadJSON(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "turtle.json")

	cfg := Default()
	cfg.Store.Driver = "postgres"
	cfg.Store.Postgres.Host = "db"
	cfg.Store.Postgres.Database = "turtle"
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "db", loaded.Store.Postgres.Host)
	assert.Equal(t, "postgres", loaded.Store.Driver)
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tickers: [sol]\nstrategy:\n  pyramid_limit: 2\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"sol"}, cfg.Tickers)
	assert.Equal(t, 2, cfg.Strategy.PyramidLimit)
	assert.Equal(t, 20, cfg.Strategy.EntryWindow)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strategy: [::"), 0644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)

	_, err = Load(path, nil)
	assert.Error(t, err)
}

func TestLoadValidatesAfterEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-tickers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tickers: []\n"), 0644))

	_, err := Load(path, func(string) (string, bool) { return "", false })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")

	cfg, err := Load(path, func(k string) (string, bool) {
		if k == EnvTickers {
			return "eth,sol", true
		}
		return "", false
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ETH", "SOL"}, cfg.Tickers)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvSlackURL: "https://hooks.slack.test/x",
		EnvTickers:  " btc, eth ,,sol",
		EnvDSN:      "postgres://turtle@db:5432/turtle",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "https://hooks.slack.test/x", cfg.Notify.SlackURL)
	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, cfg.Tickers)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	dsn, err := cfg.Store.Postgres.DSN()
	require.NoError(t, err)
	assert.Equal(t, env[EnvDSN], dsn)
	assert.NoError(t, cfg.Validate())

	untouched := Default()
	untouched.ApplyEnv(func(string) (string, bool) { return "", false })
	assert.Equal(t, Default(), untouched)
}

func TestTraderConfig(t *testing.T) {
	cfg := Default()
	cfg.Strategy.HistoryDays = 30
	tc, err := cfg.Trader()
	require.NoError(t, err)

	assert.Equal(t, 20, tc.Indicators.ATRPeriod)
	assert.Equal(t, 4, tc.PyramidLimit)
	assert.Equal(t, 30, tc.HistoryDays)
	assert.Equal(t, 0.5, tc.Risk.MaxAssetAllocation)
	assert.Equal(t, 5, tc.ExchangeRetry.MaxAttempts)
	assert.Equal(t, 1500*time.Millisecond, tc.ExchangeRetry.Backoff.Min)
	assert.Equal(t, 2*time.Second, tc.StoreRetry.Backoff.Min)
	assert.Equal(t, 30*time.Second, tc.StoreRetry.Backoff.Max)
	assert.NotNil(t, tc.StoreRetry.Retryable)
}
