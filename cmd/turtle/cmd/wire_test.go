package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/turtle/broker"
	"github.com/rustyeddy/turtle/config"
	"github.com/rustyeddy/turtle/journal"
	"github.com/rustyeddy/turtle/market"
)

func testApp(t *testing.T) *app {
	t.Helper()
	dir := t.TempDir()

	var candles []market.Candle
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		candles = append(candles, market.Candle{
			Time: start.AddDate(0, 0, i), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1,
		})
	}
	f, err := os.Create(filepath.Join(dir, "BTC.csv"))
	require.NoError(t, err)
	require.NoError(t, market.WriteCandlesCSV(f, candles))
	require.NoError(t, f.Close())

	cfg := config.Default()
	cfg.Exchange.CandlesDir = dir
	cfg.Store.Path = filepath.Join(dir, "turtle.db")

	a, err := newApp(context.Background(), cfg, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestBuildLoadsCandles(t *testing.T) {
	a := testApp(t)

	tr, err := a.build("btc")
	require.NoError(t, err)
	require.NotNil(t, tr)

	ex := a.exchanges["BTC"]
	require.NotNil(t, ex)
	assert.Equal(t, "BTC/USDT:USDT", ex.Market())

	got, err := ex.FetchCandles(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Len(t, got, 30)

	// a second build reuses the exchange
	_, err = a.build("BTC")
	require.NoError(t, err)
	assert.Same(t, ex, a.exchanges["BTC"])
}

func TestBuildMissingCandles(t *testing.T) {
	a := testApp(t)

	_, err := a.build("ETH")
	assert.Error(t, err)
	assert.NotContains(t, a.exchanges, "ETH")
}

func TestBuildRestoresOpenLegs(t *testing.T) {
	a := testApp(t)
	ctx := context.Background()
	require.NoError(t, a.store.InsertLeg(ctx, journal.Leg{
		ID: "leg-1", OrderID: "o-1", AggTradeID: "agg-1",
		Symbol: "BTC/USDT:USDT", Action: journal.ActionLong,
		Price: 100, Amount: 2, Cost: 200,
		Status: journal.StatusOpen, CreatedAt: time.Now().UTC(),
	}))

	_, err := a.build("BTC")
	require.NoError(t, err)

	pos, open, err := a.exchanges["BTC"].OpenPosition(ctx)
	require.NoError(t, err)
	require.True(t, open)
	assert.Equal(t, broker.SideBuy, pos.Side)
	assert.InDelta(t, 2.0, pos.Amount, 1e-9)

	bal := a.acct.Balance()
	assert.InDelta(t, 9800.0, bal.Free, 1e-9)
	assert.InDelta(t, 10000.0, bal.Total, 1e-9)
}

func TestTickers(t *testing.T) {
	a := testApp(t)
	assert.Equal(t, []string{"BTC"}, a.tickers(nil))
	assert.Equal(t, []string{"ETH", "SOL"}, a.tickers([]string{"eth", " sol"}))
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	_, err := openStore(config.StoreConfig{Driver: "mysql"})
	assert.Error(t, err)
}

func TestCandlePathPrefersTimeframe(t *testing.T) {
	a := testApp(t)
	dir := a.cfg.Exchange.CandlesDir
	assert.Equal(t, filepath.Join(dir, "BTC.csv"), a.candlePath("BTC"))

	daily := filepath.Join(dir, "BTC_1d.csv")
	require.NoError(t, os.WriteFile(daily, []byte("timeframe,O,H,L,C,V\n"), 0644))
	assert.Equal(t, daily, a.candlePath("BTC"))
}
