package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/turtle/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(highs, lows, closes []float64) []market.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]market.Candle, len(highs))
	for i := range highs {
		out[i] = market.Candle{
			Time:  base.Add(time.Duration(i) * 24 * time.Hour),
			Open:  closes[i],
			High:  highs[i],
			Low:   lows[i],
			Close: closes[i],
		}
	}
	return out
}

func flat(n int, high, low float64) []market.Candle {
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i], lows[i], closes[i] = high, low, (high+low)/2
	}
	return series(highs, lows, closes)
}

func TestTrueRange(t *testing.T) {
	current := market.Candle{High: 110, Low: 100, Close: 105}
	previous := market.Candle{Close: 104}
	assert.Equal(t, 10.0, trueRange(current, previous))

	gapUp := market.Candle{High: 120, Low: 115}
	assert.Equal(t, 16.0, trueRange(gapUp, previous))
}

func TestATRWarmup(t *testing.T) {
	candles := series(
		[]float64{10, 12, 11},
		[]float64{8, 9, 9.5},
		[]float64{9, 11, 10},
	)

	atr, err := ATR(candles, 20)
	require.NoError(t, err)
	require.Len(t, atr, 3)

	// TR = [2, 3, 1.5]
	assert.InDelta(t, 2.0, atr[0], 1e-9)
	assert.InDelta(t, 2.5, atr[1], 1e-9)
	assert.InDelta(t, 6.5/3, atr[2], 1e-9)
	for _, v := range atr {
		assert.False(t, math.IsNaN(v))
		assert.Greater(t, v, 0.0)
	}
}

func TestATRRollingWindow(t *testing.T) {
	candles := series(
		[]float64{10, 11, 12, 11, 12, 13},
		[]float64{8, 9, 10, 9, 10, 11},
		[]float64{9, 10, 11, 10, 11, 12},
	)

	atr, err := ATR(candles, 3)
	require.NoError(t, err)

	// Every TR is 2, so the mean is 2 once the window is full and before it.
	for _, v := range atr {
		assert.InDelta(t, 2.0, v, 1e-9)
	}
}

func TestATRInvalidPeriod(t *testing.T) {
	_, err := ATR(flat(3, 2, 1), 0)
	assert.Error(t, err)
}

func TestNewChannelPartialWindow(t *testing.T) {
	candles := series(
		[]float64{10, 12, 11, 9},
		[]float64{8, 9, 7, 8},
		[]float64{9, 11, 10, 8.5},
	)

	ch, err := NewChannel(candles, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 12, 12, 11}, ch.High)
	assert.Equal(t, []float64{8, 8, 7, 7}, ch.Low)
}

func TestEnrichEmpty(t *testing.T) {
	_, err := Enrich(nil, DefaultParams())
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	_, err = Latest([]market.Candle{}, DefaultParams())
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestEnrichSingleCandleHasNoSignals(t *testing.T) {
	snaps, err := Enrich(flat(1, 11, 9), DefaultParams())
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	s := snaps[0]
	assert.False(t, s.LongEntry || s.ShortEntry || s.LongExit || s.ShortExit)
	assert.Equal(t, 2.0, s.ATR)
	assert.Equal(t, 11.0, s.EntryHigh)
	assert.Equal(t, 9.0, s.ExitLow)
}

func TestEnrichKeepsLength(t *testing.T) {
	candles := flat(7, 11, 9)
	snaps, err := Enrich(candles, DefaultParams())
	require.NoError(t, err)
	assert.Len(t, snaps, len(candles))
	for i := range snaps {
		assert.Equal(t, candles[i], snaps[i].Candle)
	}
}

func TestEnrichNoLookahead(t *testing.T) {
	candles := flat(21, 101, 99)
	candles[20].High = 105
	candles[20].Close = 104

	snaps, err := Enrich(candles, DefaultParams())
	require.NoError(t, err)

	assert.True(t, snaps[20].LongEntry, "breakout bar")
	assert.False(t, snaps[19].LongEntry, "prior bar did not break its own channel")
	assert.True(t, snaps[20].ShortExit)
	assert.False(t, snaps[20].LongExit)
	assert.Equal(t, 105.0, snaps[20].EntryHigh)
}

func TestEnrichShortSignals(t *testing.T) {
	candles := flat(12, 101, 99)
	candles[11].Low = 95
	candles[11].Close = 96

	s, err := Latest(candles, DefaultParams())
	require.NoError(t, err)

	assert.True(t, s.ShortEntry)
	assert.True(t, s.LongExit)
	assert.False(t, s.LongEntry)
	assert.False(t, s.ShortExit)
}

func TestEnrichExitWindowShorterThanEntry(t *testing.T) {
	// Old high 120 is inside the entry window but outside the exit window.
	candles := flat(15, 101, 99)
	candles[0].High = 120
	candles[14].High = 110

	s, err := Latest(candles, Params{ATRPeriod: 5, EntryWindow: 20, ExitWindow: 10})
	require.NoError(t, err)

	assert.False(t, s.LongEntry)
	assert.True(t, s.ShortExit)
}

func TestEnrichInvalidParams(t *testing.T) {
	candles := flat(3, 2, 1)

	_, err := Enrich(candles, Params{ATRPeriod: 0, EntryWindow: 20, ExitWindow: 10})
	assert.Error(t, err)
	_, err = Enrich(candles, Params{ATRPeriod: 20, EntryWindow: 0, ExitWindow: 10})
	assert.Error(t, err)
	_, err = Enrich(candles, Params{ATRPeriod: 20, EntryWindow: 20, ExitWindow: -1})
	assert.Error(t, err)
}
