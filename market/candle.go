// Package market holds the price data the turtle engine trades on.
package market

import (
	"fmt"
	"time"
)

// Candle represents OHLCV candlestick data for one closed bar.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Range returns the high-low span of the candle.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

var timeframes = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// ParseTimeframe returns the bar length of an exchange timeframe such as
// "1h" or "1d".
func ParseTimeframe(s string) (time.Duration, error) {
	d, ok := timeframes[s]
	if !ok {
		return 0, fmt.Errorf("unknown timeframe %q", s)
	}
	return d, nil
}
