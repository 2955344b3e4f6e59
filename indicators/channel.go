package indicators

import (
	"fmt"

	"github.com/rustyeddy/turtle/market"
)

// Channel is a rolling high/low band over a fixed window of candles.
type Channel struct {
	High []float64
	Low  []float64
}

// NewChannel computes the rolling max of highs and rolling min of lows over
// the last window candles, using a partial window at the start of the series.
func NewChannel(candles []market.Candle, window int) (Channel, error) {
	if window <= 0 {
		return Channel{}, fmt.Errorf("window must be positive, got %d", window)
	}

	ch := Channel{
		High: make([]float64, len(candles)),
		Low:  make([]float64, len(candles)),
	}
	for i := range candles {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		hi, lo := candles[start].High, candles[start].Low
		for _, c := range candles[start+1 : i+1] {
			if c.High > hi {
				hi = c.High
			}
			if c.Low < lo {
				lo = c.Low
			}
		}
		ch.High[i] = hi
		ch.Low[i] = lo
	}
	return ch, nil
}
