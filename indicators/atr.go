package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/turtle/market"
)

// trueRange calculates the True Range for a candle given the previous candle.
func trueRange(current, previous market.Candle) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)

	return math.Max(highLow, math.Max(highClose, lowClose))
}

// TrueRanges returns the true range of every candle. The first candle has no
// previous close, so its range is high-low.
func TrueRanges(candles []market.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		if i == 0 {
			out[i] = c.Range()
			continue
		}
		out[i] = trueRange(c, candles[i-1])
	}
	return out
}

// ATR returns the rolling mean of the true range over the last period
// candles. While fewer than period candles are available the mean is taken
// over the candles seen so far, so no leading value is undefined.
func ATR(candles []market.Candle, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}

	tr := TrueRanges(candles)
	out := make([]float64, len(tr))

	sum := 0.0
	for i, v := range tr {
		sum += v
		n := i + 1
		if n > period {
			sum -= tr[i-period]
			n = period
		}
		out[i] = sum / float64(n)
	}
	return out, nil
}
