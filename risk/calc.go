package risk

import "github.com/rustyeddy/turtle/journal"

// StopLoss fixes a leg's stop at entry time, distance against the side.
func StopLoss(side journal.Action, close, distance float64) float64 {
	switch side {
	case journal.ActionLong:
		return close - distance
	case journal.ActionShort:
		return close + distance
	default:
		return 0
	}
}

// PyramidATR is the trigger distance for adding a leg. In calm markets
// (ATR/price below ratio) the distance is halved so pyramids come sooner.
// Sizing always uses the full ATR.
func PyramidATR(atr, price, ratio float64) float64 {
	if price > 0 && atr/price < ratio {
		return atr * 0.5
	}
	return atr
}

// PyramidTrigger is the price at which the next leg is added.
func PyramidTrigger(last journal.Leg, ratio float64) float64 {
	dist := PyramidATR(last.ATR, last.Price, ratio)
	if last.Action.IsLong() {
		return last.Price + dist
	}
	return last.Price - dist
}
