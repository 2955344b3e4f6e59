package trader

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/turtle/journal"
)

// PnL is realized profit of one aggregate trade, rounded to cents.
type PnL struct {
	Amount  float64
	Percent float64
}

// CalculatePnL compares the cost basis of the open legs with the cost of the
// closing order. For a long, the basis is the cost and the close is revenue;
// for a short the roles invert. Percent is relative to the cost.
func CalculatePnL(side journal.Action, basis, closeCost float64) PnL {
	cost := decimal.NewFromFloat(basis)
	revenue := decimal.NewFromFloat(closeCost)
	if side == journal.ActionShort {
		cost, revenue = revenue, cost
	}

	pl := revenue.Sub(cost)
	pct := decimal.Zero
	if !cost.IsZero() {
		pct = pl.Div(cost).Mul(decimal.NewFromInt(100))
	}
	return PnL{
		Amount:  pl.Round(2).InexactFloat64(),
		Percent: pct.Round(2).InexactFloat64(),
	}
}
