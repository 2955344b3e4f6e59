// Package paper is an in-process exchange that fills market orders at the
// last candle close. It backs dry runs of the CLI and the engine tests.
package paper

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/turtle/broker"
)

// Account is the collateral wallet shared by every paper market. Position
// cost is locked out of the free balance while the position is open.
type Account struct {
	mu         sync.Mutex
	asset      string
	free       decimal.Decimal
	locked     decimal.Decimal
	minBalance float64
}

func NewAccount(asset string, balance, minBalance float64) *Account {
	return &Account{
		asset:      asset,
		free:       decimal.NewFromFloat(balance),
		minBalance: minBalance,
	}
}

// Balance reports free and total (free plus locked) collateral.
func (a *Account) Balance() broker.Balance {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balanceLocked()
}

func (a *Account) balanceLocked() broker.Balance {
	return broker.Balance{
		Asset: a.asset,
		Free:  a.free.Round(8).InexactFloat64(),
		Total: a.free.Add(a.locked).Round(8).InexactFloat64(),
	}
}

// MinBalance is the free balance below which FetchBalance fails.
func (a *Account) MinBalance() float64 { return a.minBalance }

func (a *Account) lock(cost decimal.Decimal) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cost.GreaterThan(a.free) {
		return fmt.Errorf("%w: cost %s exceeds free %s %s",
			broker.ErrInsufficientBalance, cost.StringFixed(2), a.free.StringFixed(2), a.asset)
	}
	a.free = a.free.Sub(cost)
	a.locked = a.locked.Add(cost)
	return nil
}

// settle releases a position's locked cost and books its realized P/L.
func (a *Account) settle(cost, pl decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.locked = a.locked.Sub(cost)
	a.free = a.free.Add(cost).Add(pl)
}

// restore locks cost for a position recovered from the journal, without
// requiring it to fit in the free balance.
func (a *Account) restore(cost decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.free = a.free.Sub(cost)
	a.locked = a.locked.Add(cost)
}
