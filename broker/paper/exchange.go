package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/turtle/broker"
	"github.com/rustyeddy/turtle/market"
	"github.com/rustyeddy/turtle/pkg/id"
)

// Order status reported for a fully filled order.
const StatusFilled = "closed"

type position struct {
	side   broker.Side
	amount decimal.Decimal
	cost   decimal.Decimal
}

// Exchange is one paper market. It satisfies broker.Exchange and
// broker.PositionReader.
type Exchange struct {
	mu      sync.Mutex
	acct    *Account
	symbol  string
	market  string
	candles []market.Candle
	pos     *position
}

var (
	_ broker.Exchange       = (*Exchange)(nil)
	_ broker.PositionReader = (*Exchange)(nil)
)

func NewExchange(acct *Account, ticker, collateral string, candles []market.Candle) *Exchange {
	return &Exchange{
		acct:    acct,
		symbol:  broker.Symbol(ticker, collateral),
		market:  broker.MarketID(ticker, collateral),
		candles: candles,
	}
}

func (e *Exchange) Market() string { return e.market }

// Symbol is the spot form of the market, e.g. BTC/USDT.
func (e *Exchange) Symbol() string { return e.symbol }

// AddCandle appends a bar; orders fill at the close of the latest bar.
func (e *Exchange) AddCandle(c market.Candle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.candles = append(e.candles, c)
}

// SetCandles replaces the price history, e.g. after the candle file was
// refreshed.
func (e *Exchange) SetCandles(candles []market.Candle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.candles = candles
}

func (e *Exchange) FetchCandles(ctx context.Context, since time.Time) ([]market.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]market.Candle, 0, len(e.candles))
	for _, c := range e.candles {
		if since.IsZero() || !c.Time.Before(since) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (e *Exchange) FetchBalance(ctx context.Context) (broker.Balance, error) {
	if err := ctx.Err(); err != nil {
		return broker.Balance{}, err
	}
	b := e.acct.Balance()
	if err := b.RequireMinimum(e.acct.MinBalance()); err != nil {
		return b, err
	}
	return b, nil
}

func (e *Exchange) PlaceOrder(ctx context.Context, side broker.Side, qty float64) (broker.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return broker.OrderResult{}, err
	}
	if qty <= 0 {
		return broker.OrderResult{}, fmt.Errorf("%w: quantity %.8f", broker.ErrInvalidOrder, qty)
	}
	if side != broker.SideBuy && side != broker.SideSell {
		return broker.OrderResult{}, fmt.Errorf("%w: side %q", broker.ErrInvalidOrder, side)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	last, err := e.lastLocked()
	if err != nil {
		return broker.OrderResult{}, err
	}
	if e.pos != nil && e.pos.side != side {
		return broker.OrderResult{}, fmt.Errorf("%w: %s position open on %s, close it first", broker.ErrInvalidOrder, e.pos.side, e.market)
	}

	price := decimal.NewFromFloat(last.Close)
	amount := decimal.NewFromFloat(qty)
	cost := amount.Mul(price)
	if err := e.acct.lock(cost); err != nil {
		return broker.OrderResult{}, err
	}

	if e.pos == nil {
		e.pos = &position{side: side}
	}
	e.pos.amount = e.pos.amount.Add(amount)
	e.pos.cost = e.pos.cost.Add(cost)

	return e.result(side, last, qty, cost), nil
}

func (e *Exchange) ClosePosition(ctx context.Context) (broker.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return broker.OrderResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pos == nil || !e.pos.amount.IsPositive() {
		return broker.OrderResult{}, fmt.Errorf("%s: %w", e.market, broker.ErrNothingToClose)
	}
	last, err := e.lastLocked()
	if err != nil {
		return broker.OrderResult{}, err
	}

	p := e.pos
	value := p.amount.Mul(decimal.NewFromFloat(last.Close))
	pl := value.Sub(p.cost)
	if p.side == broker.SideSell {
		pl = pl.Neg()
	}
	e.acct.settle(p.cost, pl)
	e.pos = nil

	return e.result(p.side.Opposite(), last, p.amount.InexactFloat64(), value), nil
}

// OpenPosition reports the market's position, if any.
func (e *Exchange) OpenPosition(ctx context.Context) (broker.Position, bool, error) {
	if err := ctx.Err(); err != nil {
		return broker.Position{}, false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pos == nil {
		return broker.Position{}, false, nil
	}
	entry := decimal.Zero
	if e.pos.amount.IsPositive() {
		entry = e.pos.cost.Div(e.pos.amount)
	}
	return broker.Position{
		Side:       e.pos.side,
		Amount:     e.pos.amount.InexactFloat64(),
		EntryPrice: entry.InexactFloat64(),
	}, true, nil
}

// Restore reinstates a position recorded elsewhere, typically the open legs
// found in the journal at startup. Its cost is locked on the account.
func (e *Exchange) Restore(side broker.Side, amount, cost float64) {
	if amount <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	c := decimal.NewFromFloat(cost)
	if e.pos == nil {
		e.pos = &position{side: side}
	}
	e.pos.amount = e.pos.amount.Add(decimal.NewFromFloat(amount))
	e.pos.cost = e.pos.cost.Add(c)
	e.acct.restore(c)
}

func (e *Exchange) lastLocked() (market.Candle, error) {
	if len(e.candles) == 0 {
		return market.Candle{}, fmt.Errorf("%w: no price for %s", broker.ErrExchange, e.market)
	}
	return e.candles[len(e.candles)-1], nil
}

func (e *Exchange) result(side broker.Side, bar market.Candle, qty float64, cost decimal.Decimal) broker.OrderResult {
	ts := bar.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return broker.OrderResult{
		ID:        id.New(),
		Symbol:    e.market,
		Side:      side,
		Price:     bar.Close,
		Amount:    qty,
		Filled:    qty,
		Cost:      cost.Round(8).InexactFloat64(),
		Status:    StatusFilled,
		Timestamp: ts,
	}
}
