// Package broker defines the exchange collaborator the turtle engine trades
// through. One Exchange is bound to one market.
package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/turtle/journal"
	"github.com/rustyeddy/turtle/market"
)

type Exchange interface {
	// Market is the stable key of the symbol and market, used to scope
	// ledger queries.
	Market() string
	FetchCandles(ctx context.Context, since time.Time) ([]market.Candle, error)
	// FetchBalance fails with ErrInsufficientBalance when the free collateral
	// is below the configured minimum.
	FetchBalance(ctx context.Context) (Balance, error)
	PlaceOrder(ctx context.Context, side Side, qty float64) (OrderResult, error)
	// ClosePosition flattens the whole position with a reduce-only order. It
	// fails with ErrNothingToClose when the exchange holds no position.
	ClosePosition(ctx context.Context) (OrderResult, error)
}

// PositionReader is implemented by exchanges that expose their open
// position, so entries can be checked against the exchange side too.
type PositionReader interface {
	OpenPosition(ctx context.Context) (Position, bool, error)
}

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// SideFor maps a position action to the order side that opens it.
func SideFor(a journal.Action) (Side, error) {
	switch a {
	case journal.ActionLong:
		return SideBuy, nil
	case journal.ActionShort:
		return SideSell, nil
	default:
		return "", fmt.Errorf("%w: no order side for action %q", ErrInvalidOrder, a)
	}
}

// ActionFor maps an order side back to the position it opens.
func ActionFor(s Side) journal.Action {
	if s == SideSell {
		return journal.ActionShort
	}
	return journal.ActionLong
}

type Balance struct {
	Asset string
	Free  float64
	Total float64
}

// RequireMinimum returns ErrInsufficientBalance when free is below min.
func (b Balance) RequireMinimum(min float64) error {
	if b.Free < min {
		return fmt.Errorf("%w: free %s %.2f below minimum %.2f", ErrInsufficientBalance, b.Asset, b.Free, min)
	}
	return nil
}

// OrderResult is the exchange's report of a submitted order.
type OrderResult struct {
	ID        string
	Symbol    string
	Side      Side
	Price     float64 // average fill price
	Amount    float64 // requested quantity
	Filled    float64 // filled quantity
	Cost      float64 // filled * price in collateral
	Status    string
	Timestamp time.Time
}

// IsFilled reports whether any quantity was executed.
func (o OrderResult) IsFilled() bool { return o.Filled > 0 }

type Position struct {
	Side       Side
	Amount     float64
	EntryPrice float64
}

// Symbol is the spot form of a ticker, e.g. BTC/USDT.
func Symbol(ticker, collateral string) string {
	return strings.ToUpper(ticker) + "/" + strings.ToUpper(collateral)
}

// MarketID is the settled futures key of a ticker, e.g. BTC/USDT:USDT.
func MarketID(ticker, collateral string) string {
	c := strings.ToUpper(collateral)
	return Symbol(ticker, c) + ":" + c
}
