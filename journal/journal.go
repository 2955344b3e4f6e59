// Package journal is the system of record for orders: every position leg
// and every closing order of the turtle engine is one record here.
package journal

import (
	"context"
	"time"
)

// Action is what an order did to the aggregate trade.
type Action string

const (
	ActionLong  Action = "long"
	ActionShort Action = "short"
	ActionClose Action = "close"
)

// IsLong reports whether the action opened a long leg.
func (a Action) IsLong() bool { return a == ActionLong }

// Opposite returns the mirrored trading side.
func (a Action) Opposite() Action {
	switch a {
	case ActionLong:
		return ActionShort
	case ActionShort:
		return ActionLong
	default:
		return a
	}
}

// Status of a record. Legs are opened once and flipped to closed once.
type Status string

const (
	StatusOpen   Status = "opened"
	StatusClosed Status = "closed"
)

// Leg is one filled order. Entry and pyramid orders are open legs of an
// aggregate trade; the order that flattens the aggregate is stored as a
// closed record with action close, the ids of the legs it closed and the
// realized P/L.
type Leg struct {
	ID            string
	OrderID       string
	AggTradeID    string
	Symbol        string
	Action        Action
	Price         float64
	Amount        float64
	Cost          float64
	StopLossPrice float64
	ATR           float64
	FreeBalance   float64
	TotalBalance  float64
	PL            float64
	PLPercent     float64
	Status        Status
	ClosedLegs    []string
	CreatedAt     time.Time
}

// PnLSummary is realized P/L for one symbol and across all symbols.
type PnLSummary struct {
	Symbol float64
	Total  float64
}

// Store is the repository the engine depends on. Implementations must make
// every write durable before returning.
type Store interface {
	// QueryOpenLegs returns open legs of symbol ordered by creation time.
	QueryOpenLegs(ctx context.Context, symbol string) ([]Leg, error)
	// InsertLeg persists one record in its own transaction.
	InsertLeg(ctx context.Context, leg Leg) error
	// MarkLegsClosed flips the status of ids to closed in one transaction.
	MarkLegsClosed(ctx context.Context, ids []string) error
	// CloseAggregate inserts the close record and marks ids closed in one
	// transaction.
	CloseAggregate(ctx context.Context, rec Leg, ids []string) error
	// SumPnL aggregates realized P/L.
	SumPnL(ctx context.Context, symbol string) (PnLSummary, error)
	// ListAll returns every record ordered by creation time.
	ListAll(ctx context.Context) ([]Leg, error)
	Close() error
}
