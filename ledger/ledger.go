// Package ledger models the open legs of one symbol's aggregate trade.
package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rustyeddy/turtle/internal/retry"
	"github.com/rustyeddy/turtle/journal"
)

// Ledger is the in-memory view of a symbol's open legs for one cycle,
// ordered by creation time. An empty ledger means the symbol is flat.
type Ledger struct {
	Symbol string
	Legs   []journal.Leg
}

// Load reads the open legs of symbol from the store, retrying transient
// store errors under policy.
func Load(ctx context.Context, store journal.Store, symbol string, policy retry.Policy, log *slog.Logger) (*Ledger, error) {
	log.Debug("loading open legs", "symbol", symbol)

	legs, err := retry.Value(ctx, policy, func(ctx context.Context) ([]journal.Leg, error) {
		return store.QueryOpenLegs(ctx, symbol)
	})
	if err != nil {
		return nil, fmt.Errorf("load ledger %s: %w", symbol, err)
	}

	l := &Ledger{Symbol: symbol, Legs: legs}
	if err := l.Validate(); err != nil {
		return nil, err
	}

	if l.Empty() {
		log.Info("no open legs", "symbol", symbol)
	} else {
		log.Info("open legs", "symbol", symbol, "count", l.Count(), "side", l.Side(), "agg_trade_id", l.AggTradeID())
	}
	return l, nil
}

// Validate checks that every leg belongs to the same aggregate trade and side.
func (l *Ledger) Validate() error {
	if l.Empty() {
		return nil
	}
	first := l.Legs[0]
	for _, leg := range l.Legs[1:] {
		if leg.Action != first.Action || leg.AggTradeID != first.AggTradeID {
			return fmt.Errorf("ledger %s: leg %s (%s/%s) does not match aggregate %s/%s",
				l.Symbol, leg.ID, leg.Action, leg.AggTradeID, first.Action, first.AggTradeID)
		}
	}
	return nil
}

func (l *Ledger) Empty() bool { return l == nil || len(l.Legs) == 0 }

// Count is the number of open legs.
func (l *Ledger) Count() int {
	if l == nil {
		return 0
	}
	return len(l.Legs)
}

// IDs returns the record ids of the open legs.
func (l *Ledger) IDs() []string {
	if l.Empty() {
		return nil
	}
	ids := make([]string, len(l.Legs))
	for i, leg := range l.Legs {
		ids[i] = leg.ID
	}
	return ids
}

// Last is the most recently opened leg. It represents the aggregate for
// pyramid price, ATR and stop-loss checks.
func (l *Ledger) Last() (journal.Leg, bool) {
	if l.Empty() {
		return journal.Leg{}, false
	}
	return l.Legs[len(l.Legs)-1], true
}

// First is the leg that opened the aggregate trade.
func (l *Ledger) First() (journal.Leg, bool) {
	if l.Empty() {
		return journal.Leg{}, false
	}
	return l.Legs[0], true
}

// Side is the action of the aggregate, empty when flat.
func (l *Ledger) Side() journal.Action {
	if leg, ok := l.First(); ok {
		return leg.Action
	}
	return ""
}

// AggTradeID is the id shared by all open legs, empty when flat.
func (l *Ledger) AggTradeID() string {
	if leg, ok := l.First(); ok {
		return leg.AggTradeID
	}
	return ""
}

// TotalCost is the cost basis of the aggregate.
func (l *Ledger) TotalCost() float64 {
	if l == nil {
		return 0
	}
	sum := 0.0
	for _, leg := range l.Legs {
		sum += leg.Cost
	}
	return sum
}

// TotalAmount is the open quantity of the aggregate.
func (l *Ledger) TotalAmount() float64 {
	if l == nil {
		return 0
	}
	sum := 0.0
	for _, leg := range l.Legs {
		sum += leg.Amount
	}
	return sum
}
