// Package strategy decides what the turtle system does with one symbol on
// one cycle, from the latest market snapshot and the open ledger.
package strategy

import (
	"fmt"

	"github.com/rustyeddy/turtle/journal"
	"github.com/rustyeddy/turtle/ledger"
	"github.com/rustyeddy/turtle/market"
	"github.com/rustyeddy/turtle/risk"
)

// Action is the single step chosen for a cycle.
type Action int

const (
	None Action = iota
	EnterLong
	EnterShort
	Pyramid
	Exit
	StopLoss
)

func (a Action) String() string {
	switch a {
	case None:
		return "none"
	case EnterLong:
		return "enter_long"
	case EnterShort:
		return "enter_short"
	case Pyramid:
		return "pyramid"
	case Exit:
		return "exit"
	case StopLoss:
		return "stop_loss"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Opens reports whether the action places a new leg.
func (a Action) Opens() bool { return a == EnterLong || a == EnterShort || a == Pyramid }

// Closes reports whether the action flattens the aggregate.
func (a Action) Closes() bool { return a == Exit || a == StopLoss }

// Decision is the output of Decide. Side is the trading side of the leg
// to open or the aggregate to close, empty for None.
type Decision struct {
	Action Action
	Side   journal.Action
	Reason string
}

func (d Decision) String() string {
	if d.Action == None {
		return d.Action.String()
	}
	return fmt.Sprintf("%s %s: %s", d.Action, d.Side, d.Reason)
}

// Turtle is the channel-breakout state machine. The zero value never
// pyramids.
type Turtle struct {
	PyramidLimit       int
	AggressiveATRRatio float64
}

func New(pyramidLimit int, aggressiveATRRatio float64) Turtle {
	return Turtle{PyramidLimit: pyramidLimit, AggressiveATRRatio: aggressiveATRRatio}
}

// Decide is pure. When flat, an entry breakout fires only if the matching
// exit signal is absent. When a position is open the checks run in order
// exit, pyramid, stop-loss and the first match wins.
func (t Turtle) Decide(s market.Snapshot, l *ledger.Ledger) Decision {
	if l.Empty() {
		return t.flat(s)
	}

	last, _ := l.Last()
	side := l.Side()

	switch side {
	case journal.ActionLong:
		if s.LongExit {
			return Decision{Exit, side, fmt.Sprintf("close %.8f broke exit low %.8f", s.Close, s.ExitLow)}
		}
		if trigger := risk.PyramidTrigger(last, t.AggressiveATRRatio); s.Close >= trigger && l.Count() < t.PyramidLimit {
			return Decision{Pyramid, side, fmt.Sprintf("close %.8f reached pyramid trigger %.8f (%d/%d)", s.Close, trigger, l.Count(), t.PyramidLimit)}
		}
		if s.Close <= last.StopLossPrice {
			return Decision{StopLoss, side, fmt.Sprintf("close %.8f at or below stop %.8f", s.Close, last.StopLossPrice)}
		}

	case journal.ActionShort:
		if s.ShortExit {
			return Decision{Exit, side, fmt.Sprintf("close %.8f broke exit high %.8f", s.Close, s.ExitHigh)}
		}
		if trigger := risk.PyramidTrigger(last, t.AggressiveATRRatio); s.Close <= trigger && l.Count() < t.PyramidLimit {
			return Decision{Pyramid, side, fmt.Sprintf("close %.8f reached pyramid trigger %.8f (%d/%d)", s.Close, trigger, l.Count(), t.PyramidLimit)}
		}
		if s.Close >= last.StopLossPrice {
			return Decision{StopLoss, side, fmt.Sprintf("close %.8f at or above stop %.8f", s.Close, last.StopLossPrice)}
		}
	}

	return Decision{Action: None}
}

func (t Turtle) flat(s market.Snapshot) Decision {
	switch {
	case s.LongEntry && !s.LongExit:
		return Decision{EnterLong, journal.ActionLong, fmt.Sprintf("close %.8f broke entry high %.8f", s.Close, s.EntryHigh)}
	case s.ShortEntry && !s.ShortExit:
		return Decision{EnterShort, journal.ActionShort, fmt.Sprintf("close %.8f broke entry low %.8f", s.Close, s.EntryLow)}
	default:
		return Decision{Action: None}
	}
}
