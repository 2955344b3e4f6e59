// Package indicators turns a candle history into turtle-trading snapshots:
// average true range, entry/exit channels and breakout signals.
package indicators

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/turtle/market"
)

// ErrInsufficientHistory is returned when there are no candles to enrich.
var ErrInsufficientHistory = errors.New("insufficient candle history")

// Params are the window lengths of the turtle system.
type Params struct {
	ATRPeriod   int // volatility period N
	EntryWindow int // breakout channel E
	ExitWindow  int // exit channel X
}

// DefaultParams is the classic 20/20/10 turtle system.
func DefaultParams() Params {
	return Params{ATRPeriod: 20, EntryWindow: 20, ExitWindow: 10}
}

// Enrich returns one snapshot per input candle (oldest first).
//
// Signals compare the current bar against the previous bar's channel so a
// bar never breaks out of a channel it is itself part of:
//
//	long-entry  := high > prevEntryHigh
//	short-entry := low  < prevEntryLow
//	long-exit   := low  < prevExitLow
//	short-exit  := high > prevExitHigh
//
// The first bar has no previous channel and carries no signals.
func Enrich(candles []market.Candle, p Params) ([]market.Snapshot, error) {
	if len(candles) == 0 {
		return nil, ErrInsufficientHistory
	}

	atr, err := ATR(candles, p.ATRPeriod)
	if err != nil {
		return nil, fmt.Errorf("atr: %w", err)
	}
	entry, err := NewChannel(candles, p.EntryWindow)
	if err != nil {
		return nil, fmt.Errorf("entry channel: %w", err)
	}
	exit, err := NewChannel(candles, p.ExitWindow)
	if err != nil {
		return nil, fmt.Errorf("exit channel: %w", err)
	}

	out := make([]market.Snapshot, len(candles))
	for i, c := range candles {
		s := market.Snapshot{
			Candle:    c,
			ATR:       atr[i],
			EntryHigh: entry.High[i],
			EntryLow:  entry.Low[i],
			ExitHigh:  exit.High[i],
			ExitLow:   exit.Low[i],
		}
		if i > 0 {
			s.LongEntry = c.High > entry.High[i-1]
			s.ShortEntry = c.Low < entry.Low[i-1]
			s.LongExit = c.Low < exit.Low[i-1]
			s.ShortExit = c.High > exit.High[i-1]
		}
		out[i] = s
	}
	return out, nil
}

// Latest enriches the history and returns the most recent snapshot.
func Latest(candles []market.Candle, p Params) (market.Snapshot, error) {
	snaps, err := Enrich(candles, p)
	if err != nil {
		return market.Snapshot{}, err
	}
	return snaps[len(snaps)-1], nil
}
