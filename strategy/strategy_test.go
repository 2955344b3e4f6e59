package strategy

import (
	"testing"

	"github.com/rustyeddy/turtle/journal"
	"github.com/rustyeddy/turtle/ledger"
	"github.com/rustyeddy/turtle/market"
	"github.com/stretchr/testify/assert"
)

func snap(close float64) market.Snapshot {
	return market.Snapshot{Candle: market.Candle{Close: close}, ATR: 5}
}

func openLedger(side journal.Action, n int, price, atr, stop float64) *ledger.Ledger {
	l := &ledger.Ledger{Symbol: "BTC"}
	for i := 0; i < n; i++ {
		l.Legs = append(l.Legs, journal.Leg{
			ID:            string(rune('A' + i)),
			AggTradeID:    "agg",
			Symbol:        "BTC",
			Action:        side,
			Price:         price,
			ATR:           atr,
			StopLossPrice: stop,
			Status:        journal.StatusOpen,
		})
	}
	return l
}

func TestDecideFlat(t *testing.T) {
	t.Parallel()

	turtle := New(4, 0.02)
	tests := []struct {
		name string
		s    func() market.Snapshot
		want Action
		side journal.Action
	}{
		{"no signal", func() market.Snapshot { return snap(100) }, None, ""},
		{"long entry", func() market.Snapshot { s := snap(100); s.LongEntry = true; return s }, EnterLong, journal.ActionLong},
		{"short entry", func() market.Snapshot { s := snap(100); s.ShortEntry = true; return s }, EnterShort, journal.ActionShort},
		{"long entry vetoed by exit", func() market.Snapshot {
			s := snap(100)
			s.LongEntry, s.LongExit = true, true
			return s
		}, None, ""},
		{"short entry vetoed by exit", func() market.Snapshot {
			s := snap(100)
			s.ShortEntry, s.ShortExit = true, true
			return s
		}, None, ""},
		{"exit alone keeps flat", func() market.Snapshot { s := snap(100); s.LongExit = true; return s }, None, ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := turtle.Decide(tt.s(), &ledger.Ledger{Symbol: "BTC"})
			assert.Equal(t, tt.want, d.Action)
			assert.Equal(t, tt.side, d.Side)
		})
	}
}

func TestDecideLongPrecedence(t *testing.T) {
	t.Parallel()

	turtle := New(4, 0.02)
	// last leg at 100 with atr 5: pyramid trigger 105, stop 90.
	l := openLedger(journal.ActionLong, 1, 100, 5, 90)

	s := snap(106)
	s.LongExit = true
	assert.Equal(t, Exit, turtle.Decide(s, l).Action, "exit beats pyramid")

	s = snap(106)
	d := turtle.Decide(s, l)
	assert.Equal(t, Pyramid, d.Action)
	assert.Equal(t, journal.ActionLong, d.Side)

	assert.Equal(t, Pyramid, turtle.Decide(snap(105), l).Action, "trigger is inclusive")
	assert.Equal(t, None, turtle.Decide(snap(104), l).Action)
	assert.Equal(t, StopLoss, turtle.Decide(snap(90), l).Action)
	assert.Equal(t, StopLoss, turtle.Decide(snap(80), l).Action)

	s = snap(80)
	s.LongExit = true
	assert.Equal(t, Exit, turtle.Decide(s, l).Action, "exit beats stop-loss")
}

func TestDecideShortMirrors(t *testing.T) {
	t.Parallel()

	turtle := New(4, 0.02)
	// last leg at 100 with atr 5: pyramid trigger 95, stop 110.
	l := openLedger(journal.ActionShort, 2, 100, 5, 110)

	s := snap(94)
	s.ShortExit = true
	assert.Equal(t, Exit, turtle.Decide(s, l).Action)

	d := turtle.Decide(snap(95), l)
	assert.Equal(t, Pyramid, d.Action)
	assert.Equal(t, journal.ActionShort, d.Side)

	assert.Equal(t, None, turtle.Decide(snap(96), l).Action)
	assert.Equal(t, StopLoss, turtle.Decide(snap(110), l).Action)

	// A long exit signal is irrelevant to a short aggregate.
	s = snap(100)
	s.LongExit = true
	assert.Equal(t, None, turtle.Decide(s, l).Action)
}

func TestDecidePyramidLimit(t *testing.T) {
	t.Parallel()

	turtle := New(4, 0.02)
	assert.Equal(t, Pyramid, turtle.Decide(snap(120), openLedger(journal.ActionLong, 3, 100, 5, 90)).Action)
	assert.Equal(t, None, turtle.Decide(snap(120), openLedger(journal.ActionLong, 4, 100, 5, 90)).Action)

	var zero Turtle
	assert.Equal(t, None, zero.Decide(snap(120), openLedger(journal.ActionLong, 1, 100, 5, 90)).Action)
}

func TestDecideAggressivePyramid(t *testing.T) {
	t.Parallel()

	turtle := New(4, 0.02)
	// atr/price = 1%: trigger halves to 100.5.
	l := openLedger(journal.ActionLong, 1, 100, 1, 90)
	assert.Equal(t, Pyramid, turtle.Decide(snap(100.5), l).Action)
	assert.Equal(t, None, turtle.Decide(snap(100.4), l).Action)
}

func TestDecideEntrySignalsIgnoredWhenOpen(t *testing.T) {
	t.Parallel()

	turtle := New(4, 0.02)
	l := openLedger(journal.ActionLong, 4, 100, 5, 90)
	s := snap(100)
	s.ShortEntry = true
	s.LongEntry = true
	assert.Equal(t, None, turtle.Decide(s, l).Action)
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "pyramid", Pyramid.String())
	assert.Equal(t, "stop_loss", StopLoss.String())
	assert.Equal(t, "action(42)", Action(42).String())
	assert.True(t, EnterShort.Opens())
	assert.True(t, StopLoss.Closes())
	assert.False(t, None.Opens() || None.Closes())
	assert.Equal(t, "none", Decision{}.String())
}
