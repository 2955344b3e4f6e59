// Package trader runs turtle decision cycles against an exchange and a
// journal store.
package trader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/turtle/broker"
	"github.com/rustyeddy/turtle/indicators"
	"github.com/rustyeddy/turtle/internal/retry"
	"github.com/rustyeddy/turtle/journal"
	"github.com/rustyeddy/turtle/ledger"
	"github.com/rustyeddy/turtle/market"
	"github.com/rustyeddy/turtle/notify"
	"github.com/rustyeddy/turtle/pkg/id"
	"github.com/rustyeddy/turtle/risk"
	"github.com/rustyeddy/turtle/strategy"
)

// ErrConflictingPosition is returned when an entry would open a second
// aggregate trade on a symbol.
var ErrConflictingPosition = errors.New("conflicting open position")

// Config holds the strategy parameters of one trader.
type Config struct {
	Indicators   indicators.Params
	Risk         risk.Policy
	PyramidLimit int
	// Candles are fetched since now minus HistoryDays; 0 fetches all.
	HistoryDays int

	ExchangeRetry retry.Policy
	StoreRetry    retry.Policy
}

// DefaultExchangeRetry retries network and exchange errors 5 times.
func DefaultExchangeRetry() retry.Policy {
	return retry.Exponential("exchange", 5, 1500*time.Millisecond, 30*time.Second, broker.IsTransient)
}

// DefaultStoreRetry retries transient store errors 5 times.
func DefaultStoreRetry() retry.Policy {
	return retry.Exponential("store", 5, 2*time.Second, 30*time.Second, journal.IsTransient)
}

func DefaultConfig() Config {
	return Config{
		Indicators:    indicators.DefaultParams(),
		Risk:          risk.DefaultPolicy(),
		PyramidLimit:  4,
		HistoryDays:   70,
		ExchangeRetry: DefaultExchangeRetry(),
		StoreRetry:    DefaultStoreRetry(),
	}
}

// Trader executes the turtle system for the single market of its exchange.
type Trader struct {
	cfg      Config
	exchange broker.Exchange
	store    journal.Store
	notifier notify.Notifier
	log      *slog.Logger

	turtle strategy.Turtle
	sizer  risk.Sizer

	// Now is the clock used for candle windows and record timestamps.
	Now func() time.Time
}

func New(cfg Config, ex broker.Exchange, store journal.Store, n notify.Notifier, log *slog.Logger) *Trader {
	if n == nil {
		n = notify.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Trader{
		cfg:      cfg,
		exchange: ex,
		store:    store,
		notifier: n,
		log:      log.With("market", ex.Market()),
		turtle:   strategy.New(cfg.PyramidLimit, cfg.Risk.AggressiveATRRatio),
		sizer:    risk.NewSizer(cfg.Risk),
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

func (t *Trader) Market() string { return t.exchange.Market() }

// Result reports what one cycle did. Order is set when the exchange
// returned an order, Leg when a record was persisted, Skipped when an
// opening or closing action ended as a no-op.
type Result struct {
	Market   string
	Snapshot market.Snapshot
	Decision strategy.Decision
	Order    *broker.OrderResult
	Leg      *journal.Leg
	PnL      *PnL
	Skipped  string
}

// Cycle runs one decision cycle: fetch candles, compute the snapshot, load
// the ledger, decide and execute. Every write is committed before Cycle
// returns.
func (t *Trader) Cycle(ctx context.Context) (Result, error) {
	res := Result{Market: t.Market()}

	snap, err := t.Snapshot(ctx)
	if err != nil {
		return res, err
	}
	res.Snapshot = snap

	l, err := t.loadLedger(ctx)
	if err != nil {
		return res, err
	}

	d := t.turtle.Decide(snap, l)
	res.Decision = d
	t.log.Info("decision", "action", d.Action, "side", d.Side, "reason", d.Reason, "legs", l.Count())

	switch d.Action {
	case strategy.None:
		return res, nil
	case strategy.EnterLong, strategy.EnterShort:
		if !l.Empty() {
			return res, fmt.Errorf("%s: %w: %d %s legs open", t.Market(), ErrConflictingPosition, l.Count(), l.Side())
		}
		return t.Enter(ctx, res, l, d.Side)
	case strategy.Pyramid:
		return t.Enter(ctx, res, l, d.Side)
	case strategy.Exit, strategy.StopLoss:
		return t.Exit(ctx, res, l)
	default:
		return res, fmt.Errorf("%s: unhandled action %s", t.Market(), d.Action)
	}
}

func (t *Trader) loadLedger(ctx context.Context) (*ledger.Ledger, error) {
	return ledger.Load(ctx, t.store, t.Market(), t.cfg.StoreRetry, t.log)
}

// Snapshot computes the current market snapshot from the candle window.
func (t *Trader) Snapshot(ctx context.Context) (market.Snapshot, error) {
	var since time.Time
	if t.cfg.HistoryDays > 0 {
		since = t.Now().AddDate(0, 0, -t.cfg.HistoryDays)
	}

	candles, err := retry.Value(ctx, t.cfg.ExchangeRetry, func(ctx context.Context) ([]market.Candle, error) {
		return t.exchange.FetchCandles(ctx, since)
	})
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("%s: fetch candles: %w", t.Market(), err)
	}

	snap, err := indicators.Latest(candles, t.cfg.Indicators)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("%s: %w", t.Market(), err)
	}
	t.log.Info("market conditions", "candles", len(candles), "snapshot", snap)
	return snap, nil
}

// Enter sizes and places one leg on side, joining the ledger's aggregate
// trade if one is open. Sizing rejections are no-ops.
func (t *Trader) Enter(ctx context.Context, res Result, l *ledger.Ledger, side journal.Action) (Result, error) {
	if !l.Empty() && l.Side() == side.Opposite() {
		return res, fmt.Errorf("%s: %w: %s aggregate open, refusing %s leg", t.Market(), ErrConflictingPosition, l.Side(), side)
	}
	if err := t.checkExchangePosition(ctx, l, side); err != nil {
		return res, err
	}

	orderSide, err := broker.SideFor(side)
	if err != nil {
		return res, err
	}

	bal, err := retry.Value(ctx, t.cfg.ExchangeRetry, t.exchange.FetchBalance)
	if err != nil {
		return res, fmt.Errorf("%s: fetch balance: %w", t.Market(), err)
	}

	req := risk.Request{
		FreeBalance:  bal.Free,
		TotalBalance: bal.Total,
		ATR:          res.Snapshot.ATR,
	}
	if first, ok := l.First(); ok {
		req.Exposure = risk.Exposure{
			Legs:             l.Count(),
			FirstFreeBalance: first.FreeBalance,
			OpenCost:         l.TotalCost(),
		}
	}

	out := t.sizer.Size(req)
	if !out.Sized {
		err := out.Err()
		t.log.Warn("sizing rejected", "reason", out.Reason, "err", err, "allocation", out.Allocation)
		if errors.Is(err, risk.ErrAllocationExceeded) {
			t.notifier.Warning(ctx, fmt.Sprintf("%s %s skipped: %s", t.Market(), side, out.Msg))
		}
		res.Skipped = string(out.Reason)
		return res, nil
	}
	if out.FreeBalance < bal.Free {
		t.log.Info("free balance limited to first leg", "free", bal.Free, "limited", out.FreeBalance)
	}

	t.log.Info("placing order", "side", orderSide, "amount", out.Units)
	order, err := retry.Value(ctx, t.cfg.ExchangeRetry, func(ctx context.Context) (broker.OrderResult, error) {
		return t.exchange.PlaceOrder(ctx, orderSide, out.Units)
	})
	if err != nil {
		return res, fmt.Errorf("%s: place %s order: %w", t.Market(), orderSide, err)
	}
	res.Order = &order
	if !order.IsFilled() {
		t.log.Warn("order not filled", "order_id", order.ID, "status", order.Status)
		res.Skipped = "unfilled"
		return res, nil
	}

	agg := l.AggTradeID()
	if agg == "" {
		agg = id.NewAggregate()
	}
	now := t.Now()
	leg := journal.Leg{
		ID:            id.At(now),
		OrderID:       order.ID,
		AggTradeID:    agg,
		Symbol:        t.Market(),
		Action:        side,
		Price:         order.Price,
		Amount:        order.Filled,
		Cost:          order.Cost,
		StopLossPrice: risk.StopLoss(side, res.Snapshot.Close, t.sizer.StopDistance(res.Snapshot.ATR)),
		ATR:           res.Snapshot.ATR,
		FreeBalance:   out.FreeBalance,
		TotalBalance:  bal.Total,
		Status:        journal.StatusOpen,
		CreatedAt:     now,
	}

	if err := t.cfg.StoreRetry.Do(ctx, func(ctx context.Context) error {
		return t.store.InsertLeg(ctx, leg)
	}); err != nil {
		return res, fmt.Errorf("%s: save leg for order %s: %w", t.Market(), order.ID, err)
	}
	res.Leg = &leg

	t.log.Info("leg opened", "id", leg.ID, "agg_trade_id", leg.AggTradeID, "side", side,
		"price", leg.Price, "amount", leg.Amount, "cost", leg.Cost, "stop_loss", leg.StopLossPrice, "legs", l.Count()+1)
	t.notifier.Info(ctx, fmt.Sprintf("%s %s %.8f @ %.8f, stop %.8f (leg %d, %s)",
		t.Market(), side, leg.Amount, leg.Price, leg.StopLossPrice, l.Count()+1, leg.AggTradeID))
	return res, nil
}

// checkExchangePosition refuses a fresh entry when the exchange already
// holds a position the journal knows nothing about.
func (t *Trader) checkExchangePosition(ctx context.Context, l *ledger.Ledger, side journal.Action) error {
	pr, ok := t.exchange.(broker.PositionReader)
	if !ok || !l.Empty() {
		return nil
	}
	pos, err := retry.Value(ctx, t.cfg.ExchangeRetry, func(ctx context.Context) (positionState, error) {
		p, open, err := pr.OpenPosition(ctx)
		return positionState{p, open}, err
	})
	if err != nil {
		return fmt.Errorf("%s: read position: %w", t.Market(), err)
	}
	if pos.open {
		held := broker.ActionFor(pos.Side)
		t.notifier.Error(ctx, fmt.Sprintf("%s: exchange holds a %s position of %.8f but the journal is flat", t.Market(), held, pos.Amount))
		return fmt.Errorf("%s: %w: exchange %s %.8f, entry %s", t.Market(), ErrConflictingPosition, held, pos.Amount, side)
	}
	return nil
}

// Exit flattens the aggregate trade, records the close with its P/L and
// closes every open leg in one store transaction.
func (t *Trader) Exit(ctx context.Context, res Result, l *ledger.Ledger) (Result, error) {
	if l.Empty() {
		res.Skipped = "flat"
		return res, nil
	}

	t.log.Info("closing position", "side", l.Side(), "legs", l.Count(), "agg_trade_id", l.AggTradeID())
	order, err := retry.Value(ctx, t.cfg.ExchangeRetry, t.exchange.ClosePosition)
	if errors.Is(err, broker.ErrNothingToClose) {
		t.log.Warn("exchange has nothing to close", "legs", l.Count(), "agg_trade_id", l.AggTradeID())
		t.notifier.Warning(ctx, fmt.Sprintf("%s: journal has %d open %s legs but the exchange has nothing to close",
			t.Market(), l.Count(), l.Side()))
		res.Skipped = "nothing to close"
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("%s: close position: %w", t.Market(), err)
	}
	res.Order = &order
	if !order.IsFilled() {
		t.log.Warn("close order not filled", "order_id", order.ID, "status", order.Status)
		res.Skipped = "unfilled"
		return res, nil
	}

	pnl := CalculatePnL(l.Side(), l.TotalCost(), order.Cost)
	res.PnL = &pnl

	now := t.Now()
	rec := journal.Leg{
		ID:         id.At(now),
		OrderID:    order.ID,
		AggTradeID: l.AggTradeID(),
		Symbol:     t.Market(),
		Action:     journal.ActionClose,
		Price:      order.Price,
		Amount:     order.Filled,
		Cost:       order.Cost,
		ATR:        res.Snapshot.ATR,
		PL:         pnl.Amount,
		PLPercent:  pnl.Percent,
		Status:     journal.StatusClosed,
		ClosedLegs: l.IDs(),
		CreatedAt:  now,
	}
	if bal, err := retry.Value(ctx, t.cfg.ExchangeRetry, t.exchange.FetchBalance); err == nil || errors.Is(err, broker.ErrInsufficientBalance) {
		rec.FreeBalance, rec.TotalBalance = bal.Free, bal.Total
	} else {
		t.log.Warn("balance after close unavailable", "err", err)
	}

	if err := t.cfg.StoreRetry.Do(ctx, func(ctx context.Context) error {
		return t.store.CloseAggregate(ctx, rec, l.IDs())
	}); err != nil {
		return res, fmt.Errorf("%s: save close of %s: %w", t.Market(), l.AggTradeID(), err)
	}
	res.Leg = &rec

	t.log.Info("position closed", "agg_trade_id", rec.AggTradeID, "price", rec.Price, "cost", rec.Cost,
		"pl", pnl.Amount, "pl_percent", pnl.Percent, "closed_legs", len(rec.ClosedLegs))
	t.notifier.Info(ctx, fmt.Sprintf("%s %s closed @ %.8f: P/L %.2f (%.2f%%)",
		t.Market(), l.Side(), rec.Price, pnl.Amount, pnl.Percent))
	t.reportPnL(ctx)
	return res, nil
}

func (t *Trader) reportPnL(ctx context.Context) {
	sum, err := retry.Value(ctx, t.cfg.StoreRetry, func(ctx context.Context) (journal.PnLSummary, error) {
		return t.store.SumPnL(ctx, t.Market())
	})
	if err != nil {
		t.log.Warn("p/l summary unavailable", "err", err)
		return
	}
	msg := fmt.Sprintf("%s P/L = %.2f | Total P/L = %.2f", t.Market(), sum.Symbol, sum.Total)
	t.log.Info(msg)
	t.notifier.Info(ctx, msg)
}

type positionState struct {
	broker.Position
	open bool
}
