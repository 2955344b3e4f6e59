package trader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rustyeddy/turtle/notify"
)

// Builder returns the trader for a ticker.
type Builder func(ticker string) (*Trader, error)

// Runner processes tickers one after another. A failing symbol is logged
// and alerted and does not stop the others.
type Runner struct {
	Build    Builder
	Notifier notify.Notifier
	Log      *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRunner(build Builder, n notify.Notifier, log *slog.Logger) *Runner {
	if n == nil {
		n = notify.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{Build: build, Notifier: n, Log: log, locks: make(map[string]*sync.Mutex)}
}

// lock serializes cycles of one market, so a ledger read always sees the
// previous cycle's committed writes.
func (r *Runner) lock(market string) func() {
	r.mu.Lock()
	if r.locks == nil {
		r.locks = make(map[string]*sync.Mutex)
	}
	m, ok := r.locks[market]
	if !ok {
		m = &sync.Mutex{}
		r.locks[market] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Run executes one cycle per ticker and joins the failures.
func (r *Runner) Run(ctx context.Context, tickers []string) error {
	var errs []error
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := r.RunOne(ctx, ticker)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.Log.Info("cycle done", "market", res.Market, "action", res.Decision.Action, "skipped", res.Skipped)
	}
	return errors.Join(errs...)
}

// RunOne executes one cycle for ticker under its market lock.
func (r *Runner) RunOne(ctx context.Context, ticker string) (Result, error) {
	t, err := r.Build(ticker)
	if err != nil {
		err = fmt.Errorf("%s: %w", ticker, err)
		r.fail(ctx, ticker, err)
		return Result{}, err
	}

	unlock := r.lock(t.Market())
	defer unlock()

	res, err := t.Cycle(ctx)
	if err != nil {
		r.fail(ctx, t.Market(), err)
	}
	return res, err
}

func (r *Runner) fail(ctx context.Context, market string, err error) {
	r.Log.Error("cycle failed", "market", market, "err", err)
	r.Notifier.Error(ctx, fmt.Sprintf("%s cycle failed: %v", market, err))
}
