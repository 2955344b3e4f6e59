package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/turtle/broker"
	"github.com/rustyeddy/turtle/broker/paper"
	"github.com/rustyeddy/turtle/config"
	"github.com/rustyeddy/turtle/internal/logging"
	"github.com/rustyeddy/turtle/journal"
	"github.com/rustyeddy/turtle/ledger"
	"github.com/rustyeddy/turtle/market"
	"github.com/rustyeddy/turtle/notify"
	"github.com/rustyeddy/turtle/trader"
)

// app holds the collaborators shared by every ticker of a process.
type app struct {
	ctx      context.Context
	cfg      *config.Config
	tcfg     trader.Config
	log      *slog.Logger
	closers  []io.Closer
	store    journal.Store
	notifier notify.Notifier

	acct      *paper.Account
	mu        sync.Mutex
	exchanges map[string]*paper.Exchange
}

func newApp(ctx context.Context, cfg *config.Config, console io.Writer) (*app, error) {
	log, logCloser, err := logging.NewWithWriter(cfg.Log, console)
	if err != nil {
		return nil, err
	}
	a := &app{
		ctx:       ctx,
		cfg:       cfg,
		log:       log,
		closers:   []io.Closer{logCloser},
		acct:      paper.NewAccount(cfg.Exchange.Collateral, cfg.Exchange.PaperBalance, cfg.Exchange.MinBalance),
		exchanges: make(map[string]*paper.Exchange),
	}

	if a.tcfg, err = cfg.Trader(); err != nil {
		a.Close()
		return nil, err
	}

	if a.store, err = openStore(cfg.Store); err != nil {
		a.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.closers = append(a.closers, a.store)
	if cfg.Store.Driver == "postgres" {
		log.Info("store opened", "driver", cfg.Store.Driver, "dsn", cfg.Store.Postgres.Redacted())
	} else {
		log.Info("store opened", "driver", cfg.Store.Driver, "path", cfg.Store.Path)
	}

	a.notifier = notify.Log{Logger: log}
	if cfg.Notify.SlackURL != "" {
		slack := notify.NewSlack(cfg.Notify.SlackURL, cfg.Notify.Username, "turtle")
		a.notifier = notify.Multi{a.notifier, notify.Wrap(slack, log)}
	}
	return a, nil
}

func openStore(cfg config.StoreConfig) (journal.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return journal.NewSQLite(cfg.Path)
	case "postgres":
		return journal.NewPostgres(cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Close releases the store first and the log file last.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

// build returns the trader for ticker. Paper exchanges are kept for the
// life of the process; candles are reloaded on every build and a new
// exchange is seeded with the open legs found in the journal.
func (a *app) build(ticker string) (*trader.Trader, error) {
	ticker = strings.ToUpper(ticker)
	candles, err := market.LoadCandlesCSV(a.candlePath(ticker))
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	ex, ok := a.exchanges[ticker]
	if !ok {
		ex = paper.NewExchange(a.acct, ticker, a.cfg.Exchange.Collateral, candles)
		a.exchanges[ticker] = ex
	}
	a.mu.Unlock()

	if ok {
		ex.SetCandles(candles)
	} else if err := a.restore(ex); err != nil {
		a.mu.Lock()
		delete(a.exchanges, ticker)
		a.mu.Unlock()
		return nil, err
	}

	return trader.New(a.tcfg, ex, a.store, a.notifier, a.log), nil
}

// candlePath prefers <TICKER>_<timeframe>.csv and falls back to
// <TICKER>.csv.
func (a *app) candlePath(ticker string) string {
	dir := a.cfg.Exchange.CandlesDir
	p := filepath.Join(dir, ticker+"_"+a.cfg.Exchange.Timeframe+".csv")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return filepath.Join(dir, ticker+".csv")
}

func (a *app) restore(ex *paper.Exchange) error {
	l, err := ledger.Load(a.ctx, a.store, ex.Market(), a.tcfg.StoreRetry, a.log)
	if err != nil {
		return fmt.Errorf("restore %s: %w", ex.Market(), err)
	}
	if l.Empty() {
		return nil
	}
	side, err := broker.SideFor(l.Side())
	if err != nil {
		return err
	}
	ex.Restore(side, l.TotalAmount(), l.TotalCost())
	a.log.Info("restored paper position", "market", ex.Market(), "side", side, "amount", l.TotalAmount(), "legs", l.Count())
	return nil
}

func (a *app) runner() *trader.Runner {
	return trader.NewRunner(a.build, a.notifier, a.log)
}

// tickers prefers the command line list over the config.
func (a *app) tickers(flag []string) []string {
	if len(flag) > 0 {
		return config.ParseTickers(strings.Join(flag, ","))
	}
	return config.ParseTickers(strings.Join(a.cfg.Tickers, ","))
}

func startApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return newApp(ctx, cfg, os.Stderr)
}
