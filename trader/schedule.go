package trader

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Schedule runs a full pass over tickers on every tick of spec, a cron
// expression with a seconds field, until ctx is done. A pass still running
// when the next tick fires makes that tick a no-op.
func (r *Runner) Schedule(ctx context.Context, spec string, tickers func() []string) error {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(spec, func() {
		if err := r.Run(ctx, tickers()); err != nil {
			r.Log.Error("scheduled pass failed", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}

	r.Log.Info("scheduler started", "cron", spec)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	r.Log.Info("scheduler stopped")
	return nil
}
