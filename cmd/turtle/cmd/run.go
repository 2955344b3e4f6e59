package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run decision cycles on a cron schedule",
	Long: `Run a pass over all tickers on every tick of the cron schedule until
interrupted. The schedule has a seconds field; the default runs at 00:05:00
every day, after the daily candle closes.

Examples:
  turtle run -f turtle.yaml
  turtle run --cron "0 */15 * * * *" --now`,
	RunE: runRun,
}

var (
	runCron string
	runNow  bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runCron, "cron", "", "cron schedule with seconds (overrides config)")
	runCmd.Flags().BoolVar(&runNow, "now", false, "run a pass immediately before waiting for the schedule")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	a, err := startApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	spec := a.cfg.Schedule.Cron
	if runCron != "" {
		spec = runCron
	}

	r := a.runner()
	tickers := func() []string { return a.tickers(nil) }
	if runNow {
		if err := r.Run(ctx, tickers()); err != nil && ctx.Err() == nil {
			a.log.Error("initial pass failed", "err", err)
		}
	}
	if err := r.Schedule(ctx, spec, tickers); err != nil {
		return err
	}
	if ctx.Err() == context.Canceled {
		a.log.Info("interrupted")
	}
	return nil
}
