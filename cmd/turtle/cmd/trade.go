package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Run one decision cycle for every ticker",
	Long: `Run one turtle decision cycle for each configured ticker, one after
another. A failing ticker is logged and alerted; the others still run and the
command exits non-zero.

Examples:
  turtle trade -f turtle.yaml
  turtle trade --tickers BTC,ETH`,
	RunE: runTrade,
}

var tradeTickers []string

func init() {
	rootCmd.AddCommand(tradeCmd)
	tradeCmd.Flags().StringSliceVarP(&tradeTickers, "tickers", "t", nil, "tickers to trade (overrides config)")
}

func runTrade(cmd *cobra.Command, args []string) error {
	a, err := startApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.runner().Run(a.ctx, a.tickers(tradeTickers)); err != nil {
		return fmt.Errorf("trade: %w", err)
	}
	return nil
}
