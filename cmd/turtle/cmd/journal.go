package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/turtle/broker"
	"github.com/rustyeddy/turtle/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the order journal",
	Long: `Query and display records of the order journal.

Subcommands:
  open   - List open legs of a ticker
  pnl    - Show realized P/L of a ticker and in total
  export - Write every record as CSV

Examples:
  turtle journal open BTC
  turtle journal pnl ETH
  turtle journal export -o orders.csv`,
}

var journalOpenCmd = &cobra.Command{
	Use:   "open <ticker>",
	Short: "List open legs of a ticker",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalOpen,
}

var journalPnLCmd = &cobra.Command{
	Use:   "pnl <ticker>",
	Short: "Show realized P/L",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalPnL,
}

var journalExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every record as CSV",
	Args:  cobra.NoArgs,
	RunE:  runJournalExport,
}

var journalExportOutput string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalOpenCmd)
	journalCmd.AddCommand(journalPnLCmd)
	journalCmd.AddCommand(journalExportCmd)

	journalExportCmd.Flags().StringVarP(&journalExportOutput, "output", "o", "", "output file (default stdout)")
}

func runJournalOpen(cmd *cobra.Command, args []string) error {
	a, err := startApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	market := broker.MarketID(args[0], a.cfg.Exchange.Collateral)
	legs, err := a.store.QueryOpenLegs(a.ctx, market)
	if err != nil {
		return fmt.Errorf("query open legs: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatLegsOrg(legs))
	return nil
}

func runJournalPnL(cmd *cobra.Command, args []string) error {
	a, err := startApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	market := broker.MarketID(args[0], a.cfg.Exchange.Collateral)
	sum, err := a.store.SumPnL(a.ctx, market)
	if err != nil {
		return fmt.Errorf("sum pnl: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s P/L = %.2f | Total P/L = %.2f\n", market, sum.Symbol, sum.Total)
	return nil
}

func runJournalExport(cmd *cobra.Command, args []string) error {
	a, err := startApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	legs, err := a.store.ListAll(a.ctx)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}

	w := cmd.OutOrStdout()
	if journalExportOutput != "" {
		f, err := os.Create(journalExportOutput)
		if err != nil {
			return fmt.Errorf("create %s: %w", journalExportOutput, err)
		}
		defer f.Close()
		w = f
	}
	return journal.WriteCSV(w, legs)
}
