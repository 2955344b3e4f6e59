package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/turtle/config"
)

var rootCmd = &cobra.Command{
	Use:   "turtle",
	Short: "Turtle channel-breakout position manager",
	Long: `Turtle trades channel breakouts with ATR-based sizing, pyramiding and
fixed stop-losses, one aggregate position per symbol.

It provides tools for:
  - Running a decision cycle across the configured tickers
  - Running cycles on a cron schedule
  - Inspecting open positions, realized P/L and the order journal
  - Generating and validating configuration files

Environment overrides: SLACK_URL, TRADED_TICKERS, TURTLE_DB_DSN.`,
	SilenceUsage: true,
}

var cfgFile string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "f", "", "config file (YAML or JSON); defaults are used when empty")
}

// loadConfig reads the config file, applies environment overrides and
// validates the result.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile, os.LookupEnv)
}
