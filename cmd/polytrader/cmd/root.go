package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "polytrader",
	Short: "A multi-strategy paper-trading engine for Polymarket binary markets",
	Long: `Polytrader simulates a portfolio of trading strategies against live
Polymarket prices without risking real funds.

Each strategy runs on its own capital account with risk-scaled position
sizing and an independent circuit breaker. One invocation executes one
trading cycle: observe markets, evaluate entries and exits, persist state.

Schedule it with cron for continuous paper trading:
  */30 * * * * polytrader run`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
