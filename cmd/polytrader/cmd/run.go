package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one trading cycle",
	Long: `Run a single trading cycle: fetch current market prices, record
history, evaluate every strategy's entries and exits, and persist the
results.

The command exits 0 when the cycle completes, including cycles where
market data was unavailable and nothing traded. It exits non-zero only
on configuration or state-store failures.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, store, err := buildEngine()
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := engine.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("cycle failed: %w", err)
	}

	fmt.Printf("Cycle complete: %d markets observed, %d signals, %d opened, %d closed\n",
		report.MarketsObserved, report.SignalsFound, report.Opened, report.Closed)
	if report.StrategiesSkipped > 0 {
		fmt.Printf("  %d strategies locked out by circuit breaker\n", report.StrategiesSkipped)
	}
	return nil
}
