package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-strategy balances and open positions",
	Long: `Display the current paper-trading state: each strategy's balance,
realized profit, win/loss streaks, circuit breaker lockouts, and every
open position. Reads the state store without modifying it.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	engine, store, err := buildEngine()
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := engine.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}

	fmt.Println("Strategy accounts:")
	for _, s := range report.Strategies {
		fmt.Printf("  %-16s balance %8.2f  pnl %+8.2f  streak W%d/L%d  open %d  closed %d  win %3.0f%%",
			s.Name, s.Balance, s.RealizedPnL, s.ConsecutiveWins, s.ConsecutiveLosses,
			s.OpenPositions, s.ClosedTrades, s.WinRate*100)
		if s.Locked {
			fmt.Printf("  LOCKED until %s", s.LockedUntil.Format(time.RFC822))
		}
		fmt.Println()
	}
	fmt.Printf("Total: balance %.2f, realized pnl %+.2f\n", report.TotalBalance, report.TotalPnL)

	if len(report.OpenPositions) > 0 {
		fmt.Println("\nOpen positions:")
		for _, pos := range report.OpenPositions {
			fmt.Printf("  %s  %-16s entry %.3f  stake %.2f  %s  %s\n",
				pos.ID, pos.Strategy, pos.EntryPrice, pos.Stake,
				pos.EntryTime.Format("2006-01-02 15:04"), pos.Question)
		}
	}
	return nil
}
