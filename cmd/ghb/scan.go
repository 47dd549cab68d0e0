package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/finbolt/ghb/internal/logger"
	"github.com/finbolt/ghb/internal/scanner"
)

var scanAsOf string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Classify the universe as of a date",
	Long:  "Run the weekly-trend classifier across the whole universe and print the signal table",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanAsOf, "as-of", "", "Evaluation date YYYY-MM-DD (default: today)")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if scanAsOf != "" {
		asOf, err = time.Parse("2006-01-02", scanAsOf)
		if err != nil {
			return fmt.Errorf("invalid as-of date format (expected YYYY-MM-DD): %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	universe, err := loadUniverse(ctx, cfg, log)
	if err != nil {
		return err
	}

	table := scanner.New(cfg.ClassifierParams(), log).Scan(universe, asOf)

	fmt.Printf("=== GHB Scan %s ===\n", asOf.Format("2006-01-02"))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tSTATE\tCLOSE\tMA\tROC%\tDIST%")
	for _, sig := range table {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%+.2f\t%+.2f\n",
			sig.Ticker, sig.State, sig.Close, sig.MA, sig.ROC, sig.Distance)
	}
	w.Flush()

	buys := table.BuyCandidates(cfg.Backtest.MaxSupportDistance, cfg.Backtest.MaxCandidates)
	sells := table.SellCandidates()
	fmt.Printf("\n%d signals: %d entry candidates, %d exits\n", len(table), len(buys), len(sells))

	return nil
}
