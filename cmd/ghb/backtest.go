package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/finbolt/ghb/internal/backtest"
	"github.com/finbolt/ghb/internal/config"
	"github.com/finbolt/ghb/internal/core"
	"github.com/finbolt/ghb/internal/export"
	"github.com/finbolt/ghb/internal/logger"
	"github.com/finbolt/ghb/internal/metrics"
	"github.com/finbolt/ghb/internal/pricestore"
	"github.com/finbolt/ghb/internal/scanner"
)

var (
	backtestFrom string
	backtestTo   string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Simulate trading the weekly trend signal over a universe",
	Long:  "Replay the strategy week by week over historical data and export the trade ledger, equity curve, and performance summary",
	RunE:  runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "Start date YYYY-MM-DD (required)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "End date YYYY-MM-DD (required)")

	backtestCmd.MarkFlagRequired("from")
	backtestCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(backtestCmd)
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	fromDate, err := time.Parse("2006-01-02", from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid from date format (expected YYYY-MM-DD): %w", err)
	}
	toDate, err := time.Parse("2006-01-02", to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid to date format (expected YYYY-MM-DD): %w", err)
	}
	if toDate.Before(fromDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date must be after start date")
	}
	return fromDate, toDate, nil
}

// loadUniverse builds the in-memory universe from the configured provider.
func loadUniverse(ctx context.Context, cfg *config.Config, log *zap.Logger) (map[string]core.PriceSeries, error) {
	var provider pricestore.Provider
	switch cfg.Data.Source {
	case "sqlite":
		store, err := pricestore.OpenSQLite(cfg.Data.SQLitePath)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		provider = store
	default:
		provider = pricestore.NewCSVDir(cfg.Data.CSVDir)
	}

	tickers, err := pricestore.LoadUniverse(cfg.Data.UniverseFile)
	if err != nil {
		return nil, fmt.Errorf("loading universe list: %w", err)
	}

	universe := pricestore.Preload(ctx, provider, tickers, cfg.Data.Workers, log)
	if len(universe) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no usable price histories in the universe"))
	}
	log.Info("universe loaded",
		zap.Int("requested", len(tickers)),
		zap.Int("loaded", len(universe)))
	return universe, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fromDate, toDate, err := parseRange(backtestFrom, backtestTo)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	universe, err := loadUniverse(ctx, cfg, log)
	if err != nil {
		return err
	}

	schedule := backtest.Schedule(universe, fromDate, toDate, cfg.Data.MinHistory, cfg.Data.Coverage)
	if len(schedule) == 0 {
		return core.WrapError(core.ErrNoData,
			fmt.Errorf("no eligible Fridays between %s and %s", backtestFrom, backtestTo))
	}

	driver, err := backtest.New(scanner.New(cfg.ClassifierParams(), log), cfg.BacktestConfig())
	if err != nil {
		return err
	}

	observers := backtest.MultiObserver{backtest.ZapObserver{Log: log}}
	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		observers = append(observers, metrics.NewObserver(reg))
	}
	driver.SetObserver(observers)

	started := time.Now()
	result, err := driver.Run(ctx, universe, schedule)
	if err != nil {
		if reg != nil {
			reg.RecordRun("error", time.Since(started))
		}
		return err
	}
	if reg != nil {
		reg.RecordRun("success", time.Since(started))
	}

	fmt.Println("=== GHB Backtest ===")
	fmt.Printf("Run:      %s\n", result.RunID)
	fmt.Printf("Universe: %d tickers, %d simulated weeks\n", len(universe), result.Periods)
	fmt.Println()
	fmt.Println(result.Summary.String())

	storage, err := cfg.Storage()
	if err != nil {
		return fmt.Errorf("opening output storage: %w", err)
	}
	if err := export.New(storage, log).Export(ctx, result); err != nil {
		return fmt.Errorf("exporting run: %w", err)
	}
	fmt.Printf("\nArtifacts written to %s\n", export.RunPath(result.RunID))

	return nil
}
