package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/finbolt/ghb/internal/core"
	"github.com/finbolt/ghb/internal/ledger"
)

// Config holds the run parameters around the ledger's sizing rules.
type Config struct {
	Ledger ledger.Config

	// BuySlippage multiplies the signal price on entries; >1 is an
	// unfavorable fill.
	BuySlippage float64
	// SellSlippage multiplies the signal price on exits; <1 is an
	// unfavorable fill.
	SellSlippage float64
	// MaxSupportDistance filters entry candidates to those within this
	// percentage of the moving average. Zero or negative disables the
	// filter, in which case MaxCandidates caps the ranked list.
	MaxSupportDistance float64
	// MaxCandidates caps the ranked buy list when the distance filter is
	// disabled.
	MaxCandidates int
	// RiskAdjustedSizing shrinks target allocations by the
	// distance-from-support tier table.
	RiskAdjustedSizing bool
	// ExecutionLagDays offsets execution from the signal date: decide
	// Friday, execute Monday.
	ExecutionLagDays int
}

// Validate checks the run configuration, including the embedded ledger
// config.
func (c Config) Validate() error {
	if err := c.Ledger.Validate(); err != nil {
		return err
	}
	if c.BuySlippage <= 0 || c.SellSlippage <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("slippage multipliers must be positive, got buy=%.4f sell=%.4f", c.BuySlippage, c.SellSlippage))
	}
	return nil
}

// Result is the complete output of one backtest run.
type Result struct {
	RunID     string
	StartDate time.Time
	EndDate   time.Time
	Periods   int
	Trades    []ledger.Trade
	Equity    []ledger.EquityPoint
	Summary   Summary
}

// Summary holds the aggregate performance statistics of a finished run.
type Summary struct {
	StartDate  time.Time
	EndDate    time.Time
	TotalWeeks int
	Years      float64

	StartingValue  float64
	FinalValue     float64
	TotalReturnPct float64
	CAGRPct        float64
	MaxDrawdownPct float64 // non-positive; more negative is worse
	SharpeRatio    float64
	SortinoRatio   float64

	TotalTrades          int // completed (SELL) trades
	WinningTrades        int
	LosingTrades         int
	WinRatePct           float64
	AvgWinPct            float64
	AvgLossPct           float64
	AvgTradePct          float64
	ProfitFactor         float64 // +Inf when no losing trades
	BestTradePct         float64
	BestTradeTicker      string
	WorstTradePct        float64
	WorstTradeTicker     string
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
}

// HasTrades reports whether any round trip completed.
func (s Summary) HasTrades() bool {
	return s.TotalTrades > 0
}

// String renders the summary as a fixed-width report block.
func (s Summary) String() string {
	pf := fmt.Sprintf("%.2f", s.ProfitFactor)
	if math.IsInf(s.ProfitFactor, 1) {
		pf = "inf"
	}
	return fmt.Sprintf(
		"Period: %s - %s (%d weeks, %.1f years)\n"+
			"Value: %.2f -> %.2f (%+.2f%%, CAGR %+.2f%%)\n"+
			"Max drawdown: %.2f%%  Sharpe: %.2f\n"+
			"Trades: %d  Win rate: %.1f%%  Profit factor: %s",
		s.StartDate.Format("2006-01-02"), s.EndDate.Format("2006-01-02"),
		s.TotalWeeks, s.Years,
		s.StartingValue, s.FinalValue, s.TotalReturnPct, s.CAGRPct,
		s.MaxDrawdownPct, s.SharpeRatio,
		s.TotalTrades, s.WinRatePct, pf,
	)
}
