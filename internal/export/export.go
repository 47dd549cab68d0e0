// Package export renders a finished backtest into its boundary formats
// (trade-ledger CSV, equity-curve CSV, summary JSON) and writes them
// through a Storage backend, either a local directory or S3.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/finbolt/ghb/internal/backtest"
	"github.com/finbolt/ghb/internal/core"
	"github.com/finbolt/ghb/internal/ledger"
)

const dateFormat = "2006-01-02"

// Exporter writes run artifacts under runs/<run-id>/.
type Exporter struct {
	storage Storage
	log     *zap.Logger
}

// New creates an Exporter. A nil logger disables logging.
func New(storage Storage, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{storage: storage, log: log}
}

// Export writes the trade ledger, equity curve, and summary for one run.
func (e *Exporter) Export(ctx context.Context, result *backtest.Result) error {
	artifacts := map[string][]byte{
		"trades.csv":   TradesCSV(result.Trades),
		"equity.csv":   EquityCSV(result.Equity),
		"summary.json": nil,
	}
	summary, err := SummaryJSON(result.Summary)
	if err != nil {
		return fmt.Errorf("rendering summary: %w", err)
	}
	artifacts["summary.json"] = summary

	for _, name := range []string{"trades.csv", "equity.csv", "summary.json"} {
		path := fmt.Sprintf("runs/%s/%s", result.RunID, name)
		if err := e.storage.Write(ctx, path, artifacts[name]); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		e.log.Debug("wrote artifact", zap.String("path", path))
	}

	e.log.Info("exported backtest run",
		zap.String("run_id", result.RunID),
		zap.Int("trades", len(result.Trades)),
		zap.Int("periods", len(result.Equity)))
	return nil
}

// TradesCSV renders the trade ledger, one row per trade. SELL rows carry
// the round-trip columns; BUY rows leave them blank.
func TradesCSV(trades []ledger.Trade) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{
		"Date", "Ticker", "Action", "Shares", "Price", "Value", "State",
		"Entry_Date", "Entry_Price", "Entry_State", "Hold_Days",
		"PnL_$", "PnL_%", "Portfolio_Value",
	})

	for _, t := range trades {
		row := []string{
			t.Date.Format(dateFormat),
			t.Ticker,
			string(t.Action),
			strconv.FormatInt(t.Shares, 10),
			money(t.Price),
			money(t.Value),
			string(t.State),
			"", "", "", "", "", "",
			money(t.PortfolioValue),
		}
		if t.Action == core.ActionSell {
			row[7] = t.EntryDate.Format(dateFormat)
			row[8] = money(t.EntryPrice)
			row[9] = string(t.EntryState)
			row[10] = strconv.Itoa(t.HoldDays)
			row[11] = money(t.PnL)
			row[12] = money(t.PnLPct)
		}
		w.Write(row)
	}

	w.Flush()
	return buf.Bytes()
}

// EquityCSV renders the equity curve, one row per simulated period.
func EquityCSV(equity []ledger.EquityPoint) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{
		"Date", "Cash", "Positions_Value", "Portfolio_Value", "Return_%", "Position_Count",
	})
	for _, pt := range equity {
		w.Write([]string{
			pt.Date.Format(dateFormat),
			money(pt.Cash),
			money(pt.PositionsValue),
			money(pt.PortfolioValue),
			money(pt.ReturnPct),
			strconv.Itoa(pt.PositionCount),
		})
	}

	w.Flush()
	return buf.Bytes()
}

// summaryDoc is the JSON layout of the summary export.
type summaryDoc struct {
	BacktestPeriod struct {
		StartDate  string  `json:"Start_Date"`
		EndDate    string  `json:"End_Date"`
		TotalWeeks int     `json:"Total_Weeks"`
		Years      float64 `json:"Years"`
	} `json:"Backtest_Period"`
	Performance struct {
		StartingValue  float64 `json:"Starting_Value"`
		FinalValue     float64 `json:"Final_Value"`
		TotalReturnPct float64 `json:"Total_Return_%"`
		CAGRPct        float64 `json:"CAGR_%"`
		MaxDrawdownPct float64 `json:"Max_Drawdown_%"`
	} `json:"Performance"`
	TradingStats struct {
		TotalTrades      int     `json:"Total_Trades"`
		WinRatePct       float64 `json:"Win_Rate_%"`
		AvgWinPct        float64 `json:"Avg_Win_%"`
		AvgLossPct       float64 `json:"Avg_Loss_%"`
		AvgTradePct      float64 `json:"Avg_Trade_%"`
		BestTradePct     float64 `json:"Best_Trade_%"`
		BestTradeTicker  string  `json:"Best_Trade_Ticker"`
		WorstTradePct    float64 `json:"Worst_Trade_%"`
		WorstTradeTicker string  `json:"Worst_Trade_Ticker"`
	} `json:"Trading_Stats"`
}

// SummaryJSON renders the nested summary document.
func SummaryJSON(s backtest.Summary) ([]byte, error) {
	var doc summaryDoc

	doc.BacktestPeriod.StartDate = timeOrEmpty(s.StartDate)
	doc.BacktestPeriod.EndDate = timeOrEmpty(s.EndDate)
	doc.BacktestPeriod.TotalWeeks = s.TotalWeeks
	doc.BacktestPeriod.Years = round2(s.Years)

	doc.Performance.StartingValue = round2(s.StartingValue)
	doc.Performance.FinalValue = round2(s.FinalValue)
	doc.Performance.TotalReturnPct = round2(s.TotalReturnPct)
	doc.Performance.CAGRPct = round2(s.CAGRPct)
	doc.Performance.MaxDrawdownPct = round2(s.MaxDrawdownPct)

	doc.TradingStats.TotalTrades = s.TotalTrades
	doc.TradingStats.WinRatePct = round2(s.WinRatePct)
	doc.TradingStats.AvgWinPct = round2(s.AvgWinPct)
	doc.TradingStats.AvgLossPct = round2(s.AvgLossPct)
	doc.TradingStats.AvgTradePct = round2(s.AvgTradePct)
	doc.TradingStats.BestTradePct = round2(s.BestTradePct)
	doc.TradingStats.BestTradeTicker = s.BestTradeTicker
	doc.TradingStats.WorstTradePct = round2(s.WorstTradePct)
	doc.TradingStats.WorstTradeTicker = s.WorstTradeTicker

	return json.MarshalIndent(doc, "", "  ")
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func round2(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return math.Round(v*100) / 100
}

// RunPath returns the artifact directory for a run.
func RunPath(runID string) string {
	return fmt.Sprintf("runs/%s", runID)
}

// timeOrEmpty formats a zero time as blank.
func timeOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateFormat)
}
