package export

import (
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbolt/ghb/internal/backtest"
	"github.com/finbolt/ghb/internal/core"
	"github.com/finbolt/ghb/internal/ledger"
)

func sampleResult() *backtest.Result {
	entry := time.Date(2021, 4, 5, 0, 0, 0, 0, time.UTC)
	exit := time.Date(2021, 6, 7, 0, 0, 0, 0, time.UTC)

	return &backtest.Result{
		RunID: "test-run",
		Trades: []ledger.Trade{
			{
				Action: core.ActionBuy, Ticker: "AAPL", Date: entry,
				Price: 350, Shares: 100, Value: 35000, State: core.StateP1,
				PortfolioValue: 110000,
			},
			{
				Action: core.ActionSell, Ticker: "AAPL", Date: exit,
				Price: 385, Shares: 100, Value: 38500, State: core.StateN2,
				EntryDate: entry, EntryPrice: 350, EntryState: core.StateP1,
				HoldDays: 63, PnL: 3500, PnLPct: 10,
				PortfolioValue: 113500,
			},
		},
		Equity: []ledger.EquityPoint{
			{Date: entry, Cash: 75000, PositionsValue: 35000, PortfolioValue: 110000, ReturnPct: 0, PositionCount: 1},
			{Date: exit, Cash: 113500, PositionsValue: 0, PortfolioValue: 113500, ReturnPct: 3.18, PositionCount: 0},
		},
		Summary: backtest.Summary{
			StartDate: entry, EndDate: exit, TotalWeeks: 2, Years: 2.0 / 52,
			StartingValue: 110000, FinalValue: 113500, TotalReturnPct: 3.1818,
			TotalTrades: 1, WinningTrades: 1, WinRatePct: 100,
			AvgWinPct: 10, AvgTradePct: 10,
			BestTradePct: 10, BestTradeTicker: "AAPL",
			WorstTradePct: 10, WorstTradeTicker: "AAPL",
		},
	}
}

func TestTradesCSV(t *testing.T) {
	out := string(TradesCSV(sampleResult().Trades))
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)

	assert.Equal(t,
		"Date,Ticker,Action,Shares,Price,Value,State,Entry_Date,Entry_Price,Entry_State,Hold_Days,PnL_$,PnL_%,Portfolio_Value",
		lines[0])
	// BUY rows leave the round-trip columns blank.
	assert.Equal(t, "2021-04-05,AAPL,BUY,100,350.00,35000.00,P1,,,,,,,110000.00", lines[1])
	assert.Equal(t, "2021-06-07,AAPL,SELL,100,385.00,38500.00,N2,2021-04-05,350.00,P1,63,3500.00,10.00,113500.00", lines[2])
}

func TestEquityCSV(t *testing.T) {
	out := string(EquityCSV(sampleResult().Equity))
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)

	assert.Equal(t, "Date,Cash,Positions_Value,Portfolio_Value,Return_%,Position_Count", lines[0])
	assert.Equal(t, "2021-04-05,75000.00,35000.00,110000.00,0.00,1", lines[1])
}

func TestSummaryJSON(t *testing.T) {
	data, err := SummaryJSON(sampleResult().Summary)
	require.NoError(t, err)

	var doc map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	period := doc["Backtest_Period"]
	assert.Equal(t, "2021-04-05", period["Start_Date"])
	assert.EqualValues(t, 2, period["Total_Weeks"])

	perf := doc["Performance"]
	assert.EqualValues(t, 110000, perf["Starting_Value"])
	assert.EqualValues(t, 3.18, perf["Total_Return_%"])

	stats := doc["Trading_Stats"]
	assert.EqualValues(t, 1, stats["Total_Trades"])
	assert.Equal(t, "AAPL", stats["Best_Trade_Ticker"])
}

func TestSummaryJSON_InfiniteProfitFactorSafe(t *testing.T) {
	// Summaries with +Inf fields must still serialize.
	s := sampleResult().Summary
	s.CAGRPct = math.Inf(1)
	data, err := SummaryJSON(s)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	var doc map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.EqualValues(t, 0, doc["Performance"]["CAGR_%"])
}

func TestExporter_WritesAllArtifacts(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewLocalFS(dir)
	require.NoError(t, err)

	err = New(storage, nil).Export(context.Background(), sampleResult())
	require.NoError(t, err)

	for _, name := range []string{"trades.csv", "equity.csv", "summary.json"} {
		data, err := storage.Read(context.Background(), filepath.Join("runs", "test-run", name))
		require.NoError(t, err, name)
		assert.NotEmpty(t, data, name)
	}

	paths, err := storage.List(context.Background(), "runs/test-run")
	require.NoError(t, err)
	assert.Len(t, paths, 3)
}
