package ledger

import (
	"time"

	"github.com/finbolt/ghb/internal/core"
)

// Position is one open holding. Entry fields are write-once; only the
// mark-to-market fields change, and only through Ledger methods.
type Position struct {
	Ticker     string
	EntryDate  time.Time
	EntryPrice float64 // post-slippage execution price
	Shares     int64
	EntryState core.State

	// Mark-to-market, updated each simulated period.
	CurrentPrice float64
	CurrentState core.State
}

// MarketValue is the position's current worth.
func (p Position) MarketValue() float64 {
	return p.CurrentPrice * float64(p.Shares)
}

// CostBasis is the dollars spent opening the position.
func (p Position) CostBasis() float64 {
	return p.EntryPrice * float64(p.Shares)
}

// Trade is one immutable row of the trade log, appended when a position
// opens or closes. The exit fields are populated on SELL rows only.
type Trade struct {
	Action core.Action
	Ticker string
	Date   time.Time
	Price  float64 // post-slippage execution price
	Shares int64
	Value  float64
	State  core.State

	// SELL rows carry the round trip.
	EntryDate  time.Time
	EntryPrice float64
	EntryState core.State
	HoldDays   int
	PnL        float64 // dollars
	PnLPct     float64

	// PortfolioValue is the marked portfolio value after the trade.
	PortfolioValue float64
}

// IsWin reports whether a SELL trade realized a profit.
func (t Trade) IsWin() bool {
	return t.Action == core.ActionSell && t.PnL > 0
}

// EquityPoint is one row of the equity curve, appended once per simulated
// period.
type EquityPoint struct {
	Date           time.Time
	Cash           float64
	PositionsValue float64
	PortfolioValue float64
	ReturnPct      float64 // cumulative, vs starting cash
	PositionCount  int
}
