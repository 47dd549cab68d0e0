// Package ledger owns all capital-allocation state for one backtest run:
// cash, open positions, the trade log, and the equity curve. Every
// mutation goes through a Ledger method so the reconciliation invariant
// (portfolio value == cash + sum of position market values) holds after
// each operation.
package ledger

import (
	"math"
	"sort"
	"time"

	"github.com/finbolt/ghb/internal/core"
)

// Ledger is the portfolio aggregate for a single run. It is not safe for
// concurrent use; one driver owns one ledger for the life of one run.
type Ledger struct {
	cfg       Config
	cash      float64
	positions map[string]*Position
	trades    []Trade
	equity    []EquityPoint
}

// New constructs a Ledger, failing fast with ErrConfigInvalid on a bad
// configuration.
func New(cfg Config) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Ledger{
		cfg:       cfg,
		cash:      cfg.StartingCash,
		positions: make(map[string]*Position),
	}, nil
}

// riskMultiplier maps distance-from-support to a sizing multiplier. Tier
// boundaries are inclusive on the lower bound of the higher tier, so 10.00
// sizes at 0.30 while 9.99 sizes at 0.50.
func riskMultiplier(distance float64) float64 {
	switch {
	case distance < 3:
		return 1.0
	case distance < 5:
		return 0.75
	case distance < 10:
		return 0.50
	case distance < 15:
		return 0.30
	default:
		return 0
	}
}

// OpenRequest carries the parameters for opening a position.
type OpenRequest struct {
	Ticker      string
	Date        time.Time
	SignalPrice float64
	EntryState  core.State
	// Slippage multiplies the signal price; >1 models an unfavorable buy
	// fill (1.015 fills 1.5% worse).
	Slippage float64
	// DistanceFromSupport feeds the risk-tier sizing table when
	// RiskAdjusted is set.
	DistanceFromSupport float64
	RiskAdjusted        bool
}

// CanOpen reports whether the position cap leaves room for a new entry.
func (l *Ledger) CanOpen() bool {
	return len(l.positions) < l.cfg.MaxPositions
}

// Has reports whether a position is open for ticker.
func (l *Ledger) Has(ticker string) bool {
	_, ok := l.positions[ticker]
	return ok
}

// Open opens a position. A false return means the trade did not happen
// (book full, duplicate ticker, zero target size, or a fill too small for
// one share) and the ledger is unchanged. That is ordinary simulation
// control flow, not an error.
func (l *Ledger) Open(req OpenRequest) bool {
	if !l.CanOpen() || l.Has(req.Ticker) {
		return false
	}

	target := l.cfg.StartingCash * l.cfg.allocationPct(req.Ticker) / 100
	if req.RiskAdjusted {
		target *= riskMultiplier(req.DistanceFromSupport)
	}

	price := req.SignalPrice * req.Slippage
	if target <= 0 || price <= 0 {
		return false
	}

	shares := int64(math.Floor(target / price))
	// Never go negative on cash: fall back to what the remaining cash
	// affords (a partial fill).
	if float64(shares)*price > l.cash {
		shares = int64(math.Floor(l.cash / price))
	}
	if shares <= 0 {
		return false
	}

	cost := float64(shares) * price
	l.cash -= cost
	l.positions[req.Ticker] = &Position{
		Ticker:       req.Ticker,
		EntryDate:    req.Date,
		EntryPrice:   price,
		Shares:       shares,
		EntryState:   req.EntryState,
		CurrentPrice: price,
		CurrentState: req.EntryState,
	}

	l.trades = append(l.trades, Trade{
		Action:         core.ActionBuy,
		Ticker:         req.Ticker,
		Date:           req.Date,
		Price:          price,
		Shares:         shares,
		Value:          cost,
		State:          req.EntryState,
		PortfolioValue: l.PortfolioValue(),
	})
	return true
}

// Close closes the position for ticker at the slippage-adjusted price,
// realizes the P&L into cash, and appends the SELL trade record. Returns
// false if no position is open for ticker.
func (l *Ledger) Close(ticker string, date time.Time, signalPrice float64, exitState core.State, slippage float64) bool {
	pos, ok := l.positions[ticker]
	if !ok {
		return false
	}

	price := signalPrice * slippage
	proceeds := price * float64(pos.Shares)
	cost := pos.CostBasis()
	pnl := proceeds - cost
	pnlPct := 0.0
	if cost > 0 {
		pnlPct = pnl / cost * 100
	}

	l.cash += proceeds
	delete(l.positions, ticker)

	l.trades = append(l.trades, Trade{
		Action:         core.ActionSell,
		Ticker:         ticker,
		Date:           date,
		Price:          price,
		Shares:         pos.Shares,
		Value:          proceeds,
		State:          exitState,
		EntryDate:      pos.EntryDate,
		EntryPrice:     pos.EntryPrice,
		EntryState:     pos.EntryState,
		HoldDays:       int(date.Sub(pos.EntryDate).Hours() / 24),
		PnL:            pnl,
		PnLPct:         pnlPct,
		PortfolioValue: l.PortfolioValue(),
	})
	return true
}

// MarkToMarket refreshes each open position's current price and state from
// the supplied signals. Positions absent from the table keep their last
// mark; a missing signal usually means insufficient history for that
// date, not a price of zero.
func (l *Ledger) MarkToMarket(signals []core.Signal) {
	for _, sig := range signals {
		if pos, ok := l.positions[sig.Ticker]; ok {
			pos.CurrentPrice = sig.Close
			pos.CurrentState = sig.State
		}
	}
}

// RecordEquity appends one equity-curve row at the current marks.
func (l *Ledger) RecordEquity(date time.Time) {
	positionsValue := l.positionsValue()
	total := l.cash + positionsValue
	l.equity = append(l.equity, EquityPoint{
		Date:           date,
		Cash:           l.cash,
		PositionsValue: positionsValue,
		PortfolioValue: total,
		ReturnPct:      (total - l.cfg.StartingCash) / l.cfg.StartingCash * 100,
		PositionCount:  len(l.positions),
	})
}

func (l *Ledger) positionsValue() float64 {
	// Sum in ticker order: float addition is order-sensitive and map
	// iteration is randomized, and reproducible runs need bit-identical
	// equity values.
	tickers := make([]string, 0, len(l.positions))
	for ticker := range l.positions {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	var sum float64
	for _, ticker := range tickers {
		sum += l.positions[ticker].MarketValue()
	}
	return sum
}

// PortfolioValue is cash plus the mark-to-market value of all open
// positions.
func (l *Ledger) PortfolioValue() float64 {
	return l.cash + l.positionsValue()
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	return l.cash
}

// StartingCash returns the configured initial capital.
func (l *Ledger) StartingCash() float64 {
	return l.cfg.StartingCash
}

// OpenCount returns the number of open positions.
func (l *Ledger) OpenCount() int {
	return len(l.positions)
}

// Positions returns copies of the open positions in ticker order. Callers
// cannot mutate ledger state through the result.
func (l *Ledger) Positions() []Position {
	out := make([]Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// Trades returns the trade log. The slice is a copy; trade records are
// append-only and never edited.
func (l *Ledger) Trades() []Trade {
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// LastTrade returns the most recent trade record, if any.
func (l *Ledger) LastTrade() (Trade, bool) {
	if len(l.trades) == 0 {
		return Trade{}, false
	}
	return l.trades[len(l.trades)-1], true
}

// LastEquity returns the most recent equity snapshot, if any.
func (l *Ledger) LastEquity() (EquityPoint, bool) {
	if len(l.equity) == 0 {
		return EquityPoint{}, false
	}
	return l.equity[len(l.equity)-1], true
}

// Equity returns the equity curve as a copy.
func (l *Ledger) Equity() []EquityPoint {
	out := make([]EquityPoint, len(l.equity))
	copy(out, l.equity)
	return out
}
