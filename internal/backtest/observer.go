package backtest

import (
	"time"

	"go.uber.org/zap"

	"github.com/finbolt/ghb/internal/ledger"
)

// Observer receives progress events from a running driver. The core emits
// events instead of printing; reporting is the observer's business.
type Observer interface {
	PeriodStart(date time.Time, signals int)
	TradeOpened(trade ledger.Trade)
	TradeClosed(trade ledger.Trade)
	PeriodEnd(date time.Time, equity ledger.EquityPoint)
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) PeriodStart(time.Time, int)              {}
func (NopObserver) TradeOpened(ledger.Trade)                {}
func (NopObserver) TradeClosed(ledger.Trade)                {}
func (NopObserver) PeriodEnd(time.Time, ledger.EquityPoint) {}

// ZapObserver logs each event at debug level, trades at info.
type ZapObserver struct {
	Log *zap.Logger
}

func (o ZapObserver) PeriodStart(date time.Time, signals int) {
	o.Log.Debug("period start",
		zap.Time("date", date),
		zap.Int("signals", signals))
}

func (o ZapObserver) TradeOpened(t ledger.Trade) {
	o.Log.Info("opened position",
		zap.String("ticker", t.Ticker),
		zap.Time("date", t.Date),
		zap.Float64("price", t.Price),
		zap.Int64("shares", t.Shares))
}

func (o ZapObserver) TradeClosed(t ledger.Trade) {
	o.Log.Info("closed position",
		zap.String("ticker", t.Ticker),
		zap.Time("date", t.Date),
		zap.Float64("price", t.Price),
		zap.Float64("pnl", t.PnL),
		zap.Float64("pnl_pct", t.PnLPct),
		zap.Int("hold_days", t.HoldDays))
}

func (o ZapObserver) PeriodEnd(date time.Time, eq ledger.EquityPoint) {
	o.Log.Debug("period end",
		zap.Time("date", date),
		zap.Float64("portfolio_value", eq.PortfolioValue),
		zap.Int("positions", eq.PositionCount))
}

// MultiObserver fans events out to several observers.
type MultiObserver []Observer

func (m MultiObserver) PeriodStart(date time.Time, signals int) {
	for _, o := range m {
		o.PeriodStart(date, signals)
	}
}

func (m MultiObserver) TradeOpened(t ledger.Trade) {
	for _, o := range m {
		o.TradeOpened(t)
	}
}

func (m MultiObserver) TradeClosed(t ledger.Trade) {
	for _, o := range m {
		o.TradeClosed(t)
	}
}

func (m MultiObserver) PeriodEnd(date time.Time, eq ledger.EquityPoint) {
	for _, o := range m {
		o.PeriodEnd(date, eq)
	}
}
